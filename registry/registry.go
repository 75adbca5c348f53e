// Package registry holds the constructor-fixed set of collateral assets the
// vault accepts and the price feed backing each one.
package registry

import "errors"

var (
	// ErrConfigurationMismatch indicates the asset and feed lists differ in length.
	ErrConfigurationMismatch = errors.New("registry: asset and price feed lists must have equal length")
	// ErrAssetNotSupported indicates an operation referenced an unregistered asset.
	ErrAssetNotSupported = errors.New("registry: asset not supported")
)

// Registry is the immutable mapping from collateral asset identifier to its
// price feed, plus the ordered asset list used for deterministic valuation
// sweeps. A duplicate asset entry overwrites the earlier feed lookup but is
// appended to the iteration list again, mirroring the reference accounting.
type Registry struct {
	order []string
	feeds map[string]string
}

// New builds a registry from two equal-length ordered lists.
func New(assetIDs, feedIDs []string) (*Registry, error) {
	if len(assetIDs) != len(feedIDs) {
		return nil, ErrConfigurationMismatch
	}
	r := &Registry{
		order: make([]string, 0, len(assetIDs)),
		feeds: make(map[string]string, len(assetIDs)),
	}
	for i, assetID := range assetIDs {
		r.order = append(r.order, assetID)
		r.feeds[assetID] = feedIDs[i]
	}
	return r, nil
}

// IsSupported reports whether the asset is registered.
func (r *Registry) IsSupported(assetID string) bool {
	_, ok := r.feeds[assetID]
	return ok
}

// PriceFeedOf resolves the feed identifier for the asset.
func (r *Registry) PriceFeedOf(assetID string) (string, error) {
	feedID, ok := r.feeds[assetID]
	if !ok {
		return "", ErrAssetNotSupported
	}
	return feedID, nil
}

// Assets returns the asset identifiers in registration order.
func (r *Registry) Assets() []string {
	return append([]string(nil), r.order...)
}
