// Package pricing converts between asset-native amounts and normalized USD
// value. All amounts use 18-decimal fixed point; oracle quotes carry 8
// fractional digits and are scaled up before use.
package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"synthvault/oracle"
	"synthvault/registry"
)

// ErrPriceUnavailable indicates the oracle could not supply a usable quote.
var ErrPriceUnavailable = errors.New("pricing: price unavailable")

var (
	// unit is the 18-decimal fixed-point scale shared by USD values and
	// ledger amounts.
	unit = mustBigInt("1000000000000000000")
	// feedScale lifts an 8-decimal oracle quote to 18-decimal precision.
	feedScale = big.NewInt(10_000_000_000)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Unit returns the 18-decimal fixed-point unit.
func Unit() *big.Int { return new(big.Int).Set(unit) }

// Converter performs stateless USD valuation against the registry's feeds.
type Converter struct {
	registry *registry.Registry
	oracle   oracle.PriceOracle
}

// NewConverter wires a converter to the asset registry and price oracle.
func NewConverter(reg *registry.Registry, po oracle.PriceOracle) *Converter {
	return &Converter{registry: reg, oracle: po}
}

// scaledPrice fetches the asset's latest quote and lifts it to 18-decimal
// precision. Non-positive quotes are rejected.
func (c *Converter) scaledPrice(assetID string) (*big.Int, error) {
	feedID, err := c.registry.PriceFeedOf(assetID)
	if err != nil {
		return nil, err
	}
	quote, err := c.oracle.LatestQuote(feedID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, ErrPriceUnavailable
	}
	return new(big.Int).Mul(quote.Price, feedScale), nil
}

// ToUSD values an asset amount in 18-decimal USD. Integer division truncates
// toward zero; callers must tolerate truncation dust.
func (c *Converter) ToUSD(assetID string, amount *big.Int) (*big.Int, error) {
	price, err := c.scaledPrice(assetID)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(price, amount)
	return value.Quo(value, unit), nil
}

// FromUSD converts an 18-decimal USD amount into asset units. The round trip
// FromUSD(ToUSD(a, x)) may fall short of x by truncation; it never overshoots.
func (c *Converter) FromUSD(assetID string, usdAmount *big.Int) (*big.Int, error) {
	price, err := c.scaledPrice(assetID)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(usdAmount, unit)
	return value.Quo(value, price), nil
}
