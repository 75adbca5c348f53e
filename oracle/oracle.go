// Package oracle supplies USD price quotes for collateral assets. Quotes carry
// eight fractional digits, matching the feed precision the valuation layer
// scales up from.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// FeedDecimals is the fractional precision of quoted prices.
const FeedDecimals = 8

var (
	// ErrUnknownFeed indicates no oracle is tracking the requested feed.
	ErrUnknownFeed = errors.New("oracle: unknown price feed")
	// ErrNoFreshQuote indicates every registered oracle failed to produce a
	// quote inside the configured freshness window.
	ErrNoFreshQuote = errors.New("oracle: no fresh quote available")
)

// Quote captures a price observation for a feed along with the timestamp
// reported upstream and the oracle identifier that produced it.
type Quote struct {
	Price     *big.Int
	UpdatedAt time.Time
	Source    string
}

// Clone returns a deep copy of the quote to prevent accidental mutation.
func (q Quote) Clone() Quote {
	clone := Quote{UpdatedAt: q.UpdatedAt, Source: q.Source}
	if q.Price != nil {
		clone.Price = new(big.Int).Set(q.Price)
	}
	return clone
}

// PriceOracle resolves the latest quote for a price feed identifier.
type PriceOracle interface {
	LatestQuote(feedID string) (Quote, error)
}

// ManualOracle stores operator-supplied quotes. It backs test fixtures and
// acts as the override feed of last resort.
type ManualOracle struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewManualOracle constructs an empty manual feed store.
func NewManualOracle() *ManualOracle {
	return &ManualOracle{quotes: make(map[string]Quote)}
}

// Set records a quote for the feed. Price is interpreted with FeedDecimals
// fractional digits; non-positive prices are stored as-is so downstream
// rejection paths stay exercisable.
func (m *ManualOracle) Set(feedID string, price *big.Int, at time.Time) error {
	trimmed := strings.TrimSpace(feedID)
	if trimmed == "" {
		return fmt.Errorf("oracle: feed identifier required")
	}
	if price == nil {
		return fmt.Errorf("oracle: price required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[trimmed] = Quote{Price: new(big.Int).Set(price), UpdatedAt: at, Source: "manual"}
	return nil
}

// SetDecimal records a quote given as a decimal string, e.g. "2000.00".
func (m *ManualOracle) SetDecimal(feedID, price string, at time.Time) error {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(price))
	if !ok {
		return fmt.Errorf("oracle: invalid decimal price %q", price)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(FeedDecimals), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	return m.Set(feedID, new(big.Int).Quo(scaled.Num(), scaled.Denom()), at)
}

// LatestQuote returns the stored quote for the feed.
func (m *ManualOracle) LatestQuote(feedID string) (Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quote, ok := m.quotes[strings.TrimSpace(feedID)]
	if !ok {
		return Quote{}, ErrUnknownFeed
	}
	return quote.Clone(), nil
}

// Aggregator consults registered oracles in priority order until one yields a
// quote inside the freshness window.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	oracles  map[string]PriceOracle
	maxAge   time.Duration
	now      func() time.Time
}

// NewAggregator constructs an aggregator with the provided priority order and
// freshness window. A zero maxAge disables staleness checks.
func NewAggregator(priority []string, maxAge time.Duration) *Aggregator {
	cloned := append([]string(nil), priority...)
	return &Aggregator{
		priority: cloned,
		oracles:  make(map[string]PriceOracle),
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Register wires an oracle under the given name. Names absent from the
// priority list are appended at the end.
func (a *Aggregator) Register(name string, oracle PriceOracle) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || oracle == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.oracles[trimmed]; !exists {
		found := false
		for _, existing := range a.priority {
			if existing == trimmed {
				found = true
				break
			}
		}
		if !found {
			a.priority = append(a.priority, trimmed)
		}
	}
	a.oracles[trimmed] = oracle
}

// LatestQuote walks the priority list and returns the first fresh quote.
func (a *Aggregator) LatestQuote(feedID string) (Quote, error) {
	a.mu.RLock()
	priority := append([]string(nil), a.priority...)
	oracles := make(map[string]PriceOracle, len(a.oracles))
	for name, oracle := range a.oracles {
		oracles[name] = oracle
	}
	maxAge := a.maxAge
	now := a.now()
	a.mu.RUnlock()

	for _, name := range priority {
		oracle, ok := oracles[name]
		if !ok {
			continue
		}
		quote, err := oracle.LatestQuote(feedID)
		if err != nil {
			continue
		}
		if maxAge > 0 && now.Sub(quote.UpdatedAt) > maxAge {
			continue
		}
		if quote.Source == "" {
			quote.Source = name
		}
		return quote, nil
	}
	return Quote{}, ErrNoFreshQuote
}
