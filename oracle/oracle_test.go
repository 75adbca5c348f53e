package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type oracleFunc func(feedID string) (Quote, error)

func (f oracleFunc) LatestQuote(feedID string) (Quote, error) { return f(feedID) }

func TestManualOracleProvidesQuotes(t *testing.T) {
	manual := NewManualOracle()
	now := time.Now().UTC()
	if err := manual.SetDecimal("eth-usd", "2000", now); err != nil {
		t.Fatalf("set quote: %v", err)
	}
	quote, err := manual.LatestQuote("eth-usd")
	if err != nil {
		t.Fatalf("latest quote: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(2000), big.NewInt(100_000_000))
	if quote.Price.Cmp(want) != 0 {
		t.Fatalf("unexpected price: %s", quote.Price)
	}
	if !quote.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamp: %v", quote.UpdatedAt)
	}
}

func TestManualOracleUnknownFeed(t *testing.T) {
	manual := NewManualOracle()
	if _, err := manual.LatestQuote("missing"); !errors.Is(err, ErrUnknownFeed) {
		t.Fatalf("expected unknown feed, got %v", err)
	}
}

func TestAggregatorStaleQuote(t *testing.T) {
	manual := NewManualOracle()
	agg := NewAggregator([]string{"manual"}, time.Second)
	agg.Register("manual", manual)
	if err := manual.Set("eth-usd", big.NewInt(200_000_000_000), time.Now().Add(-2*time.Second)); err != nil {
		t.Fatalf("set quote: %v", err)
	}
	if _, err := agg.LatestQuote("eth-usd"); !errors.Is(err, ErrNoFreshQuote) {
		t.Fatalf("expected stale rejection, got %v", err)
	}
}

func TestAggregatorPriorityFallback(t *testing.T) {
	manual := NewManualOracle()
	agg := NewAggregator([]string{"primary", "manual"}, 5*time.Minute)
	agg.Register("primary", oracleFunc(func(string) (Quote, error) {
		return Quote{}, fmt.Errorf("primary down")
	}))
	agg.Register("manual", manual)
	if err := manual.Set("btc-usd", big.NewInt(1), time.Now()); err != nil {
		t.Fatalf("set quote: %v", err)
	}
	quote, err := agg.LatestQuote("btc-usd")
	if err != nil {
		t.Fatalf("latest quote: %v", err)
	}
	if quote.Source != "manual" {
		t.Fatalf("expected manual source, got %s", quote.Source)
	}
}

func TestHTTPOracle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("feed"); got != "eth-usd" {
			t.Fatalf("expected feed=eth-usd, got %s", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"price":      "2000.50",
			"updated_at": time.Now().Unix(),
		})
	}))
	defer server.Close()

	oracle := NewHTTPOracle(server.Client(), server.URL, "")
	quote, err := oracle.LatestQuote("eth-usd")
	if err != nil {
		t.Fatalf("latest quote: %v", err)
	}
	want := big.NewInt(200_050_000_000)
	if quote.Price.Cmp(want) != 0 {
		t.Fatalf("unexpected price: %s", quote.Price)
	}
}

func TestHTTPOracleRejectsBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"not-a-number"}`))
	}))
	defer server.Close()

	oracle := NewHTTPOracle(server.Client(), server.URL, "")
	if _, err := oracle.LatestQuote("eth-usd"); err == nil {
		t.Fatalf("expected decode failure")
	}
}
