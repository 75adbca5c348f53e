package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPOracle fetches quotes from a JSON price endpoint of the form
// GET <base>?feed=<feedID> returning {"price":"<decimal>","updated_at":<unix>}.
type HTTPOracle struct {
	client *http.Client
	base   string
	apiKey string
}

// NewHTTPOracle constructs an HTTP-backed oracle. The api key is optional and
// sent as a bearer token when present.
func NewHTTPOracle(client *http.Client, base, apiKey string) *HTTPOracle {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPOracle{client: client, base: strings.TrimRight(base, "/"), apiKey: apiKey}
}

type httpQuotePayload struct {
	Price     string `json:"price"`
	UpdatedAt int64  `json:"updated_at"`
}

// LatestQuote performs the feed lookup.
func (o *HTTPOracle) LatestQuote(feedID string) (Quote, error) {
	trimmed := strings.TrimSpace(feedID)
	if trimmed == "" {
		return Quote{}, ErrUnknownFeed
	}
	endpoint := fmt.Sprintf("%s?feed=%s", o.base, url.QueryEscape(trimmed))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("oracle: build request: %w", err)
	}
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("oracle: fetch quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Quote{}, fmt.Errorf("oracle: read body: %w", err)
	}
	payload := httpQuotePayload{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Quote{}, fmt.Errorf("oracle: decode body: %w", err)
	}
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(payload.Price))
	if !ok {
		return Quote{}, fmt.Errorf("oracle: invalid price %q", payload.Price)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(FeedDecimals), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	price := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	updated := time.Unix(payload.UpdatedAt, 0).UTC()
	return Quote{Price: price, UpdatedAt: updated, Source: "http"}, nil
}
