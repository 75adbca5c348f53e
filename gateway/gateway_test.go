package gateway

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"synthvault/crypto"
	"synthvault/engine"
	"synthvault/ledger"
	"synthvault/oracle"
	"synthvault/pricing"
	"synthvault/registry"
	"synthvault/token"
)

type harness struct {
	server *httptest.Server
	weth   *token.VaultToken
	synth  *token.Synthetic
	alice  crypto.Address
	bob    crypto.Address
}

func inUnits(n int64) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), unit)
}

func makeAddress(t *testing.T, fill byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	addr, err := crypto.NewAddress(raw)
	require.NoError(t, err)
	return addr
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	reg, err := registry.New([]string{"weth"}, []string{"eth-usd"})
	require.NoError(t, err)

	feeds := oracle.NewManualOracle()
	require.NoError(t, feeds.SetDecimal("eth-usd", "2000", time.Now()))

	prices := pricing.NewConverter(reg, feeds)
	led := ledger.New(ledger.NewMemState())

	vault := makeAddress(t, 0xEE)
	weth := token.NewVaultToken("weth")
	synth := token.NewSynthetic()
	minter, err := synth.GrantMinter(vault)
	require.NoError(t, err)

	eng := engine.New(vault, engine.DefaultParams(), reg, prices, led,
		map[string]engine.CollateralToken{"weth": weth}, minter)

	srv := httptest.NewServer(NewServer(eng, reg, nil).Handler())
	t.Cleanup(srv.Close)

	return &harness{
		server: srv,
		weth:   weth,
		synth:  synth,
		alice:  makeAddress(t, 0xAA),
		bob:    makeAddress(t, 0xBB),
	}
}

func (h *harness) post(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDepositAndPosition(t *testing.T) {
	h := newHarness(t)
	h.weth.Fund(h.alice, inUnits(5))

	resp := h.post(t, "/collateral/deposit", map[string]string{
		"account": h.alice.String(),
		"asset":   "weth",
		"amount":  inUnits(5).String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(h.server.URL + "/positions/" + h.alice.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var position positionResponse
	decodeBody(t, resp, &position)
	require.Equal(t, inUnits(5).String(), position.Collateral["weth"])
	require.Equal(t, "0", position.Debt)
	require.Equal(t, inUnits(10_000).String(), position.CollateralUSD)
}

func TestMintBeyondThresholdConflicts(t *testing.T) {
	h := newHarness(t)
	h.weth.Fund(h.alice, inUnits(1))

	resp := h.post(t, "/collateral/deposit", map[string]string{
		"account": h.alice.String(),
		"asset":   "weth",
		"amount":  inUnits(1).String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 1 weth at $2000 supports at most $1000 of debt.
	resp = h.post(t, "/synth/mint", map[string]string{
		"account": h.alice.String(),
		"amount":  inUnits(1500).String(),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errBody map[string]string
	decodeBody(t, resp, &errBody)
	require.Contains(t, errBody["error"], "health factor")
}

func TestUnsupportedAssetRejected(t *testing.T) {
	h := newHarness(t)
	resp := h.post(t, "/collateral/deposit", map[string]string{
		"account": h.alice.String(),
		"asset":   "doge",
		"amount":  inUnits(1).String(),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestMalformedAmountRejected(t *testing.T) {
	h := newHarness(t)
	resp := h.post(t, "/synth/mint", map[string]string{
		"account": h.alice.String(),
		"amount":  "lots",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEmptyBodyRejected(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Post(h.server.URL+"/synth/burn", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidAccountRejected(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/positions/not-an-address")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiquidateSolventConflicts(t *testing.T) {
	h := newHarness(t)
	h.weth.Fund(h.alice, inUnits(2))

	resp := h.post(t, "/collateral/deposit", map[string]string{
		"account": h.alice.String(),
		"asset":   "weth",
		"amount":  inUnits(2).String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.post(t, "/liquidate", map[string]string{
		"liquidator":  h.bob.String(),
		"asset":       "weth",
		"account":     h.alice.String(),
		"debtToCover": inUnits(100).String(),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestRedeemWithoutDepositConflicts(t *testing.T) {
	h := newHarness(t)
	resp := h.post(t, "/collateral/redeem", map[string]string{
		"account": h.alice.String(),
		"asset":   "weth",
		"amount":  inUnits(1).String(),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
