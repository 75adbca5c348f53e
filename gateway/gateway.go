// Package gateway exposes the vault engine over HTTP. Handlers decode JSON
// requests, invoke the engine, and translate its error kinds onto HTTP
// statuses.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synthvault/crypto"
	"synthvault/engine"
	"synthvault/ledger"
	"synthvault/pricing"
	"synthvault/registry"
)

const requestLimit = 1 << 16 // 64 KiB

// Server mounts the vault's HTTP routes.
type Server struct {
	engine   *engine.Engine
	registry *registry.Registry
	logger   *slog.Logger
}

// NewServer wires the engine behind an HTTP router.
func NewServer(eng *engine.Engine, reg *registry.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: eng, registry: reg, logger: logger}
}

// Handler builds the chi router for the vault surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/positions/{account}", s.getPosition)
	r.Post("/collateral/deposit", s.depositCollateral)
	r.Post("/collateral/redeem", s.redeemCollateral)
	r.Post("/synth/mint", s.mintSynthetic)
	r.Post("/synth/burn", s.burnSynthetic)
	r.Post("/liquidate", s.liquidate)

	return r
}

type amountRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset,omitempty"`
	Amount  string `json:"amount"`
}

type liquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	Asset       string `json:"asset"`
	Account     string `json:"account"`
	DebtToCover string `json:"debtToCover"`
}

type positionResponse struct {
	Account       string            `json:"account"`
	Collateral    map[string]string `json:"collateral"`
	Debt          string            `json:"debt"`
	CollateralUSD string            `json:"collateralUsd"`
	HealthFactor  string            `json:"healthFactor"`
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	account, err := crypto.DecodeAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid account: %w", err))
		return
	}

	debt, collateralUSD, err := s.engine.AccountInformation(account)
	if err != nil {
		s.writeEngineError(w, "position", err)
		return
	}
	factor, err := s.engine.HealthFactor(account)
	if err != nil {
		s.writeEngineError(w, "position", err)
		return
	}

	collateral := make(map[string]string)
	for _, assetID := range s.registry.Assets() {
		balance, err := s.engine.CollateralBalance(account, assetID)
		if err != nil {
			s.writeEngineError(w, "position", err)
			return
		}
		if balance.Sign() > 0 {
			collateral[assetID] = balance.String()
		}
	}

	writeJSON(w, http.StatusOK, positionResponse{
		Account:       account.String(),
		Collateral:    collateral,
		Debt:          debt.String(),
		CollateralUSD: collateralUSD.String(),
		HealthFactor:  factor.String(),
	})
}

func (s *Server) depositCollateral(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, amount, err := req.parse()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.engine.DepositCollateral(account, req.Asset, amount); err != nil {
		s.writeEngineError(w, "deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) redeemCollateral(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, amount, err := req.parse()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.engine.RedeemCollateral(account, req.Asset, amount); err != nil {
		s.writeEngineError(w, "redeem", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) mintSynthetic(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, amount, err := req.parse()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.engine.Mint(account, amount); err != nil {
		s.writeEngineError(w, "mint", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) burnSynthetic(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, amount, err := req.parse()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.engine.Burn(account, amount); err != nil {
		s.writeEngineError(w, "burn", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) liquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	liquidator, err := crypto.DecodeAddress(req.Liquidator)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid liquidator: %w", err))
		return
	}
	target, err := crypto.DecodeAddress(req.Account)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid account: %w", err))
		return
	}
	debtToCover, err := parseAmount(req.DebtToCover)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.engine.Liquidate(liquidator, req.Asset, target, debtToCover); err != nil {
		s.writeEngineError(w, "liquidate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r amountRequest) parse() (crypto.Address, *big.Int, error) {
	account, err := crypto.DecodeAddress(r.Account)
	if err != nil {
		return crypto.Address{}, nil, fmt.Errorf("invalid account: %w", err)
	}
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return account, amount, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func decodeRequest(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, requestLimit))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// writeEngineError maps the engine's error kinds onto HTTP statuses. Input
// problems come back 400, state conflicts 409, collaborator failures 502, and
// a stale oracle 503.
func (s *Server) writeEngineError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrAmountMustBePositive),
		errors.Is(err, registry.ErrAssetNotSupported):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientCollateral),
		errors.Is(err, ledger.ErrInsufficientDebt),
		errors.Is(err, engine.ErrHealthFactorBroken),
		errors.Is(err, engine.ErrHealthFactorAlreadySafe),
		errors.Is(err, engine.ErrLiquidationDidNotImprove),
		errors.Is(err, engine.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrCollateralTransferFailed),
		errors.Is(err, engine.ErrMintFailed),
		errors.Is(err, engine.ErrBurnFailed):
		status = http.StatusBadGateway
	case errors.Is(err, pricing.ErrPriceUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("unhandled engine error", "op", op, "error", err)
	}
	writeJSONError(w, status, err)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, err)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"marshal response"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
