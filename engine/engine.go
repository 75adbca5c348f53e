// Package engine composes the vault's public operation surface: collateral
// custody, synthetic mint/burn, and liquidation. Every state-mutating
// operation either fully commits or leaves the ledger byte-identical.
package engine

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"synthvault/crypto"
	"synthvault/ledger"
	"synthvault/observability"
	"synthvault/pricing"
	"synthvault/registry"
)

// CollateralToken is the collateral collaborator boundary. Outbound transfers
// from vault custody use TransferFrom with the engine's own account as the
// source; a reported failure aborts and rolls back the enclosing operation.
type CollateralToken interface {
	TransferFrom(from, to crypto.Address, amount *big.Int) error
	BalanceOf(account crypto.Address) *big.Int
}

// SyntheticToken is the synthetic collaborator boundary. Mint and Burn are
// backed by the exclusive minter capability granted to the engine at setup.
type SyntheticToken interface {
	Mint(to crypto.Address, amount *big.Int) error
	Burn(amount *big.Int) error
	TransferFrom(from, to crypto.Address, amount *big.Int) error
}

// Engine orchestrates the ledger, valuation, and token collaborators behind
// the vault's public operations.
type Engine struct {
	account    crypto.Address
	params     Params
	registry   *registry.Registry
	prices     *pricing.Converter
	ledger     *ledger.Ledger
	collateral map[string]CollateralToken
	synthetic  SyntheticToken

	logger  *slog.Logger
	metrics *observability.EngineMetrics
	emit    func(*Event)

	// busy is the non-reentrant lock: state-mutating entry points flip it for
	// their full duration and reject any nested acquisition.
	busy atomic.Bool
}

// New constructs an engine. The account is the vault's custody identity with
// the collateral and synthetic tokens.
func New(account crypto.Address, params Params, reg *registry.Registry, prices *pricing.Converter, led *ledger.Ledger, collateral map[string]CollateralToken, synthetic SyntheticToken) *Engine {
	if params.MinHealthFactor == nil {
		params.MinHealthFactor = DefaultParams().MinHealthFactor
	}
	tokens := make(map[string]CollateralToken, len(collateral))
	for assetID, tok := range collateral {
		tokens[assetID] = tok
	}
	return &Engine{
		account:    account,
		params:     params,
		registry:   reg,
		prices:     prices,
		ledger:     led,
		collateral: tokens,
		synthetic:  synthetic,
		logger:     slog.Default(),
	}
}

// Account returns the engine's custody address.
func (e *Engine) Account() crypto.Address { return e.account }

// SetLogger replaces the engine's structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.logger = logger
}

// SetMetrics wires the prometheus instrumentation.
func (e *Engine) SetMetrics(m *observability.EngineMetrics) {
	if e == nil {
		return
	}
	e.metrics = m
}

// SetEmitter registers a sink for committed-operation events.
func (e *Engine) SetEmitter(emit func(*Event)) {
	if e == nil {
		return
	}
	e.emit = emit
}

func (e *Engine) enter() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (e *Engine) exit() { e.busy.Store(false) }

func (e *Engine) observe(op string, start time.Time, err error) {
	if e.metrics != nil {
		e.metrics.Observe(op, start, err)
	}
	if err != nil {
		e.logger.Warn("vault operation failed", "op", op, "err", err)
	}
}

func (e *Engine) publish(evt *Event) {
	if e.emit != nil {
		e.emit(evt)
	}
}

func (e *Engine) collateralToken(assetID string) (CollateralToken, error) {
	tok, ok := e.collateral[assetID]
	if !ok {
		return nil, registry.ErrAssetNotSupported
	}
	return tok, nil
}

// AccountInformation returns the account's raw debt and its total collateral
// value in 18-decimal USD, summed over every registered asset in
// registration order. Zero balances contribute zero.
func (e *Engine) AccountInformation(account crypto.Address) (debt, collateralUSD *big.Int, err error) {
	debt, err = e.ledger.DebtOf(account)
	if err != nil {
		return nil, nil, err
	}
	collateralUSD = big.NewInt(0)
	for _, assetID := range e.registry.Assets() {
		balance, err := e.ledger.CollateralOf(account, assetID)
		if err != nil {
			return nil, nil, err
		}
		if balance.Sign() == 0 {
			continue
		}
		value, err := e.prices.ToUSD(assetID, balance)
		if err != nil {
			return nil, nil, err
		}
		collateralUSD.Add(collateralUSD, value)
	}
	return debt, collateralUSD, nil
}

// HealthFactor returns the account's solvency ratio in 18-decimal fixed
// point. Debt-free accounts report the safe-maximal value: an account that
// owes nothing can never be insolvent, so no division is performed.
func (e *Engine) HealthFactor(account crypto.Address) (*big.Int, error) {
	debt, collateralUSD, err := e.AccountInformation(account)
	if err != nil {
		return nil, err
	}
	if debt.Sign() == 0 {
		return MaxHealthFactor(), nil
	}
	adjusted := new(big.Int).Mul(collateralUSD, new(big.Int).SetUint64(e.params.LiquidationThresholdPct))
	adjusted.Quo(adjusted, big.NewInt(100))
	ratio := new(big.Int).Mul(adjusted, pricing.Unit())
	return ratio.Quo(ratio, debt), nil
}

// AssertHealthy fails with a HealthFactorError when the account is below the
// minimum health factor.
func (e *Engine) AssertHealthy(account crypto.Address) error {
	factor, err := e.HealthFactor(account)
	if err != nil {
		return err
	}
	if factor.Cmp(e.params.MinHealthFactor) < 0 {
		return newHealthFactorError(factor, e.params.MinHealthFactor)
	}
	return nil
}

// CollateralBalance returns the caller's stored balance of the asset.
func (e *Engine) CollateralBalance(account crypto.Address, assetID string) (*big.Int, error) {
	return e.ledger.CollateralOf(account, assetID)
}

// DepositCollateral credits the caller's ledger balance and pulls the asset
// into vault custody. A failed pull rolls the credit back.
func (e *Engine) DepositCollateral(caller crypto.Address, assetID string, amount *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	err := e.depositCollateral(caller, assetID, amount)
	e.observe("deposit_collateral", start, err)
	if err == nil {
		e.publish(collateralDepositedEvent(caller, assetID, amount))
	}
	return err
}

func (e *Engine) depositCollateral(caller crypto.Address, assetID string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrAmountMustBePositive
	}
	if !e.registry.IsSupported(assetID) {
		return registry.ErrAssetNotSupported
	}
	tok, err := e.collateralToken(assetID)
	if err != nil {
		return err
	}
	if err := e.ledger.CreditCollateral(caller, assetID, amount); err != nil {
		return err
	}
	if err := tok.TransferFrom(caller, e.account, amount); err != nil {
		if rbErr := e.ledger.DebitCollateral(caller, assetID, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback deposit credit: %w", rbErr)
		}
		return fmt.Errorf("%w: %v", ErrCollateralTransferFailed, err)
	}
	return nil
}

// Mint credits debt against the caller's collateral and issues synthetic
// units. The debt credit is rolled back when the health check or the token
// collaborator fails.
func (e *Engine) Mint(caller crypto.Address, amount *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	err := e.mint(caller, amount)
	e.observe("mint", start, err)
	if err == nil {
		e.publish(synthMintedEvent(caller, amount))
	}
	return err
}

func (e *Engine) mint(caller crypto.Address, amount *big.Int) error {
	if err := e.ledger.CreditDebt(caller, amount); err != nil {
		return err
	}
	if err := e.AssertHealthy(caller); err != nil {
		if rbErr := e.ledger.DebitDebt(caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback debt credit: %w", rbErr)
		}
		return err
	}
	if err := e.synthetic.Mint(caller, amount); err != nil {
		if rbErr := e.ledger.DebitDebt(caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback debt credit: %w", rbErr)
		}
		return fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	return nil
}

// RedeemCollateral debits the caller's ledger balance, verifies the position
// stays healthy, and releases the asset from custody. Ledger effects precede
// the external transfer; a failed transfer restores the debit.
func (e *Engine) RedeemCollateral(caller crypto.Address, assetID string, amount *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	err := e.redeemCollateral(caller, assetID, amount)
	e.observe("redeem_collateral", start, err)
	if err == nil {
		e.publish(collateralRedeemedEvent(caller, assetID, amount))
	}
	return err
}

func (e *Engine) redeemCollateral(caller crypto.Address, assetID string, amount *big.Int) error {
	tok, err := e.collateralToken(assetID)
	if err != nil {
		return err
	}
	if err := e.ledger.DebitCollateral(caller, assetID, amount); err != nil {
		return err
	}
	if err := e.AssertHealthy(caller); err != nil {
		if rbErr := e.ledger.CreditCollateral(caller, assetID, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback collateral debit: %w", rbErr)
		}
		return err
	}
	if err := tok.TransferFrom(e.account, caller, amount); err != nil {
		if rbErr := e.ledger.CreditCollateral(caller, assetID, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback collateral debit: %w", rbErr)
		}
		return fmt.Errorf("%w: %v", ErrCollateralTransferFailed, err)
	}
	return nil
}

// Burn retires the caller's debt: the ledger is debited, the synthetic units
// are pulled into custody and burned. Burning only improves the ratio; the
// closing health assertion is a safety net.
func (e *Engine) Burn(caller crypto.Address, amount *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	err := e.burn(caller, amount)
	e.observe("burn", start, err)
	if err == nil {
		e.publish(synthBurnedEvent(caller, amount))
	}
	return err
}

func (e *Engine) burn(caller crypto.Address, amount *big.Int) error {
	if err := e.ledger.DebitDebt(caller, amount); err != nil {
		return err
	}
	if err := e.synthetic.TransferFrom(caller, e.account, amount); err != nil {
		if rbErr := e.ledger.CreditDebt(caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback debt debit: %w", rbErr)
		}
		return fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if err := e.synthetic.Burn(amount); err != nil {
		if rbErr := e.synthetic.TransferFrom(e.account, caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback synthetic pull: %w", rbErr)
		}
		if rbErr := e.ledger.CreditDebt(caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback debt debit: %w", rbErr)
		}
		return fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if err := e.AssertHealthy(caller); err != nil {
		if rbErr := e.synthetic.Mint(caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback synthetic burn: %w", rbErr)
		}
		if rbErr := e.ledger.CreditDebt(caller, amount); rbErr != nil {
			return fmt.Errorf("engine: rollback debt debit: %w", rbErr)
		}
		return err
	}
	return nil
}

// DepositCollateralAndMint deposits then mints in fixed order as one atomic
// unit: a failed mint unwinds the deposit.
func (e *Engine) DepositCollateralAndMint(caller crypto.Address, assetID string, amount, mintAmount *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	err := e.depositCollateralAndMint(caller, assetID, amount, mintAmount)
	e.observe("deposit_and_mint", start, err)
	if err == nil {
		e.publish(collateralDepositedEvent(caller, assetID, amount))
		e.publish(synthMintedEvent(caller, mintAmount))
	}
	return err
}

func (e *Engine) depositCollateralAndMint(caller crypto.Address, assetID string, amount, mintAmount *big.Int) error {
	if err := e.depositCollateral(caller, assetID, amount); err != nil {
		return err
	}
	if err := e.mint(caller, mintAmount); err != nil {
		tok, tokErr := e.collateralToken(assetID)
		if tokErr != nil {
			return fmt.Errorf("engine: unwind deposit: %w", tokErr)
		}
		if rbErr := e.ledger.DebitCollateral(caller, assetID, amount); rbErr != nil {
			return fmt.Errorf("engine: unwind deposit credit: %w", rbErr)
		}
		if rbErr := tok.TransferFrom(e.account, caller, amount); rbErr != nil {
			return fmt.Errorf("engine: unwind deposit transfer: %w", rbErr)
		}
		return err
	}
	return nil
}

// RedeemCollateralAndBurn burns then redeems in fixed order as one atomic
// unit: a failed redemption unwinds the burn.
func (e *Engine) RedeemCollateralAndBurn(caller crypto.Address, assetID string, amount, burnAmount *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	err := e.redeemCollateralAndBurn(caller, assetID, amount, burnAmount)
	e.observe("redeem_and_burn", start, err)
	if err == nil {
		e.publish(synthBurnedEvent(caller, burnAmount))
		e.publish(collateralRedeemedEvent(caller, assetID, amount))
	}
	return err
}

func (e *Engine) redeemCollateralAndBurn(caller crypto.Address, assetID string, amount, burnAmount *big.Int) error {
	if err := e.burn(caller, burnAmount); err != nil {
		return err
	}
	if err := e.redeemCollateral(caller, assetID, amount); err != nil {
		if rbErr := e.synthetic.Mint(caller, burnAmount); rbErr != nil {
			return fmt.Errorf("engine: unwind burn: %w", rbErr)
		}
		if rbErr := e.ledger.CreditDebt(caller, burnAmount); rbErr != nil {
			return fmt.Errorf("engine: unwind debt debit: %w", rbErr)
		}
		return err
	}
	return nil
}
