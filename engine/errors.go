package engine

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrCollateralTransferFailed indicates the collateral token collaborator
	// declined or failed a transfer; the enclosing operation was rolled back.
	ErrCollateralTransferFailed = errors.New("engine: collateral transfer failed")
	// ErrMintFailed indicates the synthetic token collaborator declined a mint.
	ErrMintFailed = errors.New("engine: synthetic mint failed")
	// ErrBurnFailed indicates the synthetic token could not be pulled from the
	// caller or retired.
	ErrBurnFailed = errors.New("engine: synthetic burn failed")
	// ErrHealthFactorBroken indicates a post-operation solvency check failed.
	ErrHealthFactorBroken = errors.New("engine: health factor below minimum")
	// ErrHealthFactorAlreadySafe rejects liquidation of a solvent account.
	ErrHealthFactorAlreadySafe = errors.New("engine: health factor already safe")
	// ErrLiquidationDidNotImprove rejects liquidations that fail to restore
	// the target above the minimum health factor.
	ErrLiquidationDidNotImprove = errors.New("engine: liquidation did not restore health factor")
	// ErrReentrantCall rejects a nested entry into a state-mutating operation
	// while one is already active.
	ErrReentrantCall = errors.New("engine: reentrant call")
)

// HealthFactorError carries the offending values alongside the solvency
// failure so callers can decide whether to add collateral or shrink the call.
type HealthFactorError struct {
	Actual  *big.Int
	Minimum *big.Int
}

func (e *HealthFactorError) Error() string {
	return fmt.Sprintf("engine: health factor %s below minimum %s", e.Actual, e.Minimum)
}

// Unwrap lets errors.Is match the ErrHealthFactorBroken kind.
func (e *HealthFactorError) Unwrap() error { return ErrHealthFactorBroken }

func newHealthFactorError(actual, minimum *big.Int) *HealthFactorError {
	return &HealthFactorError{
		Actual:  new(big.Int).Set(actual),
		Minimum: new(big.Int).Set(minimum),
	}
}
