package engine

import (
	"math/big"

	"synthvault/pricing"
)

// Params groups the solvency limits governing vault activity.
type Params struct {
	// LiquidationThresholdPct is the percentage of collateral value counted
	// toward solvency. 50 means collateral must cover at least 2x debt.
	LiquidationThresholdPct uint64
	// LiquidationBonusPct is the extra collateral percentage awarded to a
	// liquidator for covering another account's debt.
	LiquidationBonusPct uint64
	// MinHealthFactor is the solvency floor in 18-decimal fixed point.
	MinHealthFactor *big.Int
}

// DefaultParams returns the canonical vault parameters.
func DefaultParams() Params {
	return Params{
		LiquidationThresholdPct: 50,
		LiquidationBonusPct:     10,
		MinHealthFactor:         pricing.Unit(),
	}
}

// maxHealthFactor is the health factor reported for debt-free accounts. An
// account without debt can never be insolvent, so no division is performed.
var maxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// MaxHealthFactor returns the safe-maximal health factor.
func MaxHealthFactor() *big.Int { return new(big.Int).Set(maxHealthFactor) }
