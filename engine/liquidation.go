package engine

import (
	"fmt"
	"math/big"
	"time"

	"synthvault/crypto"
	"synthvault/ledger"
)

// Liquidate lets the caller cover debtToCover (a USD-denominated debt amount)
// of an unsafe target position in exchange for the equivalent collateral plus
// the liquidation bonus. The whole protocol is one atomic unit: any failure
// aborts with no partial seizure or burn. Ledger effects and solvency checks
// run before any token collaborator is touched.
func (e *Engine) Liquidate(liquidator crypto.Address, collateralAssetID string, target crypto.Address, debtToCover *big.Int) error {
	start := time.Now()
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	seized, err := e.liquidate(liquidator, collateralAssetID, target, debtToCover)
	e.observe("liquidate", start, err)
	if err == nil {
		if e.metrics != nil {
			e.metrics.LiquidationExecuted()
		}
		e.logger.Info("position liquidated",
			"target", target.String(),
			"liquidator", liquidator.String(),
			"asset", collateralAssetID,
			"debtCovered", debtToCover.String(),
			"seized", seized.String(),
		)
		e.publish(liquidatedEvent(target, liquidator, collateralAssetID, debtToCover, seized))
	}
	return err
}

func (e *Engine) liquidate(liquidator crypto.Address, assetID string, target crypto.Address, debtToCover *big.Int) (*big.Int, error) {
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return nil, ledger.ErrAmountMustBePositive
	}
	tok, err := e.collateralToken(assetID)
	if err != nil {
		return nil, err
	}

	healthBefore, err := e.HealthFactor(target)
	if err != nil {
		return nil, err
	}
	if healthBefore.Cmp(e.params.MinHealthFactor) >= 0 {
		return nil, ErrHealthFactorAlreadySafe
	}

	base, err := e.prices.FromUSD(assetID, debtToCover)
	if err != nil {
		return nil, err
	}
	bonus := new(big.Int).Mul(base, new(big.Int).SetUint64(e.params.LiquidationBonusPct))
	bonus.Quo(bonus, big.NewInt(100))
	seized := new(big.Int).Add(base, bonus)

	// Ledger effects first. A target spread across multiple assets may not
	// hold enough of this one; that shortfall is surfaced, never clamped.
	if err := e.ledger.DebitCollateral(target, assetID, seized); err != nil {
		return nil, err
	}
	if err := e.ledger.DebitDebt(target, debtToCover); err != nil {
		if rbErr := e.ledger.CreditCollateral(target, assetID, seized); rbErr != nil {
			return nil, fmt.Errorf("engine: rollback collateral seizure: %w", rbErr)
		}
		return nil, err
	}

	restoreLedger := func() error {
		if err := e.ledger.CreditCollateral(target, assetID, seized); err != nil {
			return fmt.Errorf("engine: rollback collateral seizure: %w", err)
		}
		if err := e.ledger.CreditDebt(target, debtToCover); err != nil {
			return fmt.Errorf("engine: rollback debt retirement: %w", err)
		}
		return nil
	}

	// Partial liquidations that leave the target unsafe are rejected whole.
	healthAfter, err := e.HealthFactor(target)
	if err != nil {
		if rbErr := restoreLedger(); rbErr != nil {
			return nil, rbErr
		}
		return nil, err
	}
	if healthAfter.Cmp(e.params.MinHealthFactor) < 0 {
		if rbErr := restoreLedger(); rbErr != nil {
			return nil, rbErr
		}
		return nil, ErrLiquidationDidNotImprove
	}

	// Relevant only when the liquidator separately holds minted debt.
	if err := e.AssertHealthy(liquidator); err != nil {
		if rbErr := restoreLedger(); rbErr != nil {
			return nil, rbErr
		}
		return nil, err
	}

	// External settlement: pull and retire the synthetic payment, then hand
	// over the seized collateral. Each failure compensates everything before.
	if err := e.synthetic.TransferFrom(liquidator, e.account, debtToCover); err != nil {
		if rbErr := restoreLedger(); rbErr != nil {
			return nil, rbErr
		}
		return nil, fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if err := e.synthetic.Burn(debtToCover); err != nil {
		if rbErr := e.synthetic.TransferFrom(e.account, liquidator, debtToCover); rbErr != nil {
			return nil, fmt.Errorf("engine: rollback synthetic pull: %w", rbErr)
		}
		if rbErr := restoreLedger(); rbErr != nil {
			return nil, rbErr
		}
		return nil, fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if err := tok.TransferFrom(e.account, liquidator, seized); err != nil {
		if rbErr := e.synthetic.Mint(liquidator, debtToCover); rbErr != nil {
			return nil, fmt.Errorf("engine: rollback synthetic burn: %w", rbErr)
		}
		if rbErr := restoreLedger(); rbErr != nil {
			return nil, rbErr
		}
		return nil, fmt.Errorf("%w: %v", ErrCollateralTransferFailed, err)
	}
	return seized, nil
}
