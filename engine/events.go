package engine

import (
	"math/big"

	"synthvault/crypto"
)

const (
	// EventTypeCollateralDeposited is emitted when collateral enters custody.
	EventTypeCollateralDeposited = "vault.collateral.deposited"
	// EventTypeCollateralRedeemed is emitted when collateral leaves custody.
	EventTypeCollateralRedeemed = "vault.collateral.redeemed"
	// EventTypeSynthMinted is emitted when synthetic units are issued.
	EventTypeSynthMinted = "vault.synth.minted"
	// EventTypeSynthBurned is emitted when synthetic units are retired.
	EventTypeSynthBurned = "vault.synth.burned"
	// EventTypeLiquidated is emitted when a position is liquidated.
	EventTypeLiquidated = "vault.position.liquidated"
)

// Event is the structured payload handed to the configured emitter after a
// state-mutating operation commits.
type Event struct {
	Type       string
	Attributes map[string]string
}

func collateralDepositedEvent(account crypto.Address, assetID string, amount *big.Int) *Event {
	return &Event{
		Type: EventTypeCollateralDeposited,
		Attributes: map[string]string{
			"account": account.String(),
			"asset":   assetID,
			"amount":  amount.String(),
		},
	}
}

func collateralRedeemedEvent(account crypto.Address, assetID string, amount *big.Int) *Event {
	return &Event{
		Type: EventTypeCollateralRedeemed,
		Attributes: map[string]string{
			"account": account.String(),
			"asset":   assetID,
			"amount":  amount.String(),
		},
	}
}

func synthMintedEvent(account crypto.Address, amount *big.Int) *Event {
	return &Event{
		Type: EventTypeSynthMinted,
		Attributes: map[string]string{
			"account": account.String(),
			"amount":  amount.String(),
		},
	}
}

func synthBurnedEvent(account crypto.Address, amount *big.Int) *Event {
	return &Event{
		Type: EventTypeSynthBurned,
		Attributes: map[string]string{
			"account": account.String(),
			"amount":  amount.String(),
		},
	}
}

func liquidatedEvent(target, liquidator crypto.Address, assetID string, debtCovered, seized *big.Int) *Event {
	return &Event{
		Type: EventTypeLiquidated,
		Attributes: map[string]string{
			"target":      target.String(),
			"liquidator":  liquidator.String(),
			"asset":       assetID,
			"debtCovered": debtCovered.String(),
			"seized":      seized.String(),
		},
	}
}
