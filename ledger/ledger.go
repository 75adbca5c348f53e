// Package ledger is the authoritative record of per-account collateral and
// minted debt. Operations here are pure bookkeeping: token movement and
// solvency checks are composed on top by the engine.
package ledger

import (
	"errors"
	"math/big"

	"synthvault/crypto"
)

var (
	// ErrAmountMustBePositive rejects zero or negative amount arguments.
	ErrAmountMustBePositive = errors.New("ledger: amount must be positive")
	// ErrInsufficientCollateral rejects debits exceeding the stored balance.
	ErrInsufficientCollateral = errors.New("ledger: insufficient collateral")
	// ErrInsufficientDebt rejects debt reductions exceeding the minted amount.
	ErrInsufficientDebt = errors.New("ledger: insufficient debt")
	// ErrNilState indicates the ledger was not wired to a state backend.
	ErrNilState = errors.New("ledger: state not configured")
)

// Position holds one account's collateral balances per asset and its total
// minted debt. Amounts are unsigned 18-decimal fixed point. Positions are
// created implicitly on first use and never destroyed; zero balances persist.
type Position struct {
	Collateral map[string]*big.Int
	Debt       *big.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Collateral: make(map[string]*big.Int, len(p.Collateral))}
	for assetID, amount := range p.Collateral {
		if amount != nil {
			clone.Collateral[assetID] = new(big.Int).Set(amount)
		}
	}
	if p.Debt != nil {
		clone.Debt = new(big.Int).Set(p.Debt)
	}
	return clone
}

func (p *Position) normalize() {
	if p.Collateral == nil {
		p.Collateral = make(map[string]*big.Int)
	}
	if p.Debt == nil {
		p.Debt = big.NewInt(0)
	}
}

// State is the persistence boundary the ledger operates against. A nil
// position return means the account has no entry yet.
type State interface {
	GetPosition(account crypto.Address) (*Position, error)
	PutPosition(account crypto.Address, position *Position) error
}

// Ledger routes all position access through amount-validated operations so
// invariant enforcement stays centralized.
type Ledger struct {
	state State
}

// New wires a ledger to its state backend.
func New(state State) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) ensurePosition(account crypto.Address) (*Position, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	position, err := l.state.GetPosition(account)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{}
	}
	position.normalize()
	return position, nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	return nil
}

// CreditCollateral increases the stored balance of the asset. No solvency
// check: added collateral only improves health.
func (l *Ledger) CreditCollateral(account crypto.Address, assetID string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	position, err := l.ensurePosition(account)
	if err != nil {
		return err
	}
	balance := position.Collateral[assetID]
	if balance == nil {
		balance = big.NewInt(0)
	}
	position.Collateral[assetID] = new(big.Int).Add(balance, amount)
	return l.state.PutPosition(account, position)
}

// DebitCollateral decreases the stored balance of the asset. The caller must
// subsequently verify the account's health factor.
func (l *Ledger) DebitCollateral(account crypto.Address, assetID string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	position, err := l.ensurePosition(account)
	if err != nil {
		return err
	}
	balance := position.Collateral[assetID]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	position.Collateral[assetID] = new(big.Int).Sub(balance, amount)
	return l.state.PutPosition(account, position)
}

// CreditDebt increases the account's minted amount. The caller must
// subsequently verify the account's health factor.
func (l *Ledger) CreditDebt(account crypto.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	position, err := l.ensurePosition(account)
	if err != nil {
		return err
	}
	position.Debt = new(big.Int).Add(position.Debt, amount)
	return l.state.PutPosition(account, position)
}

// DebitDebt decreases the account's minted amount.
func (l *Ledger) DebitDebt(account crypto.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	position, err := l.ensurePosition(account)
	if err != nil {
		return err
	}
	if position.Debt.Cmp(amount) < 0 {
		return ErrInsufficientDebt
	}
	position.Debt = new(big.Int).Sub(position.Debt, amount)
	return l.state.PutPosition(account, position)
}

// CollateralOf returns the stored balance of the asset for the account.
func (l *Ledger) CollateralOf(account crypto.Address, assetID string) (*big.Int, error) {
	position, err := l.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	balance := position.Collateral[assetID]
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

// DebtOf returns the account's total minted amount.
func (l *Ledger) DebtOf(account crypto.Address) (*big.Int, error) {
	position, err := l.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(position.Debt), nil
}

// PositionOf returns a detached copy of the account's full position.
func (l *Ledger) PositionOf(account crypto.Address) (*Position, error) {
	position, err := l.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}
