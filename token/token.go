// Package token provides the reference collateral and synthetic token
// collaborators. The engine only depends on their method sets; these
// implementations exist to exercise the interface boundary and back tests.
package token

import (
	"errors"
	"math/big"
	"sync"

	"synthvault/crypto"
)

var (
	// ErrAmountMustBePositive rejects zero or negative token amounts.
	ErrAmountMustBePositive = errors.New("token: amount must be positive")
	// ErrZeroRecipient rejects transfers and mints to the zero address.
	ErrZeroRecipient = errors.New("token: recipient must be non-zero")
	// ErrInsufficientBalance rejects movements exceeding the sender balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrMinterAlreadyGranted rejects a second minter grant.
	ErrMinterAlreadyGranted = errors.New("token: minter capability already granted")
)

// VaultToken is an in-memory collateral asset with plain balance bookkeeping.
type VaultToken struct {
	mu       sync.RWMutex
	symbol   string
	balances map[crypto.Address]*big.Int
}

// NewVaultToken constructs an empty collateral token.
func NewVaultToken(symbol string) *VaultToken {
	return &VaultToken{symbol: symbol, balances: make(map[crypto.Address]*big.Int)}
}

// Symbol returns the token's asset identifier.
func (t *VaultToken) Symbol() string { return t.symbol }

// Fund credits an account out of thin air. Test fixture helper.
func (t *VaultToken) Fund(account crypto.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(account, amount)
}

func (t *VaultToken) credit(account crypto.Address, amount *big.Int) {
	balance := t.balances[account]
	if balance == nil {
		balance = big.NewInt(0)
	}
	t.balances[account] = new(big.Int).Add(balance, amount)
}

func (t *VaultToken) debit(account crypto.Address, amount *big.Int) error {
	balance := t.balances[account]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[account] = new(big.Int).Sub(balance, amount)
	return nil
}

func checkMovement(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	if to.IsZero() {
		return ErrZeroRecipient
	}
	return nil
}

// TransferFrom moves tokens between two accounts.
func (t *VaultToken) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	if err := checkMovement(to, amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.debit(from, amount); err != nil {
		return err
	}
	t.credit(to, amount)
	return nil
}

// BalanceOf returns the account's balance.
func (t *VaultToken) BalanceOf(account crypto.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	balance := t.balances[account]
	if balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

// Synthetic is the unit-pegged token minted against vault collateral. Mint
// and burn are gated behind an explicit minter capability granted exactly
// once at setup; there is no ownership hierarchy to inherit from.
type Synthetic struct {
	mu          sync.RWMutex
	balances    map[crypto.Address]*big.Int
	totalSupply *big.Int
	granted     bool
}

// NewSynthetic constructs the synthetic token with no supply.
func NewSynthetic() *Synthetic {
	return &Synthetic{
		balances:    make(map[crypto.Address]*big.Int),
		totalSupply: big.NewInt(0),
	}
}

// GrantMinter hands out the one-and-only minter capability, bound to the
// holder's custody account. Subsequent grants fail.
func (s *Synthetic) GrantMinter(holder crypto.Address) (*Minter, error) {
	if holder.IsZero() {
		return nil, ErrZeroRecipient
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.granted {
		return nil, ErrMinterAlreadyGranted
	}
	s.granted = true
	return &Minter{token: s, holder: holder}, nil
}

// TotalSupply returns the outstanding synthetic supply.
func (s *Synthetic) TotalSupply() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.totalSupply)
}

// BalanceOf returns the account's balance.
func (s *Synthetic) BalanceOf(account crypto.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance := s.balances[account]
	if balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

// TransferFrom moves synthetic units between accounts.
func (s *Synthetic) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	if err := checkMovement(to, amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	s.balances[from] = new(big.Int).Sub(balance, amount)
	current := s.balances[to]
	if current == nil {
		current = big.NewInt(0)
	}
	s.balances[to] = new(big.Int).Add(current, amount)
	return nil
}

// Minter is the exclusive mint/burn capability over a Synthetic. Burn retires
// units from the holder's own custody balance.
type Minter struct {
	token  *Synthetic
	holder crypto.Address
}

// Mint issues new synthetic units to the recipient.
func (m *Minter) Mint(to crypto.Address, amount *big.Int) error {
	if err := checkMovement(to, amount); err != nil {
		return err
	}
	m.token.mu.Lock()
	defer m.token.mu.Unlock()
	balance := m.token.balances[to]
	if balance == nil {
		balance = big.NewInt(0)
	}
	m.token.balances[to] = new(big.Int).Add(balance, amount)
	m.token.totalSupply = new(big.Int).Add(m.token.totalSupply, amount)
	return nil
}

// Burn retires synthetic units held in the minter's custody account.
func (m *Minter) Burn(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	m.token.mu.Lock()
	defer m.token.mu.Unlock()
	balance := m.token.balances[m.holder]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	m.token.balances[m.holder] = new(big.Int).Sub(balance, amount)
	m.token.totalSupply = new(big.Int).Sub(m.token.totalSupply, amount)
	return nil
}

// TransferFrom proxies the underlying token transfer so the capability also
// satisfies the engine's synthetic-token interface.
func (m *Minter) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	return m.token.TransferFrom(from, to, amount)
}
