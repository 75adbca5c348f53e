package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"synthvault/crypto"
	"synthvault/storage"
)

// MemState is an in-memory State used by tests and single-process setups.
type MemState struct {
	mu        sync.RWMutex
	positions map[crypto.Address]*Position
}

// NewMemState constructs an empty in-memory state.
func NewMemState() *MemState {
	return &MemState{positions: make(map[crypto.Address]*Position)}
}

// GetPosition returns a detached copy, or nil when the account has no entry.
func (s *MemState) GetPosition(account crypto.Address) (*Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions[account].Clone(), nil
}

// PutPosition stores a detached copy of the position.
func (s *MemState) PutPosition(account crypto.Address, position *Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[account] = position.Clone()
	return nil
}

// positionRecord is the stored wire form of a position. Amounts serialize as
// decimal strings to stay precision-safe across JSON round trips.
type positionRecord struct {
	Collateral map[string]string `json:"collateral"`
	Debt       string            `json:"debt"`
}

func positionKey(account crypto.Address) []byte {
	return []byte("position/" + account.String())
}

// StateStore persists positions in a key-value Database.
type StateStore struct {
	db storage.Database
}

// NewStateStore wires a persisted state to the given database.
func NewStateStore(db storage.Database) *StateStore {
	return &StateStore{db: db}
}

// GetPosition loads and decodes the stored position, or nil when absent.
func (s *StateStore) GetPosition(account crypto.Address) (*Position, error) {
	raw, err := s.db.Get(positionKey(account))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := positionRecord{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("ledger: decode position: %w", err)
	}
	position := &Position{Collateral: make(map[string]*big.Int, len(record.Collateral))}
	for assetID, amount := range record.Collateral {
		parsed, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("ledger: invalid collateral amount %q for asset %s", amount, assetID)
		}
		position.Collateral[assetID] = parsed
	}
	debt, ok := new(big.Int).SetString(record.Debt, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid debt amount %q", record.Debt)
	}
	position.Debt = debt
	return position, nil
}

// PutPosition encodes and stores the position.
func (s *StateStore) PutPosition(account crypto.Address, position *Position) error {
	if position == nil {
		position = &Position{}
	}
	record := positionRecord{
		Collateral: make(map[string]string, len(position.Collateral)),
		Debt:       "0",
	}
	for assetID, amount := range position.Collateral {
		if amount == nil {
			amount = big.NewInt(0)
		}
		record.Collateral[assetID] = amount.String()
	}
	if position.Debt != nil {
		record.Debt = position.Debt.String()
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ledger: encode position: %w", err)
	}
	return s.db.Put(positionKey(account), raw)
}
