package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"synthvault/storage"
)

func TestStateStoreRoundTrip(t *testing.T) {
	store := NewStateStore(storage.NewMemDB())
	account := makeAddress(0x10)

	position := &Position{
		Collateral: map[string]*big.Int{
			"weth": big.NewInt(1_000_000),
			"wbtc": big.NewInt(0),
		},
		Debt: big.NewInt(42),
	}
	require.NoError(t, store.PutPosition(account, position))

	loaded, err := store.GetPosition(account)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Zero(t, loaded.Debt.Cmp(big.NewInt(42)))
	require.Zero(t, loaded.Collateral["weth"].Cmp(big.NewInt(1_000_000)))
	require.Zero(t, loaded.Collateral["wbtc"].Sign())
}

func TestStateStoreMissingAccount(t *testing.T) {
	store := NewStateStore(storage.NewMemDB())
	loaded, err := store.GetPosition(makeAddress(0x11))
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestLedgerOverStateStore(t *testing.T) {
	l := New(NewStateStore(storage.NewMemDB()))
	account := makeAddress(0x12)

	require.NoError(t, l.CreditCollateral(account, "weth", big.NewInt(77)))
	require.NoError(t, l.CreditDebt(account, big.NewInt(11)))

	balance, err := l.CollateralOf(account, "weth")
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(77)))

	debt, err := l.DebtOf(account)
	require.NoError(t, err)
	require.Zero(t, debt.Cmp(big.NewInt(11)))
}
