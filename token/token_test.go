package token

import (
	"errors"
	"math/big"
	"testing"

	"synthvault/crypto"
)

func makeAddress(fill byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	for i := range raw {
		raw[i] = fill
	}
	addr, err := crypto.NewAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func TestVaultTokenTransferFrom(t *testing.T) {
	weth := NewVaultToken("weth")
	alice := makeAddress(0x01)
	vault := makeAddress(0x02)

	weth.Fund(alice, big.NewInt(100))
	if err := weth.TransferFrom(alice, vault, big.NewInt(40)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if weth.BalanceOf(alice).Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected alice balance: %s", weth.BalanceOf(alice))
	}
	if weth.BalanceOf(vault).Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("unexpected vault balance: %s", weth.BalanceOf(vault))
	}

	if err := weth.TransferFrom(alice, vault, big.NewInt(61)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := weth.TransferFrom(alice, crypto.Address{}, big.NewInt(1)); !errors.Is(err, ErrZeroRecipient) {
		t.Fatalf("expected zero recipient rejection, got %v", err)
	}
	if err := weth.TransferFrom(alice, vault, big.NewInt(0)); !errors.Is(err, ErrAmountMustBePositive) {
		t.Fatalf("expected positive amount rejection, got %v", err)
	}
}

func TestMinterCapabilityGrantedOnce(t *testing.T) {
	synth := NewSynthetic()
	engine := makeAddress(0x10)

	minter, err := synth.GrantMinter(engine)
	if err != nil {
		t.Fatalf("grant minter: %v", err)
	}
	if minter == nil {
		t.Fatalf("expected capability")
	}
	if _, err := synth.GrantMinter(makeAddress(0x11)); !errors.Is(err, ErrMinterAlreadyGranted) {
		t.Fatalf("expected second grant rejection, got %v", err)
	}
}

func TestMintBurnSupply(t *testing.T) {
	synth := NewSynthetic()
	engine := makeAddress(0x10)
	alice := makeAddress(0x01)

	minter, err := synth.GrantMinter(engine)
	if err != nil {
		t.Fatalf("grant minter: %v", err)
	}

	if err := minter.Mint(alice, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if synth.TotalSupply().Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected supply: %s", synth.TotalSupply())
	}

	// Pull-then-burn: units move into engine custody before retirement.
	if err := synth.TransferFrom(alice, engine, big.NewInt(200)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if err := minter.Burn(big.NewInt(200)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if synth.TotalSupply().Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected supply after burn: %s", synth.TotalSupply())
	}

	if err := minter.Burn(big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected custody shortfall, got %v", err)
	}
	if err := minter.Mint(crypto.Address{}, big.NewInt(1)); !errors.Is(err, ErrZeroRecipient) {
		t.Fatalf("expected zero recipient rejection, got %v", err)
	}
	if err := minter.Mint(alice, big.NewInt(0)); !errors.Is(err, ErrAmountMustBePositive) {
		t.Fatalf("expected positive amount rejection, got %v", err)
	}
}
