package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressHRP is the human-readable bech32 prefix for vault account addresses.
const AddressHRP = "svt"

// AddressLength is the raw byte length of an account address.
const AddressLength = 20

// Address identifies an account within the vault. Addresses are 20-byte
// secp256k1-derived identifiers rendered as bech32 strings.
type Address [AddressLength]byte

// NewAddress builds an address from a raw 20-byte slice.
func NewAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("crypto: address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address in bech32 form with the svt prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// DecodeAddress parses a bech32 account address.
func DecodeAddress(s string) (Address, error) {
	hrp, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	if hrp != AddressHRP {
		return Address{}, fmt.Errorf("crypto: unexpected address prefix %q", hrp)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(conv)
}

// PrivateKey wraps a secp256k1 private key used to derive account addresses.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// GeneratePrivateKey creates a fresh secp256k1 key pair.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// Address derives the account address from the key's public half.
func (k *PrivateKey) Address() Address {
	raw := ethcrypto.PubkeyToAddress(k.PublicKey)
	var addr Address
	copy(addr[:], raw.Bytes())
	return addr
}
