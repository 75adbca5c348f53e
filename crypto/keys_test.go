package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, AddressHRP+"1") {
		t.Fatalf("unexpected prefix: %s", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), addr.Bytes()) {
		t.Fatalf("round trip mismatch: %x != %x", decoded.Bytes(), addr.Bytes())
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	if _, err := DecodeAddress("nhb1qqqsyrhqy2a"); err == nil {
		t.Fatalf("expected prefix rejection")
	}
}

func TestNewAddressLength(t *testing.T) {
	if _, err := NewAddress(make([]byte, 19)); err == nil {
		t.Fatalf("expected length error")
	}
	addr, err := NewAddress(make([]byte, 20))
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	if !addr.IsZero() {
		t.Fatalf("expected zero address")
	}
}
