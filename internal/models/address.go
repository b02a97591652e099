package models

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Address is a 32-byte ledger identity. The text form is base58.
type Address [32]byte

// Asset identifies what moves in a transfer: the zero value is the native
// currency, anything else is a fungible-token mint.
type Asset [32]byte

var (
	ErrBadAddress = errors.New("invalid address")

	// NativeAsset marks a plain balance transfer.
	NativeAsset = Asset{}
)

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func ParseAddress(s string) (Address, error) {
	raw := base58.Decode(s)
	if len(raw) != 32 {
		return Address{}, ErrBadAddress
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

func (a Asset) String() string {
	return base58.Encode(a[:])
}

func (a Asset) IsNative() bool {
	return a == NativeAsset
}

// ParseAsset accepts an empty string as the native asset.
func ParseAsset(s string) (Asset, error) {
	if s == "" {
		return NativeAsset, nil
	}
	raw := base58.Decode(s)
	if len(raw) != 32 {
		return Asset{}, ErrBadAddress
	}
	var a Asset
	copy(a[:], raw)
	return a, nil
}
