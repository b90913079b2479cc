package models

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressSize is the length of an identity or derived storage address.
const AddressSize = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a participant (an Ed25519 public key) or a derived
// storage slot. Its text form is base58.
type Address [AddressSize]byte

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var a Address
	decoded, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != AddressSize {
		return a, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidAddress, AddressSize, len(decoded))
	}
	copy(a[:], decoded)
	return a, nil
}

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
