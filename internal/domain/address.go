package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// addressLen is the byte length of a decoded token or wallet address.
const addressLen = 32

// ValidateAddress checks that addr is a base58-encoded 32-byte address.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(decoded) != addressLen {
		return fmt.Errorf("address %q: expected %d bytes, got %d", addr, addressLen, len(decoded))
	}
	return nil
}

// DecodeAddress returns the raw 32 bytes of a base58 address.
func DecodeAddress(addr string) ([]byte, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	return base58.Decode(addr)
}
