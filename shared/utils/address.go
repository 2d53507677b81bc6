package utils

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrMalformedAddress = errors.New("malformed address")
	ErrZeroAddress      = errors.New("zero address")
)

// ParseAddress accepts a 0x-prefixed, 40 hex digit address in any letter case.
// Mixed-case input is not checked against its EIP-55 checksum; the returned
// value is what callers should store and compare.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, ErrMalformedAddress
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrMalformedAddress
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, ErrZeroAddress
	}
	return addr, nil
}

// NormalizeAddress returns the EIP-55 checksum form of s.
func NormalizeAddress(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}
