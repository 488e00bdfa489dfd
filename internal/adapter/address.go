package adapter

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAddress checks that address is a 0x-prefixed 20-byte hex string
// and returns it lower-cased.
func ValidateAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return "", ErrInvalidAddress
	}
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(address), nil
}

// ChecksumAddress renders address in EIP-55 mixed case for display.
// Inputs that are not hex addresses are returned unchanged.
func ChecksumAddress(address string) string {
	if !common.IsHexAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}
