package httpapi

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"bridge-wrapped/internal/config"
)

var (
	// ErrInvalidAddress rejects anything but 0x followed by 40 hex digits.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrInvalidYear rejects years outside the supported range.
	ErrInvalidYear = errors.New("invalid year parameter")
)

// ValidateAddress accepts a 0x-prefixed 20-byte hex account address. Mixed
// case is accepted without checksum verification. IsHexAddress also takes an
// upper-case 0X prefix, which is rejected here.
func ValidateAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return ErrInvalidAddress
	}
	return nil
}

// ParseYear reads the year query value, falling back to def when empty.
func ParseYear(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = strconv.Itoa(def)
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < config.MinYear || year > config.MaxYear {
		return 0, ErrInvalidYear
	}
	return year, nil
}
