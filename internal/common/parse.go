package common

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBlockNumber parses a block number given in decimal or with a 0x/0X hex prefix.
// Surrounding whitespace is ignored.
func ParseBlockNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)

	digits, base := s, 10
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		digits, base = s[2:], 16
	}

	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", s)
	}
	return n, nil
}

const bytesInMB = 1024 * 1024

// BytesToMB converts a byte count to whole mebibytes, rounding down.
func BytesToMB(bytes uint64) uint64 {
	return bytes / bytesInMB
}

// Normalize lower-cases s and trims surrounding whitespace. Used for level and component names.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
