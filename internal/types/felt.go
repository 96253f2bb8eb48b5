package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidHex is returned when a value is not a well-formed hex number.
	ErrInvalidHex = errors.New("invalid hex value")

	// ErrOverflow is returned when a value does not fit into the target width.
	ErrOverflow = errors.New("value overflows target width")

	// feltModulus is the Starknet field prime P = 2^251 + 17*2^192 + 1.
	feltModulus = uint256.MustFromHex("0x800000000000011000000000000000000000000000000000000000000000001")
)

// Felt is a Starknet field element, stored big-endian in 32 bytes.
// Every Felt value is strictly lower than the field prime.
type Felt [32]byte

// FeltFromHex parses a 0x-prefixed hex string (leading zeros allowed) into a field element.
func FeltFromHex(s string) (Felt, error) {
	v, err := parseHexUint256(s)
	if err != nil {
		return Felt{}, err
	}
	if v.Cmp(feltModulus) >= 0 {
		return Felt{}, fmt.Errorf("%w: %s is not lower than the field prime", ErrOverflow, s)
	}
	return Felt(v.Bytes32()), nil
}

// MustFeltFromHex is like FeltFromHex but panics on error.
// It is intended for constants and tests.
func MustFeltFromHex(s string) Felt {
	f, err := FeltFromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FeltFromUint64 converts a uint64 into a field element.
func FeltFromUint64(v uint64) Felt {
	return Felt(uint256.NewInt(v).Bytes32())
}

// Uint256 returns the numeric value of the field element.
func (f Felt) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(f[:])
}

// Bytes returns the 32-byte big-endian representation.
func (f Felt) Bytes() []byte {
	b := make([]byte, len(f))
	copy(b, f[:])
	return b
}

// IsZero reports whether the field element is zero.
func (f Felt) IsZero() bool {
	return f == Felt{}
}

// Hex returns the shortest 0x-prefixed hex representation.
func (f Felt) Hex() string {
	return f.Uint256().Hex()
}

// PaddedHex returns the 0x-prefixed, 64 digit zero-padded hex representation.
func (f Felt) PaddedHex() string {
	return fmt.Sprintf("0x%064x", f[:])
}

// String implements fmt.Stringer.
func (f Felt) String() string {
	return f.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Felt) UnmarshalText(text []byte) error {
	parsed, err := FeltFromHex(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// parseHexUint256 requires a 0x or 0X prefix and accepts leading zeros, which the
// strict uint256 hex parser rejects.
func parseHexUint256(s string) (*uint256.Int, error) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, fmt.Errorf("%w: %q has no 0x prefix", ErrInvalidHex, s)
	}

	digits := s[2:]
	if digits == "" {
		return nil, fmt.Errorf("%w: empty value %q", ErrInvalidHex, s)
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}

	v, err := uint256.FromHex("0x" + digits)
	if err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return nil, fmt.Errorf("%w: %q exceeds 256 bits", ErrOverflow, s)
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHex, s, err)
	}
	return v, nil
}
