package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

const uint128Bits = 128

// Uint128 is an unsigned 128-bit integer split into two 64-bit halves.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// NewUint128 returns a Uint128 holding v.
func NewUint128(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// ParseUint128Hex parses a 0x-prefixed hex string into a Uint128.
func ParseUint128Hex(s string) (Uint128, error) {
	v, err := parseHexUint256(s)
	if err != nil {
		return Uint128{}, err
	}
	u, err := Uint128FromUint256(v)
	if err != nil {
		return Uint128{}, fmt.Errorf("%w: %q", err, s)
	}
	return u, nil
}

// MustParseUint128Hex is like ParseUint128Hex but panics on error.
func MustParseUint128Hex(s string) Uint128 {
	u, err := ParseUint128Hex(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Uint128FromUint256 narrows v to 128 bits, failing if it does not fit.
func Uint128FromUint256(v *uint256.Int) (Uint128, error) {
	if v.BitLen() > uint128Bits {
		return Uint128{}, fmt.Errorf("%w: %d bits do not fit into 128", ErrOverflow, v.BitLen())
	}
	return Uint128{Hi: v[1], Lo: v[0]}, nil
}

// Uint256 widens u to a 256-bit integer.
func (u Uint128) Uint256() *uint256.Int {
	return &uint256.Int{u.Lo, u.Hi, 0, 0}
}

// IsZero reports whether u is zero.
func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Hex returns the shortest 0x-prefixed hex representation.
func (u Uint128) Hex() string {
	return u.Uint256().Hex()
}

// String returns the decimal representation.
func (u Uint128) String() string {
	return u.Uint256().Dec()
}

// MarshalText implements encoding.TextMarshaler.
func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Uint128) UnmarshalText(text []byte) error {
	parsed, err := ParseUint128Hex(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ComposeUint256 builds high * 2^128 + low.
func ComposeUint256(low, high Uint128) *uint256.Int {
	return &uint256.Int{low.Lo, low.Hi, high.Lo, high.Hi}
}

// SplitUint256 splits v into its low and high 128-bit limbs.
func SplitUint256(v *uint256.Int) (low, high Uint128) {
	return Uint128{Hi: v[1], Lo: v[0]}, Uint128{Hi: v[3], Lo: v[2]}
}
