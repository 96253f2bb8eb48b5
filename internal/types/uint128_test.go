package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestParseUint128Hex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Uint128
		wantErr error
	}{
		{
			name:  "small",
			input: "0x2a",
			want:  NewUint128(42),
		},
		{
			name:  "max",
			input: "0xffffffffffffffffffffffffffffffff",
			want:  Uint128{Hi: ^uint64(0), Lo: ^uint64(0)},
		},
		{
			name:  "high half only",
			input: "0x10000000000000000",
			want:  Uint128{Hi: 1},
		},
		{
			name:    "129 bits",
			input:   "0x100000000000000000000000000000000",
			wantErr: ErrOverflow,
		},
		{
			name:    "malformed",
			input:   "0x12g4",
			wantErr: ErrInvalidHex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint128Hex(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestComposeUint256(t *testing.T) {
	low := MustParseUint128Hex("0xffffffffffffffffffffffffffffffff")
	high := NewUint128(1)

	amount := ComposeUint256(low, high)

	// 2^129 - 1
	want := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 129), uint256.NewInt(1))
	require.Equal(t, want, amount)

	gotLow, gotHigh := SplitUint256(amount)
	require.Equal(t, low, gotLow)
	require.Equal(t, high, gotHigh)
}

func TestUint128_String(t *testing.T) {
	require.Equal(t, "1000", NewUint128(1000).String())
	require.Equal(t, "0x3e8", NewUint128(1000).Hex())
	require.Equal(t, "18446744073709551616", Uint128{Hi: 1}.String())
}
