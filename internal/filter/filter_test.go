package filter

import (
	"strings"
	"testing"

	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/provider"
	"github.com/stretchr/testify/require"
)

const (
	contract = "0x03a94f47433e77630f288054330fb41377ffcc49dacf56568eeba84b017aa633"
	eventKey = "0x027a12f554d018764f982295090da45b4ff0734785be0982b62c329b9ac38033"

	r1 = "0x0111"
	r2 = "0x0222"
	a1 = "0x0aaa"
	a2 = "0x0bbb"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()

	b, err := NewBuilder(contract, eventKey)
	require.NoError(t, err)
	return b
}

func event(from string, keys ...string) provider.Event {
	return provider.Event{FromAddress: from, Keys: keys, Data: []string{"0x1", "0x2", "0x0"}}
}

func TestNewBuilder_InvalidInput(t *testing.T) {
	_, err := NewBuilder("0xzz", eventKey)
	require.ErrorIs(t, err, types.ErrInvalidHex)

	_, err = NewBuilder(contract, "0x"+strings.Repeat("f", 64))
	require.ErrorIs(t, err, types.ErrOverflow)
}

func TestBuilder_Build(t *testing.T) {
	b := newBuilder(t)

	f, err := b.Build([]Target{{Recipient: r1, Asset: a1}, {Recipient: r2, Asset: a2}})
	require.NoError(t, err)

	require.True(t, f.Header.Weak)
	require.Len(t, f.Events, 2)

	for i, want := range [][2]string{{r1, a1}, {r2, a2}} {
		ef := f.Events[i]
		require.Equal(t, types.MustFeltFromHex(contract), ef.FromAddress)
		require.Len(t, ef.Keys, 3)
		require.Equal(t, types.MustFeltFromHex(eventKey), *ef.Keys[0])
		require.Equal(t, types.MustFeltFromHex(want[0]), *ef.Keys[1])
		require.Equal(t, types.MustFeltFromHex(want[1]), *ef.Keys[2])
	}
}

func TestBuilder_BuildErrors(t *testing.T) {
	b := newBuilder(t)

	_, err := b.Build(nil)
	require.ErrorIs(t, err, ErrNoTargets)

	_, err = b.Build([]Target{{Recipient: "recipient", Asset: a1}})
	require.ErrorContains(t, err, "invalid recipient")

	_, err = b.Build([]Target{{Recipient: r1, Asset: "0x" + strings.Repeat("f", 64)}})
	require.ErrorContains(t, err, "invalid asset")
}

func TestMatches_FilterScoping(t *testing.T) {
	f, err := newBuilder(t).Build([]Target{{Recipient: r1, Asset: a1}, {Recipient: r2, Asset: a2}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		event provider.Event
		want  bool
	}{
		{name: "first pair", event: event(contract, eventKey, r1, a1), want: true},
		{name: "second pair", event: event(contract, eventKey, r2, a2), want: true},
		{name: "mixed pair", event: event(contract, eventKey, r1, a2), want: false},
		{name: "other mixed pair", event: event(contract, eventKey, r2, a1), want: false},
		{name: "padded hex is the same felt", event: event(contract, eventKey, "0x"+strings.Repeat("0", 61)+"111", a1), want: true},
		{name: "other contract", event: event("0x1234", eventKey, r1, a1), want: false},
		{name: "other event key", event: event(contract, "0x99", r1, a1), want: false},
		{name: "missing keys", event: event(contract, eventKey, r1), want: false},
		{name: "malformed key", event: event(contract, eventKey, "xyz", a1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Matches(f, tt.event))
		})
	}
}

func TestMatches_WildcardKey(t *testing.T) {
	key := types.MustFeltFromHex(eventKey)
	f := provider.Filter{Events: []provider.EventFilter{{
		FromAddress: types.MustFeltFromHex(contract),
		Keys:        []*types.Felt{&key, nil},
	}}}

	require.True(t, Matches(f, event(contract, eventKey, r2, a2)))
	require.False(t, Matches(f, event(contract, eventKey)))
}
