package filter

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/provider"
)

// ErrNoTargets is returned when a filter is requested for an empty target set.
var ErrNoTargets = errors.New("at least one target is required")

// Target is a (recipient, asset) pair to watch, both hex-encoded field elements.
type Target struct {
	Recipient string
	Asset     string
}

// Builder produces subscription filters for remittance events of one payment contract.
type Builder struct {
	contract types.Felt
	eventKey types.Felt
}

// NewBuilder parses the contract address and remittance event key.
func NewBuilder(contractAddress, eventKey string) (*Builder, error) {
	contract, err := types.FeltFromHex(contractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address %q: %w", contractAddress, err)
	}

	key, err := types.FeltFromHex(eventKey)
	if err != nil {
		return nil, fmt.Errorf("invalid event key %q: %w", eventKey, err)
	}

	return &Builder{contract: contract, eventKey: key}, nil
}

// Build returns a filter with one event matcher per target. Matchers are OR-ed by the
// provider; each one requires the contract, the event key, the recipient and the asset.
func (b *Builder) Build(targets []Target) (provider.Filter, error) {
	if len(targets) == 0 {
		return provider.Filter{}, ErrNoTargets
	}

	events := make([]provider.EventFilter, 0, len(targets))
	for i, target := range targets {
		recipient, err := types.FeltFromHex(target.Recipient)
		if err != nil {
			return provider.Filter{}, fmt.Errorf("target %d: invalid recipient %q: %w", i, target.Recipient, err)
		}

		asset, err := types.FeltFromHex(target.Asset)
		if err != nil {
			return provider.Filter{}, fmt.Errorf("target %d: invalid asset %q: %w", i, target.Asset, err)
		}

		eventKey := b.eventKey
		events = append(events, provider.EventFilter{
			FromAddress: b.contract,
			Keys:        []*types.Felt{&eventKey, &recipient, &asset},
		})
	}

	return provider.Filter{
		Header: provider.HeaderFilter{Weak: true},
		Events: events,
	}, nil
}

// Matches reports whether ev satisfies any event matcher of f, applying the same
// semantics as the provider.
func Matches(f provider.Filter, ev provider.Event) bool {
	from, err := types.FeltFromHex(ev.FromAddress)
	if err != nil {
		return false
	}

	for _, ef := range f.Events {
		if ef.FromAddress == from && keysMatch(ef.Keys, ev.Keys) {
			return true
		}
	}

	return false
}

func keysMatch(want []*types.Felt, got []string) bool {
	if len(got) < len(want) {
		return false
	}

	for i, key := range want {
		if key == nil {
			continue
		}

		felt, err := types.FeltFromHex(got[i])
		if err != nil || felt != *key {
			return false
		}
	}

	return true
}
