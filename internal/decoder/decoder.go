package decoder

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/provider"
)

// Remittance event layout. Keys: [selector, recipient, asset]. Data: [invoice_id, amount_low, amount_high].
const (
	keyAsset = 2

	dataInvoiceID  = 0
	dataAmountLow  = 1
	dataAmountHigh = 2
)

// ErrMissingField is returned when the event carries fewer fields than the layout requires.
var ErrMissingField = errors.New("missing field")

// DecodeError describes which field of a raw event could not be decoded.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode turns a matched remittance event into a payment. Any malformed, overflowing
// or absent field fails the whole event.
func Decode(ev provider.Event) (types.PaymentEvent, error) {
	assetHex, err := field(ev.Keys, keyAsset, "asset")
	if err != nil {
		return types.PaymentEvent{}, err
	}
	asset, err := types.FeltFromHex(assetHex)
	if err != nil {
		return types.PaymentEvent{}, &DecodeError{Field: "asset", Value: assetHex, Err: err}
	}

	invoiceID, err := uint128Field(ev.Data, dataInvoiceID, "invoice_id")
	if err != nil {
		return types.PaymentEvent{}, err
	}

	low, err := uint128Field(ev.Data, dataAmountLow, "amount_low")
	if err != nil {
		return types.PaymentEvent{}, err
	}

	high, err := uint128Field(ev.Data, dataAmountHigh, "amount_high")
	if err != nil {
		return types.PaymentEvent{}, err
	}

	return types.PaymentEvent{
		Asset:     asset,
		InvoiceID: invoiceID,
		Amount:    types.ComposeUint256(low, high),
	}, nil
}

func field(values []string, index int, name string) (string, error) {
	if index >= len(values) {
		return "", &DecodeError{Field: name, Err: ErrMissingField}
	}
	return values[index], nil
}

func uint128Field(values []string, index int, name string) (types.Uint128, error) {
	raw, err := field(values, index, name)
	if err != nil {
		return types.Uint128{}, err
	}

	v, err := types.ParseUint128Hex(raw)
	if err != nil {
		return types.Uint128{}, &DecodeError{Field: name, Value: raw, Err: err}
	}
	return v, nil
}
