package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// PaymentEvent is one decoded remittance as handed to consumers.
// It carries no block linkage.
type PaymentEvent struct {
	Asset     Felt
	InvoiceID Uint128
	Amount    *uint256.Int
}

// AmountLimbs splits the amount into its low and high 128-bit limbs.
// A nil amount is treated as zero.
func (p PaymentEvent) AmountLimbs() (low, high Uint128) {
	if p.Amount == nil {
		return Uint128{}, Uint128{}
	}
	return SplitUint256(p.Amount)
}

// Equal reports whether both events carry the same asset, invoice and amount.
func (p PaymentEvent) Equal(other PaymentEvent) bool {
	if p.Asset != other.Asset || p.InvoiceID != other.InvoiceID {
		return false
	}
	lowA, highA := p.AmountLimbs()
	lowB, highB := other.AmountLimbs()
	return lowA == lowB && highA == highB
}

func (p PaymentEvent) String() string {
	amount := "0"
	if p.Amount != nil {
		amount = p.Amount.Dec()
	}
	return fmt.Sprintf("{asset: %s, invoice: %s, amount: %s}", p.Asset, p.InvoiceID, amount)
}
