package engine

import (
	"fmt"

	"github.com/goran-ethernal/PaymentIndexor/internal/types"
)

// MessageKind discriminates engine output.
type MessageKind int

const (
	// KindPayment carries the decoded payments of one committed batch.
	KindPayment MessageKind = iota + 1
	// KindInvalidate reports that everything after the given block was pruned.
	KindInvalidate
)

func (k MessageKind) String() string {
	switch k {
	case KindPayment:
		return "payment"
	case KindInvalidate:
		return "invalidate"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Message is one item of the engine's output sequence.
type Message struct {
	Kind MessageKind

	// Payments is set for KindPayment, in block then event order. Never empty.
	Payments []types.PaymentEvent

	// LastValidBlockNumber and LastValidBlockHash are set for KindInvalidate.
	LastValidBlockNumber uint64
	LastValidBlockHash   []byte
}

// PaymentMessage builds a KindPayment message.
func PaymentMessage(payments []types.PaymentEvent) Message {
	return Message{Kind: KindPayment, Payments: payments}
}

// InvalidateMessage builds a KindInvalidate message.
func InvalidateMessage(blockNumber uint64, blockHash []byte) Message {
	return Message{Kind: KindInvalidate, LastValidBlockNumber: blockNumber, LastValidBlockHash: blockHash}
}
