package provider

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
)

// MessageKind discriminates the messages delivered on a stream.
type MessageKind string

const (
	KindData       MessageKind = "data"
	KindInvalidate MessageKind = "invalidate"
	KindHeartbeat  MessageKind = "heartbeat"
)

// Cursor identifies a position in the chain.
type Cursor struct {
	OrderKey  uint64        `json:"orderKey"`
	UniqueKey hexutil.Bytes `json:"uniqueKey,omitempty"`
}

func (c Cursor) String() string {
	if len(c.UniqueKey) == 0 {
		return fmt.Sprintf("%d", c.OrderKey)
	}
	return fmt.Sprintf("%d/%s", c.OrderKey, c.UniqueKey)
}

// StreamRequest configures a new subscription.
type StreamRequest struct {
	// StartingCursor is the last block already known to the caller; streaming
	// starts right after it. Nil starts at genesis.
	StartingCursor *Cursor            `json:"startingCursor,omitempty"`
	Finality       types.DataFinality `json:"finality"`
	Filter         Filter             `json:"filter"`
	BatchSize      uint64             `json:"batchSize,omitempty"`
}

// Filter selects what the provider delivers per block.
type Filter struct {
	Header HeaderFilter  `json:"header"`
	Events []EventFilter `json:"events"`
}

// HeaderFilter controls header delivery. A weak header filter only sends
// headers for blocks that carry at least one matched event.
type HeaderFilter struct {
	Weak bool `json:"weak"`
}

// EventFilter matches events emitted by FromAddress whose leading keys equal Keys.
// A nil key is a wildcard for that position.
type EventFilter struct {
	FromAddress types.Felt    `json:"fromAddress"`
	Keys        []*types.Felt `json:"keys"`
}

// Message is one item of a provider stream. Exactly one of Data and Invalidate is
// set for the corresponding kinds; heartbeats carry no payload.
type Message struct {
	Kind       MessageKind        `json:"kind"`
	Data       *DataMessage       `json:"data,omitempty"`
	Invalidate *InvalidateMessage `json:"invalidate,omitempty"`
}

// DataMessage is a batch of consecutive blocks.
type DataMessage struct {
	Cursor    *Cursor            `json:"cursor,omitempty"`
	EndCursor Cursor             `json:"endCursor"`
	Finality  types.DataFinality `json:"finality"`
	Blocks    []Block            `json:"blocks"`
}

// InvalidateMessage reports that every block after Cursor is no longer canonical.
type InvalidateMessage struct {
	Cursor Cursor `json:"cursor"`
}

// Block is one block of a data batch with the events that matched the filter.
type Block struct {
	Header *BlockHeader `json:"header,omitempty"`
	Events []Event      `json:"events"`
}

// BlockHeader identifies a block.
type BlockHeader struct {
	BlockNumber uint64        `json:"blockNumber"`
	BlockHash   hexutil.Bytes `json:"blockHash"`
	Timestamp   uint64        `json:"timestamp,omitempty"`
}

// Event is a raw matched event. Keys and Data hold hex-encoded field elements.
type Event struct {
	FromAddress     string   `json:"fromAddress"`
	Keys            []string `json:"keys"`
	Data            []string `json:"data"`
	TransactionHash string   `json:"transactionHash,omitempty"`
}
