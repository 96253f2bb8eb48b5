package api

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LatestBlock *uint64   `json:"latest_block,omitempty"`
}

// StatusResponse summarizes the ledger contents.
type StatusResponse struct {
	Blocks        int64  `json:"blocks"`
	PaymentEvents int64  `json:"payment_events"`
	EarliestBlock uint64 `json:"earliest_block"`
	LatestBlock   uint64 `json:"latest_block"`
}

// PaymentResponse is one stored payment event.
type PaymentResponse struct {
	BlockNumber uint64        `json:"block_number"`
	EventIndex  uint32        `json:"event_index"`
	Asset       types.Felt    `json:"asset" swaggertype:"string" example:"0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"`
	InvoiceID   types.Uint128 `json:"invoice_id" swaggertype:"string" example:"0x2a"`
	// Amount is a decimal string; it does not fit a JSON number.
	Amount string `json:"amount" example:"1000"`
}

// BlockResponse is a stored block with its payments.
type BlockResponse struct {
	BlockNumber uint64            `json:"block_number"`
	BlockHash   hexutil.Bytes     `json:"block_hash" swaggertype:"string" example:"0x1f"`
	Payments    []PaymentResponse `json:"payments,omitempty"`
}

// InvoiceTotalResponse is the decimal amount paid towards one invoice in one asset.
type InvoiceTotalResponse struct {
	InvoiceID types.Uint128 `json:"invoice_id" swaggertype:"string" example:"0x2a"`
	Asset     types.Felt    `json:"asset" swaggertype:"string"`
	Total     string        `json:"total" example:"1024"`
}

// InvoicePaymentsResponse lists the payments made towards one invoice and the
// total paid per asset.
type InvoicePaymentsResponse struct {
	InvoiceID types.Uint128     `json:"invoice_id" swaggertype:"string" example:"0x2a"`
	Payments  []PaymentResponse `json:"payments"`
	Totals    map[string]string `json:"totals"`
}
