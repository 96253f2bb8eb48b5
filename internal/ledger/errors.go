package ledger

import "errors"

var (
	// ErrBlockHashMismatch is returned when a block number is re-inserted with a different hash.
	ErrBlockHashMismatch = errors.New("block already stored with a different hash")

	// ErrUnknownBlock is returned when a payment event references a block that is not stored.
	ErrUnknownBlock = errors.New("payment event references unknown block")

	// ErrPaymentEventMismatch is returned when an event position is re-inserted with different content.
	ErrPaymentEventMismatch = errors.New("payment event already stored with different content")

	// ErrNotFound is returned by Reader lookups that match no rows.
	ErrNotFound = errors.New("not found")
)
