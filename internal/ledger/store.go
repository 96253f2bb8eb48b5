package ledger

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/ledger/migrations"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/russross/meddler"
)

const (
	blocksTable        = "blocks"
	paymentEventsTable = "payment_events"
)

// StoredBlock is a row of the blocks table.
type StoredBlock struct {
	BlockNumber uint64 `meddler:"block_number"`
	BlockHash   []byte `meddler:"block_hash"`
}

// storedPaymentEvent is a row of the payment_events table.
type storedPaymentEvent struct {
	ID          int64         `meddler:"id,pk"`
	BlockNumber uint64        `meddler:"block_number"`
	EventIndex  uint32        `meddler:"event_index"`
	Asset       types.Felt    `meddler:"asset,felt"`
	InvoiceID   types.Uint128 `meddler:"invoice_id,u128"`
	AmountLow   types.Uint128 `meddler:"amount_low,u128"`
	AmountHigh  types.Uint128 `meddler:"amount_high,u128"`
}

func (r *storedPaymentEvent) toPayment() StoredPayment {
	return StoredPayment{
		BlockNumber: r.BlockNumber,
		EventIndex:  r.EventIndex,
		Event: types.PaymentEvent{
			Asset:     r.Asset,
			InvoiceID: r.InvoiceID,
			Amount:    types.ComposeUint256(r.AmountLow, r.AmountHigh),
		},
	}
}

// StoredPayment is a persisted payment event together with its position in the chain.
type StoredPayment struct {
	BlockNumber uint64
	EventIndex  uint32
	Event       types.PaymentEvent
}

// InvalidationResult reports how many rows an invalidation removed.
type InvalidationResult struct {
	BlocksDeleted int64
	EventsDeleted int64
}

// Store mutates the ledger tables. Every operation runs inside a transaction owned
// by the caller; Store never begins or commits one itself.
type Store struct {
	log *logger.Logger
}

// NewStore creates the ledger schema if absent and returns a Store.
func NewStore(database *sql.DB, log *logger.Logger) (*Store, error) {
	log = log.WithComponent(common.ComponentLedger)

	if err := migrations.RunMigrations(log, database); err != nil {
		return nil, fmt.Errorf("failed to run ledger migrations: %w", err)
	}

	return &Store{log: log}, nil
}

// InsertBlock records a block and reports whether a new row was written.
// Re-inserting the same number with the same hash is a no-op that returns false;
// a different hash fails with ErrBlockHashMismatch.
func (s *Store) InsertBlock(tx *sql.Tx, blockNumber uint64, blockHash []byte) (bool, error) {
	existing, err := getBlockTx(tx, blockNumber)
	switch {
	case err == nil:
		if !bytes.Equal(existing.BlockHash, blockHash) {
			return false, fmt.Errorf("%w: block %d stored=0x%x received=0x%x",
				ErrBlockHashMismatch, blockNumber, existing.BlockHash, blockHash)
		}
		ReplayIgnoredInc(blocksTable)
		s.log.Debugw("block already stored, skipping", "block", blockNumber)
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to look up block %d: %w", blockNumber, err)
	}

	block := &StoredBlock{BlockNumber: blockNumber, BlockHash: blockHash}
	if err := meddler.Insert(tx, blocksTable, block); err != nil {
		return false, fmt.Errorf("failed to insert block %d: %w", blockNumber, err)
	}

	BlockInsertedInc()
	return true, nil
}

// InsertPaymentEvent records the event at eventIndex within blockNumber and reports
// whether a new row was written. The block must already be stored in tx, otherwise
// ErrUnknownBlock is returned. Re-inserting an identical event at the same position
// returns false; a different event there fails with ErrPaymentEventMismatch.
func (s *Store) InsertPaymentEvent(tx *sql.Tx, blockNumber uint64, eventIndex uint32, event types.PaymentEvent) (bool, error) {
	if _, err := getBlockTx(tx, blockNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: block %d", ErrUnknownBlock, blockNumber)
		}
		return false, fmt.Errorf("failed to look up block %d: %w", blockNumber, err)
	}

	low, high := event.AmountLimbs()
	row := &storedPaymentEvent{
		BlockNumber: blockNumber,
		EventIndex:  eventIndex,
		Asset:       event.Asset,
		InvoiceID:   event.InvoiceID,
		AmountLow:   low,
		AmountHigh:  high,
	}

	var existing storedPaymentEvent
	err := meddler.QueryRow(tx, &existing,
		"SELECT * FROM payment_events WHERE block_number = ? AND event_index = ?", blockNumber, eventIndex)
	switch {
	case err == nil:
		if !existing.toPayment().Event.Equal(event) {
			return false, fmt.Errorf("%w: block %d event %d", ErrPaymentEventMismatch, blockNumber, eventIndex)
		}
		ReplayIgnoredInc(paymentEventsTable)
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to look up payment event %d/%d: %w", blockNumber, eventIndex, err)
	}

	if err := meddler.Insert(tx, paymentEventsTable, row); err != nil {
		return false, fmt.Errorf("failed to insert payment event %d/%d: %w", blockNumber, eventIndex, err)
	}

	PaymentEventInsertedInc()
	return true, nil
}

// Invalidate deletes every block above lastValidBlockNumber together with its payment events.
// Cutting at or above the newest stored block deletes nothing and is not an error.
func (s *Store) Invalidate(tx *sql.Tx, lastValidBlockNumber uint64) (InvalidationResult, error) {
	var res InvalidationResult

	events, err := tx.Exec("DELETE FROM payment_events WHERE block_number > ?", lastValidBlockNumber)
	if err != nil {
		return res, fmt.Errorf("failed to delete payment events above block %d: %w", lastValidBlockNumber, err)
	}
	res.EventsDeleted, _ = events.RowsAffected()

	blocks, err := tx.Exec("DELETE FROM blocks WHERE block_number > ?", lastValidBlockNumber)
	if err != nil {
		return res, fmt.Errorf("failed to delete blocks above %d: %w", lastValidBlockNumber, err)
	}
	res.BlocksDeleted, _ = blocks.RowsAffected()

	InvalidationLog(res.BlocksDeleted, res.EventsDeleted)

	if res.BlocksDeleted > 0 {
		s.log.Infow("invalidated blocks",
			"last_valid_block", lastValidBlockNumber,
			"blocks_deleted", res.BlocksDeleted,
			"events_deleted", res.EventsDeleted,
		)
	}

	return res, nil
}

func getBlockTx(tx *sql.Tx, blockNumber uint64) (StoredBlock, error) {
	var block StoredBlock
	if err := meddler.QueryRow(tx, &block, "SELECT * FROM blocks WHERE block_number = ?", blockNumber); err != nil {
		return StoredBlock{}, err
	}
	return block, nil
}
