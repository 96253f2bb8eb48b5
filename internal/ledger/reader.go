package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/metrics"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/holiman/uint256"
	"github.com/russross/meddler"
)

// Stats summarizes the materialized view.
type Stats struct {
	Blocks        int64  `json:"blocks"`
	PaymentEvents int64  `json:"payment_events"`
	EarliestBlock uint64 `json:"earliest_block"`
	LatestBlock   uint64 `json:"latest_block"`
}

// BlockWithPayments is a stored block and the payment events it carries, in event order.
type BlockWithPayments struct {
	StoredBlock
	Payments []StoredPayment
}

// Reader is a read-only view over the ledger for downstream consumers.
// It must be backed by its own connection; rows it returns may be removed
// by a later invalidation.
type Reader struct {
	db *sql.DB
}

// NewReader returns a Reader over database.
func NewReader(database *sql.DB) *Reader {
	return &Reader{db: database}
}

// LatestBlock returns the highest stored block or ErrNotFound on an empty ledger.
func (r *Reader) LatestBlock(ctx context.Context) (_ StoredBlock, err error) {
	defer observe("latest_block", time.Now(), &err)

	return r.queryBlock(ctx, "SELECT * FROM blocks ORDER BY block_number DESC LIMIT 1")
}

// BlockByNumber returns the block and its payment events or ErrNotFound.
func (r *Reader) BlockByNumber(ctx context.Context, blockNumber uint64) (_ BlockWithPayments, err error) {
	defer observe("block_by_number", time.Now(), &err)

	block, err := r.queryBlock(ctx, "SELECT * FROM blocks WHERE block_number = ?", blockNumber)
	if err != nil {
		return BlockWithPayments{}, err
	}

	payments, err := r.queryPayments(ctx,
		"SELECT * FROM payment_events WHERE block_number = ? ORDER BY event_index ASC", blockNumber)
	if err != nil {
		return BlockWithPayments{}, err
	}

	return BlockWithPayments{StoredBlock: block, Payments: payments}, nil
}

// PaymentsByInvoice returns every stored payment for invoiceID in chain order.
func (r *Reader) PaymentsByInvoice(ctx context.Context, invoiceID types.Uint128) (_ []StoredPayment, err error) {
	defer observe("payments_by_invoice", time.Now(), &err)

	key, err := uint128Column(invoiceID)
	if err != nil {
		return nil, err
	}

	return r.queryPayments(ctx,
		"SELECT * FROM payment_events WHERE invoice_id = ? ORDER BY block_number ASC, event_index ASC", key)
}

// TotalPaidForInvoice sums the amounts paid towards invoiceID in asset.
func (r *Reader) TotalPaidForInvoice(ctx context.Context, invoiceID types.Uint128, asset types.Felt) (*uint256.Int, error) {
	payments, err := r.PaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	total := new(uint256.Int)
	for _, p := range payments {
		if p.Event.Asset != asset {
			continue
		}
		if _, overflow := total.AddOverflow(total, p.Event.Amount); overflow {
			return nil, fmt.Errorf("%w: total paid for invoice %s", types.ErrOverflow, invoiceID)
		}
	}

	return total, nil
}

// Stats returns row counts and the stored block range.
func (r *Reader) Stats(ctx context.Context) (_ Stats, err error) {
	defer observe("stats", time.Now(), &err)

	var s Stats

	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MIN(block_number), 0), COALESCE(MAX(block_number), 0) FROM blocks").
		Scan(&s.Blocks, &s.EarliestBlock, &s.LatestBlock); err != nil {
		return Stats{}, fmt.Errorf("failed to query block stats: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payment_events").Scan(&s.PaymentEvents); err != nil {
		return Stats{}, fmt.Errorf("failed to count payment events: %w", err)
	}

	return s, nil
}

// observe records a query; a missing row is not a failure.
func observe(operation string, start time.Time, err *error) {
	if errors.Is(*err, ErrNotFound) {
		metrics.ObserveQuery(operation, start, nil)
		return
	}
	metrics.ObserveQuery(operation, start, *err)
}

func (r *Reader) queryBlock(ctx context.Context, query string, args ...any) (StoredBlock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return StoredBlock{}, fmt.Errorf("failed to query block: %w", err)
	}
	defer rows.Close()

	var block StoredBlock
	if err := meddler.ScanRow(rows, &block); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredBlock{}, ErrNotFound
		}
		return StoredBlock{}, fmt.Errorf("failed to scan block: %w", err)
	}

	return block, nil
}

func (r *Reader) queryPayments(ctx context.Context, query string, args ...any) ([]StoredPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer rows.Close()

	var stored []*storedPaymentEvent
	if err := meddler.ScanAll(rows, &stored); err != nil {
		return nil, fmt.Errorf("failed to scan payment events: %w", err)
	}

	payments := make([]StoredPayment, 0, len(stored))
	for _, row := range stored {
		payments = append(payments, row.toPayment())
	}

	return payments, nil
}

// uint128Column renders v exactly as the u128 meddler converter stores it.
func uint128Column(v types.Uint128) (any, error) {
	return db.Uint128Meddler{}.PreWrite(v)
}
