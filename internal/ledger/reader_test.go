package ledger

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func setupReader(t *testing.T, path string) *Reader {
	t.Helper()

	cfg := config.DatabaseConfig{Path: path}
	cfg.ApplyDefaults()

	ro, err := db.NewReadOnlySQLiteDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { ro.Close() })

	return NewReader(ro)
}

func TestReader_EmptyLedger(t *testing.T) {
	_, _, path := setupLedger(t)
	reader := setupReader(t, path)
	ctx := context.Background()

	_, err := reader.LatestBlock(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = reader.BlockByNumber(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	payments, err := reader.PaymentsByInvoice(ctx, types.NewUint128(1))
	require.NoError(t, err)
	require.Empty(t, payments)

	stats, err := reader.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)
}

func TestReader_Queries(t *testing.T) {
	database, store, path := setupLedger(t)
	reader := setupReader(t, path)
	ctx := context.Background()

	require.NoError(t, withTx(t, database, func(tx *sql.Tx) error {
		for _, n := range []uint64{500, 501} {
			if _, err := store.InsertBlock(tx, n, []byte{0x05, byte(n)}); err != nil {
				return err
			}
		}
		events := []struct {
			block uint64
			index uint32
			event types.PaymentEvent
		}{
			{500, 0, payment(assetA, 42, 1000)},
			{500, 1, payment(assetB, 42, 5)},
			{501, 0, payment(assetA, 42, 24)},
			{501, 1, payment(assetA, 7, 3)},
		}
		for _, e := range events {
			if _, err := store.InsertPaymentEvent(tx, e.block, e.index, e.event); err != nil {
				return err
			}
		}
		return nil
	}))

	latest, err := reader.LatestBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(501), latest.BlockNumber)
	require.Equal(t, []byte{0x05, 0xf5}, latest.BlockHash)

	block, err := reader.BlockByNumber(ctx, 500)
	require.NoError(t, err)
	require.Len(t, block.Payments, 2)
	require.Equal(t, uint32(0), block.Payments[0].EventIndex)
	require.True(t, block.Payments[0].Event.Equal(payment(assetA, 42, 1000)))

	payments, err := reader.PaymentsByInvoice(ctx, types.NewUint128(42))
	require.NoError(t, err)
	require.Len(t, payments, 3)
	require.Equal(t, uint64(500), payments[0].BlockNumber)
	require.Equal(t, uint64(500), payments[1].BlockNumber)
	require.Equal(t, uint64(501), payments[2].BlockNumber)

	total, err := reader.TotalPaidForInvoice(ctx, types.NewUint128(42), assetA)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1024), total)

	stats, err := reader.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Blocks: 2, PaymentEvents: 4, EarliestBlock: 500, LatestBlock: 501}, stats)

	// the reader observes invalidations committed through the writer connection
	require.NoError(t, withTx(t, database, func(tx *sql.Tx) error {
		_, err := store.Invalidate(tx, 500)
		return err
	}))

	latest, err = reader.LatestBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(500), latest.BlockNumber)

	total, err = reader.TotalPaidForInvoice(ctx, types.NewUint128(42), assetA)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1000), total)
}
