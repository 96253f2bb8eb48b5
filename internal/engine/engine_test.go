package engine

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/filter"
	"github.com/goran-ethernal/PaymentIndexor/internal/ledger"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/provider/mocks"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
	"github.com/goran-ethernal/PaymentIndexor/pkg/provider"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	recipient1 = "0x0111"
	asset1     = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
	asset2     = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
)

// step is one scripted result of Stream.Recv.
type step struct {
	msg provider.Message
	err error
}

func testConfig() Config {
	return Config{
		StartingBlock:   100,
		Finality:        types.FinalityAccepted,
		ContractAddress: config.DefaultContractAddress,
		EventKey:        config.DefaultRemittanceEventKey,
		Targets:         []filter.Target{{Recipient: recipient1, Asset: asset1}},
	}
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "ledger.sqlite")}
	cfg.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database
}

// scriptedStream returns a stream that replays steps and then reports io.EOF.
func scriptedStream(t *testing.T, steps ...step) *mocks.Stream {
	t.Helper()

	stream := mocks.NewStream(t)
	i := 0
	stream.EXPECT().Recv(mock.Anything).RunAndReturn(func(context.Context) (provider.Message, error) {
		if i >= len(steps) {
			return provider.Message{}, io.EOF
		}
		s := steps[i]
		i++
		return s.msg, s.err
	}).Maybe()
	stream.EXPECT().Close().Return(nil).Maybe()

	return stream
}

func clientFor(t *testing.T, stream provider.Stream) *mocks.Client {
	t.Helper()

	client := mocks.NewClient(t)
	client.EXPECT().StartStream(mock.Anything, mock.Anything).Return(stream, nil).Maybe()
	client.EXPECT().Close().Maybe()

	return client
}

func newEngine(t *testing.T, database *sql.DB, steps ...step) *Engine {
	t.Helper()

	e, err := New(testConfig(), database, clientFor(t, scriptedStream(t, steps...)), logger.NewNopLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	return e
}

func remittance(asset, invoice, low, high string) provider.Event {
	return provider.Event{
		FromAddress: config.DefaultContractAddress,
		Keys:        []string{config.DefaultRemittanceEventKey, recipient1, asset},
		Data:        []string{invoice, low, high},
	}
}

func block(number uint64, hash byte, events ...provider.Event) provider.Block {
	return provider.Block{
		Header: &provider.BlockHeader{BlockNumber: number, BlockHash: []byte{hash}},
		Events: events,
	}
}

func data(blocks ...provider.Block) step {
	return step{msg: provider.Message{
		Kind: provider.KindData,
		Data: &provider.DataMessage{Finality: types.FinalityAccepted, Blocks: blocks},
	}}
}

func invalidate(number uint64, hash byte) step {
	return step{msg: provider.Message{
		Kind:       provider.KindInvalidate,
		Invalidate: &provider.InvalidateMessage{Cursor: provider.Cursor{OrderKey: number, UniqueKey: []byte{hash}}},
	}}
}

func heartbeat() step {
	return step{msg: provider.Message{Kind: provider.KindHeartbeat}}
}

func countRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func requireFault(t *testing.T, err error, kind error) *FaultError {
	t.Helper()

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	require.ErrorIs(t, err, kind)
	return fault
}

func TestNew_InvalidConfig(t *testing.T) {
	database := setupDB(t)

	cfg := testConfig()
	cfg.Targets = nil
	_, err := New(cfg, database, mocks.NewClient(t), logger.NewNopLogger(), nil)
	require.ErrorIs(t, err, filter.ErrNoTargets)

	cfg = testConfig()
	cfg.Finality = "latest"
	_, err = New(cfg, database, mocks.NewClient(t), logger.NewNopLogger(), nil)
	require.Error(t, err)

	cfg = testConfig()
	cfg.EventKey = "not-hex"
	_, err = New(cfg, database, mocks.NewClient(t), logger.NewNopLogger(), nil)
	require.Error(t, err)
}

func TestEngine_StreamRequest(t *testing.T) {
	database := setupDB(t)

	client := mocks.NewClient(t)
	client.EXPECT().StartStream(mock.Anything, mock.MatchedBy(func(req provider.StreamRequest) bool {
		return req.StartingCursor != nil &&
			req.StartingCursor.OrderKey == 99 &&
			req.Finality == types.FinalityAccepted &&
			req.Filter.Header.Weak &&
			len(req.Filter.Events) == 1 &&
			len(req.Filter.Events[0].Keys) == 3
	})).Return(scriptedStream(t), nil).Once()
	client.EXPECT().Close().Once()

	e, err := New(testConfig(), database, client, logger.NewNopLogger(), nil)
	require.NoError(t, err)
	require.Equal(t, StateConnecting, e.State())

	_, err = e.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, StateTerminated, e.State())
	require.NoError(t, e.Close())
}

func TestEngine_StartingCursor(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, &provider.Cursor{OrderKey: 99}, cfg.startingCursor())

	cfg.StartingBlock = 0
	require.Nil(t, cfg.startingCursor())

	resume := &provider.Cursor{OrderKey: 500, UniqueKey: []byte{0x05}}
	cfg.StartingCursor = resume
	require.Same(t, resume, cfg.startingCursor())
}

func TestEngine_PaymentOrdering(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database,
		data(
			block(100, 0xa0,
				remittance(asset1, "0x1", "0x64", "0x0"),
				remittance(asset1, "0x2", "0xc8", "0x0"),
			),
			block(101, 0xa1,
				remittance(asset1, "0x3", "0x12c", "0x0"),
				remittance(asset1, "0x4", "0x190", "0x0"),
			),
		),
	)

	msg, err := e.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, KindPayment, msg.Kind)
	require.Len(t, msg.Payments, 4)
	for i, p := range msg.Payments {
		require.Equal(t, types.NewUint128(uint64(i+1)), p.InvoiceID)
		require.Equal(t, uint256.NewInt(uint64(100*(i+1))), p.Amount)
	}

	require.Equal(t, 2, countRows(t, database, "blocks"))
	require.Equal(t, 4, countRows(t, database, "payment_events"))

	stored, err := ledger.NewReader(database).BlockByNumber(context.Background(), 101)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 2)
	require.Equal(t, uint32(0), stored.Payments[0].EventIndex)
	require.Equal(t, uint32(1), stored.Payments[1].EventIndex)

	_, err = e.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, StateTerminated, e.State())

	// terminal states keep returning io.EOF
	_, err = e.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestEngine_PaymentThenInvalidate(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	reader := ledger.NewReader(database)

	e := newEngine(t, database,
		data(block(500, 0x50, remittance(asset1, "0x2a", "0x3e8", "0x0"))),
		invalidate(499, 0x49),
	)

	msg, err := e.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, KindPayment, msg.Kind)
	require.Len(t, msg.Payments, 1)
	require.Equal(t, types.MustFeltFromHex(asset1), msg.Payments[0].Asset)
	require.Equal(t, types.NewUint128(42), msg.Payments[0].InvoiceID)
	require.Equal(t, uint256.NewInt(1000), msg.Payments[0].Amount)

	latest, err := reader.LatestBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(500), latest.BlockNumber)
	require.Equal(t, []byte{0x50}, latest.BlockHash)

	msg, err = e.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, KindInvalidate, msg.Kind)
	require.Equal(t, uint64(499), msg.LastValidBlockNumber)
	require.Equal(t, []byte{0x49}, msg.LastValidBlockHash)

	_, err = reader.LatestBlock(ctx)
	require.ErrorIs(t, err, ledger.ErrNotFound)
	require.Equal(t, 0, countRows(t, database, "payment_events"))
}

func TestEngine_InvalidateKeepsEarlierBlocks(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database,
		data(
			block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0")),
			block(101, 0xa1, remittance(asset1, "0x2", "0x2", "0x0")),
		),
		invalidate(100, 0xa0),
		data(block(101, 0xb1, remittance(asset1, "0x3", "0x3", "0x0"))),
	)

	for range 3 {
		_, err := e.Next(context.Background())
		require.NoError(t, err)
	}

	stored, err := ledger.NewReader(database).BlockByNumber(context.Background(), 101)
	require.NoError(t, err)
	require.Equal(t, []byte{0xb1}, stored.BlockHash)
	require.Len(t, stored.Payments, 1)
	require.Equal(t, types.NewUint128(3), stored.Payments[0].Event.InvoiceID)
	require.Equal(t, 2, countRows(t, database, "payment_events"))
}

func TestEngine_HeartbeatAndEmptyBatch(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database,
		heartbeat(),
		data(block(100, 0xa0)),
		heartbeat(),
		data(),
		data(block(101, 0xa1, remittance(asset1, "0x7", "0x1", "0x0"))),
	)

	msg, err := e.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, KindPayment, msg.Kind)
	require.Len(t, msg.Payments, 1)
	require.Equal(t, types.NewUint128(7), msg.Payments[0].InvoiceID)

	// blocks without matches are still recorded
	require.Equal(t, 2, countRows(t, database, "blocks"))
}

func TestEngine_ReplayIsIdempotent(t *testing.T) {
	database := setupDB(t)

	batch := data(block(100, 0xa0, remittance(asset1, "0x2a", "0x3e8", "0x0")))
	e := newEngine(t, database, batch, batch)

	msg, err := e.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Payments, 1)
	require.Equal(t, types.NewUint128(42), msg.Payments[0].InvoiceID)

	// the re-delivered batch is absorbed and the stream ends
	_, err = e.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, StateTerminated, e.State())

	require.Equal(t, 1, countRows(t, database, "blocks"))
	require.Equal(t, 1, countRows(t, database, "payment_events"))
}

func TestEngine_ReplayYieldsOnlyNewEvents(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database,
		data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0"))),
		data(
			block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0")),
			block(101, 0xa1, remittance(asset1, "0x2", "0x2", "0x0")),
		),
	)

	msg, err := e.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Payments, 1)

	msg, err = e.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, msg.Payments, 1)
	require.Equal(t, types.NewUint128(2), msg.Payments[0].InvoiceID)

	require.Equal(t, 2, countRows(t, database, "payment_events"))
}

func TestEngine_RedeliveryAfterInvalidateIsYielded(t *testing.T) {
	database := setupDB(t)

	batch := data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0")))
	e := newEngine(t, database, batch, invalidate(99, 0x99), batch)

	for _, want := range []MessageKind{KindPayment, KindInvalidate, KindPayment} {
		msg, err := e.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, msg.Kind)
	}

	require.Equal(t, 1, countRows(t, database, "payment_events"))
}

func TestEngine_DecodeFaultRollsBackBatch(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database,
		data(
			block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0")),
			block(101, 0xa1, remittance(asset1, "0x1", "not-a-number", "0x0")),
		),
	)

	_, err := e.Next(context.Background())
	fault := requireFault(t, err, ErrDecode)
	require.Equal(t, StateStreaming, fault.State)
	require.False(t, IsRetryable(err))
	require.Equal(t, StateFaulted, e.State())

	require.Equal(t, 0, countRows(t, database, "blocks"))
	require.Equal(t, 0, countRows(t, database, "payment_events"))

	_, err = e.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestEngine_ConnectFault(t *testing.T) {
	database := setupDB(t)

	dialErr := errors.New("connection refused")
	client := mocks.NewClient(t)
	client.EXPECT().StartStream(mock.Anything, mock.Anything).Return(nil, dialErr).Once()
	client.EXPECT().Close().Maybe()

	e, err := New(testConfig(), database, client, logger.NewNopLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Next(context.Background())
	fault := requireFault(t, err, ErrConnection)
	require.ErrorIs(t, err, dialErr)
	require.Equal(t, StateConnecting, fault.State)
	require.True(t, IsRetryable(err))
	require.Equal(t, StateFaulted, e.State())
}

func TestEngine_RecvFault(t *testing.T) {
	database := setupDB(t)

	recvErr := errors.New("connection reset by peer")
	e := newEngine(t, database, heartbeat(), step{err: recvErr})

	_, err := e.Next(context.Background())
	requireFault(t, err, ErrConnection)
	require.ErrorIs(t, err, recvErr)
}

func TestEngine_ProtocolViolations(t *testing.T) {
	pending := data(block(100, 0xa0))
	pending.msg.Data.Finality = types.FinalityPending

	tests := []struct {
		name  string
		steps []step
	}{
		{
			name:  "finality below configured",
			steps: []step{pending},
		},
		{
			name:  "data without payload",
			steps: []step{{msg: provider.Message{Kind: provider.KindData}}},
		},
		{
			name:  "invalidate without cursor",
			steps: []step{{msg: provider.Message{Kind: provider.KindInvalidate}}},
		},
		{
			name:  "unknown kind",
			steps: []step{{msg: provider.Message{Kind: "systemMessage"}}},
		},
		{
			name:  "block without header",
			steps: []step{data(provider.Block{})},
		},
		{
			name:  "blocks out of order",
			steps: []step{data(block(101, 0xa1), block(100, 0xa0))},
		},
		{
			name:  "duplicate block in batch",
			steps: []step{data(block(100, 0xa0), block(100, 0xa0))},
		},
		{
			name: "block hash changed without invalidate",
			steps: []step{
				data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0"))),
				data(block(100, 0xff)),
			},
		},
		{
			name: "event changed without invalidate",
			steps: []step{
				data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0"))),
				data(block(100, 0xa0, remittance(asset1, "0x1", "0x2", "0x0"))),
			},
		},
		{
			name:  "event outside the subscription filter",
			steps: []step{data(block(100, 0xa0, remittance(asset2, "0x1", "0x1", "0x0")))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, setupDB(t), tt.steps...)

			var err error
			for range len(tt.steps) {
				if _, err = e.Next(context.Background()); err != nil {
					break
				}
			}

			requireFault(t, err, ErrProtocolViolation)
			require.False(t, IsRetryable(err))
			require.Equal(t, StateFaulted, e.State())
		})
	}
}

func TestEngine_FinalizedSatisfiesAccepted(t *testing.T) {
	database := setupDB(t)

	finalized := data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0")))
	finalized.msg.Data.Finality = types.FinalityFinalized

	e := newEngine(t, database, finalized)

	msg, err := e.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, KindPayment, msg.Kind)
}

func TestEngine_StoreFault(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database, data(block(100, 0xa0)))
	require.NoError(t, database.Close())

	_, err := e.Next(context.Background())
	requireFault(t, err, ErrStore)
	require.True(t, IsRetryable(err))
}

func TestEngine_UsesMaintenanceLock(t *testing.T) {
	database := setupDB(t)

	m := &countingMaintenance{}
	e, err := New(testConfig(), database,
		clientFor(t, scriptedStream(t, data(block(100, 0xa0)), invalidate(99, 0x99))),
		logger.NewNopLogger(), m)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, m.acquired)
	require.Equal(t, 2, m.released)
}

func TestEngine_All(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database,
		data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0"))),
		heartbeat(),
		invalidate(99, 0x99),
		data(block(100, 0xb0, remittance(asset1, "0x2", "0x2", "0x0"))),
	)

	var kinds []MessageKind
	for msg, err := range e.All(context.Background()) {
		require.NoError(t, err)
		kinds = append(kinds, msg.Kind)
	}

	require.Equal(t, []MessageKind{KindPayment, KindInvalidate, KindPayment}, kinds)
	require.Equal(t, StateTerminated, e.State())
}

func TestEngine_AllStopsOnFault(t *testing.T) {
	database := setupDB(t)

	e := newEngine(t, database, step{err: errors.New("boom")})

	var errs []error
	for _, err := range e.All(context.Background()) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrConnection)
}

func TestEngine_Close(t *testing.T) {
	database := setupDB(t)

	stream := mocks.NewStream(t)
	stream.EXPECT().Recv(mock.Anything).Return(provider.Message{Kind: provider.KindHeartbeat}, nil).Once()
	stream.EXPECT().Recv(mock.Anything).Return(data(block(100, 0xa0, remittance(asset1, "0x1", "0x1", "0x0"))).msg, nil).Once()
	stream.EXPECT().Close().Return(nil).Once()

	client := mocks.NewClient(t)
	client.EXPECT().StartStream(mock.Anything, mock.Anything).Return(stream, nil).Once()
	client.EXPECT().Close().Once()

	e, err := New(testConfig(), database, client, logger.NewNopLogger(), nil)
	require.NoError(t, err)

	_, err = e.Next(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.Equal(t, StateTerminated, e.State())

	_, err = e.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestMessageKind_String(t *testing.T) {
	require.Equal(t, "payment", KindPayment.String())
	require.Equal(t, "invalidate", KindInvalidate.String())
	require.Equal(t, "unknown(0)", MessageKind(0).String())
}

func TestConfigFromProvider(t *testing.T) {
	p := config.ProviderConfig{}
	p.ApplyDefaults()

	cfg, err := ConfigFromProvider(p, []config.TargetConfig{{Recipient: recipient1, Asset: asset1}})
	require.NoError(t, err)
	require.Equal(t, config.DefaultStartingBlock, cfg.StartingBlock)
	require.Equal(t, types.FinalityAccepted, cfg.Finality)
	require.Equal(t, []filter.Target{{Recipient: recipient1, Asset: asset1}}, cfg.Targets)
	require.NoError(t, cfg.Validate())

	p.Finality = "latest"
	_, err = ConfigFromProvider(p, nil)
	require.Error(t, err)
}

type countingMaintenance struct {
	db.NoOpMaintenance
	acquired int
	released int
}

func (m *countingMaintenance) AcquireOperationLock() func() {
	m.acquired++
	return func() { m.released++ }
}
