package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/decoder"
	"github.com/goran-ethernal/PaymentIndexor/internal/filter"
	"github.com/goran-ethernal/PaymentIndexor/internal/ledger"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/metrics"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/goran-ethernal/PaymentIndexor/pkg/provider"
)

// Config holds the stream parameters of an Engine.
type Config struct {
	// StartingBlock is the first block to stream when StartingCursor is nil.
	StartingBlock uint64

	// StartingCursor, when set, resumes right after the given block.
	StartingCursor *provider.Cursor

	// Finality is the minimum finality of delivered data.
	Finality types.DataFinality

	// ContractAddress and EventKey identify the remittance event.
	ContractAddress string
	EventKey        string

	// Targets are the (recipient, asset) pairs to watch.
	Targets []filter.Target

	// BatchSize caps the number of blocks per data message (0 = provider default).
	BatchSize uint64
}

// Validate checks if the engine configuration is valid.
func (c Config) Validate() error {
	if !c.Finality.IsValid() {
		return fmt.Errorf("invalid finality %q", c.Finality)
	}
	if len(c.Targets) == 0 {
		return filter.ErrNoTargets
	}
	return nil
}

// startingCursor returns the cursor the stream starts after.
func (c Config) startingCursor() *provider.Cursor {
	if c.StartingCursor != nil {
		return c.StartingCursor
	}
	if c.StartingBlock == 0 {
		return nil
	}
	return &provider.Cursor{OrderKey: c.StartingBlock - 1}
}

// Engine turns a provider stream into a reorg-consistent ledger and a sequence of
// Payment and Invalidate messages. It is pull based: nothing happens until Next is
// called. An Engine is not safe for concurrent use.
type Engine struct {
	cfg         Config
	db          *sql.DB
	store       *ledger.Store
	client      provider.Client
	filter      provider.Filter
	maintenance db.Maintenance
	log         *logger.Logger

	state  State
	stream provider.Stream
}

// New validates cfg, builds the subscription filter and creates the ledger schema if absent.
// The engine takes ownership of client; database stays owned by the caller.
func New(
	cfg Config,
	database *sql.DB,
	client provider.Client,
	log *logger.Logger,
	maintenance db.Maintenance,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	builder, err := filter.NewBuilder(cfg.ContractAddress, cfg.EventKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter builder: %w", err)
	}

	f, err := builder.Build(cfg.Targets)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	store, err := ledger.NewStore(database, log)
	if err != nil {
		return nil, err
	}

	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	e := &Engine{
		cfg:         cfg,
		db:          database,
		store:       store,
		client:      client,
		filter:      f,
		maintenance: maintenance,
		log:         log.WithComponent(common.ComponentEngine),
		state:       StateConnecting,
	}
	StateLog(e.state)

	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Next blocks until the engine has a message for the caller.
//
// Heartbeats and batches without matched events are absorbed and Next keeps
// waiting. io.EOF is returned once the provider ends the stream and on every call
// after a fault. Any other error is a *FaultError and is returned exactly once.
func (e *Engine) Next(ctx context.Context) (Message, error) {
	switch e.state {
	case StateTerminated, StateFaulted:
		return Message{}, io.EOF
	case StateConnecting:
		if err := e.connect(ctx); err != nil {
			return Message{}, e.fail(&FaultError{Kind: ErrConnection, State: StateConnecting, Err: err})
		}
	}

	for {
		raw, err := e.stream.Recv(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.log.Info("provider ended the stream")
				e.setState(StateTerminated)
				return Message{}, io.EOF
			}
			return Message{}, e.fail(&FaultError{Kind: ErrConnection, State: StateStreaming, Err: err})
		}

		msg, ok, err := e.handle(ctx, raw)
		if err != nil {
			return Message{}, e.fail(err)
		}
		if ok {
			return msg, nil
		}
	}
}

// All returns the engine output as an iterator. Iteration stops after the first
// error or at the end of the stream.
func (e *Engine) All(ctx context.Context) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		for {
			msg, err := e.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(msg, err) || err != nil {
				return
			}
		}
	}
}

// Close cancels the stream and closes the provider client.
func (e *Engine) Close() error {
	var err error
	if e.stream != nil {
		err = e.stream.Close()
		e.stream = nil
	}
	e.client.Close()

	if !e.state.Done() {
		e.setState(StateTerminated)
	}

	return err
}

func (e *Engine) connect(ctx context.Context) error {
	req := provider.StreamRequest{
		StartingCursor: e.cfg.startingCursor(),
		Finality:       e.cfg.Finality,
		Filter:         e.filter,
		BatchSize:      e.cfg.BatchSize,
	}

	stream, err := e.client.StartStream(ctx, req)
	if err != nil {
		return err
	}

	e.stream = stream
	e.setState(StateStreaming)
	e.log.Infow("streaming",
		"starting_cursor", req.StartingCursor,
		"finality", req.Finality,
		"targets", len(e.cfg.Targets),
	)

	return nil
}

// handle applies one provider message. ok is false when the message yields nothing.
func (e *Engine) handle(ctx context.Context, raw provider.Message) (msg Message, ok bool, err error) {
	switch raw.Kind {
	case provider.KindData:
		if raw.Data == nil {
			return Message{}, false, protocolViolation("data message without payload")
		}
		return e.handleData(ctx, raw.Data)

	case provider.KindInvalidate:
		if raw.Invalidate == nil {
			return Message{}, false, protocolViolation("invalidate message without cursor")
		}
		return e.handleInvalidate(ctx, raw.Invalidate.Cursor)

	case provider.KindHeartbeat:
		HeartbeatInc()
		e.log.Debug("heartbeat")
		return Message{}, false, nil

	default:
		return Message{}, false, protocolViolation("unknown message kind %q", raw.Kind)
	}
}

func (e *Engine) handleData(ctx context.Context, data *provider.DataMessage) (Message, bool, error) {
	if !data.Finality.IsValid() || !data.Finality.AtLeast(e.cfg.Finality) {
		return Message{}, false, protocolViolation("received %q data while streaming %q", data.Finality, e.cfg.Finality)
	}

	start := time.Now()

	unlock := e.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, false, storeFault(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer e.rollback(tx)

	var (
		payments []types.PaymentEvent
		prev     uint64
	)

	for i, block := range data.Blocks {
		if block.Header == nil {
			return Message{}, false, protocolViolation("block %d of batch has no header", i)
		}

		number := block.Header.BlockNumber
		if i > 0 && number <= prev {
			return Message{}, false, protocolViolation("block %d follows block %d in the same batch", number, prev)
		}
		prev = number

		if _, err := e.store.InsertBlock(tx, number, block.Header.BlockHash); err != nil {
			return Message{}, false, ledgerFault(err)
		}

		for j, ev := range block.Events {
			if !filter.Matches(e.filter, ev) {
				return Message{}, false, protocolViolation("block %d event %d is outside the subscription filter", number, j)
			}

			payment, err := decoder.Decode(ev)
			if err != nil {
				return Message{}, false, &FaultError{
					Kind:  ErrDecode,
					State: StateStreaming,
					Err:   fmt.Errorf("block %d event %d: %w", number, j, err),
				}
			}

			inserted, err := e.store.InsertPaymentEvent(tx, number, uint32(j), payment)
			if err != nil {
				return Message{}, false, ledgerFault(err)
			}
			// a re-delivered event was already yielded on its first delivery
			if inserted {
				payments = append(payments, payment)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Message{}, false, storeFault(fmt.Errorf("failed to commit batch: %w", err))
	}

	BatchCommittedLog(time.Since(start), len(payments), prev)

	if len(data.Blocks) > 0 {
		e.log.Debugw("batch committed",
			"from_block", data.Blocks[0].Header.BlockNumber,
			"to_block", prev,
			"payments", len(payments),
		)
	}

	if len(payments) == 0 {
		return Message{}, false, nil
	}

	return PaymentMessage(payments), true, nil
}

func (e *Engine) handleInvalidate(ctx context.Context, cursor provider.Cursor) (Message, bool, error) {
	unlock := e.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, false, storeFault(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer e.rollback(tx)

	res, err := e.store.Invalidate(tx, cursor.OrderKey)
	if err != nil {
		return Message{}, false, storeFault(err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, false, storeFault(fmt.Errorf("failed to commit invalidation: %w", err))
	}

	InvalidationLog(cursor.OrderKey)
	e.log.Warnw("invalidated",
		"last_valid_block", cursor.OrderKey,
		"last_valid_hash", cursor.UniqueKey,
		"blocks_deleted", res.BlocksDeleted,
		"events_deleted", res.EventsDeleted,
	)

	return InvalidateMessage(cursor.OrderKey, cursor.UniqueKey), true, nil
}

func (e *Engine) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		e.log.Errorw("failed to rollback transaction", "error", err)
	}
}

func (e *Engine) fail(err error) error {
	var fault *FaultError
	if !errors.As(err, &fault) {
		fault = &FaultError{Kind: ErrStore, State: e.state, Err: err}
		err = fault
	}

	FaultInc(fault.Kind)
	metrics.ErrorsInc(common.ComponentEngine, metrics.SeverityFatal)
	e.log.Errorw("engine faulted", "kind", fault.Kind, "state", fault.State, "error", fault.Err)
	e.setState(StateFaulted)

	return err
}

func (e *Engine) setState(s State) {
	e.state = s
	StateLog(s)
	metrics.ComponentHealthSet(common.ComponentEngine, s != StateFaulted)
}

func storeFault(err error) error {
	return &FaultError{Kind: ErrStore, State: StateStreaming, Err: err}
}

// ledgerFault classifies ledger errors: inconsistent re-deliveries and events
// without their block are the provider's fault, everything else is storage.
func ledgerFault(err error) error {
	if errors.Is(err, ledger.ErrBlockHashMismatch) ||
		errors.Is(err, ledger.ErrUnknownBlock) ||
		errors.Is(err, ledger.ErrPaymentEventMismatch) {
		return &FaultError{Kind: ErrProtocolViolation, State: StateStreaming, Err: err}
	}
	return storeFault(err)
}
