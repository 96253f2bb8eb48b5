package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/ledger"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/metrics"
	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
	"github.com/goran-ethernal/PaymentIndexor/pkg/provider"
)

// ClientFactory opens a new provider connection for every engine run.
type ClientFactory func(ctx context.Context) (provider.Client, error)

// Handler consumes engine output. Returning an error stops the supervisor.
type Handler func(ctx context.Context, msg Message) error

// Supervisor keeps an engine running. After a retryable fault it reconnects with
// exponential backoff and resumes after the latest block in the ledger.
type Supervisor struct {
	cfg         Config
	retry       config.RetryConfig
	db          *sql.DB
	reader      *ledger.Reader
	dial        ClientFactory
	handler     Handler
	maintenance db.Maintenance
	log         *logger.Logger
	engineLog   *logger.Logger
}

// NewSupervisor creates a supervisor and the ledger schema if it is missing,
// so the resume lookup works on a fresh store. A nil retry config disables restarts.
func NewSupervisor(
	cfg Config,
	retry *config.RetryConfig,
	database *sql.DB,
	dial ClientFactory,
	handler Handler,
	maintenance db.Maintenance,
	log *logger.Logger,
) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if dial == nil || handler == nil {
		return nil, errors.New("client factory and handler are required")
	}
	if _, err := ledger.NewStore(database, log); err != nil {
		return nil, fmt.Errorf("failed to prepare ledger: %w", err)
	}

	r := config.RetryConfig{MaxAttempts: 1}
	if retry != nil {
		r = *retry
	}
	r.ApplyDefaults()

	return &Supervisor{
		cfg:         cfg,
		retry:       r,
		db:          database,
		reader:      ledger.NewReader(database),
		dial:        dial,
		handler:     handler,
		maintenance: maintenance,
		log:         log.WithComponent(common.ComponentSupervisor),
		engineLog:   log,
	}, nil
}

// Run blocks until ctx is cancelled, the provider ends the stream, the handler
// fails or a non-retryable fault occurs. Cancellation and end of stream return nil.
func (s *Supervisor) Run(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.retry.InitialBackoff.Duration
	exp.MaxInterval = s.retry.MaxBackoff.Duration
	exp.Multiplier = s.retry.BackoffMultiplier
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	if s.retry.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(s.retry.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		progressed, err := s.runOnce(ctx)
		if progressed {
			b.Reset()
		}
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		RestartInc()
		metrics.ErrorsInc(common.ComponentSupervisor, metrics.SeverityRetryable)
		s.log.Warnw("engine faulted, restarting",
			"attempt", attempt,
			"backoff", next,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, b, notify)
	if ctx.Err() != nil {
		return nil
	}

	return err
}

// runOnce runs one engine until it stops. progressed reports whether any message
// reached the handler.
func (s *Supervisor) runOnce(ctx context.Context) (progressed bool, err error) {
	cfg := s.cfg

	latest, err := s.reader.LatestBlock(ctx)
	switch {
	case err == nil:
		cfg.StartingCursor = &provider.Cursor{OrderKey: latest.BlockNumber, UniqueKey: latest.BlockHash}
		s.log.Infow("resuming from ledger", "block", latest.BlockNumber)
	case errors.Is(err, ledger.ErrNotFound):
	default:
		return false, &FaultError{Kind: ErrStore, State: StateConnecting, Err: err}
	}

	client, err := s.dial(ctx)
	if err != nil {
		return false, &FaultError{Kind: ErrConnection, State: StateConnecting, Err: err}
	}

	eng, err := New(cfg, s.db, client, s.engineLog, s.maintenance)
	if err != nil {
		client.Close()
		return false, err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			s.log.Debugw("failed to close stream", "error", cerr)
		}
	}()

	for {
		msg, err := eng.Next(ctx)
		if errors.Is(err, io.EOF) {
			return progressed, nil
		}
		if err != nil {
			return progressed, err
		}

		if err := s.handler(ctx, msg); err != nil {
			return progressed, fmt.Errorf("handler failed on %s message: %w", msg.Kind, err)
		}
		progressed = true
	}
}
