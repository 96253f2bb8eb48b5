package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
)

// Maintenance serializes periodic database upkeep against ingestion.
type Maintenance interface {
	// Start begins background maintenance if enabled.
	Start(ctx context.Context) error
	// Stop stops background maintenance and waits for completion.
	Stop() error
	// AcquireOperationLock acquires a shared lock for one unit of database work.
	// The returned function releases it.
	AcquireOperationLock() func()
	// Stats returns a snapshot of maintenance activity.
	Stats() MaintenanceStats
	// RunMaintenance performs database maintenance immediately.
	RunMaintenance(ctx context.Context) error
}

// MaintenanceStats provides visibility into maintenance operations.
type MaintenanceStats struct {
	LastRun   time.Time
	Runs      uint64
	LastError error
}

// NoOpMaintenance is used when maintenance is not configured.
type NoOpMaintenance struct{}

func (*NoOpMaintenance) Start(context.Context) error          { return nil }
func (*NoOpMaintenance) Stop() error                          { return nil }
func (*NoOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (*NoOpMaintenance) AcquireOperationLock() func()         { return func() {} }
func (*NoOpMaintenance) Stats() MaintenanceStats              { return MaintenanceStats{} }

// MaintenanceCoordinator runs WAL checkpoints and VACUUM on the ledger database.
// Ingestion holds the read side of opLock for each provider message; maintenance
// takes the write side, so it only ever runs between two committed messages.
type MaintenanceCoordinator struct {
	db     *sql.DB
	dbPath string
	config config.MaintenanceConfig
	log    *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsLock sync.Mutex
	stats     MaintenanceStats
}

// NewMaintenanceCoordinator returns a coordinator for cfg, or a no-op when cfg is nil.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil {
		return &NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		dbPath: dbPath,
		config: cfg,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start begins background maintenance if enabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.log.Info("background maintenance is disabled")
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)

	if m.config.VacuumOnStartup {
		m.log.Info("running startup maintenance")
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnf("startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go m.worker(ctx, m.config.CheckInterval.Duration)

	m.log.Infof("background maintenance started, interval: %v, checkpoint mode: %s",
		m.config.CheckInterval.Duration, m.config.WALCheckpointMode)

	return nil
}

// Stop stops background maintenance and waits for the worker to exit.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) worker(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil {
				m.log.Warnf("periodic maintenance failed: %v", err)
			}
		}
	}
}

// RunMaintenance checkpoints the WAL and vacuums the database while holding
// the exclusive side of the operation lock.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	MaintenanceRunsInc()
	start := time.Now()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	sizeBefore, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to get DB size: %v", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"wal checkpoint", m.walCheckpoint},
		{"vacuum", m.vacuum},
	}

	var errs []error
	for _, step := range steps {
		if err := step.run(); err != nil {
			m.log.Warnf("%s failed: %v", step.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	runErr := errors.Join(errs...)

	sizeAfter, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to get DB size: %v", err)
	}

	elapsed := time.Since(start)

	m.statsLock.Lock()
	m.stats.LastRun = time.Now().UTC()
	m.stats.Runs++
	m.stats.LastError = runErr
	m.statsLock.Unlock()

	MaintenanceDurationLog(elapsed)
	MaintenanceLastRunLog()
	DBSizeLog(sizeAfter)

	if runErr != nil {
		MaintenanceErrorInc()
		return runErr
	}

	MaintenanceSuccessInc()
	if sizeBefore > sizeAfter {
		reclaimed := uint64(sizeBefore - sizeAfter)
		MaintenanceSpaceReclaimedLog(reclaimed)
		m.log.Infof("maintenance done in %v, reclaimed %d MB", elapsed, common.BytesToMB(reclaimed))
	} else {
		m.log.Infof("maintenance done in %v", elapsed)
	}

	return nil
}

func (m *MaintenanceCoordinator) walCheckpoint() error {
	var mode string
	if err := m.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		m.log.Debugf("journal mode is %s, skipping WAL checkpoint", mode)
		return nil
	}

	checkpointMode := m.config.WALCheckpointMode
	if checkpointMode == "" {
		checkpointMode = "PASSIVE"
	}

	var busy, logFrames, checkpointed int
	err := m.db.QueryRow(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", checkpointMode)).
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return err
	}

	WALCheckpointInc(strings.ToLower(checkpointMode))
	m.log.Debugf("WAL checkpoint %s: busy=%d log=%d checkpointed=%d",
		checkpointMode, busy, logFrames, checkpointed)

	if busy > 0 {
		m.log.Warnf("WAL checkpoint left %d busy pages", busy)
	}

	return nil
}

func (m *MaintenanceCoordinator) vacuum() error {
	if err := Vacuum(m.db); err != nil {
		return err
	}
	VacuumRunsInc()
	return nil
}

// AcquireOperationLock acquires the shared side of the operation lock.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// Stats returns a snapshot of maintenance activity.
func (m *MaintenanceCoordinator) Stats() MaintenanceStats {
	m.statsLock.Lock()
	defer m.statsLock.Unlock()

	return m.stats
}
