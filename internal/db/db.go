package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
	_ "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver registered by go-sqlite3.
const driverName = "sqlite3"

// sidecarSuffixes are the files SQLite keeps next to the main database file in WAL mode.
var sidecarSuffixes = []string{"-wal", "-shm"}

// NewSQLiteDB creates a new SQLite DB with foreign keys enforced and WAL journaling.
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	return sql.Open(driverName, fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=30000",
		dbPath,
	))
}

// NewSQLiteDBFromConfig creates a new read-write SQLite DB with the given configuration.
// Foreign keys are always on; the ledger relies on them for cascading block deletes.
func NewSQLiteDBFromConfig(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=on&_journal_mode=%s&_busy_timeout=%d",
		cfg.Path,
		cfg.JournalMode,
		cfg.BusyTimeout,
	)

	return open(connStr, cfg)
}

// NewReadOnlySQLiteDB opens a query-only connection pool to an existing database.
// Downstream readers use it so they never contend with the engine for the write lock.
func NewReadOnlySQLiteDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"file:%s?_query_only=true&_foreign_keys=on&_busy_timeout=%d",
		cfg.Path,
		cfg.BusyTimeout,
	)

	return open(connStr, cfg)
}

func open(connStr string, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	pragmas := []string{
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous),
		fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSize),
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return db, nil
}

// Vacuum rebuilds the database file, reclaiming pages freed by invalidations.
func Vacuum(db *sql.DB) error {
	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	return nil
}

// DBTotalSize returns the combined size in bytes of the database file and its WAL sidecars.
// Missing files count as zero.
func DBTotalSize(dbPath string) (int64, error) {
	var total int64

	for _, path := range append([]string{dbPath}, sidecarPaths(dbPath)...) {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		total += info.Size()
	}

	return total, nil
}

func sidecarPaths(dbPath string) []string {
	paths := make([]string, 0, len(sidecarSuffixes))
	for _, suffix := range sidecarSuffixes {
		paths = append(paths, dbPath+suffix)
	}
	return paths
}
