package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
)

//go:embed 001_ledger.sql
var mig001 string

// Migrations returns the ledger schema migrations in order.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			ID:  "ledger_001",
			SQL: mig001,
		},
	}
}

// RunMigrations creates or upgrades the ledger schema. Safe to call on an initialized store.
func RunMigrations(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, Migrations())
}
