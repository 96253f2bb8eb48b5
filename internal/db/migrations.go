package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	UpDownSeparator   = "-- +migrate Up"
	downMarker        = "-- +migrate Down"
	NoLimitMigrations = 0 // indicate that there is no limit on the number of migrations to run
	migrationSections = 2
)

// Migration is a single embedded SQL migration holding both directions,
// Down first, separated by "-- +migrate Up".
type Migration struct {
	ID  string
	SQL string
}

// RunMigrationsDB applies every pending migration in the Up direction.
// Already-applied migrations are skipped, so calling it on an initialized database is a no-op.
func RunMigrationsDB(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsDBExtended(log, db, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsDBExtended runs migrations in the given direction.
// dir: can be migrate.Up or migrate.Down
// maxMigrations: apply at most this many migrations, NoLimitMigrations for all
func RunMigrationsDBExtended(
	log *logger.Logger,
	db *sql.DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	source, err := memorySource(migrations)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(source.Migrations))
	for _, m := range source.Migrations {
		ids = append(ids, m.Id)
	}
	listMigrations := strings.Join(ids, ", ")

	log.Debugf("running migrations (max %d/%d): %s", maxMigrations, len(ids), listMigrations)

	applied, err := migrate.ExecMax(db, driverName, source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migrations (max %d/%d) %s: %w",
			maxMigrations, len(ids), listMigrations, err)
	}

	log.Infof("applied %d migrations from: %s", applied, listMigrations)
	return nil
}

// memorySource splits each migration into its Down and Up sections.
func memorySource(migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		sections := strings.Split(m.SQL, UpDownSeparator)
		if len(sections) != migrationSections {
			return nil, fmt.Errorf("migration %s must contain exactly one '%s' separator", m.ID, UpDownSeparator)
		}

		down := sections[0]
		if idx := strings.Index(down, downMarker); idx != -1 {
			down = down[idx+len(downMarker):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(sections[1])},
			Down: []string{strings.TrimSpace(down)},
		})
	}

	return source, nil
}
