package records

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/vancomm/minesweeper/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrator is not closed by its callers: closing it closes the shared *sql.DB.
func (s *Store) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("unable to create migrations iofs: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case config.DriverSQLite:
		driver, err = sqlite3.WithInstance(s.db, &sqlite3.Config{})
	case config.DriverPostgres:
		driver, err = migratepgx.WithInstance(s.db, &migratepgx.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", s.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, s.driver, driver)
	if err != nil {
		return nil, fmt.Errorf("unable to create migrator: %w", err)
	}
	return migrator, nil
}

func (s *Store) Migrate() error {
	migrator, err := s.migrator()
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Version reports the schema version the store is at.
func (s *Store) Version() (version uint, dirty bool, err error) {
	migrator, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	return migrator.Version()
}
