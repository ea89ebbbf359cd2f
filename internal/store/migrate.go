package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// MigrateUp applies all pending migrations from fsys. An up-to-date schema
// is not an error.
func (s *Store) MigrateUp(fsys fs.FS) error {
	m, err := s.newMigrate(fsys)
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migration up failed: %w", err)
	}

	return nil
}

// MigrateVersion returns the applied schema version. A fresh database
// reports 0.
func (s *Store) MigrateVersion(fsys fs.FS) (version uint, dirty bool, err error) {
	m, err := s.newMigrate(fsys)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}

func (s *Store) newMigrate(fsys fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{s.log.Sugar()}

	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	log *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debugf("migrate: "+format, v...)
}

func (l migrateLogger) Verbose() bool { return false }
