package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gradreg/pkg/timeutils"
)

type Config struct {
	ConnectionString   string
	RetryAttemptDelays []time.Duration
}

type PgxDatabaseFactory struct {
	cfg Config
}

func NewPgxDatabaseFactory(cfg Config) *PgxDatabaseFactory {
	return &PgxDatabaseFactory{
		cfg: cfg,
	}
}

func (f *PgxDatabaseFactory) Create() (*pgxpool.Pool, error) {
	if err := runMigrations(f.cfg.ConnectionString); err != nil {
		return nil, fmt.Errorf("failed to run DB migrations: %w", err)
	}
	pool, err := pgxpool.New(context.Background(), f.cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create a connection pool: %w", err)
	}
	if len(f.cfg.RetryAttemptDelays) > 0 {
		_, err = timeutils.Retry(
			context.Background(),
			f.cfg.RetryAttemptDelays,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, pool.Ping(ctx)
			},
			func(_ struct{}, err error) bool {
				return err != nil
			},
		)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping the database: %w", err)
		}
	}
	return pool, nil
}

//go:embed migrations/*.sql
var migrationsDir embed.FS

func runMigrations(dsn string) error {
	d, err := iofs.New(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to return an iofs driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dsn)
	if err != nil {
		return fmt.Errorf("failed to get a new migrate instance: %w", err)
	}
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations to the DB: %w", err)
		}
	}
	return nil
}
