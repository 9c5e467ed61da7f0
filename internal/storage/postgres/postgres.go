// Package postgres implements the storage.Storage interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Storage implements storage.Storage backed by a PostgreSQL database.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements storage.Storage.
var _ storage.Storage = (*Storage)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*Storage, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Storage{db: db}, nil
}

// NewWithDB wraps an already-migrated database handle (for testing)
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveGameRecord(ctx context.Context, record *model.GameRecord) error {
	return querySaveGameRecord(ctx, s.db, record)
}

func (s *Storage) GetGameRecord(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	return queryGetGameRecord(ctx, s.db, id)
}

func (s *Storage) ListGameRecordsByPlayer(ctx context.Context, player model.PlayerID, limit int) ([]*model.GameRecord, error) {
	return queryListGameRecordsByPlayer(ctx, s.db, player, storage.NormalizeLimit(limit))
}

func (s *Storage) SavePlayerStats(ctx context.Context, stats *model.PlayerStats) error {
	return querySavePlayerStats(ctx, s.db, stats)
}

func (s *Storage) GetPlayerStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	return queryGetPlayerStats(ctx, s.db, player)
}
