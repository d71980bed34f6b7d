package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "github.com/vytor/chessmetrics/internal/errors"
	"github.com/vytor/chessmetrics/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store owns the SQLite connection and hands out repositories bound to it.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "store").Logger()

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info().Str("path", path).Msg("opening database")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	db.SetMaxOpenConns(1) // SQLite best practice for single writer

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s := &Store{db: db}
	if err := s.applyMigrations(ctx, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	log.Info().Msg("database ready")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Batches() repository.BatchWriter {
	return &batchRepository{db: s.db}
}

func (s *Store) Players() repository.PlayerRepository {
	return &playerRepository{db: s.db}
}

func (s *Store) RatingHistory() repository.RatingHistoryRepository {
	return &ratingHistoryRepository{db: s.db}
}

func (s *Store) Stats() repository.StatsRepository {
	return &statsRepository{db: s.db}
}

func (s *Store) Runs() repository.RunRepository {
	return &runRepository{db: s.db}
}

func (s *Store) applyMigrations(ctx context.Context, log zerolog.Logger) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		version := entry.Name()
		applied, err := s.isMigrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			log.Debug().Str("version", version).Msg("migration already applied, skipping")
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + version)
		if err != nil {
			return err
		}
		log.Info().Str("version", version).Msg("applying migration")
		if _, err := s.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations WHERE version = ?`, version).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// classify maps low-level store errors onto the error taxonomy so callers
// can tell connectivity loss apart from a bad batch.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return apperrors.NewStoreUnavailable(err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return apperrors.NewStoreUnavailable(err)
	}
	return err
}
