package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync/atomic"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/iudanet/matsync/internal/client/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage represents SQLite implementation of storage.Store.
// Every namespace is a table of (key, JSON value); indexes are json_extract expression indexes.
type Storage struct {
	db     *sql.DB
	ready  atomic.Bool
	closed atomic.Bool
}

var _ storage.Store = (*Storage)(nil)

// Open opens the database without running migrations.
// Use ":memory:" for in-memory database (useful for testing)
func Open(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем соединение с БД
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite поддерживает только одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return &Storage{db: db}, nil
}

// New opens the database and applies migrations.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	s, err := Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := s.Init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Init applies pending migrations. It is safe to call more than once.
func (s *Storage) Init(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.ready.Store(true)
	return nil
}

// Close closes the database connection. Subsequent calls are no-ops.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion returns the latest applied migration version.
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	return int(version), nil
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations(ctx context.Context) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// check возвращает ошибку, если хранилище закрыто или еще не инициализировано
func (s *Storage) check() error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if !s.ready.Load() {
		return storage.ErrUninitialized
	}
	return nil
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}
