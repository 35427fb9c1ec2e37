package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/matsync/internal/client/storage"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Save inserts or replaces a record
func (s *Storage) Save(ctx context.Context, ns storage.Namespace, record any) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := save(ctx, s.db, ns, record); err != nil {
		return fmt.Errorf("save %s: %w", ns, err)
	}
	return nil
}

// Get retrieves a record by key
func (s *Storage) Get(ctx context.Context, ns storage.Namespace, key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	data, err := get(ctx, s.db, ns, key)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	return data, nil
}

// GetAll returns all records of a namespace ordered by key
func (s *Storage) GetAll(ctx context.Context, ns storage.Namespace) ([][]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out, err := getAll(ctx, s.db, ns)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", ns, err)
	}
	return out, nil
}

// GetAllByIndex returns records whose indexed field equals value
func (s *Storage) GetAllByIndex(ctx context.Context, ns storage.Namespace, index string, value any) ([][]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out, err := getAllByIndex(ctx, s.db, ns, index, value)
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", ns, index, err)
	}
	return out, nil
}

// Delete removes a record
func (s *Storage) Delete(ctx context.Context, ns storage.Namespace, key string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := del(ctx, s.db, ns, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", ns, key, err)
	}
	return nil
}

// Clear removes all records of a namespace
func (s *Storage) Clear(ctx context.Context, ns storage.Namespace) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := clearTable(ctx, s.db, ns); err != nil {
		return fmt.Errorf("clear %s: %w", ns, err)
	}
	return nil
}

// Count returns the number of records in a namespace
func (s *Storage) Count(ctx context.Context, ns storage.Namespace) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if _, err := storage.Lookup(ns); err != nil {
		return 0, err
	}

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ns)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", ns, err)
	}
	return n, nil
}

// Update runs fn inside one SQL transaction.
// The pool holds a single connection, so fn must use only tx.
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) (err error) {
	if err := s.check(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(&sqlTx{ctx: ctx, tx: tx})
}

// sqlTx implements storage.Tx on top of *sql.Tx
type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTx) Save(ns storage.Namespace, record any) error {
	return save(t.ctx, t.tx, ns, record)
}

func (t *sqlTx) Get(ns storage.Namespace, key string) ([]byte, error) {
	return get(t.ctx, t.tx, ns, key)
}

func (t *sqlTx) GetAll(ns storage.Namespace) ([][]byte, error) {
	return getAll(t.ctx, t.tx, ns)
}

func (t *sqlTx) GetAllByIndex(ns storage.Namespace, index string, value any) ([][]byte, error) {
	return getAllByIndex(t.ctx, t.tx, ns, index, value)
}

func (t *sqlTx) Delete(ns storage.Namespace, key string) error {
	return del(t.ctx, t.tx, ns, key)
}

func (t *sqlTx) Clear(ns storage.Namespace) error {
	return clearTable(t.ctx, t.tx, ns)
}

// Имена таблиц берутся только из storage.Schemas, поэтому подстановка в запрос безопасна

func save(ctx context.Context, q querier, ns storage.Namespace, record any) error {
	schema, err := storage.Lookup(ns)
	if err != nil {
		return err
	}

	rec, err := schema.Encode(record)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, ns)

	if _, err := q.ExecContext(ctx, query, rec.Key, string(rec.Value)); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func get(ctx context.Context, q querier, ns storage.Namespace, key string) ([]byte, error) {
	if _, err := storage.Lookup(ns); err != nil {
		return nil, err
	}

	var value string
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, ns)
	err := q.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return []byte(value), nil
}

func getAll(ctx context.Context, q querier, ns storage.Namespace) ([][]byte, error) {
	if _, err := storage.Lookup(ns); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT value FROM %s ORDER BY key`, ns)
	return queryValues(ctx, q, query)
}

func getAllByIndex(ctx context.Context, q querier, ns storage.Namespace, index string, value any) ([][]byte, error) {
	schema, err := storage.Lookup(ns)
	if err != nil {
		return nil, err
	}
	if !schema.HasIndex(index) {
		return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownIndex, ns, index)
	}

	want, err := storage.IndexKey(value)
	if err != nil {
		return nil, err
	}

	// Сравниваем значения в SQL-представлении: true -> 1, "x" -> 'x'
	query := fmt.Sprintf(`
		SELECT value FROM %s
		WHERE json_extract(value, '$.%s') = json_extract(?, '$')
		ORDER BY key
	`, ns, index)

	return queryValues(ctx, q, query, string(want))
}

func del(ctx context.Context, q querier, ns storage.Namespace, key string) error {
	if _, err := storage.Lookup(ns); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, ns)
	if _, err := q.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func clearTable(ctx context.Context, q querier, ns storage.Namespace) error {
	if _, err := storage.Lookup(ns); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s`, ns)
	if _, err := q.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}
	return nil
}

func queryValues(ctx context.Context, q querier, query string, args ...any) ([][]byte, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, []byte(value))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}
