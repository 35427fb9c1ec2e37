package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store defines the local persistence layer: keyed JSON records grouped into namespaces.
// This is the lowest storage layer - it has no business logic.
// Every call is atomic. Calls made before schema setup completed return ErrUninitialized.
type Store interface {
	// Save inserts or replaces a record. The key is read from the namespace key path.
	Save(ctx context.Context, ns Namespace, record any) error

	// Get returns the raw record stored under key.
	// Returns ErrNotFound if the record doesn't exist
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)

	// GetAll returns every record of the namespace ordered by key
	GetAll(ctx context.Context, ns Namespace) ([][]byte, error)

	// GetAllByIndex returns records whose indexed field equals value
	GetAllByIndex(ctx context.Context, ns Namespace, index string, value any) ([][]byte, error)

	// Delete removes a record. Deleting a missing key is not an error
	Delete(ctx context.Context, ns Namespace, key string) error

	// Clear removes every record of the namespace
	Clear(ctx context.Context, ns Namespace) error

	// Count returns the current number of records in the namespace
	Count(ctx context.Context, ns Namespace) (int, error)

	// Update runs fn inside one write transaction.
	// If fn returns an error nothing written through tx is committed.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying database
	Close() error
}

// Tx is the write side of a transaction opened by Store.Update.
type Tx interface {
	Save(ns Namespace, record any) error
	Get(ns Namespace, key string) ([]byte, error)
	GetAll(ns Namespace) ([][]byte, error)
	GetAllByIndex(ns Namespace, index string, value any) ([][]byte, error)
	Delete(ns Namespace, key string) error
	Clear(ns Namespace) error
}

// GetAs loads a record and decodes it into T.
func GetAs[T any](ctx context.Context, s Store, ns Namespace, key string) (*T, error) {
	raw, err := s.Get(ctx, ns, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s record %q: %w", ns, key, err)
	}
	return &v, nil
}

// GetAllAs loads every record of ns and decodes them into T.
func GetAllAs[T any](ctx context.Context, s Store, ns Namespace) ([]T, error) {
	raws, err := s.GetAll(ctx, ns)
	if err != nil {
		return nil, err
	}
	return Decode[T](raws)
}

// GetAllByIndexAs loads records matching an index value and decodes them into T.
func GetAllByIndexAs[T any](ctx context.Context, s Store, ns Namespace, index string, value any) ([]T, error) {
	raws, err := s.GetAllByIndex(ctx, ns, index, value)
	if err != nil {
		return nil, err
	}
	return Decode[T](raws)
}

// TxGetAs is GetAs for use inside Store.Update.
func TxGetAs[T any](tx Tx, ns Namespace, key string) (*T, error) {
	raw, err := tx.Get(ns, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s record %q: %w", ns, key, err)
	}
	return &v, nil
}

// Decode unmarshals raw records into T.
func Decode[T any](raws [][]byte) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
