package boltdb

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/matsync/internal/client/storage"
)

// Save stores or replaces a record in BoltDB
func (s *Storage) Save(ctx context.Context, ns storage.Namespace, record any) error {
	if err := s.check(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return (&boltTx{tx: tx}).Save(ns, record)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", ns, err)
	}

	return nil
}

// Get retrieves a record by key
func (s *Storage) Get(ctx context.Context, ns storage.Namespace, key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = (&boltTx{tx: tx}).Get(ns, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}

	return out, nil
}

// GetAll returns all records of a namespace ordered by key
func (s *Storage) GetAll(ctx context.Context, ns storage.Namespace) ([][]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var out [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = (&boltTx{tx: tx}).GetAll(ns)
		return err
	})
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

	var out [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = (&boltTx{tx: tx}).GetAllByIndex(ns, index, value)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", ns, index, err)
	}

	return out, nil
}

// Delete removes a record together with its index entries
func (s *Storage) Delete(ctx context.Context, ns storage.Namespace, key string) error {
	if err := s.check(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return (&boltTx{tx: tx}).Delete(ns, key)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", ns, key, err)
	}

	return nil
}

// Clear removes all records of a namespace
func (s *Storage) Clear(ctx context.Context, ns storage.Namespace) error {
	if err := s.check(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return (&boltTx{tx: tx}).Clear(ns)
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", ns, err)
	}

	return nil
}

// Count returns the number of records in a namespace
func (s *Storage) Count(ctx context.Context, ns storage.Namespace) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, ns)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", ns, err)
	}

	return n, nil
}

// Update runs fn in a single BoltDB write transaction.
// fn must not call methods of s itself: BoltDB allows one writer at a time.
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := s.check(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// boltTx implements storage.Tx on top of a bbolt transaction
type boltTx struct {
	tx *bbolt.Tx
}

func (t *boltTx) Save(ns storage.Namespace, record any) error {
	schema, err := storage.Lookup(ns)
	if err != nil {
		return err
	}

	rec, err := schema.Encode(record)
	if err != nil {
		return err
	}

	b, err := bucket(t.tx, ns)
	if err != nil {
		return err
	}

	// Удаляем старые индексные записи до перезаписи значения
	if old := b.Get([]byte(rec.Key)); old != nil {
		if err := t.unindex(schema, rec.Key, old); err != nil {
			return err
		}
	}

	if err := b.Put([]byte(rec.Key), rec.Value); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	for idx, value := range rec.IndexValues {
		ib, err := indexOf(t.tx, ns, idx)
		if err != nil {
			return err
		}
		if err := ib.Put(indexEntry(value, rec.Key), []byte{}); err != nil {
			return fmt.Errorf("failed to save index %s: %w", idx, err)
		}
	}

	return nil
}

func (t *boltTx) Get(ns storage.Namespace, key string) ([]byte, error) {
	b, err := bucket(t.tx, ns)
	if err != nil {
		return nil, err
	}

	data := b.Get([]byte(key))
	if data == nil {
		return nil, storage.ErrNotFound
	}

	// Значения BoltDB валидны только внутри транзакции
	return bytes.Clone(data), nil
}

func (t *boltTx) GetAll(ns storage.Namespace) ([][]byte, error) {
	b, err := bucket(t.tx, ns)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	err = b.ForEach(func(k, v []byte) error {
		out = append(out, bytes.Clone(v))
		return nil
	})
	return out, err
}

func (t *boltTx) GetAllByIndex(ns storage.Namespace, index string, value any) ([][]byte, error) {
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

	b, err := bucket(t.tx, ns)
	if err != nil {
		return nil, err
	}
	ib, err := indexOf(t.tx, ns, index)
	if err != nil {
		return nil, err
	}

	prefix := append(want, 0)
	var out [][]byte
	c := ib.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if data := b.Get(k[len(prefix):]); data != nil {
			out = append(out, bytes.Clone(data))
		}
	}

	return out, nil
}

func (t *boltTx) Delete(ns storage.Namespace, key string) error {
	schema, err := storage.Lookup(ns)
	if err != nil {
		return err
	}

	b, err := bucket(t.tx, ns)
	if err != nil {
		return err
	}

	old := b.Get([]byte(key))
	if old == nil {
		return nil
	}

	if err := t.unindex(schema, key, old); err != nil {
		return err
	}

	return b.Delete([]byte(key))
}

func (t *boltTx) Clear(ns storage.Namespace) error {
	schema, err := storage.Lookup(ns)
	if err != nil {
		return err
	}

	names := [][]byte{namespaceBucket(ns)}
	for _, idx := range schema.Indexes {
		names = append(names, indexBucket(ns, idx))
	}

	// Удаляем bucket полностью и создаем заново пустой
	for _, name := range names {
		if err := t.tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to delete bucket %s: %w", name, err)
		}
		if _, err := t.tx.CreateBucket(name); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}

	return nil
}

func (t *boltTx) unindex(schema storage.Schema, key string, old []byte) error {
	values, err := schema.IndexValues(old)
	if err != nil {
		return fmt.Errorf("failed to read stored record %q: %w", key, err)
	}

	for idx, value := range values {
		ib, err := indexOf(t.tx, schema.Namespace, idx)
		if err != nil {
			return err
		}
		if err := ib.Delete(indexEntry(value, key)); err != nil {
			return fmt.Errorf("failed to delete index %s: %w", idx, err)
		}
	}

	return nil
}

func bucket(tx *bbolt.Tx, ns storage.Namespace) (*bbolt.Bucket, error) {
	if _, err := storage.Lookup(ns); err != nil {
		return nil, err
	}
	b := tx.Bucket(namespaceBucket(ns))
	if b == nil {
		return nil, fmt.Errorf("bucket %s not found", ns)
	}
	return b, nil
}

func indexOf(tx *bbolt.Tx, ns storage.Namespace, index string) (*bbolt.Bucket, error) {
	ib := tx.Bucket(indexBucket(ns, index))
	if ib == nil {
		return nil, fmt.Errorf("index bucket %s.%s not found", ns, index)
	}
	return ib, nil
}

func indexEntry(value []byte, key string) []byte {
	entry := make([]byte, 0, len(value)+1+len(key))
	entry = append(entry, value...)
	entry = append(entry, 0)
	entry = append(entry, key...)
	return entry
}
