package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/matsync/internal/client/storage"
)

var (
	// bucketMeta хранит служебные данные (версию схемы)
	bucketMeta       = []byte("meta")
	keySchemaVersion = []byte("schema_version")
)

// Storage represents BoltDB implementation of storage.Store.
// Each namespace is a bucket; each declared index is a separate bucket
// whose keys are "<json value>\x00<record key>".
type Storage struct {
	db     *bbolt.DB
	ready  atomic.Bool
	closed atomic.Bool
}

var _ storage.Store = (*Storage)(nil)

// Open opens the database file without running schema setup.
// Every operation returns storage.ErrUninitialized until Init succeeds.
func Open(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	return &Storage{db: db}, nil
}

// New opens the database file and initializes the schema.
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

// Init creates every namespace and index bucket. It is safe to call more than once.
func (s *Storage) Init(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	if err := s.initBuckets(); err != nil {
		return fmt.Errorf("failed to initialize buckets: %w", err)
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

// SchemaVersion returns the schema version written by Init.
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}
		raw := meta.Get(keySchemaVersion)
		if len(raw) != 8 {
			return fmt.Errorf("schema version is missing")
		}
		version = int(binary.BigEndian.Uint64(raw))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, nil
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}

		for _, schema := range storage.Schemas {
			if _, err := tx.CreateBucketIfNotExists(namespaceBucket(schema.Namespace)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", schema.Namespace, err)
			}
			for _, idx := range schema.Indexes {
				if _, err := tx.CreateBucketIfNotExists(indexBucket(schema.Namespace, idx)); err != nil {
					return fmt.Errorf("failed to create %s.%s index bucket: %w", schema.Namespace, idx, err)
				}
			}
		}

		// Версия схемы как uint64 big endian
		version := make([]byte, 8)
		binary.BigEndian.PutUint64(version, uint64(storage.SchemaVersion))
		return meta.Put(keySchemaVersion, version)
	})
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

func namespaceBucket(ns storage.Namespace) []byte {
	return []byte(ns)
}

func indexBucket(ns storage.Namespace, index string) []byte {
	return []byte("idx:" + string(ns) + ":" + index)
}
