// Package cache implements a TTL cache on top of the local store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/models"
)

// ErrEmptyKey is returned when a cache key is empty
var ErrEmptyKey = errors.New("cache key is empty")

// Manager stores opaque values with a time-to-live.
// Expired entries are removed lazily on Get or explicitly by SweepExpired;
// the manager never schedules work itself.
type Manager struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a cache manager. A nil now uses time.Now.
func NewManager(store storage.Store, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, now: now, logger: logger}
}

// Set stores data under key for ttl.
// data may be any JSON-serializable value or an already encoded json.RawMessage.
func (m *Manager) Set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	raw, err := encode(data)
	if err != nil {
		return err
	}

	entry := models.CacheEntry{
		Key:       key,
		Data:      raw,
		Timestamp: m.now().UnixMilli(),
		TTL:       ttl.Milliseconds(),
	}

	if err := m.store.Save(ctx, storage.NamespaceCache, entry); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// Get returns the cached data and true while the entry is within its TTL.
// An expired entry is deleted and reported as absent.
func (m *Manager) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	entry, err := storage.GetAs[models.CacheEntry](ctx, m.store, storage.NamespaceCache, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if entry.Expired(m.now()) {
		if err := m.store.Delete(ctx, storage.NamespaceCache, key); err != nil {
			return nil, false, fmt.Errorf("failed to delete expired cache entry: %w", err)
		}
		m.logger.Debug("Cache entry expired", "key", key)
		return nil, false, nil
	}

	return entry.Data, true, nil
}

// GetInto decodes a live cache entry into dst. Returns false if the entry is absent or expired.
func (m *Manager) GetInto(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}
	return true, nil
}

// Delete removes an entry regardless of its TTL
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.store.Delete(ctx, storage.NamespaceCache, key)
}

// SweepExpired deletes every expired entry and returns how many were removed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	entries, err := storage.GetAllAs[models.CacheEntry](ctx, m.store, storage.NamespaceCache)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}

	now := m.now()
	removed := 0
	for _, entry := range entries {
		if !entry.Expired(now) {
			continue
		}
		if err := m.store.Delete(ctx, storage.NamespaceCache, entry.Key); err != nil {
			return removed, fmt.Errorf("failed to delete cache entry %q: %w", entry.Key, err)
		}
		removed++
	}

	if removed > 0 {
		m.logger.Debug("Swept expired cache entries", "count", removed)
	}

	return removed, nil
}

// Size returns the number of stored entries, expired ones included
func (m *Manager) Size(ctx context.Context) (int, error) {
	return m.store.Count(ctx, storage.NamespaceCache)
}

func encode(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("cache data is not valid JSON")
		}
		return v, nil
	case nil:
		return json.RawMessage("null"), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal cache data: %w", err)
		}
		return raw, nil
	}
}
