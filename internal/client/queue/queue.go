// Package queue persists mutations that still have to be replayed against the backend.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/clock"
	"github.com/iudanet/matsync/internal/models"
)

var (
	ErrInvalidTable    = errors.New("invalid mutation table")
	ErrInvalidAction   = errors.New("invalid mutation action")
	ErrMissingID       = errors.New("mutation data has no id")
	ErrMissingSnapshot = errors.New("mutation data has no entity snapshot")
)

// Queue is the ordered list of pending remote operations.
type Queue struct {
	store    storage.Store
	clock    *clock.LamportClock
	now      func() time.Time
	logger   *slog.Logger
	mu       sync.Mutex
	restored bool
}

// New creates a queue over store. A nil now uses time.Now.
func New(store storage.Store, now func() time.Time, logger *slog.Logger) *Queue {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		clock:  clock.NewLamportClock(),
		now:    now,
		logger: logger,
	}
}

// Enqueue appends a mutation in its own transaction.
func (q *Queue) Enqueue(ctx context.Context, table models.Table, action models.Action, data any) (*models.MutationItem, error) {
	var item *models.MutationItem
	err := q.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		item, err = q.EnqueueTx(ctx, tx, table, action, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// EnqueueTx appends a mutation inside an open transaction, so the entity write
// and its queue item commit together.
// data must be the full entity snapshot for create/update and at least {"id": ...} for delete.
func (q *Queue) EnqueueTx(ctx context.Context, tx storage.Tx, table models.Table, action models.Action, data any) (*models.MutationItem, error) {
	if !table.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	raw, entityID, err := snapshot(action, data)
	if err != nil {
		return nil, err
	}

	if err := q.restore(tx); err != nil {
		return nil, err
	}

	item := &models.MutationItem{
		ID:        fmt.Sprintf("%s:%s:%s:%s", table, action, entityID, uuid.NewString()),
		Action:    action,
		Table:     table,
		Data:      raw,
		Timestamp: q.now().UnixMilli(),
		Seq:       q.clock.Tick(),
		Retries:   0,
	}

	if err := tx.Save(storage.NamespaceQueue, item); err != nil {
		return nil, fmt.Errorf("failed to save queue item: %w", err)
	}

	q.logger.Debug("Mutation queued",
		"item_id", item.ID,
		"table", string(table),
		"action", string(action),
	)

	return item, nil
}

// List returns every pending item, oldest first.
func (q *Queue) List(ctx context.Context) ([]models.MutationItem, error) {
	items, err := storage.GetAllAs[models.MutationItem](ctx, q.store, storage.NamespaceQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	sortItems(items)
	return items, nil
}

// ListByTable returns pending items of one table, oldest first.
func (q *Queue) ListByTable(ctx context.Context, table models.Table) ([]models.MutationItem, error) {
	if !table.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	items, err := storage.GetAllByIndexAs[models.MutationItem](ctx, q.store, storage.NamespaceQueue, "table", table)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue by table: %w", err)
	}
	sortItems(items)
	return items, nil
}

// Update persists a modified item (retry counter, last error).
func (q *Queue) Update(ctx context.Context, item *models.MutationItem) error {
	if err := q.store.Save(ctx, storage.NamespaceQueue, item); err != nil {
		return fmt.Errorf("failed to update queue item %s: %w", item.ID, err)
	}
	return nil
}

// Remove deletes an item. Removing a missing item is not an error.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if err := q.store.Delete(ctx, storage.NamespaceQueue, id); err != nil {
		return fmt.Errorf("failed to remove queue item %s: %w", id, err)
	}
	return nil
}

// RemoveTx deletes an item inside an open transaction.
func (q *Queue) RemoveTx(tx storage.Tx, id string) error {
	if err := tx.Delete(storage.NamespaceQueue, id); err != nil {
		return fmt.Errorf("failed to remove queue item %s: %w", id, err)
	}
	return nil
}

// RemoveForEntityTx deletes every pending item of one entity and returns how many were removed.
func (q *Queue) RemoveForEntityTx(tx storage.Tx, table models.Table, entityID string) (int, error) {
	items, err := entityItemsTx(tx, table, entityID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, item := range items {
		if err := tx.Delete(storage.NamespaceQueue, item.ID); err != nil {
			return removed, fmt.Errorf("failed to remove queue item %s: %w", item.ID, err)
		}
		removed++
	}

	return removed, nil
}

// HasPendingCreateTx reports whether the entity's create is still queued,
// i.e. the server has never seen the entity.
func (q *Queue) HasPendingCreateTx(tx storage.Tx, table models.Table, entityID string) (bool, error) {
	items, err := entityItemsTx(tx, table, entityID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.Action == models.ActionCreate {
			return true, nil
		}
	}
	return false, nil
}

// HasPendingCreate is HasPendingCreateTx in its own transaction.
func (q *Queue) HasPendingCreate(ctx context.Context, table models.Table, entityID string) (bool, error) {
	var pending bool
	err := q.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		pending, err = q.HasPendingCreateTx(tx, table, entityID)
		return err
	})
	return pending, err
}

// Size returns the number of pending items
func (q *Queue) Size(ctx context.Context) (int, error) {
	return q.store.Count(ctx, storage.NamespaceQueue)
}

// restore продвигает часы до максимального сохраненного seq (один раз)
func (q *Queue) restore(tx storage.Tx) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.restored {
		return nil
	}

	raws, err := tx.GetAll(storage.NamespaceQueue)
	if err != nil {
		return fmt.Errorf("failed to restore queue clock: %w", err)
	}

	items, err := storage.Decode[models.MutationItem](raws)
	if err != nil {
		return fmt.Errorf("failed to restore queue clock: %w", err)
	}

	for _, item := range items {
		q.clock.Observe(item.Seq)
	}
	q.restored = true

	return nil
}

// entityItemsTx возвращает элементы очереди одной сущности через индекс table
func entityItemsTx(tx storage.Tx, table models.Table, entityID string) ([]models.MutationItem, error) {
	raws, err := tx.GetAllByIndex(storage.NamespaceQueue, "table", table)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue by table: %w", err)
	}

	items, err := storage.Decode[models.MutationItem](raws)
	if err != nil {
		return nil, err
	}

	matched := items[:0]
	for _, item := range items {
		if id, err := item.EntityID(); err == nil && id == entityID {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// snapshot кодирует данные мутации и проверяет наличие id
func snapshot(action models.Action, data any) (json.RawMessage, string, error) {
	var raw json.RawMessage
	switch v := data.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal mutation data: %w", err)
		}
		raw = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, "", fmt.Errorf("%w: data is not an object", ErrMissingID)
	}

	var id string
	if err := json.Unmarshal(fields["id"], &id); err != nil || id == "" {
		return nil, "", ErrMissingID
	}

	// Для create/update нужен полный снимок, а не только id
	if action != models.ActionDelete && len(fields) < 2 {
		return nil, "", ErrMissingSnapshot
	}

	return raw, id, nil
}

func sortItems(items []models.MutationItem) {
	slices.SortFunc(items, func(a, b models.MutationItem) int {
		switch {
		case a.Before(&b):
			return -1
		case b.Before(&a):
			return 1
		}
		return 0
	})
}
