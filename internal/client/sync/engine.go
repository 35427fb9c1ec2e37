// Package sync replays queued mutations against the remote backend.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/queue"
	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/models"
)

//go:generate moq -out backend_mock.go . Backend

// MaxRetries is how many failed retries an item survives.
// The initial attempt plus MaxRetries retries: the 4th failure drops the item.
const MaxRetries = 3

// Backend is the remote collaborator. It is the only point of contact with the network.
type Backend interface {
	// CreateRemote sends a full entity snapshot
	CreateRemote(ctx context.Context, table models.Table, data json.RawMessage) error

	// UpdateRemote sends a full entity snapshot
	UpdateRemote(ctx context.Context, table models.Table, data json.RawMessage) error

	// DeleteRemote removes the remote entity
	DeleteRemote(ctx context.Context, table models.Table, id string) error
}

// Result contains drain pass results
type Result struct {
	Processed int  // количество обработанных элементов очереди
	Succeeded int  // успешно отправленные
	Retried   int  // неудачные, оставленные для следующего прохода
	Dropped   int  // удаленные после превышения лимита попыток
	Skipped   bool // проход не выполнялся: другой уже активен
}

// Engine drains the mutation queue. At most one pass runs at a time.
type Engine struct {
	store      storage.Store
	queue      *queue.Queue
	backend    Backend
	bus        *events.Bus
	logger     *slog.Logger
	inProgress atomic.Bool
}

// NewEngine creates a sync engine
func NewEngine(store storage.Store, q *queue.Queue, backend Backend, bus *events.Bus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		queue:   q,
		backend: backend,
		bus:     bus,
		logger:  logger,
	}
}

// InProgress reports whether a drain pass is running
func (e *Engine) InProgress() bool {
	return e.inProgress.Load()
}

// Drain replays every queued mutation in issue order, one at a time.
//
// A call made while another pass is running returns immediately with
// Result.Skipped set and performs no remote calls.
// Item failures are recorded on the item and never returned. A pass-level
// failure (the store becoming unavailable, ctx canceled) aborts the pass,
// is published as events.SyncError and returned.
// There is no backoff: a retried item waits for the next Drain call.
func (e *Engine) Drain(ctx context.Context) (*Result, error) {
	if !e.inProgress.CompareAndSwap(false, true) {
		e.logger.Debug("Drain already in progress, skipping")
		return &Result{Skipped: true}, nil
	}
	defer e.inProgress.Store(false)

	e.publish(events.SyncStarted{})

	result, err := e.drain(ctx)
	if err != nil {
		e.logger.Error("Drain pass aborted", "error", err, "processed", result.Processed)
		e.publish(events.SyncError{Err: err})
		return result, err
	}

	e.logger.Info("Drain pass completed",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"retried", result.Retried,
		"dropped", result.Dropped,
	)
	e.publish(events.SyncCompleted{
		Processed: result.Processed,
		Succeeded: result.Succeeded,
		Retried:   result.Retried,
		Dropped:   result.Dropped,
	})

	return result, nil
}

func (e *Engine) drain(ctx context.Context) (*Result, error) {
	result := &Result{}

	items, err := e.queue.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load queue: %w", err)
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("drain interrupted: %w", err)
		}

		item := &items[i]
		result.Processed++

		if cause := e.apply(ctx, item); cause != nil {
			dropped, err := e.fail(ctx, item, cause)
			if err != nil {
				return result, err
			}
			if dropped {
				result.Dropped++
			} else {
				result.Retried++
			}
			continue
		}

		if err := e.succeed(ctx, item); err != nil {
			return result, err
		}
		result.Succeeded++
	}

	return result, nil
}

// apply выполняет удаленную операцию для элемента очереди
func (e *Engine) apply(ctx context.Context, item *models.MutationItem) error {
	switch item.Action {
	case models.ActionCreate:
		return e.backend.CreateRemote(ctx, item.Table, item.Data)
	case models.ActionUpdate:
		return e.backend.UpdateRemote(ctx, item.Table, item.Data)
	case models.ActionDelete:
		id, err := item.EntityID()
		if err != nil {
			return err
		}
		return e.backend.DeleteRemote(ctx, item.Table, id)
	default:
		return fmt.Errorf("%w: %q", queue.ErrInvalidAction, item.Action)
	}
}

// succeed удаляет элемент и помечает сущность синхронизированной в одной транзакции
func (e *Engine) succeed(ctx context.Context, item *models.MutationItem) error {
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		if err := e.queue.RemoveTx(tx, item.ID); err != nil {
			return err
		}
		if item.Action == models.ActionDelete {
			return nil
		}
		id, err := item.EntityID()
		if err != nil {
			return err
		}
		return SetSyncedTx(tx, item.Table, id, true)
	})
	if err != nil {
		return fmt.Errorf("failed to commit synced item %s: %w", item.ID, err)
	}

	e.logger.Debug("Mutation synced", "item_id", item.ID, "table", string(item.Table))
	return nil
}

// fail увеличивает счетчик попыток; после MaxRetries элемент удаляется
func (e *Engine) fail(ctx context.Context, item *models.MutationItem, cause error) (bool, error) {
	item.Retries++
	item.LastError = cause.Error()

	if item.Retries > MaxRetries {
		if err := e.queue.Remove(ctx, item.ID); err != nil {
			return false, err
		}
		e.logger.Warn("Mutation dropped after max retries",
			"item_id", item.ID,
			"retries", item.Retries,
			"error", cause,
		)
		e.publish(events.SyncFailed{Item: *item, Err: cause})
		return true, nil
	}

	// Элемент мог быть удален во время прохода (локальное удаление сущности)
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.Get(storage.NamespaceQueue, item.ID); err != nil {
			return err
		}
		return tx.Save(storage.NamespaceQueue, item)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update queue item %s: %w", item.ID, err)
	}
	e.logger.Warn("Mutation failed, will retry on next drain",
		"item_id", item.ID,
		"retries", item.Retries,
		"error", cause,
	)
	return false, nil
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// SetSyncedTx sets the synced flag of a stored entity without touching its other fields.
// A missing entity (deleted locally meanwhile) is not an error.
func SetSyncedTx(tx storage.Tx, table models.Table, id string, synced bool) error {
	ns, err := namespaceOf(table)
	if err != nil {
		return err
	}

	raw, err := tx.Get(ns, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("failed to decode %s record %q: %w", ns, id, err)
	}
	record["synced"] = json.RawMessage(strconv.FormatBool(synced))

	return tx.Save(ns, record)
}

func namespaceOf(table models.Table) (storage.Namespace, error) {
	switch table {
	case models.TableMaterials:
		return storage.NamespaceMaterials, nil
	case models.TableFolders:
		return storage.NamespaceFolders, nil
	}
	return "", fmt.Errorf("%w: %q", queue.ErrInvalidTable, table)
}
