package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/events/eventstest"
	"github.com/iudanet/matsync/internal/client/queue"
	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/client/storage/boltdb"
	"github.com/iudanet/matsync/internal/models"
)

type fixture struct {
	store storage.Store
	queue *queue.Queue
	bus   *events.Bus
	rec   *eventstest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bus := events.NewBus(nil)
	return &fixture{
		store: store,
		queue: queue.New(store, nil, nil),
		bus:   bus,
		rec:   eventstest.NewRecorder(bus),
	}
}

func (f *fixture) engine(backend Backend) *Engine {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewEngine(f.store, f.queue, backend, f.bus, logger)
}

// saveOffline пишет сущность и элемент очереди, как это делает слой данных в офлайне
func (f *fixture) saveOffline(t *testing.T, m models.Material) {
	t.Helper()
	m.Synced = false
	m.OfflineCreated = true
	require.NoError(t, f.store.Save(context.Background(), storage.NamespaceMaterials, m))
	_, err := f.queue.Enqueue(context.Background(), models.TableMaterials, models.ActionCreate, m)
	require.NoError(t, err)
}

func okBackend() *BackendMock {
	return &BackendMock{
		CreateRemoteFunc: func(ctx context.Context, table models.Table, data json.RawMessage) error { return nil },
		UpdateRemoteFunc: func(ctx context.Context, table models.Table, data json.RawMessage) error { return nil },
		DeleteRemoteFunc: func(ctx context.Context, table models.Table, id string) error { return nil },
	}
}

func failingBackend(err error) *BackendMock {
	return &BackendMock{
		CreateRemoteFunc: func(ctx context.Context, table models.Table, data json.RawMessage) error { return err },
		UpdateRemoteFunc: func(ctx context.Context, table models.Table, data json.RawMessage) error { return err },
		DeleteRemoteFunc: func(ctx context.Context, table models.Table, id string) error { return err },
	}
}

func TestDrain_OfflineCreateThenOnline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})

	backend := okBackend()
	result, err := f.engine(backend).Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, &Result{Processed: 1, Succeeded: 1}, result)
	require.Len(t, backend.CreateRemoteCalls(), 1)
	assert.Equal(t, models.TableMaterials, backend.CreateRemoteCalls()[0].Table)

	m, err := storage.GetAs[models.Material](ctx, f.store, storage.NamespaceMaterials, "m1")
	require.NoError(t, err)
	assert.True(t, m.Synced)
	assert.True(t, m.OfflineCreated, "only the synced flag is touched")
	assert.Equal(t, "Test", m.Title)

	size, err := f.queue.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	assert.Equal(t, []events.Kind{events.KindSyncStarted, events.KindSyncCompleted}, f.rec.Kinds())
}

func TestDrain_DropAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})

	remoteErr := errors.New("backend unavailable")
	engine := f.engine(failingBackend(remoteErr))

	// Первые MaxRetries проходов: элемент остается с растущим счетчиком
	for pass := 1; pass <= MaxRetries; pass++ {
		result, err := engine.Drain(ctx)
		require.NoError(t, err, "item failures never fail the pass")
		assert.Equal(t, 1, result.Retried)

		items, err := f.queue.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, pass, items[0].Retries)
		assert.Equal(t, remoteErr.Error(), items[0].LastError)
		assert.Zero(t, f.rec.Count(events.KindSyncFailed))
	}

	result, err := engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dropped)

	size, err := f.queue.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Equal(t, 1, f.rec.Count(events.KindSyncFailed))

	var failed events.SyncFailed
	for _, e := range f.rec.Events() {
		if ev, ok := e.(events.SyncFailed); ok {
			failed = ev
		}
	}
	assert.Equal(t, MaxRetries+1, failed.Item.Retries)
	assert.ErrorIs(t, failed.Err, remoteErr)

	// Сущность не откатывается
	m, err := storage.GetAs[models.Material](ctx, f.store, storage.NamespaceMaterials, "m1")
	require.NoError(t, err)
	assert.False(t, m.Synced)

	// Пятый проход: очередь пуста, событие не повторяется
	_, err = engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.rec.Count(events.KindSyncFailed))
}

func TestDrain_ConcurrentCallsRunOnePass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})

	entered := make(chan struct{})
	release := make(chan struct{})
	backend := okBackend()
	backend.CreateRemoteFunc = func(ctx context.Context, table models.Table, data json.RawMessage) error {
		close(entered)
		<-release
		return nil
	}
	engine := f.engine(backend)

	var wg sync.WaitGroup
	var first *Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = engine.Drain(ctx)
	}()

	<-entered
	assert.True(t, engine.InProgress())

	second, err := engine.Drain(ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	close(release)
	wg.Wait()

	assert.False(t, first.Skipped)
	assert.Len(t, backend.CreateRemoteCalls(), 1, "no duplicate remote invocations")
	assert.Equal(t, 1, f.rec.Count(events.KindSyncStarted))
	assert.False(t, engine.InProgress())
}

func TestDrain_ReplaysInIssueOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m := models.Material{ID: "m1", Title: "v1"}
	f.saveOffline(t, m)
	m.Title = "v2"
	_, err := f.queue.Enqueue(ctx, models.TableMaterials, models.ActionUpdate, m)
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, models.TableFolders, models.ActionDelete, map[string]string{"id": "f1"})
	require.NoError(t, err)

	var calls []string
	backend := &BackendMock{
		CreateRemoteFunc: func(ctx context.Context, table models.Table, data json.RawMessage) error {
			calls = append(calls, "create:"+string(table))
			return nil
		},
		UpdateRemoteFunc: func(ctx context.Context, table models.Table, data json.RawMessage) error {
			var snap models.Material
			if err := json.Unmarshal(data, &snap); err != nil {
				return err
			}
			calls = append(calls, "update:"+snap.Title)
			return nil
		},
		DeleteRemoteFunc: func(ctx context.Context, table models.Table, id string) error {
			calls = append(calls, "delete:"+string(table)+":"+id)
			return nil
		},
	}

	result, err := f.engine(backend).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, []string{"create:materials", "update:v2", "delete:folders:f1"}, calls)
}

func TestDrain_ItemFailureDoesNotStopPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "bad", Title: "x"})
	f.saveOffline(t, models.Material{ID: "good", Title: "y"})

	backend := okBackend()
	backend.CreateRemoteFunc = func(ctx context.Context, table models.Table, data json.RawMessage) error {
		var snap models.Material
		_ = json.Unmarshal(data, &snap)
		if snap.ID == "bad" {
			return errors.New("rejected")
		}
		return nil
	}

	result, err := f.engine(backend).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Result{Processed: 2, Succeeded: 1, Retried: 1}, result)

	good, err := storage.GetAs[models.Material](ctx, f.store, storage.NamespaceMaterials, "good")
	require.NoError(t, err)
	assert.True(t, good.Synced)

	bad, err := storage.GetAs[models.Material](ctx, f.store, storage.NamespaceMaterials, "bad")
	require.NoError(t, err)
	assert.False(t, bad.Synced)
}

func TestDrain_EntityDeletedLocally(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})
	require.NoError(t, f.store.Delete(ctx, storage.NamespaceMaterials, "m1"))

	result, err := f.engine(okBackend()).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	_, err = f.store.Get(ctx, storage.NamespaceMaterials, "m1")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "a missing entity is not recreated")
}

func TestDrain_PassLevelFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})
	require.NoError(t, f.store.Close())

	backend := okBackend()
	engine := f.engine(backend)

	result, err := engine.Drain(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrStorageClosed), "got %v", err)
	require.NotNil(t, result)
	assert.Empty(t, backend.CreateRemoteCalls())

	assert.Equal(t, []events.Kind{events.KindSyncStarted, events.KindSyncError}, f.rec.Kinds())
	assert.False(t, engine.InProgress(), "flag is released after an aborted pass")
}

func TestDrain_CanceledContext(t *testing.T) {
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := okBackend()
	_, err := f.engine(backend).Drain(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Empty(t, backend.CreateRemoteCalls())
	assert.Equal(t, 1, f.rec.Count(events.KindSyncError))
}

func TestDrain_ItemRemovedDuringPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.saveOffline(t, models.Material{ID: "m1", Title: "Test"})

	backend := okBackend()
	backend.CreateRemoteFunc = func(ctx context.Context, table models.Table, data json.RawMessage) error {
		// Сущность удалена локально, пока шел удаленный вызов
		err := f.store.Update(ctx, func(tx storage.Tx) error {
			_, err := f.queue.RemoveForEntityTx(tx, models.TableMaterials, "m1")
			return err
		})
		if err != nil {
			return err
		}
		return errors.New("timeout")
	}

	result, err := f.engine(backend).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retried)

	size, err := f.queue.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size, "a purged item is not written back")
}

func TestDrain_LastWriteWinsRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 20
	for i := range n {
		f.saveOffline(t, models.Material{ID: string(rune('a' + i)), Title: "v0"})
	}

	engine := f.engine(okBackend())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := engine.Drain(ctx)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		// Параллельные локальные изменения сбрасывают synced
		for i := range n {
			id := string(rune('a' + i))
			err := f.store.Update(ctx, func(tx storage.Tx) error {
				m, err := storage.TxGetAs[models.Material](tx, storage.NamespaceMaterials, id)
				if err != nil {
					return err
				}
				m.Title = "local"
				m.Synced = false
				m.UpdatedAt = time.Now()
				return tx.Save(storage.NamespaceMaterials, m)
			})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	// Флаг synced может быть устаревшим, но каждая запись остается валидной
	materials, err := storage.GetAllAs[models.Material](ctx, f.store, storage.NamespaceMaterials)
	require.NoError(t, err)
	require.Len(t, materials, n)
	for _, m := range materials {
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "local", m.Title)
		assert.True(t, m.OfflineCreated)
	}
}
