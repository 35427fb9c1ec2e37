// Package storetest holds the behavioral checks every storage.Store driver must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/client/storage"
)

// Factory returns a fresh initialized store. The driver test owns cleanup.
type Factory func(t *testing.T) storage.Store

type material struct {
	FolderID *string `json:"folder_id"`
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	FileType string  `json:"file_type"`
	Synced   bool    `json:"synced"`
}

// Run executes the driver conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveGet", func(t *testing.T) { testSaveGet(t, newStore(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("GetAllOrdered", func(t *testing.T) { testGetAllOrdered(t, newStore(t)) })
	t.Run("Index", func(t *testing.T) { testIndex(t, newStore(t)) })
	t.Run("IndexEscapedValues", func(t *testing.T) { testIndexEscapedValues(t, newStore(t)) })
	t.Run("IndexFollowsOverwrite", func(t *testing.T) { testIndexFollowsOverwrite(t, newStore(t)) })
	t.Run("DeleteAndClear", func(t *testing.T) { testDeleteAndClear(t, newStore(t)) })
	t.Run("UnknownNamespace", func(t *testing.T) { testUnknownNamespace(t, newStore(t)) })
	t.Run("InvalidRecord", func(t *testing.T) { testInvalidRecord(t, newStore(t)) })
	t.Run("UpdateCommits", func(t *testing.T) { testUpdateCommits(t, newStore(t)) })
	t.Run("UpdateRollsBack", func(t *testing.T) { testUpdateRollsBack(t, newStore(t)) })
	t.Run("ConcurrentSaves", func(t *testing.T) { testConcurrentSaves(t, newStore(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newStore(t)) })
}

func testSaveGet(t *testing.T, s storage.Store) {
	ctx := context.Background()

	m := material{ID: "m1", Title: "Algebra", FileType: "pdf"}
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, m))

	got, err := storage.GetAs[material](ctx, s, storage.NamespaceMaterials, "m1")
	require.NoError(t, err)
	assert.Equal(t, m, *got)

	// Перезапись по тому же ключу
	m.Title = "Geometry"
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, m))

	got, err = storage.GetAs[material](ctx, s, storage.NamespaceMaterials, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Geometry", got.Title)

	n, err := s.Count(ctx, storage.NamespaceMaterials)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testGetNotFound(t *testing.T, s storage.Store) {
	_, err := s.Get(context.Background(), storage.NamespaceMaterials, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func testGetAllOrdered(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for _, key := range []string{"c", "a", "b"} {
		require.NoError(t, s.Save(ctx, storage.NamespacePreferences, map[string]any{"key": key, "value": 1}))
	}

	raws, err := s.GetAll(ctx, storage.NamespacePreferences)
	require.NoError(t, err)
	require.Len(t, raws, 3)

	var keys []string
	for _, raw := range raws {
		var rec struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.Unmarshal(raw, &rec))
		keys = append(keys, rec.Key)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	empty, err := s.GetAll(ctx, storage.NamespaceFolders)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testIndex(t *testing.T, s storage.Store) {
	ctx := context.Background()
	folder := "f1"

	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m1", FolderID: &folder, Synced: true}))
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m2", FolderID: &folder}))
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m3"}))

	unsynced, err := storage.GetAllByIndexAs[material](ctx, s, storage.NamespaceMaterials, "synced", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m2", "m3"}, ids(unsynced))

	inFolder, err := storage.GetAllByIndexAs[material](ctx, s, storage.NamespaceMaterials, "folder_id", "f1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids(inFolder))

	none, err := s.GetAllByIndex(ctx, storage.NamespaceMaterials, "folder_id", "nope")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.GetAllByIndex(ctx, storage.NamespaceMaterials, "title", "x")
	assert.True(t, errors.Is(err, storage.ErrUnknownIndex), "got %v", err)
}

func testIndexEscapedValues(t *testing.T, s storage.Store) {
	ctx := context.Background()

	// Сырой JSON с \u-экранированием и HTML символами находится по обычной строке
	raw := json.RawMessage(`{"id":"m1","folder_id":"R\u0026D \u00e9t\u00e9","synced":false}`)
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, raw))

	folder := "R&D été"
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m2", FolderID: &folder}))

	found, err := storage.GetAllByIndexAs[material](ctx, s, storage.NamespaceMaterials, "folder_id", folder)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids(found))
}

func testIndexFollowsOverwrite(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m1"}))
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m1", Synced: true}))

	unsynced, err := s.GetAllByIndex(ctx, storage.NamespaceMaterials, "synced", false)
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	synced, err := s.GetAllByIndex(ctx, storage.NamespaceMaterials, "synced", true)
	require.NoError(t, err)
	assert.Len(t, synced, 1)
}

func testDeleteAndClear(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m1"}))
	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "m2"}))
	require.NoError(t, s.Save(ctx, storage.NamespaceFolders, map[string]any{"id": "f1", "synced": false}))

	require.NoError(t, s.Delete(ctx, storage.NamespaceMaterials, "m1"))
	// Удаление отсутствующего ключа не ошибка
	require.NoError(t, s.Delete(ctx, storage.NamespaceMaterials, "m1"))

	unsynced, err := s.GetAllByIndex(ctx, storage.NamespaceMaterials, "synced", false)
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)

	require.NoError(t, s.Clear(ctx, storage.NamespaceMaterials))

	n, err := s.Count(ctx, storage.NamespaceMaterials)
	require.NoError(t, err)
	assert.Zero(t, n)

	unsynced, err = s.GetAllByIndex(ctx, storage.NamespaceMaterials, "synced", false)
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	// Другие пространства не затронуты
	n, err = s.Count(ctx, storage.NamespaceFolders)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testUnknownNamespace(t *testing.T, s storage.Store) {
	ctx := context.Background()

	err := s.Save(ctx, "users", map[string]any{"id": "u1"})
	assert.True(t, errors.Is(err, storage.ErrUnknownNamespace), "got %v", err)

	_, err = s.Get(ctx, "users", "u1")
	assert.True(t, errors.Is(err, storage.ErrUnknownNamespace), "got %v", err)
}

func testInvalidRecord(t *testing.T, s storage.Store) {
	ctx := context.Background()

	err := s.Save(ctx, storage.NamespaceMaterials, map[string]any{"title": "no id"})
	assert.True(t, errors.Is(err, storage.ErrMissingKey), "got %v", err)

	err = s.Save(ctx, storage.NamespaceMaterials, json.RawMessage(`[1]`))
	assert.True(t, errors.Is(err, storage.ErrInvalidRecord), "got %v", err)
}

func testUpdateCommits(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, storage.NamespaceFolders, map[string]any{"id": "old", "synced": true}))

	err := s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Clear(storage.NamespaceFolders); err != nil {
			return err
		}
		if err := tx.Save(storage.NamespaceFolders, map[string]any{"id": "f1", "synced": false}); err != nil {
			return err
		}
		if err := tx.Save(storage.NamespaceMaterials, material{ID: "m1"}); err != nil {
			return err
		}

		// Запись видна внутри той же транзакции
		m, err := storage.TxGetAs[material](tx, storage.NamespaceMaterials, "m1")
		if err != nil {
			return err
		}
		m.Synced = true
		if err := tx.Save(storage.NamespaceMaterials, m); err != nil {
			return err
		}

		unsynced, err := tx.GetAllByIndex(storage.NamespaceFolders, "synced", false)
		if err != nil {
			return err
		}
		if len(unsynced) != 1 {
			return errors.New("index not visible inside transaction")
		}
		return tx.Delete(storage.NamespaceFolders, "missing")
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, storage.NamespaceFolders, "old")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	m, err := storage.GetAs[material](ctx, s, storage.NamespaceMaterials, "m1")
	require.NoError(t, err)
	assert.True(t, m.Synced)
}

func testUpdateRollsBack(t *testing.T, s storage.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, s.Save(ctx, storage.NamespaceMaterials, material{ID: "keep"}))

	err := s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Clear(storage.NamespaceMaterials); err != nil {
			return err
		}
		if err := tx.Save(storage.NamespaceMaterials, material{ID: "m1"}); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom), "got %v", err)

	raws, err := s.GetAll(ctx, storage.NamespaceMaterials)
	require.NoError(t, err)
	require.Len(t, raws, 1)

	unsynced, err := storage.GetAllByIndexAs[material](ctx, s, storage.NamespaceMaterials, "synced", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids(unsynced))
}

func testConcurrentSaves(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Save(ctx, storage.NamespaceCache, map[string]any{"key": string(rune('a' + i)), "data": i})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	n, err := s.Count(ctx, storage.NamespaceCache)
	require.NoError(t, err)
	assert.Equal(t, workers, n)
}

func testClosed(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Close())
	// Повторное закрытие безопасно
	require.NoError(t, s.Close())

	err := s.Save(ctx, storage.NamespaceMaterials, material{ID: "m1"})
	assert.True(t, errors.Is(err, storage.ErrStorageClosed), "got %v", err)

	_, err = s.Count(ctx, storage.NamespaceMaterials)
	assert.True(t, errors.Is(err, storage.ErrStorageClosed), "got %v", err)

	err = s.Update(ctx, func(tx storage.Tx) error { return nil })
	assert.True(t, errors.Is(err, storage.ErrStorageClosed), "got %v", err)
}

func ids(ms []material) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
