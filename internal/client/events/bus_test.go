package events

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/models"
)

func TestBus_PublishOrder(t *testing.T) {
	bus := NewBus(nil)

	var got []string
	bus.Subscribe(func(e Event) { got = append(got, "first:"+string(e.Kind())) })
	bus.Subscribe(func(e Event) { got = append(got, "second:"+string(e.Kind())) })

	bus.Publish(SyncStarted{})
	bus.Publish(SyncCompleted{})

	assert.Equal(t, []string{
		"first:sync_started",
		"second:sync_started",
		"first:sync_completed",
		"second:sync_completed",
	}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Online{})
	unsubscribe()
	// Повторный вызов безопасен
	unsubscribe()
	bus.Publish(Online{})

	assert.Equal(t, 1, calls)
}

func TestOn_TypedHandler(t *testing.T) {
	bus := NewBus(nil)

	var saved []models.Material
	On(bus, func(e MaterialSaved) { saved = append(saved, e.Material) })

	bus.Publish(MaterialSaved{Material: models.Material{ID: "m1"}})
	bus.Publish(MaterialDeleted{ID: "m1"})
	bus.Publish(MaterialSaved{Material: models.Material{ID: "m2"}})

	require.Len(t, saved, 2)
	assert.Equal(t, "m1", saved[0].ID)
	assert.Equal(t, "m2", saved[1].ID)
}

func TestBus_PanickingHandler(t *testing.T) {
	var logs bytes.Buffer
	bus := NewBus(slog.New(slog.NewTextHandler(&logs, nil)))

	delivered := false
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(Offline{}) })
	assert.True(t, delivered, "later subscribers still receive the event")
	assert.Contains(t, logs.String(), "event handler panicked")
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus(nil)

	late := 0
	bus.Subscribe(func(Event) {
		bus.Subscribe(func(Event) { late++ })
	})

	bus.Publish(DataCleared{})
	assert.Equal(t, 0, late, "subscriber added during publish misses the current event")

	bus.Publish(DataCleared{})
	assert.Equal(t, 1, late)
}

func TestKinds(t *testing.T) {
	tests := []struct {
		event Event
		want  Kind
	}{
		{Online{}, "online"},
		{Offline{}, "offline"},
		{MaterialSaved{}, "material_saved"},
		{MaterialUpdated{}, "material_updated"},
		{MaterialDeleted{}, "material_deleted"},
		{FolderSaved{}, "folder_saved"},
		{FolderUpdated{}, "folder_updated"},
		{FolderDeleted{}, "folder_deleted"},
		{SyncStarted{}, "sync_started"},
		{SyncCompleted{}, "sync_completed"},
		{SyncFailed{}, "sync_failed"},
		{SyncError{}, "sync_error"},
		{DataCleared{}, "data_cleared"},
		{DataImported{}, "data_imported"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.Kind())
	}
}
