// Package events defines the typed notifications published by the sync engine.
package events

import "github.com/iudanet/matsync/internal/models"

// Kind identifies an event type
type Kind string

const (
	KindOnline          Kind = "online"
	KindOffline         Kind = "offline"
	KindMaterialSaved   Kind = "material_saved"
	KindMaterialUpdated Kind = "material_updated"
	KindMaterialDeleted Kind = "material_deleted"
	KindFolderSaved     Kind = "folder_saved"
	KindFolderUpdated   Kind = "folder_updated"
	KindFolderDeleted   Kind = "folder_deleted"
	KindSyncStarted     Kind = "sync_started"
	KindSyncCompleted   Kind = "sync_completed"
	KindSyncFailed      Kind = "sync_failed"
	KindSyncError       Kind = "sync_error"
	KindDataCleared     Kind = "data_cleared"
	KindDataImported    Kind = "data_imported"
)

// Event is implemented by every event struct below.
type Event interface {
	Kind() Kind
}

type Online struct{}

type Offline struct{}

type MaterialSaved struct {
	Material models.Material
}

type MaterialUpdated struct {
	Material models.Material
}

type MaterialDeleted struct {
	ID string
}

type FolderSaved struct {
	Folder models.Folder
}

type FolderUpdated struct {
	Folder models.Folder
}

type FolderDeleted struct {
	ID string
}

type SyncStarted struct{}

// SyncCompleted is published after a pass that did not hit a pass-level error.
type SyncCompleted struct {
	Processed int
	Succeeded int
	Retried   int
	Dropped   int
}

// SyncFailed is published when an item exceeded the retry cap and was dropped.
type SyncFailed struct {
	Err  error
	Item models.MutationItem
}

// SyncError is published when a drain pass aborted.
type SyncError struct {
	Err error
}

type DataCleared struct{}

type DataImported struct {
	Materials   int
	Folders     int
	Preferences int
}

func (Online) Kind() Kind          { return KindOnline }
func (Offline) Kind() Kind         { return KindOffline }
func (MaterialSaved) Kind() Kind   { return KindMaterialSaved }
func (MaterialUpdated) Kind() Kind { return KindMaterialUpdated }
func (MaterialDeleted) Kind() Kind { return KindMaterialDeleted }
func (FolderSaved) Kind() Kind     { return KindFolderSaved }
func (FolderUpdated) Kind() Kind   { return KindFolderUpdated }
func (FolderDeleted) Kind() Kind   { return KindFolderDeleted }
func (SyncStarted) Kind() Kind     { return KindSyncStarted }
func (SyncCompleted) Kind() Kind   { return KindSyncCompleted }
func (SyncFailed) Kind() Kind      { return KindSyncFailed }
func (SyncError) Kind() Kind       { return KindSyncError }
func (DataCleared) Kind() Kind     { return KindDataCleared }
func (DataImported) Kind() Kind    { return KindDataImported }
