// Package data implements the material, folder and preference APIs on top of the local store.
package data

import (
	"context"
	"log/slog"
	"time"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/models"
)

// ConnectivityStatus reports the current network state
type ConnectivityStatus interface {
	IsOnline() bool
}

// Enqueuer appends, inspects and purges queued mutations inside a store transaction
type Enqueuer interface {
	EnqueueTx(ctx context.Context, tx storage.Tx, table models.Table, action models.Action, data any) (*models.MutationItem, error)
	RemoveForEntityTx(tx storage.Tx, table models.Table, entityID string) (int, error)
	HasPendingCreateTx(tx storage.Tx, table models.Table, entityID string) (bool, error)
}

// Service определяет интерфейс для клиентского data сервиса
type Service interface {
	SaveMaterial(ctx context.Context, m *models.Material, offlineCreated bool) (*models.Material, error)
	UpdateMaterial(ctx context.Context, id string, patch models.MaterialPatch) (*models.Material, error)
	DeleteMaterial(ctx context.Context, id string) error
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	ListMaterials(ctx context.Context) ([]models.Material, error)
	ListMaterialsByFolder(ctx context.Context, folderID string) ([]models.Material, error)
	ListUnsyncedMaterials(ctx context.Context) ([]models.Material, error)

	SaveFolder(ctx context.Context, f *models.Folder, offlineCreated bool) (*models.Folder, error)
	UpdateFolder(ctx context.Context, id string, patch models.FolderPatch) (*models.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	ListFolders(ctx context.Context) ([]models.Folder, error)
	ListChildFolders(ctx context.Context, parentID string) ([]models.Folder, error)
	ListUnsyncedFolders(ctx context.Context) ([]models.Folder, error)

	SetPreference(ctx context.Context, key string, value any) (*models.Preference, error)
	GetPreference(ctx context.Context, key string) (*models.Preference, error)
	ListPreferences(ctx context.Context) ([]models.Preference, error)
	DeletePreference(ctx context.Context, key string) error
}

// service handles local entity writes and queues mutations while offline.
// Entity write and queue item always commit in one store transaction.
type service struct {
	store  storage.Store
	queue  Enqueuer
	conn   ConnectivityStatus
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new data service. A nil now uses time.Now.
func NewService(store storage.Store, queue Enqueuer, conn ConnectivityStatus, bus *events.Bus, now func() time.Time, logger *slog.Logger) Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		store:  store,
		queue:  queue,
		conn:   conn,
		bus:    bus,
		logger: logger,
		now:    now,
	}
}

func (s *service) isOnline() bool {
	return s.conn != nil && s.conn.IsOnline()
}

func (s *service) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
