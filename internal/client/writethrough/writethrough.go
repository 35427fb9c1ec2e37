// Package writethrough sends local changes made while online directly to the backend.
//
// The data service queues mutations only while offline; online it expects the
// caller to perform the network write. Service is that caller: it applies the
// local change through the data service, then issues the matching remote call.
// A failed remote call is queued so the next drain retries it.
package writethrough

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/iudanet/matsync/internal/client/data"
	"github.com/iudanet/matsync/internal/client/queue"
	"github.com/iudanet/matsync/internal/client/storage"
	clientsync "github.com/iudanet/matsync/internal/client/sync"
	"github.com/iudanet/matsync/internal/models"
)

// Status reports the current network state
type Status interface {
	IsOnline() bool
}

// Service wraps the entity write APIs of data.Service with direct remote writes.
type Service struct {
	data    data.Service
	store   storage.Store
	queue   *queue.Queue
	backend clientsync.Backend
	status  Status
	logger  *slog.Logger
}

// NewService creates a write-through service. With a nil backend every call
// is a plain local write.
func NewService(d data.Service, store storage.Store, q *queue.Queue, backend clientsync.Backend, status Status, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		data:    d,
		store:   store,
		queue:   q,
		backend: backend,
		status:  status,
		logger:  logger,
	}
}

// SaveMaterial saves locally and, when the save took the online path, creates the material remotely.
// The returned material is unsynced if the remote create had to be queued.
func (s *Service) SaveMaterial(ctx context.Context, m *models.Material, offlineCreated bool) (*models.Material, error) {
	saved, err := s.data.SaveMaterial(ctx, m, offlineCreated)
	if err != nil || !saved.Synced || s.backend == nil {
		return saved, err
	}

	sent, err := s.send(ctx, models.TableMaterials, models.ActionCreate, saved.ID, saved)
	if err != nil {
		return nil, err
	}
	saved.Synced = sent
	return saved, nil
}

// UpdateMaterial updates locally and, while online, updates the material remotely.
func (s *Service) UpdateMaterial(ctx context.Context, id string, patch models.MaterialPatch) (*models.Material, error) {
	direct := s.direct()

	updated, err := s.data.UpdateMaterial(ctx, id, patch)
	if err != nil || !direct {
		return updated, err
	}

	sent, err := s.send(ctx, models.TableMaterials, models.ActionUpdate, id, updated)
	if err != nil {
		return nil, err
	}
	updated.Synced = sent
	return updated, nil
}

// DeleteMaterial deletes locally and, while online, deletes the material remotely
// unless the server has never seen it.
func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	return s.delete(ctx, models.TableMaterials, id, s.data.DeleteMaterial)
}

// SaveFolder saves locally and, when the save took the online path, creates the folder remotely.
func (s *Service) SaveFolder(ctx context.Context, f *models.Folder, offlineCreated bool) (*models.Folder, error) {
	saved, err := s.data.SaveFolder(ctx, f, offlineCreated)
	if err != nil || !saved.Synced || s.backend == nil {
		return saved, err
	}

	sent, err := s.send(ctx, models.TableFolders, models.ActionCreate, saved.ID, saved)
	if err != nil {
		return nil, err
	}
	saved.Synced = sent
	return saved, nil
}

// UpdateFolder updates locally and, while online, updates the folder remotely.
func (s *Service) UpdateFolder(ctx context.Context, id string, patch models.FolderPatch) (*models.Folder, error) {
	direct := s.direct()

	updated, err := s.data.UpdateFolder(ctx, id, patch)
	if err != nil || !direct {
		return updated, err
	}

	sent, err := s.send(ctx, models.TableFolders, models.ActionUpdate, id, updated)
	if err != nil {
		return nil, err
	}
	updated.Synced = sent
	return updated, nil
}

// DeleteFolder deletes locally and, while online, deletes the folder remotely
// unless the server has never seen it.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	return s.delete(ctx, models.TableFolders, id, s.data.DeleteFolder)
}

func (s *Service) direct() bool {
	return s.backend != nil && s.status != nil && s.status.IsOnline()
}

func (s *Service) delete(ctx context.Context, table models.Table, id string, local func(context.Context, string) error) error {
	direct := s.direct()

	// Смотрим очередь до локального удаления: оно вычищает элементы сущности
	neverSent := false
	if direct {
		var err error
		neverSent, err = s.queue.HasPendingCreate(ctx, table, id)
		if err != nil {
			return err
		}
	}

	if err := local(ctx, id); err != nil {
		return err
	}
	if !direct || neverSent {
		return nil
	}

	_, err := s.send(ctx, table, models.ActionDelete, id, map[string]string{"id": id})
	return err
}

// send выполняет удаленную запись. При неудаче мутация ставится в очередь,
// а сущность помечается несинхронизированной. Ошибка возвращается только
// для локальных сбоев.
func (s *Service) send(ctx context.Context, table models.Table, action models.Action, id string, snapshot any) (bool, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to marshal %s snapshot: %w", table, err)
	}

	remoteErr := s.remote(ctx, table, action, id, raw)
	if remoteErr == nil {
		if action == models.ActionUpdate {
			err := s.store.Update(ctx, func(tx storage.Tx) error {
				return clientsync.SetSyncedTx(tx, table, id, true)
			})
			if err != nil {
				return false, fmt.Errorf("failed to mark %s %s synced: %w", table, id, err)
			}
		}
		s.logger.Debug("Direct write succeeded", "table", string(table), "action", string(action), "id", id)
		return true, nil
	}

	s.logger.Warn("Direct write failed, change queued for the next drain",
		"table", string(table),
		"action", string(action),
		"id", id,
		"error", remoteErr,
	)

	err = s.store.Update(ctx, func(tx storage.Tx) error {
		if action == models.ActionCreate {
			if err := clientsync.SetSyncedTx(tx, table, id, false); err != nil {
				return err
			}
		}
		_, err := s.queue.EnqueueTx(ctx, tx, table, action, raw)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to queue %s %s after direct write failure: %w", action, table, err)
	}
	return false, nil
}

func (s *Service) remote(ctx context.Context, table models.Table, action models.Action, id string, raw json.RawMessage) error {
	switch action {
	case models.ActionCreate:
		return s.backend.CreateRemote(ctx, table, raw)
	case models.ActionUpdate:
		return s.backend.UpdateRemote(ctx, table, raw)
	default:
		return s.backend.DeleteRemote(ctx, table, id)
	}
}
