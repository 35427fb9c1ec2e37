package data

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/internal/validation"
)

// SaveMaterial stores a material and queues a create when offline or when it was created offline.
// The caller's value is not modified; the stored copy is returned.
func (s *service) SaveMaterial(ctx context.Context, m *models.Material, offlineCreated bool) (*models.Material, error) {
	saved := *m

	// Генерируем ID если не задан
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if err := validation.ValidateID(saved.ID); err != nil {
		return nil, err
	}
	if err := validation.ValidateTitle(saved.Title); err != nil {
		return nil, err
	}
	if saved.FolderID != "" {
		if err := validation.ValidateID(saved.FolderID); err != nil {
			return nil, fmt.Errorf("folder_id: %w", err)
		}
	}

	now := s.now()
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	online := s.isOnline()
	saved.Synced = online && !offlineCreated
	saved.OfflineCreated = offlineCreated || !online

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Save(storage.NamespaceMaterials, &saved); err != nil {
			return err
		}
		if online && !offlineCreated {
			return nil
		}
		_, err := s.queue.EnqueueTx(ctx, tx, models.TableMaterials, models.ActionCreate, &saved)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save material: %w", err)
	}

	s.logger.Debug("Material saved", "id", saved.ID, "synced", saved.Synced)
	s.publish(events.MaterialSaved{Material: saved})

	return &saved, nil
}

// UpdateMaterial merges patch onto the stored material. The result is always unsynced;
// an update mutation is queued only while offline.
func (s *service) UpdateMaterial(ctx context.Context, id string, patch models.MaterialPatch) (*models.Material, error) {
	if patch.Title != nil {
		if err := validation.ValidateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.FolderID != nil && *patch.FolderID != "" {
		if err := validation.ValidateID(*patch.FolderID); err != nil {
			return nil, fmt.Errorf("folder_id: %w", err)
		}
	}

	online := s.isOnline()

	var updated *models.Material
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		m, err := storage.TxGetAs[models.Material](tx, storage.NamespaceMaterials, id)
		if err != nil {
			return err
		}

		patch.Apply(m)
		m.UpdatedAt = s.now()
		m.Synced = false

		if err := tx.Save(storage.NamespaceMaterials, m); err != nil {
			return err
		}
		updated = m

		if online {
			return nil
		}
		_, err = s.queue.EnqueueTx(ctx, tx, models.TableMaterials, models.ActionUpdate, m)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update material %s: %w", id, err)
	}

	s.publish(events.MaterialUpdated{Material: *updated})
	return updated, nil
}

// DeleteMaterial removes a material locally. A delete mutation is queued only while
// offline and only if the server has seen the material. A material whose create is
// still queued never reached the server: its pending mutations are dropped with it.
func (s *service) DeleteMaterial(ctx context.Context, id string) error {
	online := s.isOnline()

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := storage.TxGetAs[models.Material](tx, storage.NamespaceMaterials, id); err != nil {
			return err
		}

		if err := tx.Delete(storage.NamespaceMaterials, id); err != nil {
			return err
		}

		// Сервер не знает сущность, пока ее create стоит в очереди
		neverSent, err := s.queue.HasPendingCreateTx(tx, models.TableMaterials, id)
		if err != nil {
			return err
		}
		if neverSent {
			removed, err := s.queue.RemoveForEntityTx(tx, models.TableMaterials, id)
			if err != nil {
				return err
			}
			if removed > 0 {
				s.logger.Debug("Dropped pending mutations of unsynced material", "id", id, "count", removed)
			}
			return nil
		}

		if online {
			return nil
		}
		_, err = s.queue.EnqueueTx(ctx, tx, models.TableMaterials, models.ActionDelete, map[string]string{"id": id})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete material %s: %w", id, err)
	}

	s.publish(events.MaterialDeleted{ID: id})
	return nil
}

// GetMaterial returns a material by id. Returns storage.ErrNotFound (wrapped) if absent.
func (s *service) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	m, err := storage.GetAs[models.Material](ctx, s.store, storage.NamespaceMaterials, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get material %s: %w", id, err)
	}
	return m, nil
}

// ListMaterials returns all materials ordered by id
func (s *service) ListMaterials(ctx context.Context) ([]models.Material, error) {
	materials, err := storage.GetAllAs[models.Material](ctx, s.store, storage.NamespaceMaterials)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return materials, nil
}

// ListMaterialsByFolder returns materials placed in folderID
func (s *service) ListMaterialsByFolder(ctx context.Context, folderID string) ([]models.Material, error) {
	materials, err := storage.GetAllByIndexAs[models.Material](ctx, s.store, storage.NamespaceMaterials, "folder_id", folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials of folder %s: %w", folderID, err)
	}
	return materials, nil
}

// ListUnsyncedMaterials returns materials not yet acknowledged by the server
func (s *service) ListUnsyncedMaterials(ctx context.Context) ([]models.Material, error) {
	materials, err := storage.GetAllByIndexAs[models.Material](ctx, s.store, storage.NamespaceMaterials, "synced", false)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced materials: %w", err)
	}
	return materials, nil
}
