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

// SaveFolder stores a folder. Same queueing rules as SaveMaterial.
func (s *service) SaveFolder(ctx context.Context, f *models.Folder, offlineCreated bool) (*models.Folder, error) {
	saved := *f

	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if err := validateFolder(&saved); err != nil {
		return nil, err
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
		if err := tx.Save(storage.NamespaceFolders, &saved); err != nil {
			return err
		}
		if online && !offlineCreated {
			return nil
		}
		_, err := s.queue.EnqueueTx(ctx, tx, models.TableFolders, models.ActionCreate, &saved)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save folder: %w", err)
	}

	s.logger.Debug("Folder saved", "id", saved.ID, "synced", saved.Synced)
	s.publish(events.FolderSaved{Folder: saved})

	return &saved, nil
}

// UpdateFolder merges patch onto the stored folder. Same queueing rules as UpdateMaterial.
func (s *service) UpdateFolder(ctx context.Context, id string, patch models.FolderPatch) (*models.Folder, error) {
	online := s.isOnline()

	var updated *models.Folder
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		f, err := storage.TxGetAs[models.Folder](tx, storage.NamespaceFolders, id)
		if err != nil {
			return err
		}

		patch.Apply(f)
		if err := validateFolder(f); err != nil {
			return err
		}
		f.UpdatedAt = s.now()
		f.Synced = false

		if err := tx.Save(storage.NamespaceFolders, f); err != nil {
			return err
		}
		updated = f

		if online {
			return nil
		}
		_, err = s.queue.EnqueueTx(ctx, tx, models.TableFolders, models.ActionUpdate, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update folder %s: %w", id, err)
	}

	s.publish(events.FolderUpdated{Folder: *updated})
	return updated, nil
}

// DeleteFolder removes a folder locally. Materials and child folders keep their references.
func (s *service) DeleteFolder(ctx context.Context, id string) error {
	online := s.isOnline()

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := storage.TxGetAs[models.Folder](tx, storage.NamespaceFolders, id); err != nil {
			return err
		}

		if err := tx.Delete(storage.NamespaceFolders, id); err != nil {
			return err
		}

		neverSent, err := s.queue.HasPendingCreateTx(tx, models.TableFolders, id)
		if err != nil {
			return err
		}
		if neverSent {
			_, err := s.queue.RemoveForEntityTx(tx, models.TableFolders, id)
			return err
		}

		if online {
			return nil
		}
		_, err = s.queue.EnqueueTx(ctx, tx, models.TableFolders, models.ActionDelete, map[string]string{"id": id})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", id, err)
	}

	s.publish(events.FolderDeleted{ID: id})
	return nil
}

// GetFolder returns a folder by id. Returns storage.ErrNotFound (wrapped) if absent.
func (s *service) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	f, err := storage.GetAs[models.Folder](ctx, s.store, storage.NamespaceFolders, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %s: %w", id, err)
	}
	return f, nil
}

// ListFolders returns all folders ordered by id
func (s *service) ListFolders(ctx context.Context) ([]models.Folder, error) {
	folders, err := storage.GetAllAs[models.Folder](ctx, s.store, storage.NamespaceFolders)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// ListChildFolders returns direct children of parentID; an empty parentID lists root folders.
func (s *service) ListChildFolders(ctx context.Context, parentID string) ([]models.Folder, error) {
	if parentID != "" {
		folders, err := storage.GetAllByIndexAs[models.Folder](ctx, s.store, storage.NamespaceFolders, "parent_folder_id", parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list child folders of %s: %w", parentID, err)
		}
		return folders, nil
	}

	// У корневых папок поле parent_folder_id отсутствует и не попадает в индекс
	all, err := s.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	roots := make([]models.Folder, 0, len(all))
	for _, f := range all {
		if f.ParentFolderID == "" {
			roots = append(roots, f)
		}
	}
	return roots, nil
}

// ListUnsyncedFolders returns folders not yet acknowledged by the server
func (s *service) ListUnsyncedFolders(ctx context.Context) ([]models.Folder, error) {
	folders, err := storage.GetAllByIndexAs[models.Folder](ctx, s.store, storage.NamespaceFolders, "synced", false)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced folders: %w", err)
	}
	return folders, nil
}

func validateFolder(f *models.Folder) error {
	if err := validation.ValidateID(f.ID); err != nil {
		return err
	}
	if err := validation.ValidateFolderName(f.Name); err != nil {
		return err
	}
	if f.ParentFolderID == "" {
		return nil
	}
	if err := validation.ValidateID(f.ParentFolderID); err != nil {
		return fmt.Errorf("parent_folder_id: %w", err)
	}
	if f.ParentFolderID == f.ID {
		return fmt.Errorf("%w: folder cannot be its own parent", validation.ErrInvalid)
	}
	return nil
}
