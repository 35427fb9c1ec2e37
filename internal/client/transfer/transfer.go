// Package transfer exports and imports the local data set and reports local statistics.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/internal/validation"
)

var (
	// ErrInvalidSnapshot indicates a malformed import document
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrUnsupportedVersion indicates a snapshot written by an unknown format version
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrEncrypted indicates that the document is an encrypted envelope and needs a passphrase
	ErrEncrypted = errors.New("snapshot is encrypted")
)

// Service performs bulk operations over the materials, folders and preferences namespaces.
type Service struct {
	store  storage.Store
	bus    *events.Bus
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a transfer service. A nil now uses time.Now.
func NewService(store storage.Store, bus *events.Bus, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		bus:    bus,
		now:    now,
		logger: logger,
	}
}

// Snapshot reads every material, folder and preference.
func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	materials, err := storage.GetAllAs[models.Material](ctx, s.store, storage.NamespaceMaterials)
	if err != nil {
		return nil, fmt.Errorf("failed to read materials: %w", err)
	}
	folders, err := storage.GetAllAs[models.Folder](ctx, s.store, storage.NamespaceFolders)
	if err != nil {
		return nil, fmt.Errorf("failed to read folders: %w", err)
	}
	prefs, err := storage.GetAllAs[models.Preference](ctx, s.store, storage.NamespacePreferences)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	return &models.Snapshot{
		Materials:   materials,
		Folders:     folders,
		Preferences: prefs,
		ExportedAt:  s.now().UTC().Format(time.RFC3339),
		Version:     models.SnapshotVersion,
	}, nil
}

// Export returns the snapshot as an indented JSON document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.logger.Info("Data exported",
		"materials", len(snap.Materials),
		"folders", len(snap.Folders),
		"preferences", len(snap.Preferences),
	)
	return data, nil
}

// Import replaces materials, folders and preferences with the content of blob.
// It reports false and leaves the store untouched when blob is malformed.
func (s *Service) Import(ctx context.Context, blob []byte) bool {
	if err := s.Replace(ctx, blob); err != nil {
		s.logger.Debug("Import rejected", "error", err)
		return false
	}
	return true
}

// Replace is Import with the failure reason.
// The mutation queue and cache are not touched.
func (s *Service) Replace(ctx context.Context, blob []byte) error {
	snap, err := parseSnapshot(blob)
	if err != nil {
		return err
	}

	err = s.store.Update(ctx, func(tx storage.Tx) error {
		for _, ns := range []storage.Namespace{
			storage.NamespaceMaterials,
			storage.NamespaceFolders,
			storage.NamespacePreferences,
		} {
			if err := tx.Clear(ns); err != nil {
				return err
			}
		}

		for i := range snap.Materials {
			if err := tx.Save(storage.NamespaceMaterials, &snap.Materials[i]); err != nil {
				return err
			}
		}
		for i := range snap.Folders {
			if err := tx.Save(storage.NamespaceFolders, &snap.Folders[i]); err != nil {
				return err
			}
		}
		for i := range snap.Preferences {
			if err := tx.Save(storage.NamespacePreferences, &snap.Preferences[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import snapshot: %w", err)
	}

	s.logger.Info("Data imported",
		"materials", len(snap.Materials),
		"folders", len(snap.Folders),
		"preferences", len(snap.Preferences),
	)
	s.publish(events.DataImported{
		Materials:   len(snap.Materials),
		Folders:     len(snap.Folders),
		Preferences: len(snap.Preferences),
	})

	return nil
}

// ClearAllData empties every namespace, including the mutation queue and the cache.
func (s *Service) ClearAllData(ctx context.Context) error {
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		for _, schema := range storage.Schemas {
			if err := tx.Clear(schema.Namespace); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}

	s.logger.Info("All local data cleared")
	s.publish(events.DataCleared{})
	return nil
}

// Stats recounts the namespaces on every call.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	var (
		stats models.Stats
		err   error
	)

	if stats.TotalMaterials, err = s.store.Count(ctx, storage.NamespaceMaterials); err != nil {
		return nil, fmt.Errorf("failed to count materials: %w", err)
	}
	if stats.UnsyncedMaterials, err = s.countUnsynced(ctx, storage.NamespaceMaterials); err != nil {
		return nil, err
	}
	if stats.TotalFolders, err = s.store.Count(ctx, storage.NamespaceFolders); err != nil {
		return nil, fmt.Errorf("failed to count folders: %w", err)
	}
	if stats.UnsyncedFolders, err = s.countUnsynced(ctx, storage.NamespaceFolders); err != nil {
		return nil, err
	}
	if stats.QueueSize, err = s.store.Count(ctx, storage.NamespaceQueue); err != nil {
		return nil, fmt.Errorf("failed to count queue: %w", err)
	}
	if stats.CacheSize, err = s.store.Count(ctx, storage.NamespaceCache); err != nil {
		return nil, fmt.Errorf("failed to count cache: %w", err)
	}

	return &stats, nil
}

func (s *Service) countUnsynced(ctx context.Context, ns storage.Namespace) (int, error) {
	raws, err := s.store.GetAllByIndex(ctx, ns, "synced", false)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced %s: %w", ns, err)
	}
	return len(raws), nil
}

func (s *Service) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// parseSnapshot декодирует и проверяет документ импорта целиком до любой записи
func parseSnapshot(blob []byte) (*models.Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(blob, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidSnapshot)
	}

	if enc, ok := fields["encrypted"]; ok && bytes.Equal(enc, []byte("true")) {
		return nil, ErrEncrypted
	}

	for _, name := range []string{"materials", "folders"} {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			return nil, fmt.Errorf("%w: %s collection is missing", ErrInvalidSnapshot, name)
		}
	}

	var snap models.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	if snap.Version != "" && snap.Version != models.SnapshotVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, snap.Version)
	}

	for i, m := range snap.Materials {
		if err := validation.ValidateID(m.ID); err != nil {
			return nil, fmt.Errorf("%w: material #%d: %w", ErrInvalidSnapshot, i, err)
		}
	}
	for i, f := range snap.Folders {
		if err := validation.ValidateID(f.ID); err != nil {
			return nil, fmt.Errorf("%w: folder #%d: %w", ErrInvalidSnapshot, i, err)
		}
	}
	for i, p := range snap.Preferences {
		if err := validation.ValidatePreferenceKey(p.Key); err != nil {
			return nil, fmt.Errorf("%w: preference #%d: %w", ErrInvalidSnapshot, i, err)
		}
	}

	return &snap, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
