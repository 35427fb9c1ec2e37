package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/internal/validation"
)

// SetPreference stores value under key. Last write wins; preferences are never queued.
func (s *service) SetPreference(ctx context.Context, key string, value any) (*models.Preference, error) {
	if err := validation.ValidatePreferenceKey(key); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: preference value is not valid JSON", validation.ErrInvalid)
		}
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal preference value: %w", err)
		}
		raw = data
	}

	pref := &models.Preference{
		Key:       key,
		Value:     raw,
		Timestamp: s.now().UnixMilli(),
	}

	if err := s.store.Save(ctx, storage.NamespacePreferences, pref); err != nil {
		return nil, fmt.Errorf("failed to save preference %s: %w", key, err)
	}

	return pref, nil
}

// GetPreference returns a preference by key. Returns storage.ErrNotFound (wrapped) if absent.
func (s *service) GetPreference(ctx context.Context, key string) (*models.Preference, error) {
	pref, err := storage.GetAs[models.Preference](ctx, s.store, storage.NamespacePreferences, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return pref, nil
}

// ListPreferences returns all preferences ordered by key
func (s *service) ListPreferences(ctx context.Context) ([]models.Preference, error) {
	prefs, err := storage.GetAllAs[models.Preference](ctx, s.store, storage.NamespacePreferences)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}

// DeletePreference removes a preference. Removing a missing key is not an error.
func (s *service) DeletePreference(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, storage.NamespacePreferences, key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}
