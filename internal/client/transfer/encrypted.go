package transfer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/iudanet/matsync/internal/crypto"
	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/internal/validation"
)

// ExportEncrypted seals the export document with a key derived from passphrase.
func (s *Service) ExportEncrypted(ctx context.Context, passphrase string) ([]byte, error) {
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return nil, err
	}

	plain, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive export key: %w", err)
	}

	// Версия конверта аутентифицируется вместе с payload
	sealed, err := crypto.Seal(plain, key, []byte(models.SnapshotVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	envelope := models.EncryptedSnapshot{
		Version:   models.SnapshotVersion,
		Encrypted: true,
		KDF:       crypto.KDFName,
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Payload:   base64.StdEncoding.EncodeToString(sealed),
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// ImportEncrypted opens an envelope written by ExportEncrypted and imports its content.
// A wrong passphrase returns crypto.ErrDecrypt and leaves the store untouched.
func (s *Service) ImportEncrypted(ctx context.Context, blob []byte, passphrase string) error {
	var envelope models.EncryptedSnapshot
	if err := json.Unmarshal(blob, &envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if !envelope.Encrypted {
		return fmt.Errorf("%w: not an encrypted envelope", ErrInvalidSnapshot)
	}
	if envelope.Version != models.SnapshotVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, envelope.Version)
	}
	if envelope.KDF != crypto.KDFName {
		return fmt.Errorf("%w: unknown kdf %q", ErrInvalidSnapshot, envelope.KDF)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return fmt.Errorf("%w: salt: %w", ErrInvalidSnapshot, err)
	}
	sealed, err := base64.StdEncoding.DecodeString(envelope.Payload)
	if err != nil {
		return fmt.Errorf("%w: payload: %w", ErrInvalidSnapshot, err)
	}

	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return fmt.Errorf("failed to derive export key: %w", err)
	}

	plain, err := crypto.Open(sealed, key, []byte(envelope.Version))
	if err != nil {
		return err
	}

	return s.Replace(ctx, plain)
}
