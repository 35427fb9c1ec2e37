package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, a, SaltSize)

	b, err := GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "соли должны различаться")
}

func TestDeriveKey(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)

	tests := []struct {
		wantErr    error
		name       string
		passphrase string
		salt       []byte
	}{
		{name: "ok", passphrase: "correct horse battery", salt: salt},
		{name: "empty passphrase", passphrase: "", salt: salt, wantErr: ErrEmptyPassphrase},
		{name: "short salt", passphrase: "correct horse battery", salt: salt[:16], wantErr: ErrInvalidSalt},
		{name: "nil salt", passphrase: "correct horse battery", salt: nil, wantErr: ErrInvalidSalt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.passphrase, tt.salt)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, key)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, KeySize)
		})
	}
}

func TestDeriveKey_Determinism(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltSize)
	otherSalt := bytes.Repeat([]byte{2}, SaltSize)

	k1, err := DeriveKey("passphrase-one", salt)
	require.NoError(t, err)
	k2, err := DeriveKey("passphrase-one", salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveKey("passphrase-two", salt)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := DeriveKey("passphrase-one", otherSalt)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestSealOpen(t *testing.T) {
	key := bytes.Repeat([]byte{9}, KeySize)
	plaintext := []byte(`{"materials":[],"folders":[]}`)
	aad := []byte("1.0")

	sealed, err := Seal(plaintext, key, aad)
	require.NoError(t, err)
	assert.Len(t, sealed, NonceSize+len(plaintext)+16)

	got, err := Open(sealed, key, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	// Два шифрования одного текста различаются из-за nonce
	again, err := Seal(plaintext, key, aad)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestOpen_Failures(t *testing.T) {
	key := bytes.Repeat([]byte{9}, KeySize)
	wrongKey := bytes.Repeat([]byte{8}, KeySize)

	sealed, err := Seal([]byte("secret"), key, nil)
	require.NoError(t, err)

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name   string
		sealed []byte
		key    []byte
		aad    []byte
	}{
		{name: "wrong key", sealed: sealed, key: wrongKey},
		{name: "tampered", sealed: tampered, key: key},
		{name: "other aad", sealed: sealed, key: key, aad: []byte("2.0")},
		{name: "too short", sealed: sealed[:NonceSize], key: key},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.sealed, tt.key, tt.aad)
			assert.True(t, errors.Is(err, ErrDecrypt), "got %v", err)
		})
	}
}

func TestSeal_InvalidInput(t *testing.T) {
	_, err := Seal(nil, bytes.Repeat([]byte{1}, KeySize), nil)
	assert.Error(t, err)

	_, err = Seal([]byte("x"), []byte("short"), nil)
	assert.ErrorContains(t, err, "encryption key must be 32 bytes")
}
