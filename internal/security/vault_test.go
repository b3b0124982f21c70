package security

import (
	"encoding/base64"
	"testing"

	"github.com/petshopone/fiscal-service/internal/config"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) Vault {
	t.Helper()
	cfg := config.GetDefaultConfig()
	key, err := GenerateRandomKey()
	require.NoError(t, err)
	cfg.Secrets.EncryptionKey = key

	vault, err := NewVault(cfg, logger.NewNoOpLogger())
	require.NoError(t, err)
	return vault
}

func TestVaultRoundTrip(t *testing.T) {
	vault := newTestVault(t)

	plaintext := "certificate-password-123"
	token, err := vault.Encrypt(plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotEqual(t, plaintext, token)

	decrypted, err := vault.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestVaultEncryptIsNonDeterministic(t *testing.T) {
	vault := newTestVault(t)

	first, err := vault.Encrypt("same input")
	require.NoError(t, err)
	second, err := vault.Encrypt("same input")
	require.NoError(t, err)

	// Random nonce means identical plaintexts produce distinct tokens
	assert.NotEqual(t, first, second)
}

func TestVaultEmptyValues(t *testing.T) {
	vault := newTestVault(t)

	token, err := vault.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, token)

	plaintext, err := vault.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)

	assert.Empty(t, vault.Hash(""))
}

func TestVaultDecryptTamperedToken(t *testing.T) {
	vault := newTestVault(t)

	token, err := vault.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = vault.Decrypt(tampered)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidToken(err))
}

func TestVaultDecryptGarbage(t *testing.T) {
	vault := newTestVault(t)

	_, err := vault.Decrypt("not base64 at all!!!")
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidToken(err))

	_, err = vault.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidToken(err))
}

func TestVaultDecryptWithDifferentKey(t *testing.T) {
	first := newTestVault(t)
	second := newTestVault(t)

	token, err := first.Encrypt("secret")
	require.NoError(t, err)

	_, err = second.Decrypt(token)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidToken(err))
}

func TestVaultDerivedKeyFallback(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Secrets.EncryptionKey = ""
	cfg.Secrets.AppSecret = "app-level-secret"

	vault, err := NewVault(cfg, logger.NewNoOpLogger())
	require.NoError(t, err)

	token, err := vault.Encrypt("value")
	require.NoError(t, err)

	// Same secret derives the same key, so a second vault can decrypt
	other, err := NewVault(cfg, logger.NewNoOpLogger())
	require.NoError(t, err)
	decrypted, err := other.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "value", decrypted)
}

func TestVaultRejectsBadKeyMaterial(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Secrets.EncryptionKey = "not-base64!!!"
	cfg.Secrets.AppSecret = ""
	_, err := NewVault(cfg, logger.NewNoOpLogger())
	require.Error(t, err)

	cfg.Secrets.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewVault(cfg, logger.NewNoOpLogger())
	require.Error(t, err)

	cfg.Secrets.EncryptionKey = ""
	_, err = NewVault(cfg, logger.NewNoOpLogger())
	require.Error(t, err)
}

func TestVaultHash(t *testing.T) {
	vault := newTestVault(t)

	hash := vault.Hash("some xml content")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, vault.Hash("some xml content"))
	assert.NotEqual(t, hash, vault.Hash("other content"))
}

func TestVaultBytesRoundTrip(t *testing.T) {
	vault := newTestVault(t)

	payload := []byte{0x30, 0x82, 0x01, 0x00, 0xFF, 0x00}
	token, err := vault.EncryptBytes(payload)
	require.NoError(t, err)

	decrypted, err := vault.DecryptBytes(token)
	require.NoError(t, err)
	assert.Equal(t, payload, decrypted)
}
