package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/petshopone/fiscal-service/internal/config"
	"github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters used when no explicit encryption key is
// configured. Changing either invalidates every stored token.
const (
	derivationIterations = 480000
	derivationSalt       = "petshop_fiscal_v1"
)

// Vault encrypts and decrypts tenant certificate credentials at rest.
// Tokens are opaque base64 strings; callers never see key material.
type Vault interface {
	// Encrypt encrypts plaintext using AES-GCM
	Encrypt(plaintext string) (string, error)

	// Decrypt decrypts a token produced by Encrypt
	Decrypt(token string) (string, error)

	// EncryptBytes encrypts a raw byte payload such as a PFX file
	EncryptBytes(plaintext []byte) (string, error)

	// DecryptBytes decrypts a token back into its raw byte payload
	DecryptBytes(token string) ([]byte, error)

	// Hash creates a one-way hash of the input value using SHA-256
	Hash(value string) string
}

type aesVault struct {
	key    []byte
	logger *logger.Logger
}

// NewVault builds a vault from the configured key material. A base64
// encoded 32 byte Secrets.EncryptionKey is used directly; otherwise the
// key is derived from Secrets.AppSecret with PBKDF2-SHA256.
func NewVault(cfg *config.Configuration, logger *logger.Logger) (Vault, error) {
	key, err := keyFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &aesVault{
		key:    key,
		logger: logger,
	}, nil
}

func keyFromConfig(cfg *config.Configuration, logger *logger.Logger) ([]byte, error) {
	if cfg.Secrets.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Secrets.EncryptionKey)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSystemError, "encryption key is not valid base64")
		}
		if len(key) != 32 {
			return nil, errors.New(errors.ErrCodeSystemError,
				fmt.Sprintf("encryption key must decode to 32 bytes, got %d", len(key)))
		}
		return key, nil
	}

	if cfg.Secrets.AppSecret == "" {
		return nil, errors.New(errors.ErrCodeSystemError, "no encryption key material configured")
	}

	logger.Warnw("deriving vault key from app secret, set secrets.encryption_key in production")
	key := pbkdf2.Key([]byte(cfg.Secrets.AppSecret), []byte(derivationSalt), derivationIterations, 32, sha256.New)
	return key, nil
}

// Encrypt encrypts plaintext using AES-GCM and returns base64-encoded ciphertext
func (v *aesVault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return v.EncryptBytes([]byte(plaintext))
}

// Decrypt decrypts base64-encoded ciphertext using AES-GCM
func (v *aesVault) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	plaintext, err := v.DecryptBytes(token)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (v *aesVault) EncryptBytes(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSystemError, "failed to create cipher block")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSystemError, "failed to create GCM")
	}

	// Nonce is prepended to the sealed payload
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSystemError, "failed to generate nonce")
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (v *aesVault) DecryptBytes(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ierrInvalidToken(err, "token is not valid base64")
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSystemError, "failed to create cipher block")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSystemError, "failed to create GCM")
	}

	nonceSize := gcm.NonceSize()
	if len(decoded) < nonceSize {
		return nil, ierrInvalidToken(nil, "token too short")
	}

	nonce, ciphertext := decoded[:nonceSize], decoded[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Wrong key or tampered payload; callers must be able to tell
		// this apart from missing configuration.
		return nil, ierrInvalidToken(err, "failed to decrypt token")
	}

	return plaintext, nil
}

func ierrInvalidToken(err error, msg string) error {
	builder := errors.NewError(msg)
	if err != nil {
		builder = errors.WithError(err).WithMessage(msg)
	}
	return builder.
		WithHint("Stored credential could not be decrypted, it may have been written with a different key").
		Mark(errors.ErrInvalidToken)
}

// Hash creates a one-way hash of the input value using SHA-256
func (v *aesVault) Hash(value string) string {
	if value == "" {
		return ""
	}

	hasher := sha256.New()
	hasher.Write([]byte(value))
	return hex.EncodeToString(hasher.Sum(nil))
}

// GenerateRandomKey generates a random 32-byte key for AES-256,
// base64 encoded for direct use as secrets.encryption_key
func GenerateRandomKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
