package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

const (
	keySize   = 32
	keyIDSize = 8
	keyIDInfo = "garmin-mcp/key-id/v1"
)

// EncryptionKey is the 64 character hex form of a 256-bit key.
type EncryptionKey string

// GenerateKey returns a new random key.
func GenerateKey() (EncryptionKey, error) {
	return generateKey(rand.Reader)
}

func generateKey(r io.Reader) (EncryptionKey, error) {
	raw := make([]byte, keySize)
	defer Zero(raw)

	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return EncryptionKey(hex.EncodeToString(raw)), nil
}

// Bytes decodes the key. The caller should Zero the result when done.
func (k EncryptionKey) Bytes() ([]byte, error) {
	if len(k) != 2*keySize {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d", kerrors.ErrInvalidKey, 2*keySize, len(k))
	}
	raw, err := hex.DecodeString(string(k))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidKey, err)
	}
	return raw, nil
}

// Validate reports whether the key is well formed.
func (k EncryptionKey) Validate() error {
	raw, err := k.Bytes()
	Zero(raw)
	return err
}

// KeyID returns a short public identifier for the key. It reveals nothing
// about the key itself.
func KeyID(k EncryptionKey) (string, error) {
	raw, err := k.Bytes()
	if err != nil {
		return "", err
	}
	defer Zero(raw)

	id := make([]byte, keyIDSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, []byte(keyIDInfo)), id); err != nil {
		return "", fmt.Errorf("failed to derive key id: %w", err)
	}
	return hex.EncodeToString(id), nil
}

// Zero overwrites b.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
