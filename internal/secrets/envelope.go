package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

const (
	ivSize  = 12
	tagSize = 16
)

// Envelope is one encrypted record as stored on disk. The JSON field names
// are fixed; []byte fields encode as standard base64.
type Envelope struct {
	IV      []byte `json:"iv"`
	AuthTag []byte `json:"authTag"`
	Data    []byte `json:"data"`
	KeyID   string `json:"kid,omitempty"`
}

// ParseEnvelope decodes the on-disk JSON form. Malformed JSON or base64
// yields an error matching both ErrInvalidEnvelope and ErrCipher.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", kerrors.ErrCipher, kerrors.ErrInvalidEnvelope, err)
	}
	return &env, nil
}

// Marshal encodes the envelope to its on-disk JSON form.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Encrypt seals plaintext under key with a fresh random IV.
func Encrypt(plaintext []byte, key EncryptionKey) (*Envelope, error) {
	return encrypt(rand.Reader, plaintext, key)
}

func encrypt(r io.Reader, plaintext []byte, key EncryptionKey) (*Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	kid, err := KeyID(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(r, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - tagSize

	return &Envelope{
		IV:      iv,
		AuthTag: sealed[split:],
		Data:    sealed[:split],
		KeyID:   kid,
	}, nil
}

// Decrypt opens env under key. Any failure returns nil plaintext and an
// error matching ErrCipher. When the envelope names a different key the
// error also matches ErrKeyMismatch.
func Decrypt(env *Envelope, key EncryptionKey) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", kerrors.ErrCipher)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrCipher, err)
	}

	if len(env.IV) != ivSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", kerrors.ErrCipher, ivSize, len(env.IV))
	}
	if len(env.AuthTag) != tagSize {
		return nil, fmt.Errorf("%w: auth tag must be %d bytes, got %d", kerrors.ErrCipher, tagSize, len(env.AuthTag))
	}

	sealed := make([]byte, 0, len(env.Data)+tagSize)
	sealed = append(sealed, env.Data...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := gcm.Open(nil, env.IV, sealed, nil)
	if err != nil {
		if env.KeyID != "" {
			if kid, kidErr := KeyID(key); kidErr == nil && kid != env.KeyID {
				return nil, fmt.Errorf("%w: %w: envelope key %s, active key %s", kerrors.ErrCipher, kerrors.ErrKeyMismatch, env.KeyID, kid)
			}
		}
		return nil, fmt.Errorf("%w: %v", kerrors.ErrCipher, err)
	}

	return plaintext, nil
}

func newGCM(key EncryptionKey) (cipher.AEAD, error) {
	raw, err := key.Bytes()
	if err != nil {
		return nil, err
	}
	defer Zero(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
