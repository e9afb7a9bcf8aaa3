package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	logger "github.com/garmin-mcp/garmin-secrets/internal/logging"
	"github.com/garmin-mcp/garmin-secrets/internal/utils"
)

// Records stores JSON values as encrypted files in one directory.
type Records struct {
	dir   string
	keys  *KeyManager
	log   logger.Logger
	audit *audit.Trail
}

func NewRecords(dir string, keys *KeyManager, log logger.Logger, trail *audit.Trail) *Records {
	return &Records{dir: dir, keys: keys, log: log, audit: trail}
}

// Path returns the absolute path of a record file.
func (r *Records) Path(filename string) string {
	return filepath.Join(r.dir, filename)
}

// Save encrypts v and replaces the record atomically.
func (r *Records) Save(ctx context.Context, filename string, v any) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	defer Zero(plaintext)

	key, err := r.keys.Key(ctx)
	if err != nil {
		return err
	}

	env, err := Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", filename, err)
	}
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode envelope for %s: %w", filename, err)
	}

	if err := os.MkdirAll(r.dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.dir, err)
	}
	path := r.Path(filename)
	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return err
	}

	r.log.Infof("Data encrypted and saved to: %s", path)
	r.audit.Log(audit.Entry{Operation: audit.OpSave, Record: filename})
	return nil
}

// Load decrypts the record into v. It returns false when the record is
// absent or cannot be opened; the cause is logged. Only key unavailability
// and unexpected read errors are returned.
func (r *Records) Load(ctx context.Context, filename string, v any) (bool, error) {
	data, found, err := r.read(filename)
	if err != nil || !found {
		return false, err
	}

	key, err := r.keys.Key(ctx)
	if err != nil {
		return false, err
	}

	if err := openRecord(data, key, v); err != nil {
		r.log.WarnfAlways("Failed to decrypt %s: %v", filename, err)
		return false, nil
	}
	return true, nil
}

// Inspect opens the record without keeping the result and returns whatever
// went wrong, or nil if it decrypts to valid JSON.
func (r *Records) Inspect(ctx context.Context, filename string) error {
	data, found, err := r.read(filename)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", filename, os.ErrNotExist)
	}

	key, err := r.keys.Key(ctx)
	if err != nil {
		return err
	}

	var raw json.RawMessage
	return openRecord(data, key, &raw)
}

func (r *Records) Exists(filename string) bool {
	exists, err := utils.FileExists(r.Path(filename))
	return err == nil && exists
}

// Delete removes the record. A missing record is not an error.
func (r *Records) Delete(filename string) error {
	err := os.Remove(r.Path(filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}

	r.log.Infof("Deleted %s", filename)
	r.audit.Log(audit.Entry{Operation: audit.OpDelete, Record: filename})
	return nil
}

func (r *Records) read(filename string) ([]byte, bool, error) {
	data, err := os.ReadFile(r.Path(filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, true, nil
}

func openRecord(data []byte, key EncryptionKey, v any) error {
	env, err := ParseEnvelope(data)
	if err != nil {
		return err
	}

	plaintext, err := Decrypt(env, key)
	if err != nil {
		return err
	}
	defer Zero(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: decrypted content is not valid JSON: %v", kerrors.ErrInvalidEnvelope, err)
	}
	return nil
}

// RecordStore is a typed view over one record file.
type RecordStore[T any] struct {
	records  *Records
	filename string
}

func NewRecordStore[T any](records *Records, filename string) *RecordStore[T] {
	return &RecordStore[T]{records: records, filename: filename}
}

func (s *RecordStore[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return fmt.Errorf("failed to encode %s: %w", s.filename, kerrors.ErrNilRecord)
	}
	return s.records.Save(ctx, s.filename, v)
}

// Load returns nil when the record is absent or unreadable.
func (s *RecordStore[T]) Load(ctx context.Context) (*T, error) {
	var v T
	found, err := s.records.Load(ctx, s.filename, &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

func (s *RecordStore[T]) Exists() bool {
	return s.records.Exists(s.filename)
}

func (s *RecordStore[T]) Delete() error {
	return s.records.Delete(s.filename)
}

func (s *RecordStore[T]) Filename() string {
	return s.filename
}
