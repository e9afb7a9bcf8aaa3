package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/garmin-mcp/garmin-secrets/internal/utils"
)

// FileKeyBackend keeps the key in a single owner-only file. It is the
// fallback when no native vault is usable.
type FileKeyBackend struct {
	Path string
}

func NewFileKeyBackend(path string) *FileKeyBackend {
	return &FileKeyBackend{Path: path}
}

// Load returns the trimmed file content. The format is checked when the key
// is used, not here.
func (b *FileKeyBackend) Load() (EncryptionKey, bool, error) {
	data, err := os.ReadFile(b.Path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key file %s: %w", b.Path, err)
	}
	return EncryptionKey(strings.TrimSpace(string(data))), true, nil
}

// Save writes the key with mode 0600, creating the parent directory 0700.
func (b *FileKeyBackend) Save(key EncryptionKey) error {
	if err := os.MkdirAll(filepath.Dir(b.Path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := utils.WriteFileAtomic(b.Path, []byte(key), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Delete removes the key file. A missing file is not an error.
func (b *FileKeyBackend) Delete() error {
	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove key file %s: %w", b.Path, err)
	}
	return nil
}

func (b *FileKeyBackend) Exists() bool {
	exists, err := utils.FileExists(b.Path)
	return err == nil && exists
}
