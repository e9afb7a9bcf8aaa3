package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	logger "github.com/garmin-mcp/garmin-secrets/internal/logging"
	"github.com/garmin-mcp/garmin-secrets/internal/vault"
)

// Backend names where the active key lives.
type Backend string

const (
	BackendNone  Backend = "none"
	BackendVault Backend = "vault"
	BackendFile  Backend = "file"
)

const lockRetryDelay = 50 * time.Millisecond

type KeyManagerOptions struct {
	Vault   vault.Vault
	Service string
	Account string

	// File is the fallback store. Required.
	File *FileKeyBackend

	// LockPath guards key generation across processes. Empty disables locking.
	LockPath string

	Logger logger.Logger
	Audit  *audit.Trail
}

// KeyManager resolves the installation's encryption key once and caches it.
type KeyManager struct {
	vault   vault.Vault
	service string
	account string
	file    *FileKeyBackend
	lock    string
	log     logger.Logger
	audit   *audit.Trail

	group singleflight.Group

	mu      sync.Mutex
	key     EncryptionKey
	backend Backend

	// generate is swapped in tests.
	generate func() (EncryptionKey, error)
}

func NewKeyManager(opts KeyManagerOptions) *KeyManager {
	v := opts.Vault
	if v == nil {
		v = vault.Unavailable{Reason: "not configured"}
	}
	return &KeyManager{
		vault:    v,
		service:  opts.Service,
		account:  opts.Account,
		file:     opts.File,
		lock:     opts.LockPath,
		log:      opts.Logger,
		audit:    opts.Audit,
		backend:  BackendNone,
		generate: GenerateKey,
	}
}

// Key returns the active key, loading or generating it on first use.
// Concurrent callers share one resolution. It runs detached from any one
// caller's context, so a caller that gives up does not fail the others.
func (m *KeyManager) Key(ctx context.Context) (EncryptionKey, error) {
	if key, ok := m.cached(); ok {
		return key, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan("key", func() (any, error) {
		if key, ok := m.cached(); ok {
			return key, nil
		}

		key, backend, err := m.resolve(shared)
		if err != nil {
			return nil, err
		}

		m.adopt(key, backend)
		return key, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(EncryptionKey), nil
	}
}

// Backend reports where the active key lives, or BackendNone before it is loaded.
func (m *KeyManager) Backend() Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}

func (m *KeyManager) Loaded() bool {
	_, ok := m.cached()
	return ok
}

// KeyID returns the identifier of the active key, or "" before it is loaded.
func (m *KeyManager) KeyID() string {
	key, ok := m.cached()
	if !ok {
		return ""
	}
	id, err := KeyID(key)
	if err != nil {
		return ""
	}
	return id
}

// Vault returns the vault the manager reads keys from.
func (m *KeyManager) Vault() vault.Vault {
	return m.vault
}

// Peek reports which backend holds a key without generating one. Vault
// errors count as "not in the vault".
func (m *KeyManager) Peek(ctx context.Context) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return BackendNone, err
	}
	if m.Loaded() {
		return m.Backend(), nil
	}

	if m.vault.Available() {
		_, found, err := m.vault.Get(m.service, m.account)
		if err != nil {
			m.log.Debugf("Vault lookup failed: %v", err)
		} else if found {
			return BackendVault, nil
		}
	}

	if m.file.Exists() {
		return BackendFile, nil
	}
	return BackendNone, nil
}

func (m *KeyManager) cached() (EncryptionKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key, m.backend != BackendNone
}

func (m *KeyManager) adopt(key EncryptionKey, backend Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	m.backend = backend
}

func (m *KeyManager) resolve(ctx context.Context) (EncryptionKey, Backend, error) {
	key, backend, err := m.lookup()
	if err != nil || backend != BackendNone {
		return key, backend, err
	}

	unlock, err := m.acquire(ctx)
	if err != nil {
		return "", BackendNone, err
	}
	defer unlock()

	// Another process may have generated a key while we waited.
	key, backend, err = m.lookup()
	if err != nil || backend != BackendNone {
		return key, backend, err
	}

	key, err = m.generate()
	if err != nil {
		return "", BackendNone, fmt.Errorf("%w: %w", kerrors.ErrKeyUnavailable, err)
	}
	m.log.Infof("Generated new encryption key")

	backend, err = m.persist(key)
	if err != nil {
		return "", BackendNone, err
	}

	m.audit.Log(audit.Entry{Operation: audit.OpKeyGenerate, Backend: string(backend)})
	return key, backend, nil
}

// lookup looks for an existing key, vault first. Vault errors fall through to
// the file. A key file that exists but cannot be read is fatal, since
// generating a replacement would orphan every record.
func (m *KeyManager) lookup() (EncryptionKey, Backend, error) {
	if m.vault.Available() {
		secret, found, err := m.vault.Get(m.service, m.account)
		switch {
		case err != nil:
			m.log.Warnf("Failed to access native vault, trying key file: %v", err)
		case found:
			m.log.Infof("Encryption key loaded from native vault")
			return EncryptionKey(strings.TrimSpace(secret)), BackendVault, nil
		}
	}

	key, found, err := m.file.Load()
	if err != nil {
		return "", BackendNone, fmt.Errorf("%w: %w", kerrors.ErrKeyUnavailable, err)
	}
	if found {
		m.log.Infof("Encryption key loaded from key file")
		return key, BackendFile, nil
	}

	return "", BackendNone, nil
}

// persist stores a new key in the vault if possible and in the key file otherwise.
func (m *KeyManager) persist(key EncryptionKey) (Backend, error) {
	if m.vault.Available() {
		err := m.storeInVault(key)
		if err == nil {
			m.log.Infof("Encryption key saved to native vault")
			return BackendVault, nil
		}
		m.log.Warnf("Failed to save key to native vault, using key file: %v", err)
	}

	if err := m.file.Save(key); err != nil {
		return BackendNone, fmt.Errorf("%w: %w", kerrors.ErrKeyUnavailable, err)
	}
	m.log.Infof("Encryption key saved to key file: %s", m.file.Path)
	return BackendFile, nil
}

// storeInVault writes the key and reads it back. A write that cannot be
// confirmed is removed again.
func (m *KeyManager) storeInVault(key EncryptionKey) error {
	if err := m.vault.Set(m.service, m.account, string(key)); err != nil {
		return err
	}

	stored, found, err := m.vault.Get(m.service, m.account)
	if err == nil && found && EncryptionKey(strings.TrimSpace(stored)) == key {
		return nil
	}

	if delErr := m.vault.Delete(m.service, m.account); delErr != nil {
		m.log.Debugf("Failed to remove unconfirmed vault entry: %v", delErr)
	}
	if err != nil {
		return fmt.Errorf("failed to confirm vault write: %w", err)
	}
	return fmt.Errorf("%w: vault write could not be read back", kerrors.ErrVaultAccessDenied)
}

// acquire takes the cross-process lock. The returned func releases it.
func (m *KeyManager) acquire(ctx context.Context) (func(), error) {
	if m.lock == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(m.lock), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fileLock := flock.New(m.lock)
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// Locking is advisory. Some filesystems do not support it.
		m.log.Warnf("Could not lock %s, continuing without it: %v", m.lock, err)
		return func() {}, nil
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s", m.lock)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			m.log.Debugf("Failed to unlock %s: %v", m.lock, err)
		}
	}, nil
}
