package secrets

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/garmin-mcp/garmin-secrets/internal/configs"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	logger "github.com/garmin-mcp/garmin-secrets/internal/logging"
)

const (
	testService = configs.DefaultVaultService
	testAccount = configs.DefaultVaultAccount
)

// memVault is an in-memory vault with switchable failures.
type memVault struct {
	mu      sync.Mutex
	items   map[string]string
	failGet bool
	failSet bool
	// dropSets accepts writes but never stores them.
	dropSets bool
	sets     int
}

func newMemVault() *memVault {
	return &memVault{items: make(map[string]string)}
}

func (v *memVault) Available() bool { return true }

func (v *memVault) Name() string { return "memory" }

func (v *memVault) Get(service, account string) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failGet {
		return "", false, kerrors.ErrVaultAccessDenied
	}
	secret, ok := v.items[service+"/"+account]
	return secret, ok, nil
}

func (v *memVault) Set(service, account, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sets++
	if v.failSet {
		return errors.New("user denied access")
	}
	if !v.dropSets {
		v.items[service+"/"+account] = secret
	}
	return nil
}

func (v *memVault) Delete(service, account string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.items, service+"/"+account)
	return nil
}

func (v *memVault) stored() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	secret, ok := v.items[testService+"/"+testAccount]
	return secret, ok
}

// newTestManager builds a manager over dir. A nil vault means "no vault".
func newTestManager(t *testing.T, dir string, v *memVault) *KeyManager {
	t.Helper()

	opts := KeyManagerOptions{
		Service:  testService,
		Account:  testAccount,
		File:     NewFileKeyBackend(filepath.Join(dir, configs.KeyFileName)),
		LockPath: filepath.Join(dir, configs.LockFileName),
		Logger:   logger.Logger{Out: io.Discard},
	}
	if v != nil {
		opts.Vault = v
	}
	return NewKeyManager(opts)
}

func newTestRecords(t *testing.T, dir string, keys *KeyManager) *Records {
	t.Helper()
	return NewRecords(dir, keys, logger.Logger{Out: io.Discard}, nil)
}

func mustKey(t *testing.T) EncryptionKey {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return key
}
