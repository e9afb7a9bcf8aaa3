package workflows

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	logger "github.com/garmin-mcp/garmin-secrets/internal/logging"
	"github.com/garmin-mcp/garmin-secrets/internal/vault"
)

type fakeVault struct {
	mu    sync.Mutex
	items map[string]string
}

func newFakeVault() *fakeVault {
	return &fakeVault{items: make(map[string]string)}
}

func (v *fakeVault) Available() bool { return true }

func (v *fakeVault) Name() string { return "fake" }

func (v *fakeVault) Get(service, account string) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	secret, ok := v.items[service+"/"+account]
	return secret, ok, nil
}

func (v *fakeVault) Set(service, account, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items[service+"/"+account] = secret
	return nil
}

func (v *fakeVault) Delete(service, account string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.items, service+"/"+account)
	return nil
}

func (v *fakeVault) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

var _ vault.Vault = (*fakeVault)(nil)

// noVault stands in for a platform without a native credential store.
var noVault = vault.Unavailable{Reason: "test"}

// newTestService returns a service over dir. Tests must always pass a
// vault so the real OS keychain is never touched.
func newTestService(t *testing.T, dir string, v vault.Vault) *Service {
	t.Helper()
	t.Setenv("GARMIN_MCP_KEY_BACKEND", "")

	svc, err := New(Options{
		DataDir: dir,
		Logger:  logger.Logger{Out: io.Discard},
		Vault:   v,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return svc
}

// newDataDir returns an existing, owner-only data directory. t.TempDir
// itself follows the process umask and is usually group-readable.
func newDataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "garmin-mcp")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Failed to create data directory: %v", err)
	}
	return dir
}
