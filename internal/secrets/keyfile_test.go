package secrets

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileKeyBackendLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".encryption.key")
	backend := NewFileKeyBackend(path)

	if backend.Exists() {
		t.Fatal("Expected no key file yet")
	}
	if _, found, err := backend.Load(); err != nil || found {
		t.Fatalf("Expected absent key, got found=%v err=%v", found, err)
	}

	key := mustKey(t)
	if err := backend.Save(key); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Failed to stat key file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("Expected key file permissions 0600, got %o", info.Mode().Perm())
		}
		dirInfo, err := os.Stat(filepath.Dir(path))
		if err != nil {
			t.Fatalf("Failed to stat key dir: %v", err)
		}
		if dirInfo.Mode().Perm() != 0700 {
			t.Errorf("Expected key dir permissions 0700, got %o", dirInfo.Mode().Perm())
		}
	}

	loaded, found, err := backend.Load()
	if err != nil || !found {
		t.Fatalf("Expected key, got found=%v err=%v", found, err)
	}
	if loaded != key {
		t.Errorf("Expected %q, got %q", key, loaded)
	}

	if err := backend.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if backend.Exists() {
		t.Error("Expected key file to be removed")
	}
	if err := backend.Delete(); err != nil {
		t.Errorf("Expected deleting a missing key file to succeed, got %v", err)
	}
}

func TestFileKeyBackendTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".encryption.key")
	key := mustKey(t)
	if err := os.WriteFile(path, []byte("  "+string(key)+"\n"), 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}

	loaded, found, err := NewFileKeyBackend(path).Load()
	if err != nil || !found {
		t.Fatalf("Expected key, got found=%v err=%v", found, err)
	}
	if loaded != key {
		t.Errorf("Expected trimmed key %q, got %q", key, loaded)
	}
}

func TestFileKeyBackendLoadDoesNotValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".encryption.key")
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}

	loaded, found, err := NewFileKeyBackend(path).Load()
	if err != nil || !found {
		t.Fatalf("Expected content to load, got found=%v err=%v", found, err)
	}
	if loaded != "garbage" {
		t.Errorf("Expected raw content, got %q", loaded)
	}
}
