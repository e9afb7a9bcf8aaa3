package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/garmin-mcp/garmin-secrets/internal/configs"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

func TestKeyManagerPrefersVault(t *testing.T) {
	dir := t.TempDir()
	v := newMemVault()
	vaultKey := mustKey(t)
	fileKey := mustKey(t)
	v.items[testService+"/"+testAccount] = string(vaultKey)
	if err := NewFileKeyBackend(filepath.Join(dir, configs.KeyFileName)).Save(fileKey); err != nil {
		t.Fatalf("Failed to seed key file: %v", err)
	}

	km := newTestManager(t, dir, v)
	key, err := km.Key(context.Background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}

	if key != vaultKey {
		t.Errorf("Expected vault key, got file key")
	}
	if km.Backend() != BackendVault {
		t.Errorf("Expected backend %q, got %q", BackendVault, km.Backend())
	}
}

func TestKeyManagerFallsBackToFile(t *testing.T) {
	dir := t.TempDir()

	first := newTestManager(t, dir, nil)
	key, err := first.Key(context.Background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if first.Backend() != BackendFile {
		t.Errorf("Expected backend %q, got %q", BackendFile, first.Backend())
	}
	if err := key.Validate(); err != nil {
		t.Errorf("Generated key is invalid: %v", err)
	}

	// A second run loads the same key.
	second := newTestManager(t, dir, nil)
	again, err := second.Key(context.Background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if again != key {
		t.Error("Expected the persisted key to be reused")
	}
}

func TestKeyManagerGeneratesIntoVault(t *testing.T) {
	dir := t.TempDir()
	v := newMemVault()

	km := newTestManager(t, dir, v)
	key, err := km.Key(context.Background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}

	stored, ok := v.stored()
	if !ok || EncryptionKey(stored) != key {
		t.Error("Expected generated key in the vault")
	}
	if km.Backend() != BackendVault {
		t.Errorf("Expected backend %q, got %q", BackendVault, km.Backend())
	}
	if _, err := os.Stat(filepath.Join(dir, configs.KeyFileName)); !os.IsNotExist(err) {
		t.Error("Expected no key file when the vault accepted the key")
	}
}

func TestKeyManagerVaultWriteFailureUsesFile(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *memVault)
	}{
		{"SetFails", func(v *memVault) { v.failSet = true }},
		{"SetNotConfirmed", func(v *memVault) { v.dropSets = true }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			v := newMemVault()
			tc.setup(v)

			km := newTestManager(t, dir, v)
			key, err := km.Key(context.Background())
			if err != nil {
				t.Fatalf("Key failed: %v", err)
			}

			if km.Backend() != BackendFile {
				t.Errorf("Expected backend %q, got %q", BackendFile, km.Backend())
			}
			if _, ok := v.stored(); ok {
				t.Error("Expected no key left in the vault")
			}
			loaded, found, err := NewFileKeyBackend(filepath.Join(dir, configs.KeyFileName)).Load()
			if err != nil || !found || loaded != key {
				t.Errorf("Expected key file to hold the active key, got found=%v err=%v", found, err)
			}
		})
	}
}

func TestKeyManagerVaultReadFailureUsesFile(t *testing.T) {
	dir := t.TempDir()
	fileKey := mustKey(t)
	if err := NewFileKeyBackend(filepath.Join(dir, configs.KeyFileName)).Save(fileKey); err != nil {
		t.Fatalf("Failed to seed key file: %v", err)
	}
	v := newMemVault()
	v.failGet = true

	km := newTestManager(t, dir, v)
	key, err := km.Key(context.Background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if key != fileKey {
		t.Error("Expected file key when the vault cannot be read")
	}
	if v.sets != 0 {
		t.Error("Expected no vault writes when an existing key was found")
	}
}

func TestKeyManagerNoBackendUsable(t *testing.T) {
	dir := t.TempDir()
	// A directory where the key file should be makes both load and save fail.
	if err := os.Mkdir(filepath.Join(dir, configs.KeyFileName), 0700); err != nil {
		t.Fatalf("Failed to create blocking directory: %v", err)
	}

	km := newTestManager(t, dir, nil)
	_, err := km.Key(context.Background())
	if !errors.Is(err, kerrors.ErrKeyUnavailable) {
		t.Fatalf("Expected ErrKeyUnavailable, got %v", err)
	}
	if km.Loaded() {
		t.Error("Expected manager to stay uninitialized")
	}
	if km.Backend() != BackendNone {
		t.Errorf("Expected backend %q, got %q", BackendNone, km.Backend())
	}
}

func TestKeyManagerGenerationFailure(t *testing.T) {
	km := newTestManager(t, t.TempDir(), nil)
	km.generate = func() (EncryptionKey, error) { return "", errors.New("entropy exhausted") }

	if _, err := km.Key(context.Background()); !errors.Is(err, kerrors.ErrKeyUnavailable) {
		t.Fatalf("Expected ErrKeyUnavailable, got %v", err)
	}
	if km.Loaded() {
		t.Error("Expected manager to stay uninitialized")
	}

	// A later call retries.
	km.generate = GenerateKey
	if _, err := km.Key(context.Background()); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
}

func TestKeyManagerSingleFlight(t *testing.T) {
	km := newTestManager(t, t.TempDir(), newMemVault())

	var generated int32
	release := make(chan struct{})
	km.generate = func() (EncryptionKey, error) {
		atomic.AddInt32(&generated, 1)
		<-release
		return GenerateKey()
	}

	const callers = 16
	keys := make([]EncryptionKey, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i], errs[i] = km.Key(context.Background())
		}(i)
	}

	// Let every caller reach the shared resolution before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&generated); n != 1 {
		t.Errorf("Expected one key generation, got %d", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Caller %d failed: %v", i, errs[i])
		}
		if keys[i] != keys[0] {
			t.Errorf("Caller %d got a different key", i)
		}
	}
}

func TestKeyManagerLooksUpAgainAfterLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, configs.LockFileName)

	// Another process holds the lock while it writes its key.
	other := flock.New(lockPath)
	if err := other.Lock(); err != nil {
		t.Fatalf("Failed to take lock: %v", err)
	}

	km := newTestManager(t, dir, nil)
	km.generate = func() (EncryptionKey, error) {
		t.Error("Expected no key generation after the other process wrote one")
		return GenerateKey()
	}

	done := make(chan struct{})
	var got EncryptionKey
	var gotErr error
	go func() {
		defer close(done)
		got, gotErr = km.Key(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)
	winner := mustKey(t)
	if err := NewFileKeyBackend(filepath.Join(dir, configs.KeyFileName)).Save(winner); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	if err := other.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Key did not return after the lock was released")
	}

	if gotErr != nil {
		t.Fatalf("Key failed: %v", gotErr)
	}
	if got != winner {
		t.Error("Expected the key written by the lock holder")
	}
}

func TestKeyManagerContextCanceledWhileLocked(t *testing.T) {
	dir := t.TempDir()
	other := flock.New(filepath.Join(dir, configs.LockFileName))
	if err := other.Lock(); err != nil {
		t.Fatalf("Failed to take lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	km := newTestManager(t, dir, nil)
	if _, err := km.Key(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if km.Loaded() {
		t.Error("Expected manager to stay uninitialized")
	}

	// The shared resolution keeps waiting and completes once the lock is free.
	if err := other.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
	if _, err := km.Key(context.Background()); err != nil {
		t.Fatalf("Expected key after the lock was released, got %v", err)
	}
}

func TestKeyManagerCanceledCallerDoesNotFailOthers(t *testing.T) {
	dir := t.TempDir()
	other := flock.New(filepath.Join(dir, configs.LockFileName))
	if err := other.Lock(); err != nil {
		t.Fatalf("Failed to take lock: %v", err)
	}

	km := newTestManager(t, dir, nil)

	// The first caller starts the shared resolution, then gives up.
	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := km.Key(first)
		firstErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	secondDone := make(chan struct{})
	var second EncryptionKey
	var secondErr error
	go func() {
		defer close(secondDone)
		second, secondErr = km.Key(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the first caller to be canceled, got %v", err)
	}

	if err := other.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}

	select {
	case <-secondDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Second caller did not return after the lock was released")
	}
	if secondErr != nil {
		t.Fatalf("Expected the second caller to get a key, got %v", secondErr)
	}
	if second == "" {
		t.Error("Expected a non-empty key")
	}
	if !km.Loaded() {
		t.Error("Expected manager to hold the key")
	}
}

func TestKeyManagerPeekDoesNotGenerate(t *testing.T) {
	dir := t.TempDir()
	v := newMemVault()
	km := newTestManager(t, dir, v)

	backend, err := km.Peek(context.Background())
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if backend != BackendNone {
		t.Errorf("Expected %q, got %q", BackendNone, backend)
	}
	if v.sets != 0 || km.Loaded() {
		t.Error("Peek must not generate a key")
	}

	if err := NewFileKeyBackend(filepath.Join(dir, configs.KeyFileName)).Save(mustKey(t)); err != nil {
		t.Fatalf("Failed to seed key file: %v", err)
	}
	if backend, _ := km.Peek(context.Background()); backend != BackendFile {
		t.Errorf("Expected %q, got %q", BackendFile, backend)
	}

	v.items[testService+"/"+testAccount] = string(mustKey(t))
	if backend, _ := km.Peek(context.Background()); backend != BackendVault {
		t.Errorf("Expected %q, got %q", BackendVault, backend)
	}
}

func TestKeyManagerKeyID(t *testing.T) {
	km := newTestManager(t, t.TempDir(), nil)
	if km.KeyID() != "" {
		t.Error("Expected empty key id before the key is loaded")
	}

	key, err := km.Key(context.Background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	want, _ := KeyID(key)
	if km.KeyID() != want {
		t.Errorf("Expected key id %q, got %q", want, km.KeyID())
	}
}
