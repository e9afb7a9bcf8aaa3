package vault

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

// Vault stores small secrets under a (service, account) pair.
type Vault interface {
	Available() bool
	Name() string
	Get(service, account string) (secret string, found bool, err error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// OpenFunc opens a keyring. keyring.Open in production, a fake in tests.
type OpenFunc func(cfg keyring.Config) (keyring.Keyring, error)

// nativeBackends are the OS-provided stores, in preference order.
var nativeBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.WinCredBackend,
	keyring.SecretServiceBackend,
	keyring.KWalletBackend,
}

type DetectConfig struct {
	// Disabled skips detection entirely and yields Unavailable.
	Disabled bool

	// Backends lists the compiled-in backends. Defaults to keyring.AvailableBackends.
	Backends func() []keyring.BackendType

	// Open defaults to keyring.Open.
	Open OpenFunc
}

// Detect returns a usable native vault, or Unavailable if none can be loaded.
// It never panics, whatever the platform.
func Detect(cfg DetectConfig) (v Vault) {
	if cfg.Disabled {
		return Unavailable{Reason: "disabled by configuration"}
	}

	defer func() {
		if r := recover(); r != nil {
			v = Unavailable{Reason: fmt.Sprintf("backend detection failed: %v", r)}
		}
	}()

	list := cfg.Backends
	if list == nil {
		list = keyring.AvailableBackends
	}
	open := cfg.Open
	if open == nil {
		open = keyring.Open
	}

	backends := filterNative(list())
	if len(backends) == 0 {
		return Unavailable{Reason: "no native credential store on this platform"}
	}

	return &NativeVault{
		backends: backends,
		open:     open,
		rings:    make(map[string]keyring.Keyring),
	}
}

func filterNative(available []keyring.BackendType) []keyring.BackendType {
	present := make(map[keyring.BackendType]bool, len(available))
	for _, b := range available {
		present[b] = true
	}

	var native []keyring.BackendType
	for _, b := range nativeBackends {
		if present[b] {
			native = append(native, b)
		}
	}
	return native
}

// Unavailable is the vault used when no native backend exists.
type Unavailable struct {
	Reason string
}

func (Unavailable) Available() bool { return false }

func (Unavailable) Name() string { return "none" }

func (Unavailable) Get(service, account string) (string, bool, error) {
	return "", false, kerrors.ErrVaultUnavailable
}

func (Unavailable) Set(service, account, secret string) error {
	return kerrors.ErrVaultUnavailable
}

func (Unavailable) Delete(service, account string) error {
	return kerrors.ErrVaultUnavailable
}

// NativeVault talks to the OS credential store. One keyring is opened per
// service name and reused.
type NativeVault struct {
	backends []keyring.BackendType
	open     OpenFunc

	mu    sync.Mutex
	rings map[string]keyring.Keyring
}

func (v *NativeVault) Available() bool { return true }

// Name returns the preferred backend, e.g. "keychain" or "secret-service".
func (v *NativeVault) Name() string {
	return string(v.backends[0])
}

func (v *NativeVault) ring(service string) (keyring.Keyring, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ring, ok := v.rings[service]; ok {
		return ring, nil
	}

	ring, err := v.open(keyring.Config{
		ServiceName:     service,
		AllowedBackends: v.backends,

		// Secret Service and KWallet group items by collection or folder.
		LibSecretCollectionName: "login",
		KWalletAppID:            service,
		KWalletFolder:           service,

		// Keep the key on this machine only.
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		KeychainTrustApplication:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", kerrors.ErrVaultAccessDenied, service, err)
	}

	v.rings[service] = ring
	return ring, nil
}

func (v *NativeVault) Get(service, account string) (string, bool, error) {
	ring, err := v.ring(service)
	if err != nil {
		return "", false, err
	}

	item, err := ring.Get(account)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s/%s: %v", kerrors.ErrVaultAccessDenied, service, account, err)
	}

	return string(item.Data), true, nil
}

func (v *NativeVault) Set(service, account, secret string) error {
	ring, err := v.ring(service)
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         account,
		Data:        []byte(secret),
		Label:       service + " " + account,
		Description: "Encryption key for stored Garmin credentials and tokens",
	})
	if err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", kerrors.ErrVaultAccessDenied, service, account, err)
	}
	return nil
}

// Delete removes the secret. Deleting a missing secret is not an error.
func (v *NativeVault) Delete(service, account string) error {
	ring, err := v.ring(service)
	if err != nil {
		return err
	}

	err = ring.Remove(account)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("%w: delete %s/%s: %v", kerrors.ErrVaultAccessDenied, service, account, err)
	}
	return nil
}
