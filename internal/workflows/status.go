package workflows

import (
	"context"
	"os"
	"time"

	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
)

// RecordStatus describes one encrypted record file.
type RecordStatus struct {
	Name    string     `json:"name"`
	Present bool       `json:"present"`
	ModTime *time.Time `json:"modified,omitempty"`

	// Readable is set only when a key exists to try it with.
	Readable *bool `json:"readable,omitempty"`
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	Directory string          `json:"directory"`
	Platform  string          `json:"platform"`
	Backend   secrets.Backend `json:"backend"`

	KeyPresent bool   `json:"keyPresent"`
	KeyID      string `json:"keyId,omitempty"`

	VaultAvailable bool   `json:"vaultAvailable"`
	VaultName      string `json:"vaultName"`

	CredentialsPresent bool       `json:"credentialsPresent"`
	TokensPresent      bool       `json:"tokensPresent"`
	TokensSavedAt      *time.Time `json:"tokensSavedAt,omitempty"`
	TokensExpireAt     *time.Time `json:"tokensExpireAt,omitempty"`

	Records []RecordStatus `json:"records"`
}

// Status reports where the key lives and which records exist.
//
// Status never creates a key. An existing key is loaded so that records
// can be checked and the key identified.
func (s *Service) Status(ctx context.Context) (*StatusResult, error) {
	backend, err := s.keys.Peek(ctx)
	if err != nil {
		return nil, err
	}

	v := s.keys.Vault()
	result := &StatusResult{
		Directory:          s.settings.DataDir,
		Platform:           s.settings.Platform,
		Backend:            backend,
		KeyPresent:         backend != secrets.BackendNone,
		VaultAvailable:     v.Available(),
		VaultName:          v.Name(),
		CredentialsPresent: s.credentials.Exists(),
		TokensPresent:      s.tokens.Exists(),
	}

	if result.KeyPresent {
		if _, err := s.keys.Key(ctx); err != nil {
			s.log.Warnf("Could not load encryption key: %v", err)
		} else {
			result.Backend = s.keys.Backend()
			result.KeyID = s.keys.KeyID()
		}
	}
	keyLoaded := s.keys.Loaded()

	for _, name := range []string{secrets.CredentialsFile, secrets.TokensFile} {
		rs := RecordStatus{Name: name}
		if info, err := os.Stat(s.records.Path(name)); err == nil {
			modTime := info.ModTime().UTC()
			rs.Present = true
			rs.ModTime = &modTime
		}
		if rs.Present && keyLoaded {
			readable := s.records.Inspect(ctx, name) == nil
			rs.Readable = &readable
		}
		result.Records = append(result.Records, rs)
	}

	if result.TokensPresent && keyLoaded {
		tokens, err := s.tokens.Load(ctx)
		if err != nil {
			s.log.Warnf("Could not read tokens: %v", err)
		} else if tokens != nil {
			result.TokensSavedAt = tokens.SavedAt
			if expiresAt, ok := tokens.ExpiresAt(); ok {
				result.TokensExpireAt = &expiresAt
			}
		}
	}

	return result, nil
}
