package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garmin-mcp/garmin-secrets/internal/configs"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

// Well-known record files.
const (
	CredentialsFile = configs.CredentialsFileName
	TokensFile      = configs.TokensFileName
)

type GarminCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuthTokenSet holds the Garmin OAuth material as issued. The token
// payloads are opaque and stored verbatim.
type OAuthTokenSet struct {
	OAuth1  json.RawMessage `json:"oauth1"`
	OAuth2  json.RawMessage `json:"oauth2"`
	SavedAt *time.Time      `json:"savedAt,omitempty"`
}

// ExpiresAt reads oauth2.expires_at (unix seconds), if present.
func (t *OAuthTokenSet) ExpiresAt() (time.Time, bool) {
	if t == nil || len(t.OAuth2) == 0 {
		return time.Time{}, false
	}

	var oauth2 struct {
		ExpiresAt json.Number `json:"expires_at"`
	}
	dec := json.NewDecoder(bytes.NewReader(t.OAuth2))
	dec.UseNumber()
	if err := dec.Decode(&oauth2); err != nil || oauth2.ExpiresAt == "" {
		return time.Time{}, false
	}

	seconds, err := oauth2.ExpiresAt.Float64()
	if err != nil || seconds <= 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(seconds), 0).UTC(), true
}

type CredentialStore = RecordStore[GarminCredentials]

func NewCredentialStore(records *Records) *CredentialStore {
	return NewRecordStore[GarminCredentials](records, CredentialsFile)
}

// TokenStore stamps each saved token set with the time it was saved.
type TokenStore struct {
	*RecordStore[OAuthTokenSet]

	now func() time.Time
}

// NewTokenStore returns a token store. A nil clock means time.Now.
func NewTokenStore(records *Records, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{
		RecordStore: NewRecordStore[OAuthTokenSet](records, TokensFile),
		now:         now,
	}
}

// Save stores a copy of tokens with SavedAt set to now. The caller's value
// is left untouched.
func (s *TokenStore) Save(ctx context.Context, tokens *OAuthTokenSet) error {
	if tokens == nil {
		return fmt.Errorf("failed to encode %s: %w", TokensFile, kerrors.ErrNilRecord)
	}
	stamped := *tokens
	savedAt := s.now().UTC()
	stamped.SavedAt = &savedAt
	return s.RecordStore.Save(ctx, &stamped)
}
