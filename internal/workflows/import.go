package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
	"github.com/garmin-mcp/garmin-secrets/internal/utils"
)

// Plaintext token files written by older versions of the server.
const (
	LegacyOAuth1File = "oauth1_token.json"
	LegacyOAuth2File = "oauth2_token.json"
)

// Keys read from and written to the env file.
const (
	envEmail       = "GARMIN_EMAIL"
	envPassword    = "GARMIN_PASSWORD"
	envEncrypted   = "GARMIN_CREDENTIALS_ENCRYPTED"
	envReady       = "GARMIN_ENCRYPTION_READY"
	envPlaceholder = "ENCRYPTED"
)

const envFooter = `# Garmin MCP Encryption Configuration
# Credentials are securely encrypted - DO NOT add email/password here
` + envEncrypted + `=true
` + envReady + `=true
`

// ImportResult describes what an import moved into the encrypted store.
type ImportResult struct {
	// Record is the encrypted file that was written.
	Record string

	// Removed lists plaintext files deleted after the import.
	Removed []string

	// Rewritten is the env file that had credentials stripped, if any.
	Rewritten string

	// Email is the imported login, for display.
	Email string
}

// ImportLegacyTokens encrypts the plaintext OAuth token files in dir and
// deletes them once the encrypted copy is written.
//
// Both files must be present. Returns ErrNoLegacyTokens otherwise.
func (s *Service) ImportLegacyTokens(ctx context.Context, dir string) (*ImportResult, error) {
	oauth1, err := readLegacyToken(filepath.Join(dir, LegacyOAuth1File))
	if err != nil {
		return nil, err
	}
	oauth2, err := readLegacyToken(filepath.Join(dir, LegacyOAuth2File))
	if err != nil {
		return nil, err
	}

	if err := s.SaveTokens(ctx, &secrets.OAuthTokenSet{OAuth1: oauth1, OAuth2: oauth2}); err != nil {
		return nil, err
	}
	s.audit.Log(audit.Entry{Operation: audit.OpImport, Record: secrets.TokensFile, Source: dir})

	result := &ImportResult{Record: secrets.TokensFile}
	for _, name := range []string{LegacyOAuth1File, LegacyOAuth2File} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			s.log.WarnfAlways("Imported tokens but could not remove %s: %v", path, err)
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	return result, nil
}

func readLegacyToken(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s is missing", kerrors.ErrNoLegacyTokens, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// ImportEnvCredentials encrypts GARMIN_EMAIL and GARMIN_PASSWORD from the
// env file at path, then rewrites the file without them and marks it as
// using encrypted credentials.
//
// Values containing "ENCRYPTED" are placeholders and ignored. Both keys must
// hold real values. Returns ErrNoEnvCredentials otherwise.
func (s *Service) ImportEnvCredentials(ctx context.Context, path string) (*ImportResult, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", kerrors.ErrNoEnvCredentials, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	creds, err := parseEnvCredentials(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := s.SaveCredentials(ctx, creds); err != nil {
		return nil, err
	}
	s.audit.Log(audit.Entry{Operation: audit.OpImport, Record: secrets.CredentialsFile, Source: path})

	perm := os.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := utils.WriteFileAtomic(path, rewriteEnv(content), perm); err != nil {
		return nil, fmt.Errorf("credentials are encrypted but %s still holds them: %w", path, err)
	}

	return &ImportResult{
		Record:    secrets.CredentialsFile,
		Rewritten: path,
		Email:     creds.Email,
	}, nil
}

func parseEnvCredentials(content []byte) (*secrets.GarminCredentials, error) {
	values, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}

	email := usableEnvValue(values[envEmail])
	password := usableEnvValue(values[envPassword])
	if email == "" || password == "" {
		return nil, kerrors.ErrNoEnvCredentials
	}

	return &secrets.GarminCredentials{Email: email, Password: password}, nil
}

func usableEnvValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.Contains(v, envPlaceholder) {
		return ""
	}
	return v
}

// rewriteEnv drops credential and marker lines and appends fresh markers.
// Everything else is kept as written.
func rewriteEnv(content []byte) []byte {
	dropped := []string{envEmail + "=", envPassword + "=", envEncrypted + "=", envReady + "="}

	var kept []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimPrefix(trimmed, "export ")
		drop := false
		for _, prefix := range dropped {
			if strings.HasPrefix(trimmed, prefix) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}

	body := strings.TrimSpace(strings.Join(kept, "\n"))
	if body == "" {
		return []byte(envFooter)
	}
	return []byte(body + "\n\n" + envFooter)
}
