package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/garmin-mcp/garmin-secrets/internal/configs"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// Doctor runs health checks on the secret store.
//
// The doctor workflow checks:
//   - Data directory exists and is private
//   - Ignore manifest covers keys and encrypted files
//   - Installation config is present
//   - Encryption key exists and where it lives
//   - Key file permissions
//   - Native vault usage
//   - Every encrypted record opens under the active key
//   - Leftover temporary files from interrupted writes
//
// Doctor never creates a key or writes to the data directory.
func (s *Service) Doctor(ctx context.Context) (*DoctorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	checks := []func(context.Context) CheckResult{
		s.checkDataDir,
		s.checkIgnoreManifest,
		s.checkConfig,
		s.checkKeyPresent,
		s.checkKeyFilePermissions,
		s.checkVault,
		s.checkRecords,
		s.checkTempFiles,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check(ctx))
	}

	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

func (s *Service) checkDataDir(context.Context) CheckResult {
	const name = "Data directory"
	dir := s.settings.DataDir

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s does not exist yet", dir),
			Suggestion: "Run 'garmin-secrets init' to create it",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat %s: %v", dir, err),
			Suggestion: "Check that the data directory is accessible",
		}
	}
	if !info.IsDir() {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("%s is not a directory", dir),
			Suggestion: "Move the file aside or set GARMIN_MCP_DATA_DIR",
		}
	}

	if s.checksPermissions() {
		if mode := info.Mode().Perm(); mode&0077 != 0 {
			return CheckResult{
				Name:       name,
				Status:     CheckWarning,
				Message:    fmt.Sprintf("Data directory is accessible to other users (%04o)", mode),
				Suggestion: fmt.Sprintf("Run 'chmod 700 %s' to fix permissions", dir),
			}
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Data directory is %s", dir),
	}
}

func (s *Service) checkIgnoreManifest(context.Context) CheckResult {
	const name = "Ignore manifest"
	path := filepath.Join(s.settings.DataDir, configs.IgnoreFileName)

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "No .gitignore in the data directory",
			Suggestion: "Run 'garmin-secrets init' to create it",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to read %s: %v", path, err),
			Suggestion: "Check that the .gitignore file is accessible",
		}
	}

	patterns := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns[line] = true
	}

	var missing []string
	for _, want := range []string{"*.enc", configs.KeyFileName} {
		if !patterns[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf(".gitignore does not list %s", strings.Join(missing, ", ")),
			Suggestion: fmt.Sprintf("Add to %s: %s", path, strings.Join(missing, ", ")),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: "Keys and encrypted files are ignored",
	}
}

func (s *Service) checkConfig(context.Context) CheckResult {
	const name = "Configuration"

	if _, err := os.Stat(s.settings.ConfigPath); os.IsNotExist(err) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "config.toml not found (using defaults)",
			Suggestion: "Run 'garmin-secrets init' to create it",
		}
	}
	if s.config.Installation.ID == "" {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "Installation ID is missing from config",
			Suggestion: "Run 'garmin-secrets init' to generate an installation ID",
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("key_backend = %q, installation %s", s.config.Storage.KeyBackend, s.config.Installation.ID),
	}
}

func (s *Service) checkKeyPresent(ctx context.Context) CheckResult {
	const name = "Encryption key"

	backend, err := s.keys.Peek(ctx)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to look up key: %v", err),
		}
	}

	switch backend {
	case secrets.BackendNone:
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "No encryption key yet",
			Suggestion: "Run 'garmin-secrets init' to create one",
		}
	case secrets.BackendVault:
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: fmt.Sprintf("Key is stored in the native vault (%s)", s.keys.Vault().Name()),
		}
	default:
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: fmt.Sprintf("Key is stored in %s", s.settings.KeyFilePath),
		}
	}
}

func (s *Service) checkKeyFilePermissions(context.Context) CheckResult {
	const name = "Key file permissions"
	path := s.settings.KeyFilePath

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "No key file on disk",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat key file: %v", err),
			Suggestion: "Check that the key file is accessible",
		}
	}

	if !s.checksPermissions() {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "Key file exists (permissions managed by the OS)",
		}
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Key file has insecure permissions (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s' to fix permissions", path),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: "Key file has correct permissions (0600)",
	}
}

func (s *Service) checkVault(ctx context.Context) CheckResult {
	const name = "Native vault"
	v := s.keys.Vault()

	// Falling back to the file is only an error when the vault was asked for.
	fallback := CheckWarning
	if s.config.VaultRequired() {
		fallback = CheckError
	}

	if !v.Available() {
		if !s.config.VaultEnabled() {
			return CheckResult{
				Name:    name,
				Status:  CheckPass,
				Message: "Disabled by configuration (key_backend = \"file\")",
			}
		}
		return CheckResult{
			Name:       name,
			Status:     fallback,
			Message:    "No native vault available; the key is protected by file permissions only",
			Suggestion: "Install and unlock a Secret Service provider (e.g. gnome-keyring), then run 'garmin-secrets migrate-key'",
		}
	}

	backend, err := s.keys.Peek(ctx)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to look up key: %v", err),
		}
	}
	if backend == secrets.BackendFile {
		return CheckResult{
			Name:       name,
			Status:     fallback,
			Message:    fmt.Sprintf("Vault %s is available but the key is still in a file", v.Name()),
			Suggestion: "Run 'garmin-secrets migrate-key' to move the key into the vault",
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Using %s", v.Name()),
	}
}

func (s *Service) checkRecords(ctx context.Context) CheckResult {
	const name = "Encrypted records"

	files, err := secrets.FindRecordFiles(s.settings.DataDir)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to list encrypted files: %v", err),
			Suggestion: "Check that the data directory is accessible",
		}
	}
	if len(files) == 0 {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "No encrypted records stored",
		}
	}

	backend, err := s.keys.Peek(ctx)
	if err != nil || backend == secrets.BackendNone {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("%d encrypted file(s) but no encryption key; they cannot be read", len(files)),
			Suggestion: "Restore the key, or run 'garmin-secrets forget' and save credentials again",
		}
	}
	if _, err := s.keys.Key(ctx); err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to load encryption key: %v", err),
			Suggestion: "Unlock the native vault and try again",
		}
	}

	var broken, mismatched []string
	for _, file := range files {
		err := s.records.Inspect(ctx, file)
		switch {
		case err == nil:
		case errors.Is(err, kerrors.ErrKeyMismatch):
			mismatched = append(mismatched, file)
		default:
			s.log.Debugf("Inspect %s: %v", file, err)
			broken = append(broken, file)
		}
	}

	if len(mismatched) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Encrypted with a different key: %s", strings.Join(mismatched, ", ")),
			Suggestion: "The key that wrote these files is gone; run 'garmin-secrets forget' and save credentials again",
		}
	}
	if len(broken) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Cannot decrypt: %s", strings.Join(broken, ", ")),
			Suggestion: "Run 'garmin-secrets forget' and save credentials again",
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("All %d encrypted file(s) decrypt with the active key", len(files)),
	}
}

func (s *Service) checkTempFiles(context.Context) CheckResult {
	const name = "Interrupted writes"

	leftovers, err := secrets.FindOrphanedTempFiles(s.settings.DataDir)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to scan data directory: %v", err),
		}
	}
	if len(leftovers) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Found %d temporary file(s) from interrupted writes", len(leftovers)),
			Suggestion: fmt.Sprintf("Remove %s", strings.Join(leftovers, ", ")),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: "No leftover temporary files",
	}
}

func (s *Service) checksPermissions() bool {
	return s.settings.Platform != "windows"
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
