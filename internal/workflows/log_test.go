package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	"github.com/garmin-mcp/garmin-secrets/internal/configs"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

func writeAuditLog(t *testing.T, dir string, entries []audit.Entry) {
	t.Helper()
	var lines []string
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		lines = append(lines, string(data))
	}
	path := filepath.Join(dir, configs.AuditFileName)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func sampleEntries() []audit.Entry {
	return []audit.Entry{
		{Timestamp: "2025-01-10T09:00:00.000000Z", Operation: audit.OpKeyGenerate, Backend: "file"},
		{Timestamp: "2025-01-10T09:00:01.000000Z", Operation: audit.OpSave, Record: configs.CredentialsFileName},
		{Timestamp: "2025-01-12T18:30:00.000000Z", Operation: audit.OpSave, Record: configs.TokensFileName},
		{Timestamp: "2025-01-15T07:00:00.000000Z", Operation: audit.OpKeyMigrate, Backend: "vault"},
		{Timestamp: "2025-01-20T12:00:00.000000Z", Operation: audit.OpDelete, Record: configs.TokensFileName},
	}
}

func TestLog(t *testing.T) {
	tests := []struct {
		name    string
		opts    LogOptions
		wantOps []string
	}{
		{
			name:    "all entries",
			opts:    LogOptions{},
			wantOps: []string{"keygen", "save", "save", "migrate", "delete"},
		},
		{
			name:    "operation filter",
			opts:    LogOptions{Operations: "save, DELETE"},
			wantOps: []string{"save", "save", "delete"},
		},
		{
			name:    "record filter",
			opts:    LogOptions{Record: configs.TokensFileName},
			wantOps: []string{"save", "delete"},
		},
		{
			name:    "date range includes whole until day",
			opts:    LogOptions{Since: "2025-01-11", Until: "2025-01-15"},
			wantOps: []string{"save", "migrate"},
		},
		{
			name:    "limit keeps most recent",
			opts:    LogOptions{Limit: 2},
			wantOps: []string{"migrate", "delete"},
		},
		{
			name:    "reverse with limit",
			opts:    LogOptions{Limit: 2, Reverse: true},
			wantOps: []string{"delete", "migrate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newDataDir(t)
			writeAuditLog(t, dir, sampleEntries())
			svc := newTestService(t, dir, noVault)

			result, err := svc.Log(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("Log failed: %v", err)
			}
			if result.TotalEntriesBeforeFilter != 5 {
				t.Errorf("Expected 5 entries before filter, got %d", result.TotalEntriesBeforeFilter)
			}

			var gotOps []string
			for _, e := range result.Entries {
				gotOps = append(gotOps, e.Operation)
			}
			if strings.Join(gotOps, ",") != strings.Join(tt.wantOps, ",") {
				t.Errorf("Expected %v, got %v", tt.wantOps, gotOps)
			}
		})
	}
}

func TestLogMissingFile(t *testing.T) {
	svc := newTestService(t, newDataDir(t), noVault)

	result, err := svc.Log(context.Background(), LogOptions{})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(result.Entries))
	}
}

func TestLogInvalidDate(t *testing.T) {
	svc := newTestService(t, newDataDir(t), noVault)

	for _, opts := range []LogOptions{{Since: "yesterday"}, {Until: "2025/01/01"}} {
		_, err := svc.Log(context.Background(), opts)
		if !errors.Is(err, kerrors.ErrInvalidDateFormat) {
			t.Errorf("Expected ErrInvalidDateFormat for %+v, got %v", opts, err)
		}
	}
}

func TestFormatDetails(t *testing.T) {
	tests := []struct {
		entry audit.Entry
		want  string
	}{
		{audit.Entry{Operation: audit.OpKeyGenerate, Backend: "vault"}, "vault"},
		{audit.Entry{Operation: audit.OpSave, Record: "garmin-tokens.enc"}, "garmin-tokens.enc"},
		{audit.Entry{Operation: audit.OpImport, Record: "garmin-credentials.enc", Source: "/app/.env"}, "garmin-credentials.enc from /app/.env"},
	}

	for _, tt := range tests {
		if got := FormatDetails(tt.entry); got != tt.want {
			t.Errorf("FormatDetails(%s) = %q, expected %q", tt.entry.Operation, got, tt.want)
		}
	}
}

func TestFormatDateTime(t *testing.T) {
	if got := FormatDateTime("2025-01-10T09:00:01.000000Z"); got != "2025-01-10 09:00:01" {
		t.Errorf("Expected 2025-01-10 09:00:01, got %s", got)
	}
	if got := FormatDateTime("garbage"); got != "garbage" {
		t.Errorf("Expected garbage passthrough, got %s", got)
	}
}
