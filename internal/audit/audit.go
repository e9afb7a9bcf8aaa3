package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garmin-mcp/garmin-secrets/internal/utils"
)

// Operation names.
const (
	OpKeyGenerate = "keygen"
	OpKeyMigrate  = "migrate"
	OpSave        = "save"
	OpDelete      = "delete"
	OpImport      = "import"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp    string `json:"ts"`                     // RFC3339 with microseconds.
	ID           string `json:"id"`                     // Unique per entry.
	Installation string `json:"installation,omitempty"` // From config.toml.
	User         string `json:"user,omitempty"`         // Local account name.
	Host         string `json:"host,omitempty"`
	Operation    string `json:"op"`

	// Optional fields depending on operation.
	Record  string `json:"record,omitempty"`  // For save/delete/import.
	Backend string `json:"backend,omitempty"` // For keygen/migrate.
	Source  string `json:"source,omitempty"`  // For import.
}

// Trail appends entries to one audit log file.
type Trail struct {
	path         string
	installation string

	mu sync.Mutex
}

// New returns a trail writing to path. Entries are stamped with installation.
func New(path, installation string) *Trail {
	return &Trail{path: path, installation: installation}
}

// SetInstallation changes the installation ID stamped on later entries.
func (t *Trail) SetInstallation(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.installation = id
}

// Path returns the path to the audit log file, or "" for a nil trail.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Log appends an entry to the audit log.
// If logging fails, the entry is dropped without returning an error.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.path == "" {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.User == "" || entry.Host == "" {
		user, host := utils.LocalIdentity()
		if entry.User == "" {
			entry.User = user
		}
		if entry.Host == "" {
			entry.Host = host
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.Installation == "" {
		entry.Installation = t.installation
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
