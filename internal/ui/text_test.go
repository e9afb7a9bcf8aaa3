package ui

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func forceColor(t *testing.T, enabled bool) {
	t.Helper()
	original := color.NoColor
	color.NoColor = !enabled
	t.Cleanup(func() { color.NoColor = original })
}

func TestFormatter_WithColor(t *testing.T) {
	forceColor(t, true)

	result := Code.Sprint("garmin-secrets init")
	if strings.Contains(result, "`") {
		t.Errorf("Expected no backticks with color enabled, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Expected ANSI escape codes with color enabled, got: %s", result)
	}

	result = Highlight.Sprintf("record %s", "tokens.enc")
	if strings.HasPrefix(result, "'") {
		t.Errorf("Expected no quotes with color enabled, got: %s", result)
	}
	if !strings.Contains(result, "record tokens.enc") {
		t.Errorf("Expected formatted text, got: %s", result)
	}
}

func TestFormatter_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "garmin-secrets migrate-key", "`garmin-secrets migrate-key`"},
		{"Path has no decoration", Path, "credentials.enc", "credentials.enc"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Warning has no decoration", Warning, "⚠", "⚠"},
		{"Info has no decoration", Info, "→", "→"},
		{"Highlight adds quotes", Highlight, "runner@example.com", "'runner@example.com'"},
		{"Muted adds parentheses", Muted, "not stored", "(not stored)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.formatter.Sprint(tt.input)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatter_SprintJoinsArguments(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := Code.Sprint("garmin-secrets", " ", "doctor"); got != "`garmin-secrets doctor`" {
		t.Errorf("Expected joined arguments, got %q", got)
	}
	if got := Code.Sprintf("garmin-secrets %s", "status"); got != "`garmin-secrets status`" {
		t.Errorf("Expected formatted arguments, got %q", got)
	}
}

func TestMarks(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		got  string
		want string
	}{
		{Done("Credentials deleted"), "✓ Credentials deleted"},
		{Failed("Failed to migrate key"), "✗ Failed to migrate key"},
		{Caution("Encryption key in key file"), "⚠ Encryption key in key file"},
		{Hint("Run " + Code.Sprint("garmin-secrets init")), "→ Run `garmin-secrets init`"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	forceColor(t, false)
	if !noColor() {
		t.Error("Expected noColor() when NO_COLOR is set, even to an empty value")
	}
}

func TestEnsureNewline(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "\n"},
		{"done", "done\n"},
		{"done\n", "done\n"},
	}

	for _, tt := range tests {
		if got := EnsureNewline(tt.input); got != tt.want {
			t.Errorf("EnsureNewline(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}
