package cmd

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/garmin-mcp/garmin-secrets/internal/configs"
)

// setupTestEnvironment points the CLI at a fresh data directory and forces
// the file key backend so the real OS keychain is never touched.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	// t.TempDir follows the umask; the doctor expects a private directory.
	dir := filepath.Join(t.TempDir(), "garmin-mcp")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Failed to create data directory: %v", err)
	}
	t.Setenv(configs.KeyBackendEnv, "file")
	t.Setenv(configs.DataDirEnv, "")
	t.Setenv("GARMIN_MCP_DEBUG", "")
	t.Setenv("NO_COLOR", "1")

	ResetGlobalState()
	t.Cleanup(ResetGlobalState)
	return dir
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// runCLI executes the root command with args against dir.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	return captureOutput(func() error {
		RootCmd.SetArgs(append(args, "--data-dir", dir))
		return RootCmd.ExecuteContext(context.Background())
	})
}

// mustRunCLI fails the test if the command returns an error.
func mustRunCLI(t *testing.T, dir string, args ...string) string {
	t.Helper()
	output, err := runCLI(t, dir, args...)
	if err != nil {
		t.Fatalf("Command %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}
