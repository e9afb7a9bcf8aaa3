package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	"github.com/garmin-mcp/garmin-secrets/internal/workflows"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logRecord    string
	logSince     string
	logUntil     string
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logRecord, "record", "", "filter by record file name")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logOperation = ""
	logRecord = ""
	logSince = ""
	logUntil = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of key and record operations.

Entries never contain secret values.

Examples:
  garmin-secrets log                              # View full log
  garmin-secrets log -n 10                        # Last 10 entries
  garmin-secrets log --reverse                    # Most recent first
  garmin-secrets log --operation keygen,migrate   # Filter by operation
  garmin-secrets log --record tokens.enc          # Filter by record
  garmin-secrets log --since 2026-01-01           # Filter by date
  garmin-secrets log --json                       # JSON output`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	spinner, cleanup := startSpinner("Loading audit log...")
	defer cleanup()

	svc, err := newService()
	if err != nil {
		spinner.FinalMSG = formatError("Failed to load configuration", err)
		return reported(err)
	}

	opts := workflows.LogOptions{
		Limit:      logLimit,
		Reverse:    logReverse,
		Operations: logOperation,
		Record:     logRecord,
		Since:      logSince,
		Until:      logUntil,
	}

	result, err := svc.Log(cmd.Context(), opts)
	if err != nil {
		spinner.FinalMSG = formatError("Failed to read audit log", err)
		if errors.Is(err, kerrors.ErrInvalidDateFormat) {
			return nil
		}
		return reported(err)
	}

	Logger.Debugf("Parsed %d entries from audit log", result.TotalEntriesBeforeFilter)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	if len(result.Entries) == 0 {
		if result.TotalEntriesBeforeFilter == 0 {
			spinner.FinalMSG = "No audit log entries found."
		} else {
			spinner.FinalMSG = "No audit log entries found matching the filters."
		}
		return nil
	}

	if logJSON {
		return outputLogJSON(result.Entries)
	}
	outputLogDefault(result.Entries)
	return nil
}

func outputLogJSON(entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func outputLogDefault(entries []audit.Entry) {
	for _, e := range entries {
		datetime := workflows.FormatDateTime(e.Timestamp)
		details := workflows.FormatDetails(e)
		fmt.Printf("%-19s  %-16s  %-8s  %s\n", datetime, e.User, e.Operation, details)
	}
}
