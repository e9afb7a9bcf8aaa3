package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
	"github.com/garmin-mcp/garmin-secrets/internal/ui"
	"github.com/garmin-mcp/garmin-secrets/internal/workflows"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the key lives and which secrets are stored",
	Long: `Shows the data directory, which backend holds the encryption key, and
whether credentials and OAuth tokens are stored.

Status never creates a key. Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		svc, err := newService()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		result, err := svc.Status(cmd.Context())
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read status: %v", err)
		}

		if statusJSONOutput {
			return outputStatusJSON(result)
		}

		printStatus(result, time.Now())
		return nil
	},
}

func outputStatusJSON(result *workflows.StatusResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printStatus(result *workflows.StatusResult, now time.Time) {
	fmt.Printf("Data directory: %s\n", ui.Path.Sprint(result.Directory))
	fmt.Printf("Platform:       %s\n", result.Platform)
	fmt.Println()

	switch result.Backend {
	case secrets.BackendVault:
		fmt.Printf("%s Encryption key in native vault %s\n", ui.Success.Sprint("✓"), ui.Muted.Sprint(result.VaultName))
	case secrets.BackendFile:
		fmt.Printf("%s Encryption key in key file\n", ui.Warning.Sprint("⚠"))
		if result.VaultAvailable {
			fmt.Printf("  %s Run %s to move it into %s\n", ui.Info.Sprint("→"), ui.Code.Sprint("garmin-secrets migrate-key"), result.VaultName)
		}
	default:
		fmt.Printf("%s No encryption key yet\n", ui.Muted.Sprint("-"))
	}
	if result.KeyID != "" {
		fmt.Printf("  Key ID: %s\n", result.KeyID)
	}
	fmt.Println()

	for _, rs := range result.Records {
		fmt.Println(formatRecordStatus(rs, now))
	}

	if result.TokensExpireAt != nil {
		expiry := *result.TokensExpireAt
		label := "expires"
		if expiry.Before(now) {
			label = "expired"
		}
		fmt.Printf("  OAuth2 token %s %s\n", label, humanize.RelTime(expiry, now, "ago", "from now"))
	}
}

func formatRecordStatus(rs workflows.RecordStatus, now time.Time) string {
	if !rs.Present {
		return fmt.Sprintf("%s %s %s", ui.Muted.Sprint("-"), rs.Name, ui.Muted.Sprint("not stored"))
	}

	icon := ui.Success.Sprint("✓")
	note := ""
	if rs.Readable != nil && !*rs.Readable {
		icon = ui.Error.Sprint("✗")
		note = " " + ui.Error.Sprint("cannot be decrypted")
	}

	updated := ""
	if rs.ModTime != nil {
		updated = " " + ui.Muted.Sprint("updated "+humanize.RelTime(*rs.ModTime, now, "ago", "from now"))
	}
	return fmt.Sprintf("%s %s%s%s", icon, rs.Name, updated, note)
}
