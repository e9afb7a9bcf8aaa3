package cmd

import (
	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/ui"
)

var migrateKeyCmd = &cobra.Command{
	Use:   "migrate-key",
	Short: "Moves the encryption key from the key file into the native vault",
	Long: `Copies the active encryption key into the native credential vault and
deletes the fallback key file once the vault copy is confirmed.

Nothing changes if the vault already holds a different key. Running
migrate-key again after a success is harmless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting migrate-key command")

		spinner, cleanup := startSpinner("Moving encryption key into the native vault...")
		defer cleanup()

		svc, err := newService()
		if err != nil {
			spinner.FinalMSG = formatError("Failed to load configuration", err)
			return reported(err)
		}

		if _, err := svc.MigrateKeyToVault(cmd.Context()); err != nil {
			spinner.FinalMSG = formatError("Failed to migrate key", err)
			return reported(err)
		}

		spinner.FinalMSG = ui.Done("Encryption key is stored in the native vault\n") +
			ui.Hint("The key file ") + ui.Path.Sprint(svc.Settings().KeyFilePath) + " has been removed"
		return nil
	},
}
