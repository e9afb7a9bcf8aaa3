package cmd

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
	"github.com/garmin-mcp/garmin-secrets/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates the data directory and the encryption key",
	Long: `Creates the data directory, its ignore manifest and config.toml, and
loads or generates the encryption key.

The key is stored in the native credential vault when one is available,
and in a private key file otherwise. Running init again is harmless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		if !verbose && !debug {
			fmt.Println()
			figure.NewColorFigure("garmin-mcp", "standard", "cyan", true).Print()
			fmt.Println()
		}

		spinner, cleanup := startSpinner("Initializing secret store...")
		defer cleanup()

		svc, err := newService()
		if err != nil {
			spinner.FinalMSG = formatError("Failed to load configuration", err)
			return reported(err)
		}

		result, err := svc.Initialize(cmd.Context())
		if err != nil {
			spinner.FinalMSG = formatError("Failed to initialize", err)
			return reported(err)
		}
		Logger.Debugf("Initialized %s with key %s in %s", result.DataDir, result.KeyID, result.Backend)

		msg := ui.Done("Secret store ready at ") + ui.Path.Sprint(result.DataDir) + "\n"
		switch result.Backend {
		case secrets.BackendVault:
			msg += ui.Hint("Encryption key is held by the native vault (") + ui.Highlight.Sprint(result.VaultName) + ")\n"
		default:
			msg += ui.Caution("Encryption key is stored in ") + ui.Path.Sprint(svc.Settings().KeyFilePath) + "\n"
		}
		if result.Migrated {
			msg += ui.Hint("Moved the existing key file into the vault\n")
		}
		msg += ui.Hint("Run ") + ui.Code.Sprint("garmin-secrets credentials set --email <address>") + " to store your login"
		spinner.FinalMSG = msg
		return nil
	},
}
