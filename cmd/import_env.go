package cmd

import (
	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/ui"
)

var importEnvFile string

func init() {
	importEnvCmd.Flags().StringVarP(&importEnvFile, "file", "f", ".env", "path to the .env file holding GARMIN_EMAIL and GARMIN_PASSWORD")
}

func resetImportEnvCommandState() {
	importEnvFile = ".env"
}

var importEnvCmd = &cobra.Command{
	Use:   "import-env",
	Short: "Moves a plaintext login out of a .env file into encrypted storage",
	Long: `Reads GARMIN_EMAIL and GARMIN_PASSWORD from a .env file, stores them
encrypted, and rewrites the file without them. Other lines are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting import-env command")

		spinner, cleanup := startSpinner("Encrypting credentials from " + importEnvFile + "...")
		defer cleanup()

		svc, err := newService()
		if err != nil {
			spinner.FinalMSG = formatError("Failed to load configuration", err)
			return reported(err)
		}

		result, err := svc.ImportEnvCredentials(cmd.Context(), importEnvFile)
		if err != nil {
			spinner.FinalMSG = formatError("Failed to import credentials", err)
			return reported(err)
		}

		msg := ui.Done("Credentials for ") + ui.Highlight.Sprint(result.Email) + " encrypted into " + ui.Highlight.Sprint(result.Record)
		if result.Rewritten != "" {
			msg += "\n" + ui.Hint("Removed the plaintext login from ") + ui.Path.Sprint(result.Rewritten)
		}
		spinner.FinalMSG = msg
		return nil
	},
}
