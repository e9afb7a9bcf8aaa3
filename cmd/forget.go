package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/ui"
)

var forgetForce bool

func init() {
	forgetCmd.Flags().BoolVar(&forgetForce, "force", false, "confirm deletion of stored credentials and tokens")
}

func resetForgetCommandState() {
	forgetForce = false
}

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Deletes stored credentials and OAuth tokens",
	Long: `Deletes the encrypted credentials and OAuth tokens. The encryption key
is kept, so new secrets can be stored without running init again.

Requires --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting forget command")

		if !forgetForce {
			fmt.Println(ui.Caution("This deletes the stored Garmin login and OAuth tokens"))
			fmt.Println(ui.Hint("Run ") + ui.Code.Sprint("garmin-secrets forget --force") + " to confirm")
			return nil
		}

		svc, err := newService()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		if err := svc.Forget(); err != nil {
			fmt.Println(formatError("Failed to delete stored secrets", err))
			return reported(err)
		}

		fmt.Println(ui.Done("Stored credentials and tokens deleted"))
		fmt.Println(ui.Muted.Sprint("the encryption key was kept"))
		return nil
	},
}
