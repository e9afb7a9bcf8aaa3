package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/ui"
	"github.com/garmin-mcp/garmin-secrets/internal/utils"
)

var tokensImportDir string

func init() {
	tokensImportCmd.Flags().StringVar(&tokensImportDir, "dir", "", "directory holding oauth1_token.json and oauth2_token.json (required)")
	_ = tokensImportCmd.MarkFlagRequired("dir")

	tokensCmd.AddCommand(tokensShowCmd)
	tokensCmd.AddCommand(tokensDeleteCmd)
	tokensCmd.AddCommand(tokensImportCmd)
}

func resetTokensCommandState() {
	tokensImportDir = ""
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage the stored Garmin OAuth tokens",
}

var tokensShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows when the stored tokens were saved and when they expire",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting tokens show command")

		svc, err := newService()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		tokens, err := svc.LoadTokens(cmd.Context())
		if err != nil {
			fmt.Println(formatError("Failed to read tokens", err))
			return reported(err)
		}
		if tokens == nil {
			fmt.Println(ui.Muted.Sprint("-") + " No OAuth tokens stored")
			return nil
		}

		now := time.Now()
		fmt.Printf("OAuth1: %s\n", presence(len(tokens.OAuth1) > 0))
		fmt.Printf("OAuth2: %s\n", presence(len(tokens.OAuth2) > 0))
		if tokens.SavedAt != nil {
			fmt.Printf("Saved:  %s %s\n", tokens.SavedAt.Local().Format(time.DateTime), ui.Muted.Sprint(humanize.RelTime(*tokens.SavedAt, now, "ago", "from now")))
		}
		if expiresAt, ok := tokens.ExpiresAt(); ok {
			label := "Expires:"
			if expiresAt.Before(now) {
				label = "Expired:"
			}
			fmt.Printf("%s %s %s\n", label, expiresAt.Local().Format(time.DateTime), ui.Muted.Sprint(humanize.RelTime(expiresAt, now, "ago", "from now")))
		}
		return nil
	},
}

func presence(ok bool) string {
	if ok {
		return ui.Success.Sprint("present")
	}
	return ui.Warning.Sprint("missing")
}

var tokensDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deletes the stored OAuth tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting tokens delete command")

		svc, err := newService()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		if err := svc.DeleteTokens(); err != nil {
			fmt.Println(formatError("Failed to delete tokens", err))
			return reported(err)
		}

		fmt.Println(ui.Done("OAuth tokens deleted"))
		return nil
	},
}

var tokensImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Encrypts plaintext OAuth token files from an older version",
	Long: `Reads oauth1_token.json and oauth2_token.json from --dir, stores them
encrypted, and deletes the plaintext files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting tokens import command")

		spinner, cleanup := startSpinner("Importing OAuth tokens...")
		defer cleanup()

		svc, err := newService()
		if err != nil {
			spinner.FinalMSG = formatError("Failed to load configuration", err)
			return reported(err)
		}

		result, err := svc.ImportLegacyTokens(cmd.Context(), tokensImportDir)
		if err != nil {
			spinner.FinalMSG = formatError("Failed to import tokens", err)
			return reported(err)
		}

		msg := ui.Done("OAuth tokens encrypted into ") + ui.Highlight.Sprint(result.Record)
		if len(result.Removed) > 0 {
			msg += "\n" + ui.Hint("Removed plaintext files:") + utils.FormatPaths(result.Removed)
		}
		spinner.FinalMSG = msg
		return nil
	},
}
