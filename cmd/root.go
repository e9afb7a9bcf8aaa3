package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	logger "github.com/garmin-mcp/garmin-secrets/internal/logging"
	"github.com/garmin-mcp/garmin-secrets/internal/workflows"
)

var (
	verbose bool
	debug   bool
	dataDir string
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "garmin-secrets",
		Short: "Manage the encrypted Garmin credential store",
		Long: `Stores Garmin Connect credentials and OAuth tokens encrypted at rest.

The encryption key is kept in the operating system's credential vault
(macOS Keychain, Windows Credential Manager, Secret Service or KWallet)
when one is available, and in a private key file otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			l := logger.FromEnv()
			l.Verbose = verbose
			l.Debug = l.Debug || debug
			Logger = l
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
	}
)

// globalFlags are shared by every command.
func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	fs.BoolVarP(&debug, "debug", "d", false, "enable debug output")
	fs.StringVar(&dataDir, "data-dir", "", "override the data directory (default: platform config dir, or $GARMIN_MCP_DATA_DIR)")
	return fs
}

func init() {
	RootCmd.PersistentFlags().AddFlagSet(globalFlags())

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(migrateKeyCmd)
	RootCmd.AddCommand(credentialsCmd)
	RootCmd.AddCommand(tokensCmd)
	RootCmd.AddCommand(importEnvCmd)
	RootCmd.AddCommand(forgetCmd)
	RootCmd.AddCommand(logCmd)
}

// newService builds the store for the current flags.
func newService() (*workflows.Service, error) {
	return workflows.New(workflows.Options{
		DataDir: dataDir,
		Logger:  Logger,
	})
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	dataDir = ""
	resetStatusCommandState()
	resetDoctorCommandState()
	resetCredentialsCommandState()
	resetTokensCommandState()
	resetImportEnvCommandState()
	resetForgetCommandState()
	resetLogCommandState()
}
