package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
	"github.com/garmin-mcp/garmin-secrets/internal/ui"
	"github.com/garmin-mcp/garmin-secrets/internal/utils"
)

var (
	credentialsEmail         string
	credentialsPasswordStdin bool

	// readPassword is swapped in tests.
	readPassword = promptPassword
)

func init() {
	credentialsSetCmd.Flags().StringVar(&credentialsEmail, "email", "", "Garmin Connect email address (required)")
	credentialsSetCmd.Flags().BoolVar(&credentialsPasswordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	_ = credentialsSetCmd.MarkFlagRequired("email")

	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

func resetCredentialsCommandState() {
	credentialsEmail = ""
	credentialsPasswordStdin = false
	readPassword = promptPassword
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the stored Garmin Connect login",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Encrypts and stores the Garmin Connect login",
	Long: `Encrypts and stores the Garmin Connect email and password.

The password is read from the terminal without echo, or from stdin with
--password-stdin (or whenever stdin is not a terminal):

  echo "$GARMIN_PASSWORD" | garmin-secrets credentials set --email me@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting credentials set command")

		email := strings.TrimSpace(credentialsEmail)
		if !utils.IsValidEmail(email) {
			fmt.Println(ui.Failed("") + ui.Highlight.Sprint(email) + " is not a valid email address")
			return reported(fmt.Errorf("invalid email address %q", email))
		}

		password, err := readPassword(credentialsPasswordStdin)
		if err != nil {
			fmt.Println(ui.Failed("") + err.Error())
			return reported(err)
		}
		defer secrets.Zero(password)

		spinner, cleanup := startSpinner("Encrypting credentials...")
		defer cleanup()

		svc, err := newService()
		if err != nil {
			spinner.FinalMSG = formatError("Failed to load configuration", err)
			return reported(err)
		}

		creds := &secrets.GarminCredentials{Email: email, Password: string(password)}
		if err := svc.SaveCredentials(cmd.Context(), creds); err != nil {
			spinner.FinalMSG = formatError("Failed to save credentials", err)
			return reported(err)
		}

		spinner.FinalMSG = ui.Done("Credentials for ") + ui.Highlight.Sprint(email) + " encrypted and saved"
		return nil
	},
}

// promptPassword reads the password from the terminal, or from stdin when
// fromStdin is set or stdin is piped.
func promptPassword(fromStdin bool) ([]byte, error) {
	if fromStdin || !utils.IsTerminal() {
		return utils.ReadStdin()
	}

	password, err := utils.ReadPassphrase("Garmin password: ")
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows the stored login with the password redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting credentials show command")

		svc, err := newService()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		creds, err := svc.LoadCredentials(cmd.Context())
		if err != nil {
			fmt.Println(formatError("Failed to read credentials", err))
			return reported(err)
		}
		if creds == nil {
			fmt.Println(ui.Muted.Sprint("-") + " No credentials stored")
			fmt.Println(ui.Hint("Run ") + ui.Code.Sprint("garmin-secrets credentials set --email <address>"))
			return nil
		}

		fmt.Printf("Email:    %s\n", creds.Email)
		fmt.Printf("Password: %s\n", redact(creds.Password))
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deletes the stored login",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting credentials delete command")

		svc, err := newService()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		if err := svc.DeleteCredentials(); err != nil {
			fmt.Println(formatError("Failed to delete credentials", err))
			return reported(err)
		}

		fmt.Println(ui.Done("Credentials deleted"))
		return nil
	},
}

// redact hides a secret but keeps a hint of its shape.
func redact(secret string) string {
	if secret == "" {
		return ui.Muted.Sprint("empty")
	}
	return strings.Repeat("*", 8) + " " + ui.Muted.Sprint(fmt.Sprintf("%d characters", len([]rune(secret))))
}
