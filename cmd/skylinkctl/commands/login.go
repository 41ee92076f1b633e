package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/skylink-net/skylinkctl/internal/config"
	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the Telegram bot token in the OS keyring",
		Long: `Read a Telegram bot token from stdin and store it in the OS keyring.

Once stored, reference it from skylink.yaml as:

  notifications:
    telegram:
      bot_token: keyring://

The token never touches the configuration file or shell history.

Examples:
  skylinkctl login < token.txt
  echo "$BOT_TOKEN" | skylinkctl login
  skylinkctl login --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				if err := keyring.Delete(config.KeyringService, config.KeyringAccount); err != nil {
					return dserrors.UserError{
						Message: "Failed to remove bot token from the OS keyring",
						Details: err.Error(),
						Err:     err,
					}
				}
				cfg.Logger.Info("Bot token removed from the OS keyring")
				return nil
			}

			if !cfg.NonInteractive {
				fmt.Fprint(os.Stderr, "Telegram bot token: ")
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return dserrors.UserError{
					Message:    "No token provided on stdin",
					Suggestion: "Pipe the token in, e.g. echo \"$BOT_TOKEN\" | skylinkctl login",
				}
			}

			token := strings.TrimSpace(line)
			if token == "" {
				return dserrors.UserError{
					Message:    "Empty bot token",
					Suggestion: "Paste the token issued by @BotFather",
				}
			}

			if err := keyring.Set(config.KeyringService, config.KeyringAccount, token); err != nil {
				return dserrors.UserError{
					Message:    "Failed to store bot token in the OS keyring",
					Details:    err.Error(),
					Suggestion: "Check that a keyring service is available (gnome-keyring, Keychain, or Credential Manager)",
					Err:        err,
				}
			}

			cfg.Logger.Info("Bot token stored in the OS keyring")
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the stored bot token")

	return cmd
}
