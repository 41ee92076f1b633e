package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/zalando/go-keyring"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
	"github.com/skylink-net/skylinkctl/internal/logging"
	"github.com/skylink-net/skylinkctl/internal/secure"
)

// Keyring coordinates for the locally stored bot credential.
const (
	KeyringService = "skylinkctl"
	KeyringAccount = "telegram-bot-token"
)

// ResolveBotToken turns a secret reference into a protected token.
// Supported reference forms:
//
//	literal token            used as-is
//	env://VAR                read from the process environment
//	keyring://               read from the OS keyring (see 'skylinkctl login')
//	gcp-sm://project/name    read from Google Secret Manager, latest version
//	gcp-sm://project/name/3  read a pinned Secret Manager version
func ResolveBotToken(ctx context.Context, ref string, logger *logging.Logger) (*secure.Token, error) {
	switch {
	case ref == "":
		return nil, dserrors.UserError{
			Message:    "No Telegram bot token configured",
			Suggestion: "Run 'skylinkctl login', set TELEGRAM_BOT_TOKEN, or add notifications.telegram.bot_token to skylink.yaml",
		}

	case strings.HasPrefix(ref, "env://"):
		name := strings.TrimPrefix(ref, "env://")
		value := os.Getenv(name)
		if value == "" {
			return nil, dserrors.ConfigError{
				Field:      "notifications.telegram.bot_token",
				Value:      ref,
				Message:    fmt.Sprintf("environment variable %s is not set", name),
				Suggestion: fmt.Sprintf("Export %s before running this command", name),
			}
		}
		logger.Debug("Resolved bot token from environment variable %s", name)
		return secure.NewToken([]byte(value)), nil

	case strings.HasPrefix(ref, "keyring://"):
		value, err := keyring.Get(KeyringService, KeyringAccount)
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "Failed to read bot token from the OS keyring",
				Details:    err.Error(),
				Suggestion: "Run 'skylinkctl login' to store the token first",
				Err:        err,
			}
		}
		logger.Debug("Resolved bot token from OS keyring")
		return secure.NewToken([]byte(value)), nil

	case strings.HasPrefix(ref, "gcp-sm://"):
		return resolveSecretManager(ctx, ref, logger)

	default:
		logger.Debug("Using literal bot token from configuration")
		return secure.NewToken([]byte(ref)), nil
	}
}

func resolveSecretManager(ctx context.Context, ref string, logger *logging.Logger) (*secure.Token, error) {
	parts := strings.Split(strings.TrimPrefix(ref, "gcp-sm://"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, dserrors.ConfigError{
			Field:      "notifications.telegram.bot_token",
			Value:      ref,
			Message:    "invalid Secret Manager reference",
			Suggestion: "Use gcp-sm://<project>/<secret> or gcp-sm://<project>/<secret>/<version>",
		}
	}
	version := "latest"
	if len(parts) >= 3 && parts[2] != "" {
		version = parts[2]
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to create Secret Manager client",
			Details:    err.Error(),
			Suggestion: "Run 'gcloud auth application-default login' to set up credentials",
			Err:        err,
		}
	}
	defer client.Close()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", parts[0], parts[1], version)
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, dserrors.UserError{
			Message:    fmt.Sprintf("Failed to access secret %s/%s", parts[0], parts[1]),
			Details:    err.Error(),
			Suggestion: "Check that the secret exists and your account has roles/secretmanager.secretAccessor",
			Err:        err,
		}
	}

	logger.Debug("Resolved bot token from Secret Manager (%s)", name)
	return secure.NewToken(resp.Payload.Data), nil
}
