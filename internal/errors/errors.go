package errors

import (
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// DeployError represents a failure while provisioning the Cloud Run service.
// Deploy failures are fatal: the rotation scheduler never starts without a
// deployed endpoint.
type DeployError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

func (e DeployError) Error() string {
	msg := fmt.Sprintf("Deployment of '%s' failed", e.Service)
	if e.Operation != "" {
		msg += fmt.Sprintf(" during %s", e.Operation)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if suggestion := getDeploySuggestion(e.Err); suggestion != "" {
		msg += "\n  💡 " + suggestion
	}
	return msg
}

func (e DeployError) Unwrap() error {
	return e.Err
}

// NewDeployError builds a DeployError for the given service and operation.
func NewDeployError(service, operation, message string, err error) DeployError {
	return DeployError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NotifyError records a single failed delivery attempt. It is never fatal;
// the scheduler logs it and moves on to the next destination.
type NotifyError struct {
	Destination string
	Err         error
}

func (e NotifyError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.Destination, e.Err)
}

func (e NotifyError) Unwrap() error {
	return e.Err
}

// getDeploySuggestion returns helpful suggestions based on Cloud Run errors
func getDeploySuggestion(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PermissionDenied") || strings.Contains(errStr, "403"):
		return "Check IAM permissions: run.services.create, run.services.setIamPolicy"
	case strings.Contains(errStr, "Unauthenticated") || strings.Contains(errStr, "401"):
		return "Check authentication: set GOOGLE_APPLICATION_CREDENTIALS or run 'gcloud auth application-default login'"
	case strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "404"):
		return "Verify the project ID and region. Check that the Cloud Run API is enabled"
	case strings.Contains(errStr, "ResourceExhausted") || strings.Contains(errStr, "429"):
		return "Request was throttled. Wait a moment and try again"
	case strings.Contains(errStr, "project"):
		return "Check that the project ID is correct and billing is enabled"
	case strings.Contains(errStr, "timeout"):
		return "The operation timed out. Check your network connection and try again"
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return "Unable to connect. Check your network and proxy settings"
	}

	return ""
}

// TelegramSuggestion returns guidance for common Telegram Bot API failures.
func TelegramSuggestion(statusCode int) string {
	switch statusCode {
	case 401:
		return "The bot token is invalid. Get a new one from @BotFather and run 'skylinkctl login'"
	case 400:
		return "Check the chat ID. The bot must have been started by the recipient (send /start to the bot)"
	case 403:
		return "The bot was blocked by the recipient or lacks access to the chat"
	case 429:
		return "Telegram rate limit exceeded. Reduce the number of destinations or the rotation frequency"
	default:
		return ""
	}
}

// IsTransient checks if an error looks like a transient transport failure.
// The scheduler never retries, but uses this to soften log severity.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"too many requests",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
