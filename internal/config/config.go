package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
	"github.com/skylink-net/skylinkctl/internal/logging"
	"github.com/skylink-net/skylinkctl/internal/rotation"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

// Defaults for the deployed tunnel service.
const (
	DefaultRegion         = "us-central1"
	DefaultMemory         = "512Mi"
	DefaultCPU            = "1"
	DefaultTimeoutSeconds = 3600
	DefaultPort           = 8080
	DefaultMinInstances   = 1
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the skylink.yaml structure
type Definition struct {
	Version       int                 `yaml:"version"`
	Service       ServiceDefinition   `yaml:"service"`
	Protocol      string              `yaml:"protocol"`
	Rotation      RotationDefinition  `yaml:"rotation"`
	Notifications *NotificationConfig `yaml:"notifications,omitempty"`
}

// ServiceDefinition holds the Cloud Run deployment inputs.
type ServiceDefinition struct {
	Name           string `yaml:"name"`
	Image          string `yaml:"image"`
	Region         string `yaml:"region,omitempty"`
	Memory         string `yaml:"memory,omitempty"`
	CPU            string `yaml:"cpu,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	MinInstances   int    `yaml:"min_instances,omitempty"`
}

// RotationDefinition holds the credential rotation settings.
type RotationDefinition struct {
	// Schedule is a cron spec, typically "@every <duration>".
	Schedule string `yaml:"schedule,omitempty"`

	// LogPath overrides the plain-text rotation log location.
	LogPath string `yaml:"log_path,omitempty"`
}

// Load reads, validates, and defaults the skylink.yaml file. External
// environment overrides are applied once here and never reloaded.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a skylink.yaml or pass --config",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := ValidateDocument(data); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 1 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 1' at the top of your skylink.yaml file",
		}
	}

	def.applyDefaults()
	def.applyEnvironment()

	if _, err := uri.ParseProtocol(def.Protocol); err != nil {
		return dserrors.ConfigError{
			Field:      "protocol",
			Value:      def.Protocol,
			Message:    "unsupported protocol",
			Suggestion: "Use one of: trojan, vless, vless-grpc, vmess",
		}
	}

	c.Definition = &def
	return nil
}

// applyDefaults fills unset fields with the deployment defaults.
func (d *Definition) applyDefaults() {
	if d.Service.Region == "" {
		d.Service.Region = DefaultRegion
	}
	if d.Service.Memory == "" {
		d.Service.Memory = DefaultMemory
	}
	if d.Service.CPU == "" {
		d.Service.CPU = DefaultCPU
	}
	if d.Service.TimeoutSeconds == 0 {
		d.Service.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if d.Service.Port == 0 {
		d.Service.Port = DefaultPort
	}
	if d.Service.MinInstances == 0 {
		d.Service.MinInstances = DefaultMinInstances
	}
	if d.Protocol == "" {
		d.Protocol = string(uri.ProtocolTrojan)
	}
	if d.Rotation.Schedule == "" {
		d.Rotation.Schedule = rotation.DefaultSchedule
	}
}

// applyEnvironment overlays the optional process-environment settings:
// the notification bot credential and destination identifiers.
func (d *Definition) applyEnvironment() {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chats := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" && chats == "" {
		return
	}

	if d.Notifications == nil {
		d.Notifications = &NotificationConfig{}
	}
	if d.Notifications.Telegram == nil {
		d.Notifications.Telegram = &TelegramNotificationConfig{}
	}

	if token != "" {
		d.Notifications.Telegram.BotToken = "env://TELEGRAM_BOT_TOKEN"
	}
	if chats != "" {
		ids := make([]string, 0)
		for _, id := range strings.Split(chats, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				ids = append(ids, trimmed)
			}
		}
		if len(ids) > 0 {
			d.Notifications.Telegram.ChatIDs = ids
		}
	}
}

// HasNotifications returns true if at least one destination is configured.
func (d *Definition) HasNotifications() bool {
	if d.Notifications == nil {
		return false
	}
	if d.Notifications.Telegram != nil && len(d.Notifications.Telegram.ChatIDs) > 0 {
		return true
	}
	return len(d.Notifications.Webhooks) > 0
}
