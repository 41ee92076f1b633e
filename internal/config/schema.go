package config

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
)

// configSchema is the JSON schema for skylink.yaml. The YAML document is
// converted to JSON before validation.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "skylink.yaml",
  "type": "object",
  "required": ["version", "service"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer"},
    "protocol": {
      "type": "string",
      "enum": ["trojan", "vless", "vless-grpc", "vmess"]
    },
    "service": {
      "type": "object",
      "required": ["name", "image"],
      "additionalProperties": false,
      "properties": {
        "name": {
          "type": "string",
          "pattern": "^[a-z]([a-z0-9-]{0,61}[a-z0-9])?$"
        },
        "image": {"type": "string", "minLength": 1},
        "region": {"type": "string"},
        "memory": {"type": "string", "pattern": "^[0-9]+(Mi|Gi)$"},
        "cpu": {"type": "string"},
        "timeout_seconds": {"type": "integer", "minimum": 1, "maximum": 3600},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535},
        "min_instances": {"type": "integer", "minimum": 0}
      }
    },
    "rotation": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "schedule": {"type": "string"},
        "log_path": {"type": "string"}
      }
    },
    "notifications": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "telegram": {
          "type": "object",
          "required": ["chat_ids"],
          "additionalProperties": false,
          "properties": {
            "bot_token": {"type": "string"},
            "chat_ids": {
              "type": "array",
              "items": {"type": "string"},
              "minItems": 1
            },
            "events": {"type": "array", "items": {"type": "string"}},
            "api_base": {"type": "string"},
            "timeout_seconds": {"type": "integer", "minimum": 1}
          }
        },
        "webhooks": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["url"],
            "additionalProperties": false,
            "properties": {
              "name": {"type": "string"},
              "url": {"type": "string"},
              "method": {"type": "string", "enum": ["POST", "PUT", "PATCH"]},
              "headers": {
                "type": "object",
                "additionalProperties": {"type": "string"}
              },
              "events": {"type": "array", "items": {"type": "string"}},
              "payload_template": {"type": "string"},
              "timeout_seconds": {"type": "integer", "minimum": 1}
            }
          }
        }
      }
    }
  }
}`

// ValidateDocument checks raw skylink.yaml bytes against the schema before
// any struct decoding happens, so field errors carry their YAML paths.
func ValidateDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return dserrors.ConfigError{
			Message:    "configuration cannot be converted for validation",
			Suggestion: "Use only string keys in skylink.yaml mappings",
		}
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return dserrors.UserError{
			Message: "Schema validation error",
			Details: err.Error(),
			Err:     err,
		}
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return dserrors.ConfigError{
			Message:    "configuration failed validation:\n  - " + strings.Join(messages, "\n  - "),
			Suggestion: "Fix the listed fields in skylink.yaml",
		}
	}

	return nil
}
