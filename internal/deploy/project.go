// Package deploy provisions the tunnel service on Cloud Run and verifies
// that the deployed endpoint answers before descriptors are handed out.
package deploy

import (
	"os"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
)

// projectEnvVars are checked in order for the active project ID.
var projectEnvVars = []string{
	"GOOGLE_CLOUD_PROJECT",
	"GCLOUD_PROJECT",
	"GCP_PROJECT",
}

// ProjectID returns the Google Cloud project to deploy into, taken from
// the first set environment variable.
func ProjectID() (string, error) {
	for _, name := range projectEnvVars {
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
	}
	return "", dserrors.UserError{
		Message:    "No Google Cloud project configured",
		Suggestion: "Export GOOGLE_CLOUD_PROJECT=<project-id>, or run 'gcloud config set project <project-id>' and export its value",
	}
}
