package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
)

// NewStatusCommand creates the status command
func NewStatusCommand(cfg *config.Config) *cobra.Command {
	var statusFormat string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show deployment and rotation status",
		Long: `Display the stored deployment record and the current rotation state:
last and next rotation, rotation count, and notification delivery
totals.`,
		Example: `  # Show current status
  skylinkctl status

  # Machine-readable output
  skylinkctl status --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(cfg)
			if err != nil {
				return err
			}

			store := openStorage()
			deployment, err := resolveDeployment(store, def)
			if err != nil {
				return err
			}

			status, err := store.GetStatus(def.Service.Name)
			if err != nil {
				status = &storage.RotationStatus{
					ServiceName: def.Service.Name,
					Protocol:    deployment.Protocol,
					Status:      "never_rotated",
				}
			}

			switch statusFormat {
			case "json":
				return printStatusJSON(deployment, status)
			case "yaml":
				return printStatusYAML(deployment, status)
			default:
				return printStatusTable(deployment, status)
			}
		},
	}

	cmd.Flags().StringVar(&statusFormat, "format", "table", "Output format: table, json, yaml")

	return cmd
}

type statusDocument struct {
	Deployment *storage.Deployment     `json:"deployment" yaml:"deployment"`
	Rotation   *storage.RotationStatus `json:"rotation" yaml:"rotation"`
}

func printStatusJSON(dep *storage.Deployment, status *storage.RotationStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(statusDocument{Deployment: dep, Rotation: status})
}

func printStatusYAML(dep *storage.Deployment, status *storage.RotationStatus) error {
	return yaml.NewEncoder(os.Stdout).Encode(statusDocument{Deployment: dep, Rotation: status})
}

func printStatusTable(dep *storage.Deployment, status *storage.RotationStatus) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Service:\t%s\n", dep.ServiceName)
	fmt.Fprintf(w, "Project:\t%s\n", dep.ProjectID)
	fmt.Fprintf(w, "Region:\t%s\n", dep.Region)
	fmt.Fprintf(w, "Endpoint:\t%s\n", dep.CanonicalHost)
	fmt.Fprintf(w, "Protocol:\t%s\n", dep.Protocol)
	fmt.Fprintf(w, "Deployed:\t%s\n", dep.DeployedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Rotation state:\t%s\n", status.Status)
	fmt.Fprintf(w, "Rotations:\t%d\n", status.RotationCount)
	if !status.LastRotation.IsZero() {
		fmt.Fprintf(w, "Last rotation:\t%s\n", status.LastRotation.Format(time.RFC3339))
	}
	if status.NextRotation != nil {
		fmt.Fprintf(w, "Next rotation:\t%s\n", status.NextRotation.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Deliveries:\t%d ok, %d failed\n", status.NotifyOK, status.NotifyFailed)
	if status.LastError != "" {
		fmt.Fprintf(w, "Last error:\t%s\n", status.LastError)
	}
	return nil
}
