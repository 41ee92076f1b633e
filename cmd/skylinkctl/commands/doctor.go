package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/deploy"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and environment",
		Long: `Verify that everything needed for deploy and rotate is in place.

This command checks:
- Configuration file validity
- Google Cloud project environment variables
- Local storage directory
- Notification destination configuration
- The stored deployment record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			failures := 0
			check := func(ok bool, okMsg, failMsg string) {
				if ok {
					cfg.Logger.Info("%s", okMsg)
				} else {
					cfg.Logger.Error("%s", failMsg)
					failures++
				}
			}

			def, err := loadDefinition(cfg)
			check(err == nil, "Configuration loaded",
				fmt.Sprintf("Configuration: %v", err))
			if err != nil {
				return fmt.Errorf("%d check(s) failed", failures)
			}

			projectID, err := deploy.ProjectID()
			check(err == nil,
				fmt.Sprintf("Google Cloud project: %s", projectID),
				"Google Cloud project: no GOOGLE_CLOUD_PROJECT set")

			storageDir := storage.DefaultStorageDir()
			probe := filepath.Join(storageDir, ".doctor")
			writeErr := os.MkdirAll(storageDir, 0700)
			if writeErr == nil {
				writeErr = os.WriteFile(probe, nil, 0600)
			}
			if writeErr == nil {
				os.Remove(probe)
			}
			check(writeErr == nil,
				fmt.Sprintf("Storage directory writable: %s", storageDir),
				fmt.Sprintf("Storage directory not writable: %s", storageDir))

			if def.HasNotifications() {
				notifier, buildErr := buildNotifier(ctx, cfg, def)
				check(buildErr == nil, "Notification destinations configured",
					fmt.Sprintf("Notifications: %v", buildErr))
				if buildErr == nil {
					for _, provider := range notifier.Providers() {
						validateErr := provider.Validate(ctx)
						check(validateErr == nil,
							fmt.Sprintf("Destination %s valid", provider.Name()),
							fmt.Sprintf("Destination %s: %v", provider.Name(), validateErr))
					}
				}
			} else {
				cfg.Logger.Warn("No notification destinations configured; rotations will only be logged locally")
			}

			deployment, depErr := resolveDeployment(openStorage(), def)
			if depErr == nil {
				cfg.Logger.Info("Deployment record found for %s", def.Service.Name)
				probeCfg := deploy.DefaultProbeConfig()
				probeCfg.Attempts = 1
				probeErr := deploy.NewProber(probeCfg).Probe(ctx, "https://"+deployment.CanonicalHost)
				check(probeErr == nil,
					fmt.Sprintf("Endpoint %s is answering", deployment.CanonicalHost),
					fmt.Sprintf("Endpoint %s: %v", deployment.CanonicalHost, probeErr))
			} else {
				cfg.Logger.Warn("No deployment record yet; run 'skylinkctl deploy' first")
			}

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			cfg.Logger.Info("All checks passed")
			return nil
		},
	}

	return cmd
}
