package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/credentials"
	"github.com/skylink-net/skylinkctl/internal/deploy"
	"github.com/skylink-net/skylinkctl/internal/rotation/notifications"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

func NewDeployCommand(cfg *config.Config) *cobra.Command {
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the tunnel service to Cloud Run",
		Long: `Provision the tunnel container as a Cloud Run service, open it to
unauthenticated callers, and issue the initial credential set.

The project is taken from GOOGLE_CLOUD_PROJECT (or GCLOUD_PROJECT /
GCP_PROJECT). The assigned *.run.app hostname is stored locally and
reused by 'rotate', 'uri', and 'status'.

Examples:
  skylinkctl deploy                 # Deploy with settings from skylink.yaml
  skylinkctl deploy --skip-probe    # Skip the post-deploy endpoint check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			def, err := loadDefinition(cfg)
			if err != nil {
				return err
			}

			projectID, err := deploy.ProjectID()
			if err != nil {
				return err
			}

			client, err := deploy.NewClient(ctx, def.Service.Region, cfg.Logger)
			if err != nil {
				return err
			}

			result, err := client.Deploy(ctx, deploy.Spec{
				ProjectID:      projectID,
				Name:           def.Service.Name,
				Image:          def.Service.Image,
				Region:         def.Service.Region,
				Memory:         def.Service.Memory,
				CPU:            def.Service.CPU,
				TimeoutSeconds: def.Service.TimeoutSeconds,
				Port:           def.Service.Port,
				MinInstances:   def.Service.MinInstances,
			})
			if err != nil {
				return err
			}

			if skipProbe {
				cfg.Logger.Warn("Skipping endpoint probe (--skip-probe)")
			} else {
				cfg.Logger.Info("Probing %s", result.ServiceURI)
				prober := deploy.NewProber(deploy.DefaultProbeConfig())
				if err := prober.Probe(ctx, result.ServiceURI); err != nil {
					return err
				}
				cfg.Logger.Info("Endpoint is answering")
			}

			now := time.Now()
			store := openStorage()
			if err := store.SaveDeployment(&storage.Deployment{
				ServiceName:   def.Service.Name,
				ProjectID:     projectID,
				Region:        def.Service.Region,
				Image:         def.Service.Image,
				CanonicalHost: result.CanonicalHost,
				Protocol:      def.Protocol,
				DeployedAt:    now,
			}); err != nil {
				return err
			}

			protocol, err := uri.ParseProtocol(def.Protocol)
			if err != nil {
				return err
			}

			set := credentials.NewGenerator(cfg.Logger).Generate()
			descriptor, err := uri.Build(protocol, set, result.CanonicalHost)
			if err != nil {
				return err
			}

			if err := rotationLogbook(def).Append(now, set, descriptor); err != nil {
				cfg.Logger.Warn("Failed to append rotation log: %v", err)
			}

			if def.HasNotifications() {
				notifier, err := buildNotifier(ctx, cfg, def)
				if err != nil {
					return err
				}
				// Deliver through the async queue; Stop drains it
				// before the command returns.
				notifier.Start(ctx)
				notifier.Send(notifications.RotationEvent{
					Type:          notifications.EventTypeDeployed,
					Service:       def.Service.Name,
					Protocol:      def.Protocol,
					Descriptor:    descriptor,
					CanonicalHost: result.CanonicalHost,
					Timestamp:     now,
				})
				notifier.Stop()
			}

			cfg.Logger.Info("Service %s deployed at %s", def.Service.Name, result.CanonicalHost)
			cfg.Logger.Out("%s", descriptor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Skip the post-deploy endpoint check")

	return cmd
}
