package commands

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/credentials"
	"github.com/skylink-net/skylinkctl/internal/rotation"
	"github.com/skylink-net/skylinkctl/internal/rotation/notifications"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

func NewRotateCommand(cfg *config.Config) *cobra.Command {
	var (
		once        bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate credentials on a schedule",
		Long: `Run the credential rotation loop for the deployed service.

Every tick regenerates the full credential set (trojan password plus
all three UUIDs), rebuilds the connection descriptor, announces it to
the configured destinations, and appends it to the rotation log. The
loop runs in the foreground until interrupted; the interval restarts
from zero on every launch.

Examples:
  skylinkctl rotate                          # Rotate every 6h (or rotation.schedule)
  skylinkctl rotate --once                   # Single rotation, then exit
  skylinkctl rotate --metrics-addr :9090     # Expose Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			def, err := loadDefinition(cfg)
			if err != nil {
				return err
			}

			store := openStorage()
			deployment, err := resolveDeployment(store, def)
			if err != nil {
				return err
			}

			notifier, err := buildNotifier(ctx, cfg, def)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				rotation.InitMetrics()
				notifications.InitMetrics()
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						cfg.Logger.Error("Metrics server failed: %v", err)
					}
				}()
				cfg.Logger.Info("Serving Prometheus metrics on %s/metrics", metricsAddr)
			}

			scheduler, err := rotation.NewScheduler(
				rotation.Config{
					ServiceName:   deployment.ServiceName,
					Protocol:      uri.Protocol(deployment.Protocol),
					CanonicalHost: deployment.CanonicalHost,
					Schedule:      def.Rotation.Schedule,
				},
				rotation.Deps{
					Generator: credentials.NewGenerator(cfg.Logger),
					Notifier:  notifier,
					Logbook:   rotationLogbook(def),
					Store:     store,
					Metrics:   rotation.NewMetrics(),
					Logger:    cfg.Logger,
				},
			)
			if err != nil {
				return err
			}

			if once {
				return scheduler.Rotate(ctx)
			}

			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			cfg.Logger.Info("Rotation loop started (schedule %s), next rotation at %s",
				def.Rotation.Schedule,
				scheduler.NextRotation(time.Now()).Format(time.RFC3339))

			<-ctx.Done()
			cfg.Logger.Info("Shutting down rotation loop")
			scheduler.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Perform a single rotation and exit")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}
