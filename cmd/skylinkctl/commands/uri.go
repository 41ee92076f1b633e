package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/credentials"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

func NewURICommand(cfg *config.Config) *cobra.Command {
	var (
		all  bool
		host string
	)

	cmd := &cobra.Command{
		Use:   "uri [protocol]",
		Short: "Issue fresh credentials and print a connection descriptor",
		Long: `Generate a new credential set and print the connection descriptor
for the deployed service.

Descriptors are self-contained: import one into a client app and the
tunnel works until the next rotation replaces the credentials. The
fresh set is appended to the rotation log. By default the configured
protocol is used; pass a protocol name to override it.

Examples:
  skylinkctl uri               # Descriptor for the configured protocol
  skylinkctl uri vmess         # Descriptor for a specific protocol
  skylinkctl uri --all         # One descriptor per protocol, same set`,
		ValidArgs: []string{"trojan", "vless", "vless-grpc", "vmess"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(cfg)
			if err != nil {
				return err
			}

			canonicalHost := host
			if canonicalHost == "" {
				deployment, err := resolveDeployment(openStorage(), def)
				if err != nil {
					return err
				}
				canonicalHost = deployment.CanonicalHost
			}

			set := credentials.NewGenerator(cfg.Logger).Generate()

			protocols := uri.AllProtocols()
			if !all {
				protocol, err := protocolFromArgs(args, def)
				if err != nil {
					return err
				}
				protocols = []uri.Protocol{protocol}
			}

			descriptors := make([]string, 0, len(protocols))
			for _, protocol := range protocols {
				descriptor, err := uri.Build(protocol, set, canonicalHost)
				if err != nil {
					return err
				}
				descriptors = append(descriptors, descriptor)
			}

			// One logbook block per issued set, recorded with the
			// descriptor the user asked for first.
			if err := rotationLogbook(def).Append(time.Now(), set, descriptors[0]); err != nil {
				cfg.Logger.Warn("Failed to append rotation log: %v", err)
			}

			for _, descriptor := range descriptors {
				cfg.Logger.Out("%s", descriptor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Print descriptors for all protocols")
	cmd.Flags().StringVar(&host, "host", "", "Override the canonical host (skips the stored deployment)")

	return cmd
}
