package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skylink-net/skylinkctl/cmd/skylinkctl/commands"
	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "skylinkctl",
		Short: "SkyLink - Deploy and rotate personal VPN tunnels on Cloud Run",
		Long: `skylinkctl deploys a tunnel container to Cloud Run, issues connection
descriptors for trojan, vless, vless-grpc, and vmess clients, and
rotates the credentials on a schedule with announcements to Telegram.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "skylink.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	// Add commands
	rootCmd.AddCommand(
		commands.NewDeployCommand(cfg),
		commands.NewRotateCommand(cfg),
		commands.NewURICommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewHistoryCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
