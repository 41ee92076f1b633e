package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand(cfg *config.Config) *cobra.Command {
	var (
		historyLimit  int
		historyFormat string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show rotation history",
		Long: `Display past rotation ticks for the deployed service, newest first:
timestamp, protocol, tick duration, and the per-destination delivery
outcomes.

Credential values never appear here; they live only in the rotation
log file.`,
		Example: `  # Show the last 20 rotations
  skylinkctl history

  # Show only the last 5
  skylinkctl history --limit 5

  # Machine-readable output
  skylinkctl history --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(cfg)
			if err != nil {
				return err
			}

			entries, err := openStorage().GetHistory(def.Service.Name, historyLimit)
			if err != nil {
				return err
			}

			if historyFormat == "json" {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}

			if len(entries) == 0 {
				cfg.Logger.Info("No rotations recorded yet for %s", def.Service.Name)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "TIMESTAMP\tPROTOCOL\tDURATION\tDELIVERIES")
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n",
					entry.Timestamp.Format(time.RFC3339),
					entry.Protocol,
					entry.Duration,
					summarizeDeliveries(entry.Deliveries))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries to show")
	cmd.Flags().StringVar(&historyFormat, "format", "table", "Output format: table, json")

	return cmd
}

func summarizeDeliveries(deliveries []storage.DeliveryRecord) string {
	if len(deliveries) == 0 {
		return "-"
	}
	ok, failed := 0, 0
	for _, d := range deliveries {
		if d.Status == "success" {
			ok++
		} else {
			failed++
		}
	}
	return fmt.Sprintf("%d ok, %d failed", ok, failed)
}
