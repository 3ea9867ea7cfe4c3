package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newStatsCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelWarn)
			if err != nil {
				return err
			}
			stats, err := a.client.Dashboard().Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total:     %d\n", stats.Total)
			fmt.Fprintf(out, "completed: %d\n", stats.Completed)
			fmt.Fprintf(out, "pending:   %d\n", stats.Pending)
			return nil
		},
	}
}
