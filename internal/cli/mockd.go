package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/taskdeck/internal/mockapi"
)

func newMockdCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mockd",
		Short: "Run an in-memory mock backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			srv := &http.Server{
				Addr:         addr,
				Handler:      mockapi.New(log).Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			log.Info("mock backend listening", "addr", addr)
			fmt.Fprintf(cmd.OutOrStdout(), "point taskdeck at http://localhost%s (TASKDECK_BASE_URL)\n", addr)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
