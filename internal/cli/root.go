// Package cli wires the taskdeck commands: the interactive TUI by
// default, plus one-shot subcommands for scripting and a mock backend
// for local development.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/chat"
	"github.com/mistakeknot/taskdeck/internal/dashboard"
	"github.com/mistakeknot/taskdeck/internal/tasklist"
	"github.com/mistakeknot/taskdeck/internal/tui"
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCommand(version).Execute()
}

func newRootCommand(version string) *cobra.Command {
	var cfgPath string
	var verbose bool

	root := &cobra.Command{
		Use:     "taskdeck",
		Short:   "Terminal client for the task manager",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Keep log noise out of the alternate screen.
			level := slog.LevelError
			if verbose {
				level = slog.LevelDebug
			}
			a, err := newApp(cfgPath, level)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			uid, err := a.userID(ctx)
			if err != nil {
				return fmt.Errorf("check session: %w", err)
			}

			ctrl := tasklist.New(a.client.Tasks(), a.log)
			agg := dashboard.New(a.client.Dashboard(), a.log)
			ctrl.AddListener(agg)

			sess := chat.NewSession(a.client.Chat(), a.store, uid, a.log)
			sess.OnTaskMutation(func(ctx context.Context, kind api.ActionKind) {
				if err := ctrl.OnExternalMutation(ctx); err != nil {
					a.log.Error("chat-driven reconcile failed", "error", err)
				}
			})

			var opts []tui.Option
			if a.cfg.UI.CompactTasks {
				opts = append(opts, tui.WithCompactTasks())
			}

			m := tui.New(ctrl, sess, agg, opts...)
			p := tea.NewProgram(m, tea.WithAltScreen())
			_, err = p.Run()
			if perr := a.persistCookies(); perr != nil {
				a.log.Error("cookie persist failed", "error", perr)
			}
			return err
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCommand(&cfgPath),
		newSignupCommand(&cfgPath),
		newLogoutCommand(&cfgPath),
		newTasksCommand(&cfgPath),
		newChatCommand(&cfgPath),
		newStatsCommand(&cfgPath),
		newMockdCommand(),
	)
	return root
}
