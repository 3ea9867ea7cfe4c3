package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/chat"
	"github.com/mistakeknot/taskdeck/internal/dashboard"
	"github.com/mistakeknot/taskdeck/internal/tasklist"
)

func newChatCommand(cfgPath *string) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the assistant",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelWarn)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			uid, err := a.userID(ctx)
			if err != nil {
				return fmt.Errorf("check session: %w", err)
			}
			if uid == "" {
				return fmt.Errorf("not logged in; run `taskdeck login` first")
			}

			sess := chat.NewSession(a.client.Chat(), a.store, uid, a.log)
			if reset {
				if err := sess.StartNew(); err != nil {
					return err
				}
				if len(args) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "started a new conversation")
					return nil
				}
			}
			if len(args) == 0 {
				return fmt.Errorf("nothing to send")
			}

			ctrl := tasklist.New(a.client.Tasks(), a.log)
			ctrl.AddListener(dashboard.New(a.client.Dashboard(), a.log))
			sess.OnTaskMutation(func(ctx context.Context, kind api.ActionKind) {
				if err := ctrl.OnExternalMutation(ctx); err != nil {
					a.log.Error("chat-driven reconcile failed", "error", err)
				}
			})

			if err := sess.Initialize(ctx); err != nil {
				return err
			}
			if err := sess.Send(ctx, strings.Join(args, " ")); err != nil {
				return err
			}

			msgs := sess.Messages()
			fmt.Fprintln(cmd.OutOrStdout(), msgs[len(msgs)-1].Content)
			return a.persistCookies()
		},
	}
	cmd.Flags().BoolVar(&reset, "new", false, "start a new conversation first")
	return cmd
}
