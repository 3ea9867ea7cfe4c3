package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/dashboard"
	"github.com/mistakeknot/taskdeck/internal/task"
	"github.com/mistakeknot/taskdeck/internal/tasklist"
)

func newTasksCommand(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with tasks non-interactively",
	}
	cmd.AddCommand(
		newTasksListCommand(cfgPath),
		newTasksAddCommand(cfgPath),
		newTasksDoneCommand(cfgPath),
		newTasksRmCommand(cfgPath),
	)
	return cmd
}

func controllerFor(a *app) *tasklist.Controller {
	ctrl := tasklist.New(a.client.Tasks(), a.log)
	agg := dashboard.New(a.client.Dashboard(), a.log)
	ctrl.AddListener(agg)
	return ctrl
}

func newTasksListCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelWarn)
			if err != nil {
				return err
			}
			tasks, err := a.client.Tasks().List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDONE\tPRI\tTITLE")
			for _, t := range tasks {
				done := " "
				if t.Completed {
					done = "x"
				}
				fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\n", t.ID, done, t.Priority, t.Title)
			}
			return w.Flush()
		},
	}
}

func newTasksAddCommand(cfgPath *string) *cobra.Command {
	var priority string
	var description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelWarn)
			if err != nil {
				return err
			}
			var p task.Priority
			switch strings.ToLower(priority) {
			case "low":
				p = task.PriorityLow
			case "medium":
				p = task.PriorityMedium
			case "high":
				p = task.PriorityHigh
			default:
				return fmt.Errorf("priority must be low, medium or high, got %q", priority)
			}
			created, err := a.client.Tasks().Create(cmd.Context(), api.TaskDraft{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    p,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created task %s: %s\n", created.ID, created.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "low", "low, medium or high")
	cmd.Flags().StringVarP(&description, "desc", "d", "", "task description")
	return cmd
}

func newTasksDoneCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, slog.LevelWarn)
			if err != nil {
				return err
			}
			ctrl := controllerFor(a)
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := ctrl.Toggle(cmd.Context(), args[0]); err != nil {
				return err
			}
			for _, t := range ctrl.Tasks() {
				if t.ID == args[0] {
					state := "pending"
					if t.Completed {
						state = "completed"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", t.Title, state)
				}
			}
			return nil
		},
	}
}

func newTasksRmCommand(cfgPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deletion is irreversible; pass --yes to confirm")
			}
			a, err := newApp(*cfgPath, slog.LevelWarn)
			if err != nil {
				return err
			}
			ctrl := controllerFor(a)
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := ctrl.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted task %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
