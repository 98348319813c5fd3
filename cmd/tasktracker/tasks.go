package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasktracker/internal/task"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var by, typ string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			t, err := task.ParseType(typ)
			if err != nil {
				return err
			}
			if by == "" {
				by = a.cfg.UserID
			}
			added, err := a.store.Add(strings.Join(args, " "), by, t)
			if err != nil {
				return err
			}
			a.publishMutation(cmd.Context(), added, true)
			fmt.Printf("added %d (%s)\n", added.ID, added.Type)
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "author label (defaults to the configured user)")
	cmd.Flags().StringVar(&typ, "type", "daily", "daily, weekly or buy")
	return cmd
}

func newListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by section",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			tasks := a.store.Snapshot()
			if !all {
				tasks = task.Visible(tasks)
			}
			task.SortByLastModified(tasks)
			for _, typ := range []task.Type{task.TypeDaily, task.TypeWeekly, task.TypeBuy} {
				printSection(typ, tasks)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include tombstoned tasks")
	return cmd
}

func printSection(typ task.Type, tasks []task.Task) {
	header := map[task.Type]string{
		task.TypeDaily:  "Daily Tasks",
		task.TypeWeekly: "Weekly Goals",
		task.TypeBuy:    "Things to Buy",
	}[typ]
	fmt.Println(header)
	for _, t := range tasks {
		if t.Type != typ {
			continue
		}
		mark := " "
		if t.Done {
			mark = "x"
		}
		line := fmt.Sprintf("  [%s] %d  %s  (added by %s", mark, t.ID, t.Text, t.AddedBy)
		if t.LastUpdatedBy != "" && t.LastUpdatedBy != t.AddedBy {
			line += ", updated by " + t.LastUpdatedBy
		}
		line += ")"
		if t.Deleted {
			line += " [deleted]"
		}
		fmt.Println(line)
	}
}

func newDoneCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task's completion flag",
		Args:  cobra.ExactArgs(1),
		RunE:  mutateCmd(&by, func(a *app, ctx context.Context, id int64, by string) (task.Task, error) { return a.store.Toggle(id, by) }),
	}
	cmd.Flags().StringVar(&by, "by", "", "editor label")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task (tombstone; purge removes it for good)",
		Args:  cobra.ExactArgs(1),
		RunE:  mutateCmd(&by, func(a *app, ctx context.Context, id int64, by string) (task.Task, error) { return a.store.Delete(id, by) }),
	}
	cmd.Flags().StringVar(&by, "by", "", "editor label")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a tombstoned task",
		Args:  cobra.ExactArgs(1),
		RunE:  mutateCmd(&by, func(a *app, ctx context.Context, id int64, by string) (task.Task, error) { return a.store.Restore(id, by) }),
	}
	cmd.Flags().StringVar(&by, "by", "", "editor label")
	return cmd
}

func mutateCmd(by *string, fn func(*app, context.Context, int64, string) (task.Task, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		editor := *by
		if editor == "" {
			editor = a.cfg.UserID
		}
		t, err := fn(a, cmd.Context(), id, editor)
		if err != nil {
			return err
		}
		a.publishMutation(cmd.Context(), t, false)
		fmt.Printf("updated %d\n", t.ID)
		return nil
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Physically remove tombstoned tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			n, err := a.store.PurgeDeleted()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if a.table != nil {
				if _, err := a.table.Purge(ctx); err != nil {
					a.log.Warnf("remote purge failed: %v", err)
				}
			} else if err := a.manager.Publish(ctx); err != nil {
				a.log.Warnf("not synced: %v", err)
			}
			fmt.Printf("purged %d tasks\n", n)
			return nil
		},
	}
}
