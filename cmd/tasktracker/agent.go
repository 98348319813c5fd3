package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"tasktracker/internal/cloudsync"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one fetch/merge/publish cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := a.manager.SyncOnce(ctx); err != nil {
				return err
			}
			st := a.manager.Status()
			fmt.Printf("synced at %s\n", st.LastSyncedAt.Format(time.Kitchen))
			return nil
		},
	}
}

func newAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the background sync engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := cloudsync.NewScheduler(cloudsync.SchedulerConfig{
				ActivePoll:     a.cfg.ActivePoll,
				IdlePoll:       a.cfg.IdlePoll,
				ActivityWindow: a.cfg.ActivityWindow,
			}, a.log)
			pub := cloudsync.NewPublisher(a.cfg.PublishDebounce, a.log, a.manager.Publish)
			defer pub.Stop()

			// Table mode gets push: remote row changes arrive over SSE
			// and request an immediate cycle, with polling as fallback.
			if a.table != nil {
				go func() {
					for ctx.Err() == nil {
						if err := a.table.Subscribe(ctx, sched.Notify); err != nil && ctx.Err() == nil {
							a.log.Debugf("event stream dropped: %v", err)
						}
						select {
						case <-ctx.Done():
						case <-time.After(5 * time.Second):
						}
					}
				}()
			}

			a.log.Infof("agent started (%s backend)", a.cfg.Backend)
			sched.Run(ctx, func(ctx context.Context) error {
				// Local edits land in the state file from other
				// invocations; they count as user activity and get a
				// debounced publish.
				changed, err := a.store.Reload()
				if err != nil {
					a.log.Warnf("reload local tasks: %v", err)
				}
				if changed {
					sched.MarkActivity()
					pub.Schedule()
				}
				cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				return a.manager.SyncOnce(cctx)
			})
			return nil
		},
	}
}
