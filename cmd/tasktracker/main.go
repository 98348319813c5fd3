package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"tasktracker/internal/cloudsync"
	"tasktracker/internal/config"
	"tasktracker/internal/logging"
	"tasktracker/internal/task"

	"github.com/spf13/cobra"
)

// app wires the device-side engine: local store, remote backend and
// sync manager, built once per invocation from the environment.
type app struct {
	cfg     config.Device
	log     *logging.Logger
	store   *task.Store
	manager *cloudsync.Manager
	table   *cloudsync.TableClient // nil in blob mode
}

func newApp() (*app, error) {
	cfg := config.LoadDevice()
	log := logging.New(cfg.LogLevel)

	store := task.NewStore(cfg.StatePath)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load local tasks: %w", err)
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	a := &app{cfg: cfg, log: log, store: store}
	switch cfg.Backend {
	case config.BackendTable:
		a.table = cloudsync.NewTableClient(httpClient, cfg.BaseURL, cfg.AuthToken, cfg.UserID)
		a.manager = cloudsync.NewManager(store, cloudsync.NewTableBackend(a.table), log)
	case config.BackendBlob:
		blob := cloudsync.NewBlobClient(httpClient, cfg.BaseURL, cfg.AuthToken, cfg.UserID, cfg.Filename)
		a.manager = cloudsync.NewManager(store, cloudsync.NewBlobBackend(blob, cfg.DeviceID), log)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return a, nil
}

// publishMutation pushes one local change out. Table mode publishes
// the single mutated record; blob mode overwrites the whole document.
// A publish failure never rolls the local mutation back.
func (a *app) publishMutation(ctx context.Context, t task.Task, inserted bool) {
	var err error
	if a.table != nil {
		if inserted {
			err = a.table.Insert(ctx, t)
		} else {
			err = a.table.Update(ctx, t)
		}
	} else {
		err = a.manager.Publish(ctx)
	}
	if err != nil {
		a.log.Warnf("not synced: %v", err)
	}
}

func main() {
	root := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Shared to-do list with cloud sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newDoneCmd(),
		newRemoveCmd(),
		newRestoreCmd(),
		newPurgeCmd(),
		newSyncCmd(),
		newAgentCmd(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
