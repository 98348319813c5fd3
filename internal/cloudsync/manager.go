package cloudsync

import (
	"context"
	"sync"
	"time"

	"tasktracker/internal/logging"
	"tasktracker/internal/task"
)

// Backend is the remote collaborator shape: fetch the full remote
// snapshot, publish the full local one. Which concrete backend is in
// play (blob document or task table) is deployment configuration.
type Backend interface {
	FetchSnapshot(ctx context.Context) ([]task.Task, error)
	PublishSnapshot(ctx context.Context, tasks []task.Task) error
}

// Status is the observable sync state surfaced to the UI: a synced
// flag flipped by the latest attempt's outcome, never a crash.
type Status struct {
	Synced       bool      `json:"synced"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	LastError    string    `json:"last_error,omitempty"`
}

// Manager owns the fetch→merge→apply→publish cycle. Fetch or decode
// failures leave the local collection untouched and flip the status
// flag; the next scheduled cycle retries. The merge itself runs inside
// the store under its lock, so a snapshot that was in flight while the
// user kept editing is still reconciled against the latest local
// state.
type Manager struct {
	store   *task.Store
	backend Backend
	log     *logging.Logger

	mu     sync.Mutex
	status Status
}

func NewManager(store *task.Store, backend Backend, log *logging.Logger) *Manager {
	return &Manager{store: store, backend: backend, log: log.With("sync")}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SyncOnce runs one full cycle: fetch, merge, and if the merge changed
// the collection, publish the reconciled snapshot back.
func (m *Manager) SyncOnce(ctx context.Context) error {
	remote, err := m.backend.FetchSnapshot(ctx)
	if err != nil {
		m.markError(err)
		return err
	}
	changed, err := m.store.ApplyRemote(remote)
	if err != nil {
		m.markError(err)
		return err
	}
	if changed {
		m.log.Debugf("merge changed collection, publishing")
		if err := m.Publish(ctx); err != nil {
			return err
		}
	}
	m.markSynced()
	return nil
}

// Publish pushes the current local snapshot, tombstones included. A
// failure never rolls back the local mutation that triggered it.
func (m *Manager) Publish(ctx context.Context) error {
	if err := m.backend.PublishSnapshot(ctx, m.store.Snapshot()); err != nil {
		m.markError(err)
		return err
	}
	m.markSynced()
	return nil
}

func (m *Manager) markSynced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = Status{Synced: true, LastSyncedAt: time.Now()}
}

func (m *Manager) markError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Synced = false
	m.status.LastError = err.Error()
	m.log.Warnf("out of sync: %v", err)
}
