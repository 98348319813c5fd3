package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrNotFound = errors.New("task not found")

// Store owns the device-local collection. Every mutation is applied
// in memory and mirrored to a single JSON file at a fixed path, which
// seeds the collection again at startup.
//
// Mutations and merge application are serialized by one mutex, so a
// remote snapshot arriving while an edit is in flight is always merged
// against the post-edit collection and can never clobber it.
type Store struct {
	mu      sync.Mutex
	path    string
	tasks   []Task
	version int64
	clock   Clock
	now     func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load seeds the collection from the persisted file. A missing file is
// a fresh device, not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.readFileLocked()
	if err != nil {
		return err
	}
	s.tasks = tasks
	return nil
}

// Reload re-seeds the collection from the persisted file, picking up
// writes made by another process of the same device (a CLI mutation
// while the agent is running). Reports whether anything changed.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.readFileLocked()
	if err != nil {
		return false, err
	}
	if tasks == nil || collectionsEqual(s.tasks, tasks) {
		return false, nil
	}
	s.tasks = tasks
	s.version++
	return true, nil
}

// Version is a monotonic counter bumped on every change to the
// collection. The sync manager compares versions around a network
// round-trip to tell whether local state moved underneath it.
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot returns a copy of the full collection, tombstones included.
func (s *Store) Snapshot() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) Add(text, addedBy string, typ Type) (Task, error) {
	t, err := New(text, addedBy, typ, s.now())
	if err != nil {
		return Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.clock.NextID(s.now())
	t.LastModified = t.ID
	s.tasks = append(s.tasks, t)
	return t, s.commitLocked()
}

// Toggle flips the done flag and stamps the editor.
func (s *Store) Toggle(id int64, by string) (Task, error) {
	return s.mutate(id, by, func(t *Task) { t.Done = !t.Done })
}

// Delete tombstones the task; it stays in the collection until purged.
func (s *Store) Delete(id int64, by string) (Task, error) {
	return s.mutate(id, by, func(t *Task) { t.Deleted = true })
}

// Restore clears a tombstone with a fresh lastModified. The restore
// reaches other devices through the next publish, which replaces the
// remote copy of the tombstone.
func (s *Store) Restore(id int64, by string) (Task, error) {
	return s.mutate(id, by, func(t *Task) { t.Deleted = false })
}

func (s *Store) mutate(id int64, by string, fn func(*Task)) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		fn(&s.tasks[i])
		if by != "" {
			s.tasks[i].LastUpdatedBy = by
		}
		s.tasks[i].LastModified = s.stampLocked(s.tasks[i].LastModified)
		t := s.tasks[i]
		return t, s.commitLocked()
	}
	return Task{}, ErrNotFound
}

// PurgeDeleted physically removes tombstoned records only.
func (s *Store) PurgeDeleted() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := Purge(s.tasks)
	removed := len(s.tasks) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.tasks = kept
	return removed, s.commitLocked()
}

// ApplyRemote merges a fetched snapshot into the current collection
// under the store lock, so the merge always runs against the latest
// local state no matter how long the fetch was in flight. The
// persisted file is folded in first: another process of this device
// may have written an edit since this process last read the file, and
// the save below would otherwise overwrite it. Reports whether the
// merge changed anything.
func (s *Store) ApplyRemote(remote []Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.tasks
	if disk, err := s.readFileLocked(); err == nil && disk != nil {
		merged = Merge(merged, disk)
	}
	merged = Merge(merged, remote)
	if collectionsEqual(s.tasks, merged) {
		return false, nil
	}
	s.tasks = merged
	return true, s.commitLocked()
}

// readFileLocked reads the persisted collection. A missing file yields
// nil with no error.
func (s *Store) readFileLocked() ([]Task, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var tasks []Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, fmt.Errorf("decode persisted tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) commitLocked() error {
	s.version++
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	b, err := json.Marshal(s.tasks)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// stampLocked advances a record's lastModified, never letting it go
// backwards even if the wall clock does.
func (s *Store) stampLocked(prev int64) int64 {
	ms := s.now().UnixMilli()
	if ms <= prev {
		ms = prev + 1
	}
	return ms
}

func collectionsEqual(a, b []Task) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[int64]Task, len(a))
	for _, t := range a {
		byID[t.ID] = t
	}
	for _, t := range b {
		if byID[t.ID] != t {
			return false
		}
	}
	return true
}
