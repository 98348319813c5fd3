package cloudsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"tasktracker/internal/logging"
	"tasktracker/internal/task"
)

func newTestStore(t *testing.T) *task.Store {
	t.Helper()
	s := task.NewStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSyncOnceMergesAndPublishesBlob(t *testing.T) {
	var uploads int32
	var uploaded atomic.Value

	var remote atomic.Value
	remote.Store([]task.Task{{ID: 5, Text: "from remote", Type: task.TypeBuy, AddedBy: "bob", LastModified: 5}})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/blob/tasks.json":
			if r.URL.Query().Get("t") == "" {
				t.Error("fetch missing cache-busting parameter")
			}
			b, _ := EncodePayload("other-device", remote.Load().([]task.Task), time.Now())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
		case r.Method == http.MethodPost && r.URL.Path == "/api/blob":
			atomic.AddInt32(&uploads, 1)
			var body struct {
				Filename string `json:"filename"`
				Content  string `json:"content"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			uploaded.Store(body.Content)
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "/api/blob/" + body.Filename})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.String())
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	store := newTestStore(t)
	if _, err := store.Add("local task", "alice", task.TypeDaily); err != nil {
		t.Fatal(err)
	}

	blob := NewBlobClient(ts.Client(), ts.URL, "", "u1", "tasks.json")
	m := NewManager(store, NewBlobBackend(blob, "dev-1"), logging.New("error"))

	if err := m.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected merged collection of 2, got %d", len(snap))
	}
	if got := atomic.LoadInt32(&uploads); got != 1 {
		t.Fatalf("expected 1 publish after changing merge, got %d", got)
	}
	env, err := DecodePayload([]byte(uploaded.Load().(string)), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if env.Meta.DeviceID != "dev-1" || len(env.Tasks) != 2 {
		t.Fatalf("published payload: meta %+v, %d tasks", env.Meta, len(env.Tasks))
	}
	if !m.Status().Synced {
		t.Fatal("expected synced status")
	}

	// Second cycle: remote now matches local, nothing to publish.
	remote.Store(env.Tasks)
	if err := m.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&uploads); got != 1 {
		t.Fatalf("expected no publish on unchanged merge, got %d", got)
	}
}

func TestSyncOnceFetchFailureLeavesLocalState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	store := newTestStore(t)
	if _, err := store.Add("keep me", "alice", task.TypeDaily); err != nil {
		t.Fatal(err)
	}
	before := store.Snapshot()

	blob := NewBlobClient(ts.Client(), ts.URL, "", "u1", "tasks.json")
	m := NewManager(store, NewBlobBackend(blob, "dev-1"), logging.New("error"))

	if err := m.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected fetch failure")
	}
	st := m.Status()
	if st.Synced || st.LastError == "" {
		t.Fatalf("expected not-synced status with error, got %+v", st)
	}
	after := store.Snapshot()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("local state changed on fetch failure: %+v", after)
	}
}

func TestSyncOnceMalformedPayloadTreatedAsFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"surprise": true}`))
	}))
	defer ts.Close()

	store := newTestStore(t)
	if _, err := store.Add("keep me", "alice", task.TypeDaily); err != nil {
		t.Fatal(err)
	}

	blob := NewBlobClient(ts.Client(), ts.URL, "", "u1", "tasks.json")
	m := NewManager(store, NewBlobBackend(blob, "dev-1"), logging.New("error"))

	if err := m.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected decode failure")
	}
	if n := len(store.Snapshot()); n != 1 {
		t.Fatalf("local state partially applied: %d records", n)
	}
}

func TestSyncOnceEmptyRemoteBootstraps(t *testing.T) {
	var uploads int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			atomic.AddInt32(&uploads, 1)
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "/api/blob/tasks.json"})
		}
	}))
	defer ts.Close()

	store := newTestStore(t)
	if _, err := store.Add("first", "alice", task.TypeDaily); err != nil {
		t.Fatal(err)
	}

	blob := NewBlobClient(ts.Client(), ts.URL, "", "u1", "tasks.json")
	m := NewManager(store, NewBlobBackend(blob, "dev-1"), logging.New("error"))

	// Nothing published yet remotely: fetch is an empty snapshot, the
	// merge changes nothing, and the cycle succeeds without uploading.
	if err := m.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !m.Status().Synced {
		t.Fatal("expected synced status")
	}
	if err := m.Publish(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&uploads); got != 1 {
		t.Fatalf("expected 1 upload, got %d", got)
	}
}

func TestTableBackendPublishInsertsMissingRows(t *testing.T) {
	var inserts, updates int32
	known := map[int64]bool{1: true}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks":
			_ = json.NewEncoder(w).Encode(map[string]any{"tasks": []task.Task{}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/tasks":
			atomic.AddInt32(&inserts, 1)
			var tk task.Task
			_ = json.NewDecoder(r.Body).Decode(&tk)
			known[tk.ID] = true
			_ = json.NewEncoder(w).Encode(tk)
		case r.Method == http.MethodPost:
			var tk task.Task
			_ = json.NewDecoder(r.Body).Decode(&tk)
			if !known[tk.ID] {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
				return
			}
			atomic.AddInt32(&updates, 1)
			_ = json.NewEncoder(w).Encode(tk)
		}
	}))
	defer ts.Close()

	client := NewTableClient(ts.Client(), ts.URL, "", "u1")
	backend := NewTableBackend(client)
	tasks := []task.Task{
		{ID: 1, Text: "known", Type: task.TypeDaily, AddedBy: "a", LastModified: 1},
		{ID: 2, Text: "new", Type: task.TypeBuy, AddedBy: "a", LastModified: 2},
	}
	if err := backend.PublishSnapshot(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&updates); got != 1 {
		t.Fatalf("expected 1 update, got %d", got)
	}
	if got := atomic.LoadInt32(&inserts); got != 1 {
		t.Fatalf("expected 1 insert fallback, got %d", got)
	}
}
