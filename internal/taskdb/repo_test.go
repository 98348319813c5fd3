package taskdb

import (
	"database/sql"
	"errors"
	"testing"

	"tasktracker/internal/task"

	_ "modernc.org/sqlite"
)

func setupTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE tasks (
		owner_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		text TEXT NOT NULL,
		done INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL,
		added_by TEXT NOT NULL,
		last_updated_by TEXT NOT NULL DEFAULT '',
		last_modified INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (owner_id, id)
	);`)
	if err != nil {
		t.Fatal(err)
	}
	return NewRepo(db)
}

func row(id, lm int64, text string) task.Task {
	return task.Task{ID: id, Text: text, Type: task.TypeDaily, AddedBy: "alice", LastModified: lm}
}

func TestInsertListOrderedByLastModifiedDesc(t *testing.T) {
	r := setupTestRepo(t)
	for _, tk := range []task.Task{row(1, 100, "old"), row(2, 300, "new"), row(3, 200, "mid")} {
		if err := r.Insert("u1", tk); err != nil {
			t.Fatal(err)
		}
	}

	out, err := r.ListByOwner("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	if out[0].ID != 2 || out[1].ID != 3 || out[2].ID != 1 {
		t.Fatalf("wrong order: %+v", out)
	}
}

func TestListIsOwnerScoped(t *testing.T) {
	r := setupTestRepo(t)
	if err := r.Insert("u1", row(1, 100, "mine")); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("u2", row(1, 100, "theirs")); err != nil {
		t.Fatal(err)
	}

	out, err := r.ListByOwner("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Text != "mine" {
		t.Fatalf("owner scoping broken: %+v", out)
	}
}

func TestUpdateUnknownRowIsNotFound(t *testing.T) {
	r := setupTestRepo(t)
	if err := r.Update("u1", row(9, 100, "ghost")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateOverwritesRow(t *testing.T) {
	r := setupTestRepo(t)
	tk := row(1, 100, "before")
	if err := r.Insert("u1", tk); err != nil {
		t.Fatal(err)
	}

	tk.Text = "after"
	tk.Done = true
	tk.LastUpdatedBy = "bob"
	tk.LastModified = 150
	if err := r.Update("u1", tk); err != nil {
		t.Fatal(err)
	}

	got, err := r.Get("u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != tk {
		t.Fatalf("got %+v want %+v", got, tk)
	}
}

func TestPurgeDeletedRemovesOnlyTombstones(t *testing.T) {
	r := setupTestRepo(t)
	live := row(1, 100, "live")
	dead := row(2, 200, "dead")
	dead.Deleted = true
	if err := r.Insert("u1", live); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("u1", dead); err != nil {
		t.Fatal(err)
	}

	n, err := r.PurgeDeleted("u1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	out, err := r.ListByOwner("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != live.ID {
		t.Fatalf("survivors: %+v", out)
	}
}

func TestPurgeDeletedBeforeHonorsCutoff(t *testing.T) {
	r := setupTestRepo(t)
	oldDead := row(1, 100, "old tombstone")
	oldDead.Deleted = true
	newDead := row(2, 900, "fresh tombstone")
	newDead.Deleted = true
	if err := r.Insert("u1", oldDead); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("u1", newDead); err != nil {
		t.Fatal(err)
	}

	n, err := r.PurgeDeletedBefore(500)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := r.Get("u1", 2); err != nil {
		t.Fatal("fresh tombstone should survive retention")
	}
}
