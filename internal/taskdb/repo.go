package taskdb

import (
	"database/sql"
	"errors"

	"tasktracker/internal/task"
)

var ErrNotFound = errors.New("task row not found")

// Repo persists the task table: rows keyed by (owner_id, id), mutated
// per record. Tombstoned rows stay until an explicit purge.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) DB() *sql.DB {
	return r.db
}

// ListByOwner returns the owner's rows, tombstones included, newest
// first by last_modified.
func (r *Repo) ListByOwner(owner string) ([]task.Task, error) {
	rows, err := r.db.Query(`
		SELECT id, text, done, type, added_by, last_updated_by, last_modified, deleted
		FROM tasks
		WHERE owner_id = ?
		ORDER BY last_modified DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]task.Task, 0, 16)
	for rows.Next() {
		var t task.Task
		var typ string
		if err := rows.Scan(&t.ID, &t.Text, &t.Done, &typ, &t.AddedBy, &t.LastUpdatedBy, &t.LastModified, &t.Deleted); err != nil {
			return nil, err
		}
		t.Type = task.Type(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns one row by id.
func (r *Repo) Get(owner string, id int64) (task.Task, error) {
	var t task.Task
	var typ string
	err := r.db.QueryRow(`
		SELECT id, text, done, type, added_by, last_updated_by, last_modified, deleted
		FROM tasks
		WHERE owner_id = ? AND id = ?
	`, owner, id).Scan(&t.ID, &t.Text, &t.Done, &typ, &t.AddedBy, &t.LastUpdatedBy, &t.LastModified, &t.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	if err != nil {
		return task.Task{}, err
	}
	t.Type = task.Type(typ)
	return t, nil
}

// Insert creates the row for a newly added task.
func (r *Repo) Insert(owner string, t task.Task) error {
	_, err := r.db.Exec(`
		INSERT INTO tasks (owner_id, id, text, done, type, added_by, last_updated_by, last_modified, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, owner, t.ID, t.Text, t.Done, string(t.Type), t.AddedBy, t.LastUpdatedBy, t.LastModified, t.Deleted)
	return err
}

// Update overwrites the row for the task's id, scoped to the owner.
// Updating an unknown id is ErrNotFound so callers can fall back to an
// insert.
func (r *Repo) Update(owner string, t task.Task) error {
	res, err := r.db.Exec(`
		UPDATE tasks
		SET text = ?, done = ?, type = ?, added_by = ?, last_updated_by = ?, last_modified = ?, deleted = ?
		WHERE owner_id = ? AND id = ?
	`, t.Text, t.Done, string(t.Type), t.AddedBy, t.LastUpdatedBy, t.LastModified, t.Deleted, owner, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeDeleted removes the owner's tombstoned rows, and only those.
func (r *Repo) PurgeDeleted(owner string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM tasks WHERE owner_id = ? AND deleted = 1`, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeDeletedBefore removes tombstoned rows across all owners whose
// last_modified is older than the cutoff. Used by the retention job.
func (r *Repo) PurgeDeletedBefore(cutoffMillis int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM tasks WHERE deleted = 1 AND last_modified < ?`, cutoffMillis)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
