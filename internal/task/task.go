package task

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Type partitions the list into its three board sections.
type Type string

const (
	TypeDaily  Type = "daily"
	TypeWeekly Type = "weekly"
	TypeBuy    Type = "buy"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDaily, TypeWeekly, TypeBuy:
		return true
	}
	return false
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return t, nil
}

// Task is the sole entity. ID is the creation timestamp in epoch
// milliseconds, monotonic per device but not globally unique.
// LastModified is the logical clock for conflict resolution and must
// advance on every mutation. Deleted marks a tombstone: the record is
// hidden from listings but retained so the deletion can propagate to
// other devices before a purge removes it.
type Task struct {
	ID            int64  `json:"id"`
	Text          string `json:"text"`
	Done          bool   `json:"done"`
	Type          Type   `json:"type"`
	AddedBy       string `json:"addedBy"`
	LastUpdatedBy string `json:"lastUpdatedBy,omitempty"`
	LastModified  int64  `json:"lastModified"`
	Deleted       bool   `json:"deleted,omitempty"`
}

// New validates and builds a task. Empty text or author is rejected
// before any state is touched.
func New(text, addedBy string, typ Type, now time.Time) (Task, error) {
	text = strings.TrimSpace(text)
	addedBy = strings.TrimSpace(addedBy)
	if text == "" {
		return Task{}, fmt.Errorf("task text is required")
	}
	if addedBy == "" {
		return Task{}, fmt.Errorf("task author is required")
	}
	if !typ.Valid() {
		return Task{}, fmt.Errorf("unknown task type %q", string(typ))
	}
	ms := now.UnixMilli()
	return Task{
		ID:            ms,
		Text:          text,
		Type:          typ,
		AddedBy:       addedBy,
		LastUpdatedBy: addedBy,
		LastModified:  ms,
	}, nil
}

// Visible filters out tombstones for presentation.
func Visible(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return out
}

// SortByLastModified orders newest-first, the presentation order used
// by the board. Merge output is unordered; callers re-sort here.
func SortByLastModified(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].LastModified > tasks[j].LastModified
	})
}

// Clock hands out creation ids and modification stamps. Ids are epoch
// milliseconds nudged forward on collision so two adds within the same
// millisecond on one device stay distinct.
type Clock struct {
	mu   sync.Mutex
	last int64
}

func (c *Clock) NextID(now time.Time) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}
