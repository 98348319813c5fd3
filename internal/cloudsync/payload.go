package cloudsync

import (
	"encoding/json"
	"fmt"
	"time"

	"tasktracker/internal/task"
)

// Meta describes which device wrote a snapshot and when.
type Meta struct {
	DeviceID     string `json:"deviceId"`
	LastSyncedAt int64  `json:"lastSyncedAt"`
}

// Envelope is the current blob payload shape. Older documents are a
// bare array of tasks; DecodePayload accepts both.
type Envelope struct {
	Meta  Meta        `json:"meta"`
	Tasks []task.Task `json:"tasks"`
}

// EncodePayload serializes a snapshot in the envelope shape.
func EncodePayload(deviceID string, tasks []task.Task, now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{
		Meta:  Meta{DeviceID: deviceID, LastSyncedAt: now.UnixMilli()},
		Tasks: tasks,
	})
}

// DecodePayload parses a remote document: envelope first, bare array
// as the legacy fallback, error otherwise. A bare array gets fallback
// meta (deviceId "unknown", lastSyncedAt now) rather than silently
// guessed fields. A payload that is neither shape is a fetch failure
// for the caller; nothing is partially applied.
func DecodePayload(b []byte, now time.Time) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err == nil && env.Tasks != nil {
		return env, nil
	}
	var bare []task.Task
	if err := json.Unmarshal(b, &bare); err == nil {
		return Envelope{
			Meta:  Meta{DeviceID: "unknown", LastSyncedAt: now.UnixMilli()},
			Tasks: bare,
		}, nil
	}
	return Envelope{}, fmt.Errorf("unrecognized task payload")
}
