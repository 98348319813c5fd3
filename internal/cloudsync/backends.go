package cloudsync

import (
	"context"
	"errors"
	"time"

	"tasktracker/internal/task"
)

// BlobBackend syncs against the JSON-document store: one named
// document holding the whole collection, envelope-encoded.
type BlobBackend struct {
	client   *BlobClient
	deviceID string
}

func NewBlobBackend(client *BlobClient, deviceID string) *BlobBackend {
	return &BlobBackend{client: client, deviceID: deviceID}
}

func (b *BlobBackend) FetchSnapshot(ctx context.Context) ([]task.Task, error) {
	raw, err := b.client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		// No document published yet.
		return nil, nil
	}
	env, err := DecodePayload(raw, time.Now())
	if err != nil {
		return nil, err
	}
	return env.Tasks, nil
}

func (b *BlobBackend) PublishSnapshot(ctx context.Context, tasks []task.Task) error {
	content, err := EncodePayload(b.deviceID, tasks, time.Now())
	if err != nil {
		return err
	}
	return b.client.Upload(ctx, content)
}

// TableBackend syncs against the managed task table. Publishing is
// per-record: update the row for each task, inserting rows the table
// has never seen.
type TableBackend struct {
	client *TableClient
}

func NewTableBackend(client *TableClient) *TableBackend {
	return &TableBackend{client: client}
}

func (b *TableBackend) FetchSnapshot(ctx context.Context) ([]task.Task, error) {
	return b.client.Select(ctx)
}

func (b *TableBackend) PublishSnapshot(ctx context.Context, tasks []task.Task) error {
	for _, t := range tasks {
		if err := b.client.Update(ctx, t); err != nil {
			if errors.Is(err, ErrNotFound) {
				if err := b.client.Insert(ctx, t); err != nil {
					return err
				}
				continue
			}
			return err
		}
	}
	return nil
}
