package server

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"tasktracker/internal/cloudsync"
	"tasktracker/internal/config"
	"tasktracker/internal/task"
)

// Exercises the event feed over the wire: gin's streaming handler on
// one end, the device client's SSE scanner on the other.
func TestEventStreamDeliversChangeNotifications(t *testing.T) {
	ts := httptest.NewServer(setupRouter(t, config.Server{}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := cloudsync.NewTableClient(ts.Client(), ts.URL, "", "u1")
	notified := make(chan struct{}, 1)
	subDone := make(chan error, 1)
	go func() {
		subDone <- client.Subscribe(ctx, func() {
			select {
			case notified <- struct{}{}:
			default:
			}
		})
	}()

	// The subscription attaches asynchronously, so keep inserting fresh
	// rows until one lands after the stream is up.
	deadline := time.After(5 * time.Second)
	for id := int64(1); ; id++ {
		err := client.Insert(ctx, task.Task{
			ID:           id,
			Text:         fmt.Sprintf("row %d", id),
			Type:         task.TypeDaily,
			AddedBy:      "alice",
			LastModified: id,
		})
		if err != nil {
			t.Fatal(err)
		}
		select {
		case <-notified:
			cancel()
			select {
			case <-subDone:
			case <-time.After(2 * time.Second):
				t.Fatal("subscribe did not return after cancel")
			}
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("insert never reached the event stream")
		}
	}
}
