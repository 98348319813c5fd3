package cloudsync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"tasktracker/internal/logging"
)

func TestScheduleCollapsesBursts(t *testing.T) {
	var calls int32
	p := NewPublisher(50*time.Millisecond, logging.New("error"), func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	defer p.Stop()

	for i := 0; i < 5; i++ {
		p.Schedule()
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected burst to collapse into 1 publish, got %d", got)
	}
}

func TestFlushCancelsPendingTimer(t *testing.T) {
	var calls int32
	p := NewPublisher(time.Hour, logging.New("error"), func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	defer p.Stop()

	p.Schedule()
	if err := p.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 publish, got %d", got)
	}
}

func TestStopDropsPendingPublish(t *testing.T) {
	var calls int32
	p := NewPublisher(20*time.Millisecond, logging.New("error"), func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	p.Schedule()
	p.Stop()
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no publish after Stop, got %d", got)
	}
}
