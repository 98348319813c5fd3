package cloudsync

import (
	"context"
	"sync"
	"time"

	"tasktracker/internal/logging"
)

// Publisher collapses a burst of local edits into a single remote
// write. One pending timer, cancel-and-reschedule; the publish runs
// once the quiet period elapses.
type Publisher struct {
	delay   time.Duration
	publish func(context.Context) error
	log     *logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewPublisher(delay time.Duration, log *logging.Logger, publish func(context.Context) error) *Publisher {
	return &Publisher{delay: delay, publish: publish, log: log.With("publisher")}
}

// Schedule arms (or re-arms) the debounce timer.
func (p *Publisher) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, func() {
		if err := p.publish(context.Background()); err != nil {
			p.log.Warnf("debounced publish failed: %v", err)
		}
	})
}

// Flush cancels any pending timer and publishes immediately.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	return p.publish(ctx)
}

// Stop cancels any pending publish without running it.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
