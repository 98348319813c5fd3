package cloudsync

import (
	"context"
	"sync"
	"time"

	"tasktracker/internal/logging"
)

// SchedulerConfig carries the two poll periods and the window that
// separates them.
type SchedulerConfig struct {
	ActivePoll     time.Duration
	IdlePoll       time.Duration
	ActivityWindow time.Duration
}

// Scheduler decides when a sync cycle runs. Two states: active (user
// interacted within the activity window, short poll period) and idle
// (long poll period). Push notifications and timer ticks both land in
// one inbound queue drained by a single worker, so a push-triggered
// fetch never runs concurrently with a timer-triggered one.
//
// There is no backoff: a failed cycle flips the synced flag upstream
// and the scheduler just keeps its current period.
type Scheduler struct {
	cfg  SchedulerConfig
	log  *logging.Logger
	kick chan struct{}
	now  func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
}

func NewScheduler(cfg SchedulerConfig, log *logging.Logger) *Scheduler {
	if cfg.ActivePoll <= 0 {
		cfg.ActivePoll = 6 * time.Second
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = 20 * time.Second
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = 20 * time.Second
	}
	return &Scheduler{
		cfg:  cfg,
		log:  log.With("scheduler"),
		kick: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// MarkActivity records a user interaction, re-arming the active-period
// window.
func (s *Scheduler) MarkActivity() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// Notify requests an immediate sync cycle (push-driven fetch). The
// queue holds one pending request; coalescing further ones is fine
// because a cycle always fetches the full remote snapshot.
func (s *Scheduler) Notify() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Period reports the current poll period for the scheduler state.
func (s *Scheduler) Period() time.Duration {
	s.mu.Lock()
	last := s.lastActivity
	s.mu.Unlock()
	if !last.IsZero() && s.now().Sub(last) < s.cfg.ActivityWindow {
		return s.cfg.ActivePoll
	}
	return s.cfg.IdlePoll
}

// Run drives cycle until the context ends. Exactly one cycle runs at a
// time; the timer is re-armed after each cycle with the then-current
// period.
func (s *Scheduler) Run(ctx context.Context, cycle func(context.Context) error) {
	timer := time.NewTimer(s.Period())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		if err := cycle(ctx); err != nil && ctx.Err() == nil {
			s.log.Debugf("sync cycle failed: %v", err)
		}
		timer.Reset(s.Period())
	}
}
