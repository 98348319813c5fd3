package server

import (
	"time"

	"tasktracker/internal/logging"
	"tasktracker/internal/taskdb"

	"github.com/robfig/cron/v3"
)

// StartRetention schedules a recurring purge of tombstoned rows older
// than maxAge. Tombstones must linger long enough to propagate to
// every device, so this only trims old ones; the purge endpoint stays
// the explicit path. Returns nil when no schedule is configured.
func StartRetention(spec string, maxAge time.Duration, repo *taskdb.Repo, log *logging.Logger) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	scoped := log.With("retention")
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		cutoff := time.Now().Add(-maxAge).UnixMilli()
		n, err := repo.PurgeDeletedBefore(cutoff)
		if err != nil {
			scoped.Errorf("purge failed: %v", err)
			return
		}
		if n > 0 {
			scoped.Infof("purged %d tombstoned rows older than %s", n, maxAge)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
