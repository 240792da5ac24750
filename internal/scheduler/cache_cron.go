package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger drops expired cache entries and reports how many were removed.
type Purger interface {
	PurgeExpired() int
}

// StartCachePurge runs purger on the given cron schedule. The caller stops the
// returned scheduler on shutdown.
func StartCachePurge(schedule string, purger Purger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		if n := purger.PurgeExpired(); n > 0 {
			logrus.WithField("entries", n).Debug("Purged expired cache entries")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cache purge schedule %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}
