package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/expiry"
)

// Start schedules the expiry scan on the given cron spec and returns the
// running scheduler. ctx bounds each run's work, not the scheduler itself;
// call Stop on the returned cron during shutdown.
func Start(ctx context.Context, spec string, job *expiry.Job, logger *logrus.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		logger.Info("Scheduled expiry scan starting")
		report, err := job.Run(ctx)
		if err != nil {
			logger.Errorf("Scheduled expiry scan failed: %v", err)
			return
		}
		logger.Infof("Scheduled expiry scan finished: sent=%d failed=%d", report.Sent, report.Failed)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	logger.Infof("Expiry scan scheduled with spec %q", spec)
	return c, nil
}
