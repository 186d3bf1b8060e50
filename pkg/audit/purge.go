package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

// DefaultPurgeSchedule runs the retention sweep nightly at 03:15, outside
// typical traffic peaks.
const DefaultPurgeSchedule = "15 3 * * *"

// DefaultRetention keeps ninety days of audit history.
const DefaultRetention = 90 * 24 * time.Hour

// Purger periodically deletes audit entries older than a retention window.
// It is the housekeeping collaborator of the audit store; the propagation
// core never deletes entries.
type Purger struct {
	store     *Store
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewPurger creates a purger. Non-positive retention uses
// [DefaultRetention]; empty schedule uses [DefaultPurgeSchedule]; nil logger
// uses [slog.Default].
func NewPurger(store *Store, retention time.Duration, schedule string, logger *slog.Logger) *Purger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		store:     store,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
	}
}

// RunOnce performs a single retention sweep.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	p.logger.InfoContext(ctx, "audit purge completed",
		"cutoff", cutoff,
		"deleted", deleted,
	)
	return deleted, nil
}

// Start schedules recurring sweeps. It returns an error when the cron
// expression is invalid. Call [Purger.Stop] to stop the schedule.
func (p *Purger) Start() error {
	if p.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.logger.Error("audit purge failed", "error", err)
		}
	})
	if err != nil {
		return flerr.Wrapf(err, flerr.CodeValidationFormat,
			"audit: invalid purge schedule %q", p.schedule)
	}
	p.cron = c
	c.Start()
	return nil
}

// Stop stops the schedule and waits for an in-flight sweep to finish.
func (p *Purger) Stop() {
	if p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.cron = nil
}
