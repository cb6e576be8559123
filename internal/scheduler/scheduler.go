package scheduler

import (
	"context"
	"time"

	"github.com/kebairia/mcutil/internal/logger"
)

// checkInterval is the sleep slice between due-checks. Keeping it short
// bounds shutdown latency to roughly one second regardless of the backup
// interval.
const checkInterval = time.Second

// BackupFunc creates one scheduled backup.
type BackupFunc func() error

// Scheduler invokes a backup on a fixed interval. The loop is strictly
// sequential: one backup finishes before the next is considered. Only a
// successful backup advances the timer, so a failure is retried on the next
// due check rather than a full interval later.
type Scheduler struct {
	interval time.Duration
	backup   BackupFunc
	log      logger.Logger
	now      func() time.Time

	lastBackup time.Time
}

// New returns a scheduler running backup every interval.
func New(interval time.Duration, backup BackupFunc, log logger.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		backup:   backup,
		log:      log,
		now:      time.Now,
	}
}

func (s *Scheduler) due() bool {
	if s.lastBackup.IsZero() {
		return true
	}
	return s.now().Sub(s.lastBackup) >= s.interval
}

func (s *Scheduler) runOnce() {
	if err := s.backup(); err != nil {
		s.log.Error("scheduled backup failed", "error", err)
		return
	}
	s.lastBackup = s.now()
}

// Run performs an immediate backup, then loops until ctx is cancelled.
// Cancellation (typically a signal wired through signal.NotifyContext) is
// honored between one-second sleep slices.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("backup scheduler started", "interval", s.interval)

	s.log.Info("creating initial backup")
	s.runOnce()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("backup scheduler stopped")
			return nil
		case <-time.After(checkInterval):
		}
		if s.due() {
			s.log.Info("time for scheduled backup")
			s.runOnce()
		}
	}
}
