package history

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const retentionTickInterval = 6 * time.Hour

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	RetentionDays int
}

// RetentionCleaner periodically deletes runs older than the retention
// period, together with their stage records.
type RetentionCleaner struct {
	store         *Store
	retentionDays int
	done          chan struct{}
	stopped       chan struct{}
}

// NewRetentionCleaner starts a cleaner. Returns nil when retention is
// disabled (0 days).
func NewRetentionCleaner(store *Store, cfg RetentionConfig) *RetentionCleaner {
	if cfg.RetentionDays <= 0 {
		return nil
	}

	rc := &RetentionCleaner{
		store:         store,
		retentionDays: cfg.RetentionDays,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	// Startup cleanup to catch up after downtime.
	rc.cleanup()

	go rc.loop()
	return rc
}

func (rc *RetentionCleaner) loop() {
	defer close(rc.stopped)
	ticker := time.NewTicker(retentionTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	cutoff := time.Now().AddDate(0, 0, -rc.retentionDays)

	ctx, cancel := context.WithTimeout(context.Background(), rc.store.queryTimeout)
	defer cancel()

	res, err := rc.store.db.ExecContext(ctx,
		`DELETE FROM run_stages WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff)
	if err != nil {
		logrus.WithError(err).Warn("history retention: deleting stage records failed")
		return
	}
	if _, err := rc.store.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff); err != nil {
		logrus.WithError(err).Warn("history retention: deleting runs failed")
		return
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logrus.WithField("stage_rows", n).Debug("history retention: expired records removed")
	}
}

// Stop terminates the cleanup loop and waits for it to exit.
func (rc *RetentionCleaner) Stop() {
	close(rc.done)
	<-rc.stopped
}
