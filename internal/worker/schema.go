package worker

import (
	"context"
	"time"

	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

// SchemaPollInterval is how often WaitForSchema checks for the settings table.
const SchemaPollInterval = 2 * time.Second

// SchemaProbe reports whether the backup settings table exists.
type SchemaProbe interface {
	HasSettingsTable(ctx context.Context) bool
}

// WaitForSchema blocks until probe reports the settings table or timeout
// elapses. The worker cannot start without it, so a timeout is fatal.
func (w *Worker) WaitForSchema(ctx context.Context, probe SchemaProbe, timeout time.Duration) error {
	log := GetLogger()
	deadline := w.now().Add(timeout)

	for attempt := 1; ; attempt++ {
		if probe.HasSettingsTable(ctx) {
			if attempt > 1 {
				log.Info("database schema ready", logger.Int("attempts", attempt))
			}
			return nil
		}
		if !w.now().Before(deadline) {
			return errors.Newf("backup settings table not found after %s", timeout).
				Component("worker").
				Category(errors.CategoryTimeout).
				Context("attempts", attempt).
				Build()
		}
		log.Info("waiting for database migrations", logger.Int("attempt", attempt))
		if err := w.sleep(ctx, min(SchemaPollInterval, deadline.Sub(w.now()))); err != nil {
			return err
		}
	}
}
