package collector

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/pkg/config"
	"github.com/soonerrob/rSearch/pkg/logging"
)

// CleanupStore removes content whose community no longer belongs to any
// audience
type CleanupStore interface {
	DeleteOrphanedContent(ctx context.Context) (int64, error)
}

// Cleanup runs the orphaned-content sweep on a cron schedule. Deleting
// an audience leaves behind posts and comments for communities no other
// audience references; this job reclaims them.
type Cleanup struct {
	schedule string
	store    CleanupStore
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewCleanup creates the cleanup job with the configured cron schedule
func NewCleanup(cfg *config.CollectorConfig, store CleanupStore) *Cleanup {
	return &Cleanup{
		schedule: cfg.CleanupSchedule,
		store:    store,
		cron:     cron.New(),
		logger:   logging.GetLogger().With(zap.String("component", "cleanup")),
	}
}

// Start registers and starts the scheduled job
func (c *Cleanup) Start() error {
	_, err := c.cron.AddFunc(c.schedule, c.runOnce)
	if err != nil {
		return err
	}

	c.cron.Start()
	c.logger.Info("Cleanup job scheduled", zap.String("schedule", c.schedule))
	return nil
}

// Stop cancels the schedule and waits for a running sweep to finish
func (c *Cleanup) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.logger.Info("Cleanup job stopped")
}

func (c *Cleanup) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	deleted, err := c.store.DeleteOrphanedContent(ctx)
	if err != nil {
		c.logger.Error("Orphaned-content cleanup failed", zap.Error(err))
		return
	}

	c.logger.Info("Orphaned-content cleanup finished", zap.Int64("rows_deleted", deleted))
}
