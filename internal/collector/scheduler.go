package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/models"
	"github.com/soonerrob/rSearch/pkg/config"
	"github.com/soonerrob/rSearch/pkg/logging"
)

// eligibilityWindow is how stale a completed collection must be before
// an audience is picked up again
const eligibilityWindow = time.Hour

// Runner starts a collection run for one audience
type Runner interface {
	Collect(ctx context.Context, audienceID int64, mode Mode) error
}

// SchedulerStore lists audiences due for incremental collection
type SchedulerStore interface {
	EligibleAudiences(ctx context.Context, cutoff time.Time) ([]*models.Audience, error)
}

// Scheduler periodically sweeps all audiences and runs incremental
// collection for those whose last run is stale. Audiences are processed
// one at a time with an inter-audience delay so sweeps never burst the
// content source.
type Scheduler struct {
	cfg    *config.CollectorConfig
	store  SchedulerStore
	runner Runner
	logger *zap.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(cfg *config.CollectorConfig, store SchedulerStore, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logging.GetLogger().With(zap.String("component", "scheduler")),
	}
}

// Run executes sweep cycles until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting collection scheduler",
		zap.Duration("sweep_interval", s.cfg.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			s.sweep(ctx)
			s.wait(ctx, s.cfg.SweepInterval)
		}
	}
}

// sweep runs incremental collection for every eligible audience. One
// audience's failure never blocks the rest of the sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-eligibilityWindow)
	audiences, err := s.store.EligibleAudiences(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to list eligible audiences", zap.Error(err))
		return
	}

	if len(audiences) == 0 {
		s.logger.Debug("No audiences due for collection")
		return
	}

	s.logger.Info("Sweeping audiences", zap.Int("eligible", len(audiences)))

	for i, audience := range audiences {
		if ctx.Err() != nil {
			return
		}

		if err := s.runner.Collect(ctx, audience.ID, ModeIncremental); err != nil {
			s.logger.Error("Incremental collection failed",
				zap.Int64("audience_id", audience.ID),
				zap.String("name", audience.Name),
				zap.Error(err))
		}

		if i < len(audiences)-1 {
			s.wait(ctx, s.cfg.AudienceDelay)
		}
	}
}

// wait sleeps for d or until the context is cancelled
func (s *Scheduler) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Eligible reports whether an audience is due for incremental
// collection as of now: not currently collecting, and either never
// collected or last collected more than the eligibility window ago.
func Eligible(a *models.Audience, now time.Time) bool {
	if a.IsCollecting {
		return false
	}
	if !a.LastCollectionTime.Valid {
		return true
	}
	return now.Sub(a.LastCollectionTime.Time) > eligibilityWindow
}
