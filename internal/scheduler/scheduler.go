package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/service"
	"github.com/Balance-Eat/balance-eat-be-sub000/tools/timeparser"
)

// Recomputer rebuilds the stats of one day
type Recomputer interface {
	RecomputeAll(ctx context.Context, date time.Time) (service.RecomputeResult, error)
}

// DailyScheduler recomputes yesterday's stats once a day at a fixed wall-clock time in loc
type DailyScheduler struct {
	recomputer Recomputer
	loc        *time.Location
	hour       int
	minute     int
	now        func() time.Time
	logger     *zap.Logger
}

// NewDailyScheduler creates a scheduler firing every day at hour:minute in loc
func NewDailyScheduler(recomputer Recomputer, loc *time.Location, hour, minute int, logger *zap.Logger) *DailyScheduler {
	return &DailyScheduler{
		recomputer: recomputer,
		loc:        loc,
		hour:       hour,
		minute:     minute,
		now:        time.Now,
		logger:     logger,
	}
}

// NextRun returns the first trigger time strictly after now
func (s *DailyScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.loc)
	}
	return next
}

// TargetDate returns the day before now's calendar day in loc
func (s *DailyScheduler) TargetDate(now time.Time) time.Time {
	return timeparser.DateOf(now, s.loc).AddDate(0, 0, -1)
}

// Run waits for each trigger time and recomputes until ctx is done
func (s *DailyScheduler) Run(ctx context.Context) {
	s.logger.Info("daily scheduler started",
		zap.String("time_zone", s.loc.String()),
		zap.Int("hour", s.hour),
		zap.Int("minute", s.minute),
	)

	for ctx.Err() == nil {
		now := s.now()
		next := s.NextRun(now)
		s.logger.Debug("next daily recompute scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
	s.logger.Info("daily scheduler stopped")
}

// RunOnce recomputes the target date of the current time. Failures are logged only;
// the next trigger starts a fresh run.
func (s *DailyScheduler) RunOnce(ctx context.Context) {
	date := s.TargetDate(s.now())
	result, err := s.recomputer.RecomputeAll(ctx, date)
	if err != nil {
		s.logger.Error("daily stats recompute failed",
			zap.Error(err),
			zap.String("stats_date", timeparser.FormatDate(date)),
			zap.Int("completed_pages", result.Pages),
		)
	}
}

// RegisterLifecycle starts the scheduler loop with the app and waits for it on stop
func (s *DailyScheduler) RegisterLifecycle(lc fx.Lifecycle) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
