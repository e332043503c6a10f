package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/errs"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/mq"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/repository"
	"github.com/Balance-Eat/balance-eat-be-sub000/tools/timeparser"
)

// Aggregator computes daily totals from the meal log
type Aggregator interface {
	ComputeAggregate(ctx context.Context, date time.Time, userID uuid.UUID) (db.DailyStats, error)
	ComputeAggregateBatch(ctx context.Context, date time.Time, userIDs []uuid.UUID) ([]db.DailyStats, error)
}

// StatsNotifier announces refreshed stats to downstream consumers
type StatsNotifier interface {
	PublishStatsRefreshed(ctx context.Context, event mq.StatsRefreshedEvent) error
	PublishStatsRecomputed(ctx context.Context, event mq.StatsRecomputedEvent) error
}

// RecomputeResult summarizes one RecomputeAll run
type RecomputeResult struct {
	Date       time.Time
	Users      int64
	Pages      int
	Deleted    int64
	Inserted   int64
	ZeroFilled int
}

// StatsService keeps DailyStats rows in line with the meal log.
//
// Upsert and UpsertByMeal are incremental and best effort: they read before they write
// and take no lock, so concurrent calls for the same key may lose an update.
// RecomputeAll rebuilds a whole day and repairs any such drift.
type StatsService struct {
	stats    repository.StatsRepository
	users    repository.UserRepository
	meals    repository.MealRepository
	query    Aggregator
	notifier StatsNotifier
	loc      *time.Location
	pageSize int
	logger   *zap.Logger
}

// NewStatsService creates a new stats service. notifier may be nil.
func NewStatsService(
	stats repository.StatsRepository,
	users repository.UserRepository,
	meals repository.MealRepository,
	query Aggregator,
	notifier StatsNotifier,
	loc *time.Location,
	pageSize int,
	logger *zap.Logger,
) *StatsService {
	if pageSize <= 0 || pageSize > repository.MaxBulkInsert {
		pageSize = repository.MaxBulkInsert
	}
	return &StatsService{
		stats:    stats,
		users:    users,
		meals:    meals,
		query:    query,
		notifier: notifier,
		loc:      loc,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Upsert recomputes the stats row of (userID, date) and stores it, overwriting the
// totals of an existing row or inserting a new one.
func (s *StatsService) Upsert(ctx context.Context, userID uuid.UUID, date time.Time) (db.DailyStats, error) {
	day, _ := timeparser.DayBounds(date, s.loc)

	existing, err := s.stats.FindByUserAndDate(ctx, userID, day)
	found := err == nil
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return db.DailyStats{}, fmt.Errorf("failed to load daily stats: %w", err)
	}

	fresh, err := s.query.ComputeAggregate(ctx, day, userID)
	if err != nil {
		return db.DailyStats{}, fmt.Errorf("failed to compute daily stats: %w", err)
	}

	next := fresh
	if found {
		next = existing.WithTotals(fresh)
	}

	saved, err := s.stats.Save(ctx, next)
	if err != nil {
		return db.DailyStats{}, fmt.Errorf("failed to save daily stats: %w", err)
	}

	s.logger.Debug("daily stats upserted",
		zap.String("user_id", userID.String()),
		zap.String("stats_date", timeparser.FormatDate(day)),
		zap.Bool("existed", found),
		zap.Float64("total_calories", saved.TotalCalories),
	)

	s.notifyRefreshed(ctx, saved)
	return saved, nil
}

// UpsertByMeal resolves the meal's user and local consumption date and upserts that row.
// It fails with errs.ErrNotFound when the meal no longer exists.
func (s *StatsService) UpsertByMeal(ctx context.Context, mealID uuid.UUID) (db.DailyStats, error) {
	meal, err := s.meals.FindByID(ctx, mealID)
	if err != nil {
		return db.DailyStats{}, fmt.Errorf("failed to resolve meal: %w", err)
	}
	return s.Upsert(ctx, meal.UserID, timeparser.DateOf(meal.ConsumedAt, s.loc))
}

// RecomputeAll deletes every row of date and rebuilds one row per known user, page by page.
// Pages run sequentially; a failing page aborts the run and earlier pages stay written.
func (s *StatsService) RecomputeAll(ctx context.Context, date time.Time) (RecomputeResult, error) {
	day, _ := timeparser.DayBounds(date, s.loc)
	result := RecomputeResult{Date: day}
	started := time.Now()

	log := s.logger.With(zap.String("stats_date", timeparser.FormatDate(day)))
	log.Info("daily stats recompute started", zap.Int("page_size", s.pageSize))

	deleted, err := s.stats.DeleteByDate(ctx, day)
	if err != nil {
		return result, fmt.Errorf("failed to clear daily stats: %w", err)
	}
	result.Deleted = deleted

	total, err := s.users.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count users: %w", err)
	}
	result.Users = total

	pages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	for page := 0; page < pages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ids, err := s.users.FindAllIDs(ctx, page, s.pageSize)
		if err != nil {
			return result, fmt.Errorf("failed to load users page %d: %w", page, err)
		}
		if len(ids) == 0 {
			break
		}

		rows, zeroFilled, err := s.buildPage(ctx, day, ids)
		if err != nil {
			return result, fmt.Errorf("failed to aggregate users page %d: %w", page, err)
		}

		inserted, err := s.stats.BulkInsert(ctx, rows)
		if err != nil {
			return result, fmt.Errorf("failed to insert users page %d: %w", page, err)
		}

		result.Pages++
		result.Inserted += inserted
		result.ZeroFilled += zeroFilled

		log.Debug("daily stats page recomputed",
			zap.Int("page", page),
			zap.Int("users", len(ids)),
			zap.Int64("inserted", inserted),
			zap.Int("zero_filled", zeroFilled),
		)

		if len(ids) < s.pageSize {
			break
		}
	}

	log.Info("daily stats recompute finished",
		zap.Int64("users", result.Users),
		zap.Int("pages", result.Pages),
		zap.Int64("deleted", result.Deleted),
		zap.Int64("inserted", result.Inserted),
		zap.Int("zero_filled", result.ZeroFilled),
		zap.Duration("elapsed", time.Since(started)),
	)

	s.notifyRecomputed(ctx, result)
	return result, nil
}

// buildPage returns exactly one row per id: the aggregate where one exists, a zero row otherwise.
func (s *StatsService) buildPage(ctx context.Context, day time.Time, ids []uuid.UUID) ([]db.DailyStats, int, error) {
	aggregated, err := s.query.ComputeAggregateBatch(ctx, day, ids)
	if err != nil {
		return nil, 0, err
	}

	byUser := make(map[uuid.UUID]db.DailyStats, len(aggregated))
	for _, a := range aggregated {
		byUser[a.UserID] = a
	}

	rows := make([]db.DailyStats, 0, len(ids))
	zeroFilled := 0
	for _, id := range ids {
		if a, ok := byUser[id]; ok {
			rows = append(rows, a)
			continue
		}
		rows = append(rows, db.NewDailyStats(id, day, db.Nutrients{}))
		zeroFilled++
	}

	return rows, zeroFilled, nil
}

func (s *StatsService) notifyRefreshed(ctx context.Context, stats db.DailyStats) {
	if s.notifier == nil {
		return
	}
	totals := stats.Totals()
	event := mq.StatsRefreshedEvent{
		UserID:             stats.UserID.String(),
		StatsDate:          timeparser.FormatDate(stats.StatsDate),
		TotalCalories:      totals.Calories,
		TotalCarbohydrates: totals.Carbohydrates,
		TotalProtein:       totals.Protein,
		TotalFat:           totals.Fat,
	}
	if err := s.notifier.PublishStatsRefreshed(ctx, event); err != nil {
		s.logger.Error("failed to publish stats refreshed event",
			zap.Error(err),
			zap.String("user_id", event.UserID),
			zap.String("stats_date", event.StatsDate),
		)
	}
}

func (s *StatsService) notifyRecomputed(ctx context.Context, result RecomputeResult) {
	if s.notifier == nil {
		return
	}
	event := mq.StatsRecomputedEvent{
		StatsDate:  timeparser.FormatDate(result.Date),
		Users:      result.Users,
		Inserted:   result.Inserted,
		ZeroFilled: result.ZeroFilled,
	}
	if err := s.notifier.PublishStatsRecomputed(ctx, event); err != nil {
		s.logger.Error("failed to publish stats recomputed event",
			zap.Error(err),
			zap.String("stats_date", event.StatsDate),
		)
	}
}
