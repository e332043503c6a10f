package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/nutrition"
	"github.com/Balance-Eat/balance-eat-be-sub000/tools/timeparser"
)

// StatsQuery computes daily nutrient totals from the meal log and food reference data.
// Days are calendar days in loc.
type StatsQuery struct {
	meals  MealRepository
	foods  FoodRepository
	loc    *time.Location
	logger *zap.Logger
}

// NewStatsQuery creates a new stats query
func NewStatsQuery(meals MealRepository, foods FoodRepository, loc *time.Location, logger *zap.Logger) *StatsQuery {
	return &StatsQuery{meals: meals, foods: foods, loc: loc, logger: logger}
}

// ComputeAggregate returns the totals of userID on date. It never reports "no data":
// a user without meals gets an all-zero row.
func (q *StatsQuery) ComputeAggregate(ctx context.Context, date time.Time, userID uuid.UUID) (db.DailyStats, error) {
	batch, err := q.ComputeAggregateBatch(ctx, date, []uuid.UUID{userID})
	if err != nil {
		return db.DailyStats{}, err
	}
	if len(batch) == 0 {
		day, _ := timeparser.DayBounds(date, q.loc)
		return db.NewDailyStats(userID, day, db.Nutrients{}), nil
	}
	return batch[0], nil
}

// ComputeAggregateBatch returns totals for the users among userIDs that have at least one
// meal item on date, in userIDs order. Users without items are omitted.
func (q *StatsQuery) ComputeAggregateBatch(ctx context.Context, date time.Time, userIDs []uuid.UUID) ([]db.DailyStats, error) {
	from, to := timeparser.DayBounds(date, q.loc)

	rows, err := q.meals.FindItemRows(ctx, from, to, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal items: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	foods, err := q.foods.FindAllByID(ctx, nutrition.FoodIDs(rows))
	if err != nil {
		return nil, fmt.Errorf("failed to load foods: %w", err)
	}

	totals, missing := nutrition.SumByUser(rows, foods)
	if len(missing) > 0 {
		q.logger.Warn("meal items reference unknown foods",
			zap.String("stats_date", timeparser.FormatDate(from)),
			zap.Int("missing_foods", len(missing)),
			zap.Stringer("first_missing_food_id", missing[0]),
		)
	}

	out := make([]db.DailyStats, 0, len(totals))
	for _, userID := range userIDs {
		t, ok := totals[userID]
		if !ok {
			continue
		}
		out = append(out, db.NewDailyStats(userID, from, t))
	}

	return out, nil
}
