package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/errs"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/logging"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/validator"
	"github.com/Balance-Eat/balance-eat-be-sub000/tools/timeparser"
)

// MealEvent is the message the meal write path publishes after commit.
// Deleted events carry user_id and consumed_at since the meal row is gone by then.
// Updated events may carry previous_consumed_at when the meal moved to another time.
type MealEvent struct {
	EventID            string    `json:"event_id"`
	EventType          string    `json:"event_type"`
	MealID             uuid.UUID `json:"meal_id"`
	UserID             uuid.UUID `json:"user_id"`
	ConsumedAt         string    `json:"consumed_at,omitempty"`
	PreviousConsumedAt string    `json:"previous_consumed_at,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// StatsUpserter is the part of StatsService the listener drives
type StatsUpserter interface {
	Upsert(ctx context.Context, userID uuid.UUID, date time.Time) (db.DailyStats, error)
	UpsertByMeal(ctx context.Context, mealID uuid.UUID) (db.DailyStats, error)
}

// MealEventListener refreshes daily stats when a meal changes
type MealEventListener struct {
	stats     StatsUpserter
	validator *validator.Validator
	loc       *time.Location
	logger    *zap.Logger
}

// NewMealEventListener creates a new meal event listener
func NewMealEventListener(stats StatsUpserter, v *validator.Validator, loc *time.Location, logger *zap.Logger) *MealEventListener {
	return &MealEventListener{stats: stats, validator: v, loc: loc, logger: logger}
}

// ProcessMessage handles one meal event. Any error sends the message to the dead letter queue.
func (l *MealEventListener) ProcessMessage(ctx context.Context, body []byte) error {
	var evt MealEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("failed to unmarshal meal event: %v: %w", err, errs.ErrInvalidEvent)
	}

	evtLogger := logging.WithEventID(l.logger, evt.EventID)
	evtLogger.Info("processing meal event",
		zap.String("event_type", evt.EventType),
		zap.String("meal_id", evt.MealID.String()),
	)

	times, result := l.validator.ValidateMealEvent(validator.MealEventData{
		EventType:          evt.EventType,
		MealID:             evt.MealID,
		UserID:             evt.UserID,
		ConsumedAt:         evt.ConsumedAt,
		PreviousConsumedAt: evt.PreviousConsumedAt,
	})
	if !result.IsValid {
		evtLogger.Warn("rejected meal event", zap.String("reason", result.Reason))
		return fmt.Errorf("%s: %w", result.Reason, errs.ErrInvalidEvent)
	}

	var (
		stats db.DailyStats
		err   error
	)
	switch evt.EventType {
	case validator.EventMealCreated, validator.EventMealUpdated:
		stats, err = l.stats.UpsertByMeal(ctx, evt.MealID)
	case validator.EventMealDeleted:
		stats, err = l.stats.Upsert(ctx, evt.UserID, timeparser.DateOf(times.ConsumedAt, l.loc))
	}
	if err != nil {
		evtLogger.Error("failed to refresh daily stats", zap.Error(err))
		return fmt.Errorf("failed to refresh daily stats: %w", err)
	}

	// the day the meal moved away from is stale as well
	if !times.PreviousConsumedAt.IsZero() {
		prev := timeparser.DateOf(times.PreviousConsumedAt, l.loc)
		if timeparser.FormatDate(prev) != timeparser.FormatDate(stats.StatsDate) || evt.UserID != stats.UserID {
			if _, err := l.stats.Upsert(ctx, evt.UserID, prev); err != nil {
				evtLogger.Error("failed to refresh previous day stats", zap.Error(err))
				return fmt.Errorf("failed to refresh previous day stats: %w", err)
			}
		}
	}

	evtLogger.Info("meal event processed",
		zap.String("user_id", stats.UserID.String()),
		zap.String("stats_date", timeparser.FormatDate(stats.StatsDate)),
		zap.Float64("total_calories", stats.TotalCalories),
	)

	return nil
}
