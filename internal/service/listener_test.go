package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/errs"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/validator"
)

type upsertCall struct {
	userID uuid.UUID
	date   time.Time
}

type fakeUpserter struct {
	upserts    []upsertCall
	byMeal     []uuid.UUID
	mealResult db.DailyStats
	err        error
}

func (f *fakeUpserter) Upsert(_ context.Context, userID uuid.UUID, date time.Time) (db.DailyStats, error) {
	f.upserts = append(f.upserts, upsertCall{userID: userID, date: date})
	return db.NewDailyStats(userID, date, db.Nutrients{}), f.err
}

func (f *fakeUpserter) UpsertByMeal(_ context.Context, mealID uuid.UUID) (db.DailyStats, error) {
	f.byMeal = append(f.byMeal, mealID)
	return f.mealResult, f.err
}

func newTestListener(t *testing.T, stats StatsUpserter) (*MealEventListener, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	v := validator.NewValidator([]string{validator.EventMealCreated, validator.EventMealUpdated, validator.EventMealDeleted}, loc)
	return NewMealEventListener(stats, v, loc, zap.NewNop()), loc
}

func TestListener_CreatedAndUpdatedResolveByMeal(t *testing.T) {
	for _, eventType := range []string{validator.EventMealCreated, validator.EventMealUpdated} {
		t.Run(eventType, func(t *testing.T) {
			stats := &fakeUpserter{}
			l, _ := newTestListener(t, stats)
			mealID := uuid.New()

			body := fmt.Sprintf(`{"event_id":"evt-1","event_type":%q,"meal_id":%q,"occurred_at":"2025-03-01T12:00:00Z"}`, eventType, mealID)
			require.NoError(t, l.ProcessMessage(context.Background(), []byte(body)))

			require.Equal(t, []uuid.UUID{mealID}, stats.byMeal)
			require.Empty(t, stats.upserts)
		})
	}
}

func TestListener_DeletedUsesEventPayload(t *testing.T) {
	stats := &fakeUpserter{}
	l, loc := newTestListener(t, stats)
	userID := uuid.New()

	// 15:30 UTC is 00:30 the next day in Seoul
	body := fmt.Sprintf(`{"event_id":"evt-2","event_type":"meal.deleted","meal_id":%q,"user_id":%q,"consumed_at":"2025-03-01T15:30:00Z"}`, uuid.New(), userID)
	require.NoError(t, l.ProcessMessage(context.Background(), []byte(body)))

	require.Empty(t, stats.byMeal)
	require.Equal(t, []upsertCall{{userID: userID, date: time.Date(2025, 3, 2, 0, 0, 0, 0, loc)}}, stats.upserts)
}

func TestListener_UpdatedRefreshesPreviousDay(t *testing.T) {
	userID, mealID := uuid.New(), uuid.New()
	l, loc := newTestListener(t, nil)
	stats := &fakeUpserter{mealResult: db.NewDailyStats(userID, time.Date(2025, 3, 3, 0, 0, 0, 0, loc), db.Nutrients{Calories: 310})}
	l.stats = stats

	body := fmt.Sprintf(`{"event_type":"meal.updated","meal_id":%q,"user_id":%q,"previous_consumed_at":"2025-03-01T08:00:00+09:00"}`, mealID, userID)
	require.NoError(t, l.ProcessMessage(context.Background(), []byte(body)))

	require.Equal(t, []uuid.UUID{mealID}, stats.byMeal)
	require.Equal(t, []upsertCall{{userID: userID, date: time.Date(2025, 3, 1, 0, 0, 0, 0, loc)}}, stats.upserts)
}

func TestListener_UpdatedSameDaySkipsPreviousDay(t *testing.T) {
	userID := uuid.New()
	l, _ := newTestListener(t, nil)
	// DATE columns scan as UTC midnight
	stats := &fakeUpserter{mealResult: db.NewDailyStats(userID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), db.Nutrients{})}
	l.stats = stats

	body := fmt.Sprintf(`{"event_type":"meal.updated","meal_id":%q,"user_id":%q,"previous_consumed_at":"2025-03-01T08:00:00+09:00"}`, uuid.New(), userID)
	require.NoError(t, l.ProcessMessage(context.Background(), []byte(body)))

	require.Len(t, stats.byMeal, 1)
	require.Empty(t, stats.upserts)
}

func TestListener_RejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"event_type":`},
		{"unknown type", fmt.Sprintf(`{"event_type":"meal.archived","meal_id":%q}`, uuid.New())},
		{"missing meal id", `{"event_type":"meal.created"}`},
		{"bad meal id", `{"event_type":"meal.created","meal_id":"not-a-uuid"}`},
		{"delete without user", fmt.Sprintf(`{"event_type":"meal.deleted","meal_id":%q,"consumed_at":"2025-03-01T08:00:00Z"}`, uuid.New())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &fakeUpserter{}
			l, _ := newTestListener(t, stats)

			err := l.ProcessMessage(context.Background(), []byte(tt.body))
			require.ErrorIs(t, err, errs.ErrInvalidEvent)
			require.Empty(t, stats.byMeal)
			require.Empty(t, stats.upserts)
		})
	}
}

func TestListener_PropagatesNotFound(t *testing.T) {
	stats := &fakeUpserter{err: fmt.Errorf("failed to resolve meal: %w", errs.ErrNotFound)}
	l, _ := newTestListener(t, stats)

	body := fmt.Sprintf(`{"event_type":"meal.created","meal_id":%q}`, uuid.New())
	err := l.ProcessMessage(context.Background(), []byte(body))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListener_PropagatesStoreErrors(t *testing.T) {
	stats := &fakeUpserter{err: errors.New("pool closed")}
	l, _ := newTestListener(t, stats)

	body := fmt.Sprintf(`{"event_type":"meal.deleted","meal_id":%q,"user_id":%q,"consumed_at":"2025-03-01 08:00:00"}`, uuid.New(), uuid.New())
	require.Error(t, l.ProcessMessage(context.Background(), []byte(body)))
}

func TestListener_DeletedWallClockIsLocalTime(t *testing.T) {
	stats := &fakeUpserter{}
	l, loc := newTestListener(t, stats)
	userID := uuid.New()

	// no offset: 20:00 in Seoul, past 15:00 when UTC is already a day behind
	body := fmt.Sprintf(`{"event_type":"meal.deleted","meal_id":%q,"user_id":%q,"consumed_at":"2025-03-01T20:00:00"}`, uuid.New(), userID)
	require.NoError(t, l.ProcessMessage(context.Background(), []byte(body)))

	require.Equal(t, []upsertCall{{userID: userID, date: time.Date(2025, 3, 1, 0, 0, 0, 0, loc)}}, stats.upserts)
}
