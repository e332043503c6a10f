package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/errs"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/mq"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/repository"
	"github.com/Balance-Eat/balance-eat-be-sub000/tools/timeparser"
)

// memStats is an in-memory daily_stats table without a uniqueness constraint
type memStats struct {
	mu   sync.Mutex
	rows []db.DailyStats
	now  time.Time

	failBulkOnCall int
	bulkCalls      int
}

func (m *memStats) FindByUserAndDate(_ context.Context, userID uuid.UUID, date time.Time) (db.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && sameDay(r.StatsDate, date) {
			return r, nil
		}
	}
	return db.DailyStats{}, errs.ErrNotFound
}

func (m *memStats) Save(_ context.Context, s db.DailyStats) (db.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID != uuid.Nil {
		for i, r := range m.rows {
			if r.ID == s.ID {
				s.UpdatedAt = m.now
				m.rows[i] = s
				return s, nil
			}
		}
	}
	s.ID = uuid.New()
	s.CreatedAt, s.UpdatedAt = m.now, m.now
	m.rows = append(m.rows, s)
	return s, nil
}

func (m *memStats) BulkInsert(_ context.Context, rows []db.DailyStats) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	if len(rows) > repository.MaxBulkInsert {
		return 0, fmt.Errorf("%d rows: %w", len(rows), errs.ErrBulkLimitExceeded)
	}
	if m.failBulkOnCall == m.bulkCalls {
		return 0, errors.New("connection reset")
	}
	for _, r := range rows {
		r.ID = uuid.New()
		r.CreatedAt, r.UpdatedAt = m.now, m.now
		m.rows = append(m.rows, r)
	}
	return int64(len(rows)), nil
}

func (m *memStats) DeleteByDate(_ context.Context, date time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if sameDay(r.StatsDate, date) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memStats) onDay(date time.Time) []db.DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.DailyStats
	for _, r := range m.rows {
		if sameDay(r.StatsDate, date) {
			out = append(out, r)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	return timeparser.FormatDate(a) == timeparser.FormatDate(b)
}

type memUsers struct {
	ids      []uuid.UUID
	countErr error
}

func (u *memUsers) Count(context.Context) (int64, error) {
	return int64(len(u.ids)), u.countErr
}

func (u *memUsers) FindAllIDs(_ context.Context, page, size int) ([]uuid.UUID, error) {
	start := page * size
	if start >= len(u.ids) {
		return nil, nil
	}
	end := min(start+size, len(u.ids))
	return u.ids[start:end], nil
}

// memMeals serves both the single meal lookup and the item rows of the aggregate query
type memMeals struct {
	meals map[uuid.UUID]*db.Meal
}

func (m *memMeals) add(userID uuid.UUID, consumedAt time.Time, items ...db.MealItem) uuid.UUID {
	if m.meals == nil {
		m.meals = make(map[uuid.UUID]*db.Meal)
	}
	id := uuid.New()
	m.meals[id] = &db.Meal{ID: id, UserID: userID, MealType: db.MealTypeLunch, ConsumedAt: consumedAt, Items: items}
	return id
}

func (m *memMeals) FindByID(_ context.Context, id uuid.UUID) (*db.Meal, error) {
	meal, ok := m.meals[id]
	if !ok {
		return nil, fmt.Errorf("meal %s: %w", id, errs.ErrNotFound)
	}
	return meal, nil
}

func (m *memMeals) FindItemRows(_ context.Context, from, to time.Time, userIDs []uuid.UUID) ([]db.MealItemRow, error) {
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var rows []db.MealItemRow
	for _, meal := range m.meals {
		if !wanted[meal.UserID] || meal.ConsumedAt.Before(from) || !meal.ConsumedAt.Before(to) {
			continue
		}
		for _, item := range meal.Items {
			rows = append(rows, db.MealItemRow{UserID: meal.UserID, FoodID: item.FoodID, Quantity: item.Quantity})
		}
	}
	return rows, nil
}

type memFoods map[uuid.UUID]db.FoodReference

func (f memFoods) FindAllByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]db.FoodReference, error) {
	out := make(map[uuid.UUID]db.FoodReference, len(ids))
	for _, id := range ids {
		if food, ok := f[id]; ok {
			out[id] = food
		}
	}
	return out, nil
}

type recordingNotifier struct {
	refreshed  []mq.StatsRefreshedEvent
	recomputed []mq.StatsRecomputedEvent
	err        error
}

func (n *recordingNotifier) PublishStatsRefreshed(_ context.Context, e mq.StatsRefreshedEvent) error {
	n.refreshed = append(n.refreshed, e)
	return n.err
}

func (n *recordingNotifier) PublishStatsRecomputed(_ context.Context, e mq.StatsRecomputedEvent) error {
	n.recomputed = append(n.recomputed, e)
	return n.err
}
