package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/errs"
)

// MaxBulkInsert is the largest number of rows a single BulkInsert accepts
const MaxBulkInsert = 1000

var statsCopyColumns = []string{
	"user_id", "stats_date",
	"total_calories", "total_carbohydrates", "total_protein", "total_fat",
	"created_at", "updated_at",
}

// StatsRepo implements StatsRepository using PostgreSQL
type StatsRepo struct {
	pool PgxPool
	now  func() time.Time
}

// NewStatsRepo creates a new daily stats repository
func NewStatsRepo(pool PgxPool) *StatsRepo {
	return &StatsRepo{pool: pool, now: time.Now}
}

// FindByUserAndDate returns the oldest row for (userID, date)
func (r *StatsRepo) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (db.DailyStats, error) {
	const query = `
		SELECT id, user_id, stats_date, total_calories, total_carbohydrates, total_protein, total_fat, created_at, updated_at
		FROM daily_stats
		WHERE user_id = $1 AND stats_date = $2
		ORDER BY created_at
		LIMIT 1
	`

	var s db.DailyStats
	err := r.pool.QueryRow(ctx, query, userID, date).Scan(
		&s.ID,
		&s.UserID,
		&s.StatsDate,
		&s.TotalCalories,
		&s.TotalCarbohydrates,
		&s.TotalProtein,
		&s.TotalFat,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.DailyStats{}, errs.ErrNotFound
		}
		return db.DailyStats{}, fmt.Errorf("failed to query daily stats: %w", err)
	}

	return s, nil
}

// Save inserts an unsaved row or overwrites the totals of a saved one.
// A saved row that no longer exists (removed by a concurrent recompute) is inserted again.
func (r *StatsRepo) Save(ctx context.Context, stats db.DailyStats) (db.DailyStats, error) {
	if stats.ID != uuid.Nil {
		updated, err := r.update(ctx, stats)
		if !errors.Is(err, errs.ErrNotFound) {
			return updated, err
		}
	}
	return r.insert(ctx, stats)
}

func (r *StatsRepo) insert(ctx context.Context, stats db.DailyStats) (db.DailyStats, error) {
	const query = `
		INSERT INTO daily_stats (
			user_id, stats_date, total_calories, total_carbohydrates,
			total_protein, total_fat, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		stats.UserID,
		stats.StatsDate,
		stats.TotalCalories,
		stats.TotalCarbohydrates,
		stats.TotalProtein,
		stats.TotalFat,
		r.now(),
	).Scan(&stats.ID, &stats.CreatedAt, &stats.UpdatedAt)
	if err != nil {
		return db.DailyStats{}, fmt.Errorf("failed to insert daily stats: %w", err)
	}

	return stats, nil
}

func (r *StatsRepo) update(ctx context.Context, stats db.DailyStats) (db.DailyStats, error) {
	const query = `
		UPDATE daily_stats
		SET total_calories = $2, total_carbohydrates = $3, total_protein = $4, total_fat = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		stats.ID,
		stats.TotalCalories,
		stats.TotalCarbohydrates,
		stats.TotalProtein,
		stats.TotalFat,
		r.now(),
	).Scan(&stats.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.DailyStats{}, errs.ErrNotFound
		}
		return db.DailyStats{}, fmt.Errorf("failed to update daily stats: %w", err)
	}

	return stats, nil
}

// BulkInsert copies rows into daily_stats in a single statement
func (r *StatsRepo) BulkInsert(ctx context.Context, rows []db.DailyStats) (int64, error) {
	if len(rows) > MaxBulkInsert {
		return 0, fmt.Errorf("%d rows exceeds limit of %d: %w", len(rows), MaxBulkInsert, errs.ErrBulkLimitExceeded)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := r.now()
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		s := rows[i]
		return []any{
			s.UserID, s.StatsDate,
			s.TotalCalories, s.TotalCarbohydrates, s.TotalProtein, s.TotalFat,
			now, now,
		}, nil
	})

	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"daily_stats"}, statsCopyColumns, src)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert daily stats: %w", err)
	}

	return n, nil
}

// DeleteByDate removes all rows of date
func (r *StatsRepo) DeleteByDate(ctx context.Context, date time.Time) (int64, error) {
	const query = `DELETE FROM daily_stats WHERE stats_date = $1`

	tag, err := r.pool.Exec(ctx, query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete daily stats: %w", err)
	}

	return tag.RowsAffected(), nil
}
