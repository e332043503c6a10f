// Package repository holds the Postgres-backed collaborators and the daily stats query layer.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
)

// PgxPool is the subset of a Postgres pool used by repositories.
// It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// MealRepository reads logged meals. Meals are owned by the meal service; this is read-only.
type MealRepository interface {
	// FindByID loads a meal with its items, errs.ErrNotFound if it does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*db.Meal, error)
	// FindItemRows returns one row per meal item of the given users' meals consumed in [from, to).
	FindItemRows(ctx context.Context, from, to time.Time, userIDs []uuid.UUID) ([]db.MealItemRow, error)
}

// FoodRepository reads food reference data.
type FoodRepository interface {
	// FindAllByID returns the foods that exist among ids, keyed by id.
	FindAllByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]db.FoodReference, error)
}

// UserRepository enumerates known (not deleted) users.
type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	// FindAllIDs returns the ids of one zero-based page ordered by id.
	FindAllIDs(ctx context.Context, page, size int) ([]uuid.UUID, error)
}

// StatsRepository stores DailyStats rows.
type StatsRepository interface {
	// FindByUserAndDate returns the row for (userID, date), errs.ErrNotFound if absent.
	FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (db.DailyStats, error)
	// Save inserts stats when it has no ID and updates its totals otherwise.
	Save(ctx context.Context, stats db.DailyStats) (db.DailyStats, error)
	// BulkInsert writes rows in one batch; more than MaxBulkInsert rows is rejected.
	BulkInsert(ctx context.Context, rows []db.DailyStats) (int64, error)
	// DeleteByDate removes every row of date and reports how many were removed.
	DeleteByDate(ctx context.Context, date time.Time) (int64, error)
}
