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

// MealRepo implements MealRepository using PostgreSQL
type MealRepo struct {
	pool PgxPool
}

// NewMealRepo creates a new meal repository
func NewMealRepo(pool PgxPool) *MealRepo {
	return &MealRepo{pool: pool}
}

// FindByID loads a meal and its items in position order
func (r *MealRepo) FindByID(ctx context.Context, id uuid.UUID) (*db.Meal, error) {
	const mealQuery = `
		SELECT id, user_id, meal_type, consumed_at
		FROM meals
		WHERE id = $1
	`

	var (
		meal     db.Meal
		mealType string
	)
	err := r.pool.QueryRow(ctx, mealQuery, id).Scan(&meal.ID, &meal.UserID, &mealType, &meal.ConsumedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("meal %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query meal: %w", err)
	}
	meal.MealType = db.MealType(mealType)

	const itemsQuery = `
		SELECT food_id, quantity
		FROM meal_items
		WHERE meal_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item db.MealItem
		if err := rows.Scan(&item.FoodID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan meal item: %w", err)
		}
		meal.Items = append(meal.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return &meal, nil
}

// FindItemRows joins meals to their items for the given users and consumption window
func (r *MealRepo) FindItemRows(ctx context.Context, from, to time.Time, userIDs []uuid.UUID) ([]db.MealItemRow, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	const query = `
		SELECT m.user_id, mi.food_id, mi.quantity
		FROM meals m
		JOIN meal_items mi ON mi.meal_id = m.id
		WHERE m.consumed_at >= $1 AND m.consumed_at < $2 AND m.user_id = ANY($3)
		ORDER BY m.user_id, m.consumed_at, mi.position
	`

	rows, err := r.pool.Query(ctx, query, from, to, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal items: %w", err)
	}
	defer rows.Close()

	var out []db.MealItemRow
	for rows.Next() {
		var row db.MealItemRow
		if err := rows.Scan(&row.UserID, &row.FoodID, &row.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan meal item row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}
