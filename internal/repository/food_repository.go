package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
)

// FoodRepo implements FoodRepository using PostgreSQL
type FoodRepo struct {
	pool PgxPool
}

// NewFoodRepo creates a new food repository
func NewFoodRepo(pool PgxPool) *FoodRepo {
	return &FoodRepo{pool: pool}
}

// FindAllByID loads the referenced foods; ids without a food are simply absent from the result
func (r *FoodRepo) FindAllByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]db.FoodReference, error) {
	foods := make(map[uuid.UUID]db.FoodReference, len(ids))
	if len(ids) == 0 {
		return foods, nil
	}

	const query = `
		SELECT id, name, serving_size, serving_unit, calories, carbohydrates, protein, fat
		FROM foods
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f db.FoodReference
		if err := rows.Scan(&f.ID, &f.Name, &f.ServingSize, &f.ServingUnit,
			&f.Calories, &f.Carbohydrates, &f.Protein, &f.Fat); err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		foods[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return foods, nil
}
