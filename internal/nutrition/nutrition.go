// Package nutrition scales per-serving food values to consumed quantities and sums them per user.
package nutrition

import (
	"github.com/google/uuid"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
)

// Scale returns the nutrients of quantity units of food, where food values are given per ServingSize units.
// Non-positive serving sizes or quantities contribute nothing.
func Scale(food db.FoodReference, quantity float64) db.Nutrients {
	if food.ServingSize <= 0 || quantity <= 0 {
		return db.Nutrients{}
	}
	factor := quantity / food.ServingSize
	return db.Nutrients{
		Calories:      food.Calories * factor,
		Carbohydrates: food.Carbohydrates * factor,
		Protein:       food.Protein * factor,
		Fat:           food.Fat * factor,
	}
}

// SumByUser totals item rows per user. Rows whose food is missing from foods are
// skipped and their food ids returned in missing, in first-seen order.
func SumByUser(rows []db.MealItemRow, foods map[uuid.UUID]db.FoodReference) (totals map[uuid.UUID]db.Nutrients, missing []uuid.UUID) {
	totals = make(map[uuid.UUID]db.Nutrients)
	seenMissing := make(map[uuid.UUID]struct{})

	for _, row := range rows {
		food, ok := foods[row.FoodID]
		if !ok {
			if _, dup := seenMissing[row.FoodID]; !dup {
				seenMissing[row.FoodID] = struct{}{}
				missing = append(missing, row.FoodID)
			}
			continue
		}
		totals[row.UserID] = totals[row.UserID].Add(Scale(food, row.Quantity))
	}

	return totals, missing
}

// FoodIDs returns the distinct food ids referenced by rows
func FoodIDs(rows []db.MealItemRow) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.FoodID]; ok {
			continue
		}
		seen[row.FoodID] = struct{}{}
		ids = append(ids, row.FoodID)
	}
	return ids
}
