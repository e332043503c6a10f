package db

import (
	"time"

	"github.com/google/uuid"
)

// MealType is the slot of the day a meal was eaten in
type MealType string

const (
	MealTypeBreakfast MealType = "BREAKFAST"
	MealTypeLunch     MealType = "LUNCH"
	MealTypeDinner    MealType = "DINNER"
	MealTypeSnack     MealType = "SNACK"
)

// Meal represents a logged meal in the database
type Meal struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	MealType   MealType
	ConsumedAt time.Time
	Items      []MealItem
}

// MealItem represents one food portion of a meal
type MealItem struct {
	FoodID   uuid.UUID
	Quantity float64
}

// MealItemRow is a flattened meal item joined with its owning meal's user
type MealItemRow struct {
	UserID   uuid.UUID
	FoodID   uuid.UUID
	Quantity float64
}

// FoodReference holds per-serving nutrition values of a food
type FoodReference struct {
	ID            uuid.UUID
	Name          string
	ServingSize   float64
	ServingUnit   string
	Calories      float64
	Carbohydrates float64
	Protein       float64
	Fat           float64
}

// Nutrients is a set of the four tracked nutrient amounts
type Nutrients struct {
	Calories      float64
	Carbohydrates float64
	Protein       float64
	Fat           float64
}

// Add returns the element-wise sum of n and o
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Calories:      n.Calories + o.Calories,
		Carbohydrates: n.Carbohydrates + o.Carbohydrates,
		Protein:       n.Protein + o.Protein,
		Fat:           n.Fat + o.Fat,
	}
}

// DailyStats represents the materialized nutrition summary of one user for one date.
// A zero ID means the row has not been persisted yet.
type DailyStats struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	StatsDate          time.Time
	TotalCalories      float64
	TotalCarbohydrates float64
	TotalProtein       float64
	TotalFat           float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewDailyStats builds an unsaved stats row from nutrient totals
func NewDailyStats(userID uuid.UUID, date time.Time, totals Nutrients) DailyStats {
	return DailyStats{
		UserID:             userID,
		StatsDate:          date,
		TotalCalories:      totals.Calories,
		TotalCarbohydrates: totals.Carbohydrates,
		TotalProtein:       totals.Protein,
		TotalFat:           totals.Fat,
	}
}

// Totals returns the nutrient totals of the row
func (s DailyStats) Totals() Nutrients {
	return Nutrients{
		Calories:      s.TotalCalories,
		Carbohydrates: s.TotalCarbohydrates,
		Protein:       s.TotalProtein,
		Fat:           s.TotalFat,
	}
}

// WithTotals returns a copy of s carrying the totals of fresh.
// Identity and creation time of s are kept.
func (s DailyStats) WithTotals(fresh DailyStats) DailyStats {
	s.TotalCalories = fresh.TotalCalories
	s.TotalCarbohydrates = fresh.TotalCarbohydrates
	s.TotalProtein = fresh.TotalProtein
	s.TotalFat = fresh.TotalFat
	return s
}
