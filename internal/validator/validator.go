package validator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Balance-Eat/balance-eat-be-sub000/tools/timeparser"
)

// Meal event types the stats worker understands
const (
	EventMealCreated = "meal.created"
	EventMealUpdated = "meal.updated"
	EventMealDeleted = "meal.deleted"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// MealEventData is the part of a meal event needed to pick a stats row
type MealEventData struct {
	EventType          string
	MealID             uuid.UUID
	UserID             uuid.UUID
	ConsumedAt         string
	PreviousConsumedAt string
}

// ResolvedTimes holds the parsed timestamps of a valid event. Zero means absent.
type ResolvedTimes struct {
	ConsumedAt         time.Time
	PreviousConsumedAt time.Time
}

// IsKnownEventType reports whether eventType is a meal event the worker can handle
func IsKnownEventType(eventType string) bool {
	switch eventType {
	case EventMealCreated, EventMealUpdated, EventMealDeleted:
		return true
	}
	return false
}

// Validator checks incoming meal events against the subscribed event types.
// Timestamps without an offset are read as wall-clock times in loc.
type Validator struct {
	accepted map[string]struct{}
	loc      *time.Location
}

// NewValidator creates a validator accepting the given event types
func NewValidator(eventTypes []string, loc *time.Location) *Validator {
	accepted := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		if IsKnownEventType(t) {
			accepted[t] = struct{}{}
		}
	}
	return &Validator{accepted: accepted, loc: loc}
}

// ValidateMealEvent validates a meal event and parses its timestamps
func (v *Validator) ValidateMealEvent(evt MealEventData) (ResolvedTimes, ValidationResult) {
	result := ValidationResult{IsValid: true}
	var times ResolvedTimes

	if evt.EventType == "" {
		return times, invalid("empty event type")
	}
	if _, ok := v.accepted[evt.EventType]; !ok {
		return times, invalid(fmt.Sprintf("unsupported event type %q", evt.EventType))
	}
	if evt.MealID == uuid.Nil {
		return times, invalid("missing meal_id")
	}

	if evt.ConsumedAt != "" {
		t, err := timeparser.ParseEventTimestamp(evt.ConsumedAt, v.loc)
		if err != nil {
			return times, invalid(fmt.Sprintf("invalid consumed_at: %v", err))
		}
		times.ConsumedAt = t
	}

	if evt.PreviousConsumedAt != "" {
		t, err := timeparser.ParseEventTimestamp(evt.PreviousConsumedAt, v.loc)
		if err != nil {
			return times, invalid(fmt.Sprintf("invalid previous_consumed_at: %v", err))
		}
		times.PreviousConsumedAt = t
	}

	// a deleted meal cannot be looked up, so the event itself must name the row
	if evt.EventType == EventMealDeleted {
		if evt.UserID == uuid.Nil {
			return times, invalid("deleted event without user_id")
		}
		if times.ConsumedAt.IsZero() {
			return times, invalid("deleted event without consumed_at")
		}
	}

	if !times.PreviousConsumedAt.IsZero() && evt.UserID == uuid.Nil {
		return times, invalid("previous_consumed_at without user_id")
	}

	return times, result
}

func invalid(reason string) ValidationResult {
	return ValidationResult{IsValid: false, Reason: reason}
}
