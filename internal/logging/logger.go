package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithEventID returns a logger with event_id field
func WithEventID(logger *zap.Logger, eventID string) *zap.Logger {
	if eventID == "" {
		return logger
	}
	return logger.With(zap.String("event_id", eventID))
}
