package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/validator"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Stats       StatsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Migrate bool
}

// RabbitMQConfig holds RabbitMQ connection, queue and exchange settings
type RabbitMQConfig struct {
	URL               string
	MealExchange      string
	MealQueue         string
	MealRoutingKeys   []string
	DLQQueue          string
	PrefetchCount     int
	StatsExchange     string
	StatsRefreshKey   string
	StatsRecomputeKey string
}

// StatsConfig holds daily stats computation settings
type StatsConfig struct {
	TimeZone    string
	Location    *time.Location
	RecomputeAt string
	RunHour     int
	RunMinute   int
	PageSize    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "daily-stats-worker"),
		Database: DatabaseConfig{
			URL:     getEnv("DATABASE_URL", ""),
			Migrate: getEnvAsBool("DATABASE_MIGRATE", true),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			MealExchange:      getEnv("RABBITMQ_MEAL_EXCHANGE", "balance-eat.meal.events"),
			MealQueue:         getEnv("RABBITMQ_MEAL_QUEUE", "balance-eat.stats.meal-events"),
			MealRoutingKeys:   getEnvAsList("RABBITMQ_MEAL_ROUTING_KEYS", []string{"meal.created", "meal.updated", "meal.deleted"}),
			DLQQueue:          getEnv("RABBITMQ_DLQ_QUEUE", "balance-eat.stats.meal-events.dlq"),
			PrefetchCount:     getEnvAsInt("RABBITMQ_PREFETCH", 10),
			StatsExchange:     getEnv("RABBITMQ_STATS_EXCHANGE", "balance-eat.stats.events"),
			StatsRefreshKey:   getEnv("RABBITMQ_STATS_REFRESH_KEY", "stats.daily.refreshed"),
			StatsRecomputeKey: getEnv("RABBITMQ_STATS_RECOMPUTE_KEY", "stats.daily.recomputed"),
		},
		Stats: StatsConfig{
			TimeZone:    getEnv("STATS_TIMEZONE", "Asia/Seoul"),
			RecomputeAt: getEnv("STATS_RECOMPUTE_AT", "00:00"),
			PageSize:    getEnvAsInt("STATS_PAGE_SIZE", 1000),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if len(cfg.RabbitMQ.MealRoutingKeys) == 0 {
		return nil, fmt.Errorf("RABBITMQ_MEAL_ROUTING_KEYS must list at least one routing key")
	}
	for _, key := range cfg.RabbitMQ.MealRoutingKeys {
		if !validator.IsKnownEventType(key) {
			return nil, fmt.Errorf("RABBITMQ_MEAL_ROUTING_KEYS contains %q, expected meal.created, meal.updated or meal.deleted", key)
		}
	}

	loc, err := time.LoadLocation(cfg.Stats.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE %q: %w", cfg.Stats.TimeZone, err)
	}
	cfg.Stats.Location = loc

	hour, minute, err := parseClock(cfg.Stats.RecomputeAt)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_RECOMPUTE_AT %q: %w", cfg.Stats.RecomputeAt, err)
	}
	cfg.Stats.RunHour, cfg.Stats.RunMinute = hour, minute

	if cfg.Stats.PageSize <= 0 || cfg.Stats.PageSize > 1000 {
		return nil, fmt.Errorf("STATS_PAGE_SIZE must be between 1 and 1000, got %d", cfg.Stats.PageSize)
	}

	return cfg, nil
}

// parseClock parses an "HH:MM" wall clock time
func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
