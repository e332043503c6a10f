package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Balance-Eat/balance-eat-be-sub000/internal/config"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/db"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/migrate"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/mq"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/repository"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/scheduler"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/service"
	"github.com/Balance-Eat/balance-eat-be-sub000/internal/validator"
)

// runMigrations applies pending schema migrations before anything else starts
func runMigrations(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) {
	if !cfg.Database.Migrate {
		logger.Info("schema migrations disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("applying schema migrations")
			return migrate.Up(ctx, cfg.Database.URL)
		},
	})
}

func startConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	listener *service.MealEventListener,
) error {
	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Exchange:      cfg.RabbitMQ.MealExchange,
		Queue:         cfg.RabbitMQ.MealQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		RoutingKeys:   cfg.RabbitMQ.MealRoutingKeys,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       listener.ProcessMessage,
	})
	if err != nil {
		return err
	}
	consumer.RegisterLifecycle(lc)
	return nil
}

func startScheduler(lc fx.Lifecycle, s *scheduler.DailyScheduler) {
	s.RegisterLifecycle(lc)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideMealRepository creates the meal repository
func ProvideMealRepository(pool *db.Pool) repository.MealRepository {
	return repository.NewMealRepo(pool)
}

// ProvideFoodRepository creates the food repository
func ProvideFoodRepository(pool *db.Pool) repository.FoodRepository {
	return repository.NewFoodRepo(pool)
}

// ProvideUserRepository creates the user repository
func ProvideUserRepository(pool *db.Pool) repository.UserRepository {
	return repository.NewUserRepo(pool)
}

// ProvideStatsRepository creates the daily stats repository
func ProvideStatsRepository(pool *db.Pool) repository.StatsRepository {
	return repository.NewStatsRepo(pool)
}

// ProvideStatsQuery creates the aggregate query
func ProvideStatsQuery(meals repository.MealRepository, foods repository.FoodRepository, cfg *config.Config, logger *zap.Logger) *repository.StatsQuery {
	return repository.NewStatsQuery(meals, foods, cfg.Stats.Location, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the stats event publisher
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	publisher, err := mq.NewPublisher(mq.PublisherConfig{
		Connection:   conn,
		Exchange:     cfg.RabbitMQ.StatsExchange,
		RefreshKey:   cfg.RabbitMQ.StatsRefreshKey,
		RecomputeKey: cfg.RabbitMQ.StatsRecomputeKey,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

// ProvideStatsService creates the stats orchestrator
func ProvideStatsService(
	stats repository.StatsRepository,
	users repository.UserRepository,
	meals repository.MealRepository,
	query *repository.StatsQuery,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *service.StatsService {
	return service.NewStatsService(stats, users, meals, query, publisher, cfg.Stats.Location, cfg.Stats.PageSize, logger)
}

// ProvideValidator creates a validator for the subscribed meal events
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.RabbitMQ.MealRoutingKeys, cfg.Stats.Location)
}

// ProvideMealEventListener creates the meal event listener
func ProvideMealEventListener(stats *service.StatsService, v *validator.Validator, cfg *config.Config, logger *zap.Logger) *service.MealEventListener {
	return service.NewMealEventListener(stats, v, cfg.Stats.Location, logger)
}

// ProvideScheduler creates the nightly recompute scheduler
func ProvideScheduler(stats *service.StatsService, cfg *config.Config, logger *zap.Logger) *scheduler.DailyScheduler {
	return scheduler.NewDailyScheduler(stats, cfg.Stats.Location, cfg.Stats.RunHour, cfg.Stats.RunMinute, logger)
}
