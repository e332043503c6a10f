package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StatsRefreshedEvent is published after a single stats row was upserted
type StatsRefreshedEvent struct {
	UserID             string  `json:"user_id"`
	StatsDate          string  `json:"stats_date"`
	TotalCalories      float64 `json:"total_calories"`
	TotalCarbohydrates float64 `json:"total_carbohydrates"`
	TotalProtein       float64 `json:"total_protein"`
	TotalFat           float64 `json:"total_fat"`
}

// StatsRecomputedEvent is published after a full recompute of one day
type StatsRecomputedEvent struct {
	StatsDate  string `json:"stats_date"`
	Users      int64  `json:"users"`
	Inserted   int64  `json:"inserted"`
	ZeroFilled int    `json:"zero_filled"`
}

// channelPublisher is the subset of *amqp.Channel used for publishing
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes daily stats events to RabbitMQ
type Publisher struct {
	channel      channelPublisher
	exchange     string
	refreshKey   string
	recomputeKey string
	logger       *zap.Logger
}

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	Connection   *Connection
	Exchange     string
	RefreshKey   string
	RecomputeKey string
	Logger       *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	ch, err := cfg.Connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:      ch,
		exchange:     cfg.Exchange,
		refreshKey:   cfg.RefreshKey,
		recomputeKey: cfg.RecomputeKey,
		logger:       cfg.Logger,
	}, nil
}

// PublishStatsRefreshed publishes a refreshed daily stats row
func (p *Publisher) PublishStatsRefreshed(ctx context.Context, event StatsRefreshedEvent) error {
	if err := p.publish(ctx, p.refreshKey, event); err != nil {
		return err
	}
	p.logger.Debug("published stats refreshed event",
		zap.String("routing_key", p.refreshKey),
		zap.String("user_id", event.UserID),
		zap.String("stats_date", event.StatsDate),
	)
	return nil
}

// PublishStatsRecomputed publishes the summary of a full recompute
func (p *Publisher) PublishStatsRecomputed(ctx context.Context, event StatsRecomputedEvent) error {
	if err := p.publish(ctx, p.recomputeKey, event); err != nil {
		return err
	}
	p.logger.Debug("published stats recomputed event",
		zap.String("routing_key", p.recomputeKey),
		zap.String("stats_date", event.StatsDate),
		zap.Int64("users", event.Users),
	)
	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
