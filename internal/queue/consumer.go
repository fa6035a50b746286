package queue

import (
	"context"
	"errors"
	"time"

	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	popTimeout   = 5 * time.Second
	errorBackoff = time.Second
)

type Consumer struct {
	client *redis.Client
	cfg    *config.Config
	log    zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client: redisClient.Client(),
		cfg:    cfg,
		log:    logger.Component("queue"),
	}
}

func (c *Consumer) ConsumeImportQueue(ctx context.Context, handler MessageHandler) error {
	return c.consume(ctx, c.cfg.Redis.ImportQueue, handler)
}

func (c *Consumer) ConsumeExportQueue(ctx context.Context, handler MessageHandler) error {
	return c.consume(ctx, c.cfg.Redis.ExportQueue, handler)
}

// DeadLetter parks a message that could not be processed on the queue's DLQ.
func (c *Consumer) DeadLetter(ctx context.Context, queueName string, message []byte) {
	dlqName := queueName + c.cfg.Redis.DLQSuffix
	if err := c.client.LPush(ctx, dlqName, message).Err(); err != nil {
		c.log.Error().Err(err).Str("dlq", dlqName).Msg("Failed to move message to DLQ")
		return
	}
	c.log.Warn().Str("dlq", dlqName).Msg("Message moved to DLQ")
}

func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	c.log.Info().Str("queue", queueName).Msg("Consuming queue")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, popTimeout, queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timeout, poll again
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Str("queue", queueName).Msg("Failed to consume message")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		message := []byte(result[1])
		if err := handler(ctx, message); err != nil {
			c.log.Error().Err(err).Str("queue", queueName).Msg("Failed to process message")
			// the message is already popped; park it even during shutdown
			c.DeadLetter(context.WithoutCancel(ctx), queueName, message)
		}
	}
}
