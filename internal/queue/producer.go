package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client *redis.Client
	cfg    *config.Config
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

func (p *Producer) EnqueueImport(ctx context.Context, msg model.ImportMessage) error {
	return p.push(ctx, p.cfg.Redis.ImportQueue, msg)
}

func (p *Producer) EnqueueExport(ctx context.Context, msg model.ExportMessage) error {
	return p.push(ctx, p.cfg.Redis.ExportQueue, msg)
}

func (p *Producer) push(ctx context.Context, queueName string, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := p.client.LPush(ctx, queueName, data).Err(); err != nil {
		return errors.NewRetryableError(err, "failed to push to "+queueName)
	}
	return nil
}
