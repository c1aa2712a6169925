package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/speedwagon-io/vitalwatch/internal/config"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

// Publisher hands finished view frames to whoever renders them outside this
// process.
type Publisher interface {
	Publish(ctx context.Context, frame *model.Frame) error
	Health(ctx context.Context) error
	Close() error
}

// RedisPublisher stores the latest frame of each view under <key>:<view> and
// announces it on a pub/sub channel.
type RedisPublisher struct {
	log     *slog.Logger
	client  *redis.Client
	channel string
	key     string
	ttl     time.Duration
	retry   config.RetryConfig
	backoff *backoff
}

func NewRedisPublisher(log *slog.Logger, client *redis.Client, cfg *config.PublishConfig) *RedisPublisher {
	return &RedisPublisher{
		log:     log,
		client:  client,
		channel: cfg.Channel,
		key:     cfg.Key,
		ttl:     cfg.TTL,
		retry:   cfg.Retry,
		backoff: newBackoff(cfg.Retry.InitialDelay, cfg.Retry.MaxDelay),
	}
}

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (p *RedisPublisher) FrameKey(view string) string {
	return p.key + ":" + view
}

func (p *RedisPublisher) Publish(ctx context.Context, frame *model.Frame) error {
	data, err := frame.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	var lastErr error
	attempts := p.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := p.doPublish(ctx, frame.View, data)
		if err == nil {
			return nil
		}

		lastErr = err
		p.log.Warn("publish attempt failed",
			slog.String("view", frame.View),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			sl.Err(err),
		)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff.delay(attempt - 1)):
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

func (p *RedisPublisher) doPublish(ctx context.Context, view string, data []byte) error {
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.FrameKey(view), data, p.ttl)
	pipe.Publish(ctx, p.channel, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Health(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher logs frames instead of publishing them (for -dry-run).
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, frame *model.Frame) error {
	attrs := []any{
		slog.String("id", frame.ID),
		slog.String("view", frame.View),
		slog.String("phase", frame.Phase),
		slog.Uint64("cycle", frame.Cycle),
	}
	if frame.Summary != nil {
		attrs = append(attrs,
			slog.Int("patients", frame.Summary.Patients),
			slog.Int("with_data", frame.Summary.WithData),
			slog.Int("critical", frame.Summary.Counts[model.RiskCritical]),
			slog.Int("warning", frame.Summary.Counts[model.RiskWarning]),
		)
	}
	if frame.Error != "" {
		attrs = append(attrs, slog.String("error", frame.Error))
	}

	p.log.Info("FRAME", attrs...)
	return nil
}

func (p *LogPublisher) Health(ctx context.Context) error {
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
