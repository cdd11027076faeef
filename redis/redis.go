package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"llm-chat-platform/config"

	"github.com/go-redis/redis/v8"
)

// PongReply ожидаемый ответ Redis на PING
const PongReply = "PONG"

// ErrUnexpectedPingReply возвращается, если Redis ответил на PING не PONG
var ErrUnexpectedPingReply = errors.New("redis PING failed")

// Cache владеет клиентом Redis
type Cache struct {
	client *redis.Client
	log    *slog.Logger
	ping   func(ctx context.Context) *redis.StatusCmd
}

// New создает клиент Redis по настройкам. Соединение устанавливается лениво.
func New(settings *config.Settings, log *slog.Logger) (*Cache, error) {
	opt, err := redis.ParseURL(settings.RedisURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	c := newCache(redis.NewClient(opt), log.With("component", "redis"))
	c.log.Debug("redis client created", "url", settings.RedactedRedisURL())
	return c, nil
}

func newCache(client *redis.Client, log *slog.Logger) *Cache {
	c := &Cache{client: client, log: log}
	if client != nil {
		c.ping = client.Ping
	}
	return c
}

// CheckConnection отправляет один PING и проверяет ответ. Повторов нет.
func (c *Cache) CheckConnection(ctx context.Context) error {
	reply, err := c.ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis PING: %w", err)
	}
	if reply != PongReply {
		return fmt.Errorf("%w: unexpected reply %q", ErrUnexpectedPingReply, reply)
	}

	c.log.Debug("redis connection successful")
	return nil
}

// Client возвращает клиент Redis (для обработчиков)
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close закрывает соединение с Redis
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return err
	}
	c.log.Info("redis client closed")
	return nil
}
