package events

import (
	"context"
	"delivery-dispatch-sim/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultChannel = "dispatch:events"

	publishTimeout = 2 * time.Second
)

// RedisPublisher fans simulation events out over Redis pub/sub as JSON.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// NewRedisPublisherFromURL connects using a redis:// URL.
func NewRedisPublisherFromURL(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis publisher: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis publisher: ping: %w", err)
	}
	return NewRedisPublisher(rdb, channel), nil
}

func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Publish(ctx context.Context, evt ports.Event) error {
	if p.rdb == nil {
		return errors.New("redis publisher: client is nil")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis publisher: marshal %s: %w", evt.Kind, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publisher: publish %s: %w", evt.Kind, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
