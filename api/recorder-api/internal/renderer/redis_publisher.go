// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rapidaai/segscribe/pkg/commons"
	"github.com/redis/go-redis/v9"
)

const (
	redisQueueSize      = 256
	redisPublishTimeout = 2 * time.Second
)

// RedisPublisher forwards events to a pub/sub channel. Publish only queues;
// Run drains the queue so a slow redis never stalls the engine.
type RedisPublisher struct {
	logger  commons.Logger
	client  redis.Cmdable
	channel string
	queue   chan Event
}

func NewRedisPublisher(logger commons.Logger, client redis.Cmdable, channel string) *RedisPublisher {
	return &RedisPublisher{
		logger:  logger,
		client:  client,
		channel: channel,
		queue:   make(chan Event, redisQueueSize),
	}
}

// ConnectRedis opens a client and checks it answers.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (p *RedisPublisher) Publish(e Event) {
	select {
	case p.queue <- e:
	default:
		p.logger.Warnw("redis-publisher: queue full, dropping event", "type", e.Type)
	}
}

func (p *RedisPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-p.queue:
			if err := p.publish(ctx, e); err != nil {
				p.logger.Errorf("redis-publisher: %v", err)
			}
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, redisPublishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("error publishing %s: %w", e.Type, err)
	}
	return nil
}
