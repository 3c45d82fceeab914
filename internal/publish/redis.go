// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

// DefaultRedisTimeoutMS bounds every Redis round trip.
const DefaultRedisTimeoutMS = 1500

// RedisSink overwrites a string key with the latest wrench, the layout robot
// controllers read from the shared key-value store.
type RedisSink struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisSink connects to addr and pings it.
func NewRedisSink(addr string, timeoutMS int) (*RedisSink, error) {
	if timeoutMS <= 0 {
		timeoutMS = DefaultRedisTimeoutMS
	}
	timeout := time.Duration(timeoutMS) * time.Millisecond
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Msg("publish: connected to Redis")
	return &RedisSink{client: client, timeout: timeout}, nil
}

func (s *RedisSink) Publish(key string, w wrench.Wrench) error {
	payload, err := wrench.Encode(w)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
