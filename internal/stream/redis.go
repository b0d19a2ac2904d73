package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PayloadField is the stream entry field carrying the event payload.
const PayloadField = "value"

type RedisConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Batch bounds how many entries one Fetch returns.
	Batch int64
	// Block is how long XREADGROUP waits for new entries.
	Block time.Duration
	// ClaimIdle is how long an entry may stay pending before this consumer
	// takes it over and delivers it again.
	ClaimIdle time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Batch <= 0 {
		c.Batch = 50
	}
	if c.Block <= 0 {
		c.Block = 2 * time.Second
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = time.Minute
	}
	return c
}

// Redis is a Source and Publisher backed by a Redis stream and consumer group.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
}

func NewRedis(client *redis.Client, cfg RedisConfig) *Redis {
	return &Redis{client: client, cfg: cfg.withDefaults()}
}

// NewRedisClient parses url and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Publish(ctx context.Context, payload string) (string, error) {
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.cfg.Stream,
		Values: map[string]interface{}{PayloadField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", r.cfg.Stream, err)
	}
	return id, nil
}

// Subscribe ensures the consumer group exists and opens a reader on it.
func (r *Redis) Subscribe(ctx context.Context) (Subscription, error) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	err := r.client.XGroupCreateMkStream(ctx, r.cfg.Stream, r.cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("create group %s on %s: %w", r.cfg.Group, r.cfg.Stream, err)
	}
	return &redisSubscription{redis: r, claimFrom: "0-0"}, nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

type redisSubscription struct {
	redis     *Redis
	claimFrom string
	lastClaim time.Time
}

func (s *redisSubscription) Fetch(ctx context.Context) ([]Event, error) {
	cfg := s.redis.cfg
	client := s.redis.client

	if time.Since(s.lastClaim) >= cfg.ClaimIdle {
		msgs, next, err := client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   cfg.Stream,
			Group:    cfg.Group,
			Consumer: cfg.Consumer,
			MinIdle:  cfg.ClaimIdle,
			Start:    s.claimFrom,
			Count:    cfg.Batch,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("xautoclaim %s: %w", cfg.Stream, err)
		}
		s.claimFrom = next
		if next == "0-0" {
			s.lastClaim = time.Now()
		}
		if len(msgs) > 0 {
			return s.events(msgs), nil
		}
	}

	res, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    cfg.Group,
		Consumer: cfg.Consumer,
		Streams:  []string{cfg.Stream, ">"},
		Count:    cfg.Batch,
		Block:    cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup %s: %w", cfg.Stream, err)
	}

	var events []Event
	for _, st := range res {
		events = append(events, s.events(st.Messages)...)
	}
	return events, nil
}

func (s *redisSubscription) events(msgs []redis.XMessage) []Event {
	cfg := s.redis.cfg
	client := s.redis.client
	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		id := msg.ID
		payload, _ := msg.Values[PayloadField].(string)
		out = append(out, NewEvent(id, payload, func(ctx context.Context) error {
			return client.XAck(ctx, cfg.Stream, cfg.Group, id).Err()
		}))
	}
	return out
}

// Close is a no-op; the client belongs to the caller.
func (s *redisSubscription) Close() error {
	return nil
}
