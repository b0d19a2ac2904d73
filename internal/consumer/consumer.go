// Package consumer drains a stream.Source with bounded concurrency, manual
// acknowledgment and bounded retries at both the event and subscription level.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/avgystin/practicalwork/internal/domain"
	"github.com/avgystin/practicalwork/internal/stream"
)

// Outcome is the terminal (or non-terminal) result of handling one event.
type Outcome int

const (
	// OutcomeFailed means the event could not be handled yet and must not be acked.
	OutcomeFailed Outcome = iota
	OutcomeDone
	OutcomeNotFound
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "failed"
	}
}

// Terminal reports whether the event should be acknowledged.
func (o Outcome) Terminal() bool {
	return o != OutcomeFailed
}

// Handler processes one payload. A terminal outcome is acknowledged even when
// err is set (err is only logged). OutcomeFailed with an error is retried.
type Handler interface {
	Handle(ctx context.Context, payload string) (Outcome, error)
}

type HandlerFunc func(ctx context.Context, payload string) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, payload string) (Outcome, error) {
	return f(ctx, payload)
}

// Recorder receives consumer metrics.
type Recorder interface {
	EventHandled(consumer, outcome string, d time.Duration)
	EventRetried(consumer string)
	InFlight(consumer string, delta float64)
	Resubscribed(consumer string)
}

type nopRecorder struct{}

func (nopRecorder) EventHandled(string, string, time.Duration) {}
func (nopRecorder) EventRetried(string)                        {}
func (nopRecorder) InFlight(string, float64)                   {}
func (nopRecorder) Resubscribed(string)                        {}

type Config struct {
	// Name labels logs and metrics.
	Name string
	// Concurrency is the maximum number of events in flight.
	Concurrency int
	// MaxAttempts bounds handler attempts per delivery.
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
	// MaxResubscribes bounds consecutive subscription failures before Run gives up.
	MaxResubscribes int
	ResubscribeBase time.Duration
	ResubscribeMax  time.Duration
	// AckTimeout bounds the acknowledgment call, which outlives Run's context.
	AckTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "consumer"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 200 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5 * time.Second
	}
	if c.MaxResubscribes <= 0 {
		c.MaxResubscribes = 3
	}
	if c.ResubscribeBase <= 0 {
		c.ResubscribeBase = time.Second
	}
	if c.ResubscribeMax <= 0 {
		c.ResubscribeMax = 30 * time.Second
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 5 * time.Second
	}
	return c
}

type Consumer struct {
	source   stream.Source
	handler  Handler
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Consumer) {
		if r != nil {
			c.recorder = r
		}
	}
}

func New(source stream.Source, handler Handler, cfg Config, opts ...Option) *Consumer {
	c := &Consumer{
		source:   source,
		handler:  handler,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("consumer", c.cfg.Name)
	return c
}

// Run consumes until ctx is cancelled (returning nil) or the subscription
// fails more than MaxResubscribes times in a row (returning an error wrapping
// domain.ErrStreamUnavailable).
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", "concurrency", c.cfg.Concurrency, "max_attempts", c.cfg.MaxAttempts)
	failures := 0
	for {
		healthy, err := c.consume(ctx)
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return nil
		}
		if healthy {
			failures = 0
		}
		failures++
		if failures > c.cfg.MaxResubscribes {
			c.logger.Error("giving up on subscription", "attempts", failures, "err", err)
			return fmt.Errorf("%w: %s: %w", domain.ErrStreamUnavailable, c.cfg.Name, err)
		}

		delay := Backoff(failures, c.cfg.ResubscribeBase, c.cfg.ResubscribeMax)
		c.logger.Warn("subscription failed, resubscribing", "attempt", failures, "delay", delay, "err", err)
		c.recorder.Resubscribed(c.cfg.Name)
		if sleep(ctx, delay) != nil {
			c.logger.Info("consumer stopped")
			return nil
		}
	}
}

// consume runs one subscription until it fails. healthy reports whether at
// least one fetch succeeded.
func (c *Consumer) consume(ctx context.Context) (healthy bool, err error) {
	sub, err := c.source.Subscribe(ctx)
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			c.logger.Warn("close subscription", "err", cerr)
		}
	}()

	sem := semaphore.NewWeighted(int64(c.cfg.Concurrency))
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		events, err := sub.Fetch(ctx)
		if err != nil {
			return healthy, fmt.Errorf("fetch: %w", err)
		}
		healthy = true

		for _, ev := range events {
			if err := sem.Acquire(ctx, 1); err != nil {
				return healthy, err
			}
			wg.Add(1)
			go func(ev stream.Event) {
				defer wg.Done()
				defer sem.Release(1)
				c.process(ctx, ev)
			}(ev)
		}
	}
}

func (c *Consumer) process(ctx context.Context, ev stream.Event) {
	start := time.Now()
	c.recorder.InFlight(c.cfg.Name, 1)
	defer c.recorder.InFlight(c.cfg.Name, -1)

	log := c.logger.With("event_id", ev.ID)

	outcome, err := c.handleWithRetry(ctx, ev, log)
	if !outcome.Terminal() {
		if ctx.Err() != nil {
			log.Info("event abandoned on shutdown", "err", err)
		} else {
			log.Error("event left unacknowledged for redelivery", "attempts", c.cfg.MaxAttempts, "err", err)
		}
		c.recorder.EventHandled(c.cfg.Name, outcome.String(), time.Since(start))
		return
	}

	switch outcome {
	case OutcomeMalformed:
		log.Warn("dropping malformed event", "payload", ev.Payload, "err", err)
	case OutcomeNotFound:
		log.Info("event target already gone", "payload", ev.Payload)
	default:
		log.Debug("event handled", "payload", ev.Payload)
	}

	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.AckTimeout)
	defer cancel()
	if err := ev.Ack(ackCtx); err != nil {
		log.Warn("ack failed, event will be redelivered", "err", err)
	}
	c.recorder.EventHandled(c.cfg.Name, outcome.String(), time.Since(start))
}

func (c *Consumer) handleWithRetry(ctx context.Context, ev stream.Event, log *slog.Logger) (Outcome, error) {
	for attempt := 1; ; attempt++ {
		outcome, err := c.safeHandle(ctx, ev.Payload)
		if outcome.Terminal() {
			return outcome, err
		}
		if err == nil {
			err = errors.New("handler reported failure without an error")
		}
		if attempt >= c.cfg.MaxAttempts || ctx.Err() != nil {
			return OutcomeFailed, err
		}

		delay := Backoff(attempt, c.cfg.RetryBase, c.cfg.RetryMax)
		log.Warn("event handling failed, retrying", "attempt", attempt, "delay", delay, "err", err)
		c.recorder.EventRetried(c.cfg.Name)
		if sleep(ctx, delay) != nil {
			return OutcomeFailed, err
		}
	}
}

func (c *Consumer) safeHandle(ctx context.Context, payload string) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, payload)
}
