package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/avgystin/practicalwork/internal/app"
	"github.com/avgystin/practicalwork/internal/catalog"
	"github.com/avgystin/practicalwork/internal/clock"
	"github.com/avgystin/practicalwork/internal/config"
	"github.com/avgystin/practicalwork/internal/consumer"
	"github.com/avgystin/practicalwork/internal/metrics"
	"github.com/avgystin/practicalwork/internal/storage/postgres"
	"github.com/avgystin/practicalwork/internal/stream"
	transporthttp "github.com/avgystin/practicalwork/internal/transport/http"
	"github.com/avgystin/practicalwork/migrations"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	envPath, envErr := config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	switch {
	case envErr != nil:
		logger.Warn("failed to load .env", "err", envErr)
	case envPath != "":
		logger.Info("loaded env file", "path", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := newPool(startupCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("applied migrations", "names", applied)
	}

	streams, err := openStreams(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer streams.close()

	clk := clock.NewSystem()
	m := metrics.New()

	sessions := app.NewSessionRegistry(clk, app.WithSessionTimeout(cfg.SessionTimeout))
	delays := app.NewDelayPolicy(cfg.Delays)
	orderRepo := postgres.NewOrderRepository(pool)
	ledger := app.NewOrderLedger(orderRepo, catalog.Default(), clk)
	messageRepo := postgres.NewMessageRepository(pool)

	consumerCfg := consumer.Config{
		Concurrency:     cfg.Consumer.Concurrency,
		MaxAttempts:     cfg.Consumer.MaxAttempts,
		MaxResubscribes: cfg.Consumer.MaxResubscribes,
	}
	cancelCfg := consumerCfg
	cancelCfg.Name = "order-cancel"
	archiveCfg := consumerCfg
	archiveCfg.Name = "message-archive"

	cancelConsumer := consumer.New(streams.cancels, app.NewCancellationHandler(ledger), cancelCfg,
		consumer.WithLogger(logger), consumer.WithRecorder(m))
	archiveConsumer := consumer.New(streams.messages, app.NewMessageArchiver(messageRepo, clk), archiveCfg,
		consumer.WithLogger(logger), consumer.WithRecorder(m))

	pingers := map[string]transporthttp.Pinger{"postgres": pool}
	if streams.ping != nil {
		pingers["redis"] = streams.ping
	}

	router := transporthttp.NewRouter(transporthttp.RouterDeps{
		Sessions:    sessions,
		Delays:      delays,
		Orders:      ledger,
		Cancels:     app.NewCancellationRequester(streams.cancels),
		Messages:    app.NewMessageService(streams.messages, clk),
		Pingers:     pingers,
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", cfg.Server.Addr, "stream_driver", cfg.Stream.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error { return cancelConsumer.Run(gctx) })
	g.Go(func() error { return archiveConsumer.Run(gctx) })

	return g.Wait()
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// streamSet is one source/publisher pair per stream plus the shared driver's
// health check and cleanup.
type streamSet struct {
	cancels  streamDriver
	messages streamDriver
	ping     transporthttp.Pinger
	close    func()
}

type streamDriver interface {
	stream.Source
	stream.Publisher
}

func openStreams(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*streamSet, error) {
	if cfg.Stream.Driver == config.DriverMemory {
		logger.Warn("using in-memory streams; events do not survive a restart")
		return &streamSet{
			cancels:  stream.NewMemory(0),
			messages: stream.NewMemory(0),
			close:    func() {},
		}, nil
	}

	client, err := stream.NewRedisClient(ctx, cfg.Stream.RedisURL)
	if err != nil {
		return nil, err
	}
	return &streamSet{
		cancels: stream.NewRedis(client, stream.RedisConfig{
			Stream:   cfg.Stream.CancelStream,
			Group:    cfg.Stream.CancelGroup,
			Consumer: cfg.Consumer.Name,
		}),
		messages: stream.NewRedis(client, stream.RedisConfig{
			Stream:   cfg.Stream.MessageStream,
			Group:    cfg.Stream.MessageGroup,
			Consumer: cfg.Consumer.Name,
		}),
		ping: transporthttp.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}),
		close: func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis client", "err", err)
			}
		},
	}, nil
}
