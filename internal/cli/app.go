package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkordes/showing-tours/internal/approval"
	"github.com/pkordes/showing-tours/internal/availability"
	"github.com/pkordes/showing-tours/internal/config"
	"github.com/pkordes/showing-tours/internal/drivetime"
	"github.com/pkordes/showing-tours/internal/events"
	"github.com/pkordes/showing-tours/internal/inflight"
	"github.com/pkordes/showing-tours/internal/notify"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/internal/routing"
	"github.com/pkordes/showing-tours/internal/service"
)

// memoryQueueSize bounds pending notifications when no Redis is configured.
const memoryQueueSize = 256

// app is the dependency graph the server runs on.
type app struct {
	pool  *pgxpool.Pool
	redis *redis.Client // nil without REDIS_URL

	subscriber *notify.Subscriber

	tours    *service.TourService
	stops    *service.StopService
	showings *service.ShowingService
}

// close releases the connections app opened.
func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}

// localQueue reports whether notifications stay in this process, in which
// case the server must run the subscriber itself.
func (a *app) localQueue() bool {
	return a.redis == nil
}

// connect opens the database pool and, when configured, the Redis client.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*pgxpool.Pool, *redis.Client, error) {
	// pgxpool.New does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set; using in-process notification queue and local in-flight guard")
		return pool, nil, nil
	}
	rdb, err := events.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("redis connection established")
	return pool, rdb, nil
}

// newApp wires repositories, gateways and services.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	slots, err := availability.NewClient(cfg.AvailabilityURL, cfg.AvailabilityAPIKey)
	if err != nil {
		return nil, fmt.Errorf("availability client: %w", err)
	}

	pool, rdb, err := connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	tours := repo.NewTourRepo(pool)
	stops := repo.NewStopRepo(pool)
	listings := repo.NewListingRepo(pool)
	messages := repo.NewMessageRepo(pool)

	var queue events.Queue
	var guard inflight.Guard
	if rdb != nil {
		queue = events.NewRedisQueue(rdb, events.DefaultKey, 0)
		guard = inflight.NewRedis(rdb, 0)
	} else {
		queue = events.NewMemoryQueue(memoryQueueSize)
		guard = inflight.NewLocal()
	}

	router := routing.NewClient(cfg.RoutingURL, cfg.RoutingAPIKey, cfg.OptimizerURL)
	var optimizer service.Optimizer
	if cfg.OptimizerURL != "" {
		optimizer = router
	}

	return &app{
		pool:       pool,
		redis:      rdb,
		subscriber: newSubscriber(cfg, pool, queue, log),
		tours:      service.NewTourService(tours, stops, optimizer, log),
		stops:      service.NewStopService(tours, stops, drivetime.NewAnnotator(router, log), log),
		showings: service.NewShowingService(service.ShowingDeps{
			Tours:    tours,
			Stops:    stops,
			Messages: messages,
			Notifier: queue,
			Approver: approval.NewEvaluator(slots, listings, cfg.TourTimezone),
			Guard:    guard,
			Location: cfg.TourTimezone,
			Log:      log,
		}),
	}, nil
}

// newSubscriber wires queue delivery: each event is fanned out to the
// recipient's push tokens, phone and email.
func newSubscriber(cfg config.Config, pool *pgxpool.Pool, queue events.Queue, log *slog.Logger) *notify.Subscriber {
	dispatcher := notify.NewDispatcher(repo.NewUserRepo(pool), pusher(cfg), mailer(cfg), log)
	return notify.NewSubscriber(queue, dispatcher, log)
}

// pusher returns nil when no push gateway is configured, which disables push
// and SMS delivery.
func pusher(cfg config.Config) notify.Pusher {
	if cfg.PushURL == "" {
		return nil
	}
	return notify.NewWebhookPusher(cfg.PushURL, cfg.PushAPIKey)
}

// mailer returns nil when no SMTP host is configured.
func mailer(cfg config.Config) notify.Mailer {
	if cfg.SMTP.Host == "" {
		return nil
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: strconv.Itoa(cfg.SMTP.Port),
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	})
}

// errNoRedis is returned by worker when there is no shared queue to drain.
var errNoRedis = errors.New("worker needs REDIS_URL: without it the server delivers notifications itself")
