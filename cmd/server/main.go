package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"event-ticketing/config"
	"event-ticketing/internal/access"
	"event-ticketing/internal/auth"
	"event-ticketing/internal/database"
	"event-ticketing/internal/handler"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/queue"
	"event-ticketing/internal/ratelimit"
	"event-ticketing/internal/repository"
	"event-ticketing/internal/repository/memory"
	"event-ticketing/internal/service"
	"event-ticketing/internal/worker"
	"event-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	events       repository.EventStore
	bookings     repository.BookingLedger
	users        repository.UserRepository
	reservations repository.ReservationStore
	close        func()
}

func main() {
	cfg := config.LoadConfig()
	if err := logger.SetLevel(cfg.Server.LogLevel); err != nil {
		logger.L.Warn("invalid log level, keeping info", zap.String("level", cfg.Server.LogLevel))
	}
	defer logger.L.Sync()
	log := logger.WithComponent("main")

	if err := run(cfg); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	log := logger.WithComponent("main")
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// redis 只在 stream queue 或限流啟用時需要
	var rdb *redis.Client
	if cfg.Queue.Driver == "redis" || cfg.RateLimit.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer rdb.Close()
	}

	bookingQueue, closeQueue, err := openQueue(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeQueue()

	m := metrics.New()
	policy := access.NewPolicy()

	reservations := service.NewReservationService(policy, st.reservations, st.bookings, bookingQueue, m)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	notifier := service.NewBookingNotifier(st.events)
	workerDone, err := worker.NewBookingEventWorker(notifier, bookingQueue).Start(workerCtx)
	if err != nil {
		return fmt.Errorf("failed to start booking event worker: %w", err)
	}

	routerCfg := handler.RouterConfig{
		Verifier:     auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics:      m,
		Events:       service.NewEventService(policy, st.events),
		Bookings:     service.NewBookingService(policy, st.bookings),
		Reservations: reservations,
		Profiles:     service.NewProfileService(policy, st.users),
	}
	if cfg.RateLimit.Enabled {
		routerCfg.Limiter = ratelimit.NewRedisTokenBucket(rdb, cfg.RateLimit)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler.NewRouter(routerCfg),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("queue", cfg.Queue.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	// 已 commit 的訂位事件交給 worker 收尾
	cancelWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("booking event worker did not stop in time")
	}

	log.Info("server stopped")
	return nil
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case "memory":
		s := memory.New()
		return &stores{
			events:       s.Events(),
			bookings:     s.Bookings(),
			users:        s.Users(),
			reservations: s.Reservations(),
			close:        func() {},
		}, nil
	case "postgres", "":
		pool, err := database.InitDatabase(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		events := repository.NewEventRepository(pool)
		bookings := repository.NewBookingRepository(pool)
		return &stores{
			events:       events,
			bookings:     bookings,
			users:        repository.NewUserRepository(pool),
			reservations: repository.NewPostgresReservationStore(pool, events, bookings),
			close:        pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.BookingEventQueue, func(), error) {
	noop := func() {}
	switch cfg.Queue.Driver {
	case "memory", "":
		return queue.NewMemoryBookingEventQueueWithDelay(cfg.Queue.BufferSize, cfg.Queue.RequeueDelay), noop, nil
	case "redis":
		q, err := queue.NewRedisStreamBookingEventQueue(ctx, rdb, "", queue.RedisStreamConfig{
			ClaimMinIdleTime:   cfg.Queue.ClaimMinIdleTime,
			MaxRetryCount:      cfg.Queue.MaxRetryCount,
			ReadGroupBlockTime: cfg.Queue.ReadGroupBlockTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis stream queue: %w", err)
		}
		return q, noop, nil
	case "amqp":
		q, err := queue.NewAMQPBookingEventQueue(cfg.Queue.AMQPURL, cfg.Queue.AMQPQueueName, 10)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize amqp queue: %w", err)
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
