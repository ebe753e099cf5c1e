package app

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

	"github.com/kirinyoku/ceylontix/internal/config"
	"github.com/kirinyoku/ceylontix/internal/payhere"
	"github.com/kirinyoku/ceylontix/internal/postgres"
	"github.com/kirinyoku/ceylontix/internal/queue"
	"github.com/kirinyoku/ceylontix/internal/redis"
	"github.com/kirinyoku/ceylontix/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/ceylontix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/ceylontix/internal/repository/redis"
	"github.com/kirinyoku/ceylontix/internal/service"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/service/payment"
	httpgin "github.com/kirinyoku/ceylontix/internal/transport/http/gin"
	"github.com/kirinyoku/ceylontix/internal/uow"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	// Initialize storage
	var runner uow.Runner
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		runner = memory.New()
	default:
		pgxPool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pgxPool.Close(); return nil })

		store := postgresrepo.NewStore(pgxPool)
		if err := store.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		runner = uow.NewUoW(store)
	}

	// Initialize optional redis-backed pieces
	var (
		deps service.Deps
		idem *redisrepo.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)

		deps.Cache = redisrepo.NewCache(rdb)
		deps.PubSub = redisrepo.NewEventsPubSub(rdb)
		deps.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "checkout", 10, time.Minute)
		idem = redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	} else {
		logger.Warn("REDIS_ADDR not set, caching, idempotency keys and rate limiting are disabled")
	}

	if cfg.RabbitMQ.URL != "" {
		publisher := queue.NewPublisher(cfg.RabbitMQ.URL)
		a.closers = append(a.closers, publisher.Close)
		deps.Notifier = publisher
	}

	if cfg.PayHere.Secret == "" {
		logger.Error("PAYHERE_SECRET not set, payment endpoints will answer with a configuration error")
	}
	signer := payhere.NewSigner(cfg.PayHere.MerchantID, cfg.PayHere.Secret)

	// Initialize services
	services := service.NewServices(runner, signer, deps, logger, service.Config{
		Booking: booking.Config{
			MaxAttempts:  cfg.Booking.MaxAttempts,
			RetryBackoff: cfg.Booking.RetryBackoff,
		},
		Payment: payment.Config{
			Currency:    cfg.PayHere.Currency,
			CheckoutURL: cfg.PayHere.CheckoutURL,
			NotifyURL:   cfg.PayHere.NotifyURL,
			ReturnURL:   cfg.PayHere.ReturnURL,
			CancelURL:   cfg.PayHere.CancelURL,
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, httpgin.Options{
		Idempotency:    idem,
		AdminJWTSecret: []byte(cfg.Admin.JWTSecret),
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}
