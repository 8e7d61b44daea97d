package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"pressing_chatbot_backend/internal/agents"
	"pressing_chatbot_backend/internal/catalog"
	"pressing_chatbot_backend/internal/chatbot"
	"pressing_chatbot_backend/internal/events"
	apphttp "pressing_chatbot_backend/internal/http"
	"pressing_chatbot_backend/internal/http/router"
	"pressing_chatbot_backend/internal/loyalty"
	"pressing_chatbot_backend/internal/notifications"
	"pressing_chatbot_backend/internal/observability/metrics"
	"pressing_chatbot_backend/internal/orders"
	"pressing_chatbot_backend/internal/promotions"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/internal/userstate"
	"pressing_chatbot_backend/internal/webhook"
	"pressing_chatbot_backend/internal/whatsapp"
	"pressing_chatbot_backend/platform/config"
	"pressing_chatbot_backend/platform/db"
	"pressing_chatbot_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	var health apphttp.HealthChecker
	if cfg.IsDatabaseEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, "migrations")
		}); err != nil {
			log.Error("failed to run database migrations", "error", err.Error())
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")

		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			log.Error("failed to connect to database", "error", err.Error())
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		health = db.NewPoolAdapter(pool)
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL not configured, using file-backed queue store")
	}

	var redisClient *redis.Client
	if cfg.IsRedisEnabled() {
		opt, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			log.Error("invalid redis url", "error", err.Error())
			panic("invalid redis url: " + err.Error())
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "error", err.Error())
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("redis connection established")
	} else {
		log.Warn("REDIS_URL not configured, using file-backed user state store")
	}

	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatbotMetrics(registry)

	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	relayClient := relay.NewClient(cfg, log)

	var queueStore relay.Store
	if pool != nil {
		queueStore = relay.NewPGStore(pool)
	} else {
		fileStore, err := relay.NewFileStore(cfg.GetDataDir())
		if err != nil {
			log.Error("failed to initialize queue store", "error", err.Error())
			panic("failed to initialize queue store: " + err.Error())
		}
		queueStore = fileStore
	}

	queue := relay.NewQueue(queueStore, relayClient, log, relay.Options{
		TickInterval: cfg.GetQueueTickInterval(),
		BaseDelay:    cfg.GetQueueBaseDelay(),
		MaxDelay:     cfg.GetQueueMaxDelay(),
		MaxRetries:   cfg.GetQueueMaxRetries(),
		Observer:     chatMetrics,
	})

	var stateStore userstate.Store
	if redisClient != nil {
		stateStore = userstate.NewRedisStore(redisClient)
	} else {
		stateStore = userstate.NewFileStore(cfg.GetDataDir())
	}

	catalogReader := catalog.NewReader(cfg.GetCataloguePath())
	sender := whatsapp.NewClient(cfg, log)
	logbook := notifications.NewLogbook(queue, log)
	promoService := promotions.NewService(relayClient, log)
	agentService := agents.NewService(relayClient, log)
	loyaltyService := loyalty.NewService(queue, relayClient, log)
	loyaltyService.SubscribeToOrders(eventBus)

	dispatcher := chatbot.NewDispatcher(stateStore, catalogReader, queue, sender, eventBus, log, chatbot.Options{
		Promos:     promoService,
		Agents:     agentService,
		Notifier:   logbook,
		Observer:   chatMetrics,
		OrderLog:   orders.NewFileLog(cfg.GetDataDir()),
		Admin:      sender,
		AdminPhone: cfg.GetAdminPhone(),
	})

	webhookModule := webhook.NewModule(dispatcher, queue, catalogReader, promoService, loyaltyService, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:          cfg,
		Logger:          log,
		Health:          health,
		EventBus:        eventBus,
		MetricsGatherer: registry,
		Modules: []apphttp.Module{
			webhookModule,
		},
	}

	engine := router.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		queue.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		panic("server error: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err.Error())
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
