package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"backoffice/internal/config"
	"backoffice/internal/db"
	"backoffice/internal/events"
	"backoffice/internal/handlers"
	"backoffice/internal/logging"
	"backoffice/internal/notify"
	"backoffice/internal/services"
	"backoffice/internal/store"
	"backoffice/internal/websocket"
	"backoffice/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDevelopment() {
		if err := db.Migrate(database.DB, migrations.FS, db.MigrateUp, logger); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	transport := pushTransport(ctx, cfg, hub, logger)
	publisher := eventPublisher(cfg, logger)
	defer publisher.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	billers := store.NewBillerStore(database)
	txRunner := db.NewTxRunner(database)
	lockingRunner := db.NewLockingTxRunner(database)

	notifier := services.NewNotifier(txRunner, store.NewNotificationStore(database), users, transport, publisher, logger)
	userService := services.NewUserService(txRunner, users, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminRegistrationKey)
	ledger := services.NewLedgerService(lockingRunner, accounts, store.NewTransactionStore(database), billers, notifier, database, loc, logger)
	reports := services.NewReportService(store.NewReportStore(database), accounts, users, database, loc)
	admin := services.NewAdminService(lockingRunner, users, accounts, billers, store.NewAuditStore(database), logger)
	support := services.NewSupportService(txRunner, store.NewSupportStore(database), notifier, database)

	handler := handlers.New(cfg, logger, userService, ledger, reports, admin, notifier, support, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("ledger API listening", zap.String("addr", server.Addr), zap.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	notifier.Wait()
}

// pushTransport fans notifications out through Redis when configured so
// that every instance can reach its own sockets. The local hub takes over
// whenever the relay breaker is open.
func pushTransport(ctx context.Context, cfg config.Config, hub *websocket.Hub, logger *zap.Logger) notify.Transport {
	if cfg.RedisURL == "" {
		return hub
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid redis url, pushing locally", zap.Error(err))
		return hub
	}
	client := redis.NewClient(opts)
	relay := notify.NewRedisRelay(client, cfg.RedisChannel, logger)
	go func() {
		defer client.Close()
		if err := relay.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("redis relay stopped", zap.Error(err))
		}
	}()
	return notify.Fallback{
		Primary:   notify.NewBreaker("redis-relay", relay, notify.DefaultBreakerConfig(), logger),
		Secondary: hub,
	}
}

func eventPublisher(cfg config.Config, logger *zap.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.Nop{Logger: logger}
	}
	publisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange, logger)
	if err != nil {
		logger.Warn("event broker unavailable, events disabled", zap.Error(err))
		return events.Nop{Logger: logger}
	}
	return publisher
}
