// Package app wires the stores, services and event fan-out shared by the
// API server and the sweeper.
package app

import (
	"context"
	"fmt"
	"time"

	"hotelrides/internal/config"
	"hotelrides/internal/database"
	"hotelrides/internal/events"
	"hotelrides/internal/modules/booking"
	"hotelrides/internal/modules/live"
	"hotelrides/internal/modules/notification"
	"hotelrides/internal/modules/payment"
	"hotelrides/internal/modules/quote"
	"hotelrides/internal/modules/sla"
	"hotelrides/internal/pkg/keylock"
	"hotelrides/internal/pkg/logger"
	"hotelrides/internal/pkg/pendingorder"
	"hotelrides/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	Bookings      *repository.BookingRepository
	Providers     *repository.ProviderRepository
	Notifications *repository.NotificationRepository

	Bus       *events.Bus
	Hub       *live.Hub
	Booking   *booking.Service
	Payment   *payment.Service
	Notifier  *notification.Service
	Reconcile *payment.Reconciler

	redis  *redis.Client
	kafka  *events.KafkaPublisher
	queue  *events.Queue
	closed bool
}

// New connects every backing service. Redis and Kafka are optional: without
// REDIS_ADDR locks and pending orders stay in process, without KAFKA_BROKERS
// events are only dispatched in process.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, DB: db}
	a.Bookings = repository.NewBookingRepository(db)
	a.Providers = repository.NewProviderRepository(db)
	a.Notifications = repository.NewNotificationRepository(db)

	var (
		locks   keylock.Locker
		pending pendingorder.Store
	)
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		locks = keylock.NewRedis(a.redis, "hotelrides:lock:", cfg.LockTTL, cfg.LockWait, log)
		pending = pendingorder.NewRedis(a.redis, "hotelrides:pending:", cfg.PendingOrderTTL)
		log.Info("using redis for locks and pending orders", zap.String("addr", cfg.RedisAddr))
	} else {
		locks = keylock.NewMemory(cfg.LockWait)
		pending = pendingorder.NewMemory(cfg.PendingOrderTTL)
		log.Warn("REDIS_ADDR not set, locks are process local")
	}

	a.Bus = events.NewBus(log)
	publisher := events.Multi{a.Bus}
	if len(cfg.KafkaBrokers) > 0 {
		a.kafka, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Timeout: 5 * time.Second,
		}, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		// the sync producer waits for broker acks, so it sits behind a queue
		a.queue = events.NewQueue(a.kafka, 1024, log)
		publisher = append(publisher, a.queue)
	}

	targets := sla.Targets{ResponseMinutes: cfg.SLAResponseMinutes, CompletionMinutes: cfg.SLACompletionMinutes}
	a.Booking = booking.NewService(
		a.Bookings,
		a.Providers,
		quote.NewSyncService(a.Providers, a.Bookings, log),
		booking.NewMachine(targets, time.Now),
		locks,
		publisher,
		booking.Config{DefaultCurrency: cfg.DefaultCurrency, QuoteExpirationHours: cfg.QuoteExpirationHours},
		log,
	)

	gateway := payment.NewGateway(payment.GatewayConfig{
		MerchantID: cfg.GatewayMerchantID,
		SecretKey:  cfg.GatewaySecret,
		BaseURL:    cfg.GatewayBaseURL,
		Mode:       cfg.GatewayMode,
		SuccessURL: cfg.GatewaySuccessURL,
		FailureURL: cfg.GatewayFailureURL,
		WebhookURL: cfg.GatewayWebhookURL,
	}, log)
	a.Reconcile = payment.NewReconciler(gateway, a.Bookings, a.Booking, pending, locks, log)
	a.Payment = payment.NewService(gateway, a.Booking, a.Providers, pending, a.Reconcile, cfg.DefaultCurrency, log)

	a.Notifier = notification.NewService(a.Notifications, notification.StaticDirectory{}, repository.NewLoyaltyRepository(db), log)
	a.Notifier.Subscribe(a.Bus)
	a.Hub = live.NewHub(log)
	a.Hub.Subscribe(a.Bus)
	return a, nil
}

// Close drains in-flight event handlers before releasing connections.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.Bus != nil {
		a.Bus.Wait()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.queue != nil {
		a.queue.Close()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.Log.Warn("kafka close", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
