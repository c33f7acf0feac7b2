// Package app assembles storage, notification delivery and services from configuration.
// Both the server and the cronjob binary build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"astroconsult-backend/internal/config"
	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/jobs"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/notification"
	"astroconsult-backend/internal/payment"
	"astroconsult-backend/internal/repository"
	"astroconsult-backend/internal/repository/memory"
	"astroconsult-backend/internal/repository/postgres"
	"astroconsult-backend/internal/service"
	"astroconsult-backend/internal/utils"
)

type App struct {
	Config     *config.Config
	Store      repository.Store
	Dispatcher *notification.Dispatcher

	Sessions   service.SessionService
	Settlement service.SettlementService
	Wallet     service.WalletService
	Recharge   service.RechargeService

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	dispatcher, err := a.newDispatcher(ctx, store)
	if err != nil {
		return nil, err
	}
	a.Dispatcher = dispatcher

	policy, err := BillingPolicy(cfg)
	if err != nil {
		return nil, err
	}
	verifier, err := newVerifier(cfg)
	if err != nil {
		return nil, err
	}

	a.Settlement = service.NewSettlementService(store, dispatcher, policy)
	a.Sessions = service.NewSessionService(store, a.Settlement, dispatcher)
	a.Wallet = service.NewWalletService(store)
	a.Recharge = service.NewRechargeService(store, verifier, dispatcher)

	ok = true
	return a, nil
}

// JobServices exposes the services the scheduled jobs need.
func (a *App) JobServices() *jobs.Services {
	return &jobs.Services{Sessions: a.Sessions, Settlement: a.Settlement, Recharge: a.Recharge}
}

// Close releases everything New opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		store.AddUser(domain.User{ID: cfg.Billing.PlatformUserID, Name: "Platform", Role: domain.RolePlatform})
		return store, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := postgres.Connect(ctx, cfg.GetDatabaseConnectionString(), postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	store := postgres.NewStore(db)
	if err := store.EnsurePlatformUser(ctx, cfg.Billing.PlatformUserID); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to prepare platform account: %w", err)
	}
	return store, nil
}

// BillingPolicy converts the billing section into the settlement policy.
func BillingPolicy(cfg *config.Config) (service.BillingPolicy, error) {
	splits, err := utils.NewSplitTable(cfg.Billing.DefaultRatio(), cfg.Billing.ServiceRatioTable())
	if err != nil {
		return service.BillingPolicy{}, fmt.Errorf("invalid commission ratios: %w", err)
	}
	return service.BillingPolicy{
		Splits:         splits,
		Overdraft:      service.OverdraftPolicy(cfg.Billing.OverdraftPolicy),
		BalanceFloor:   cfg.Billing.Floor(),
		LowBalance:     cfg.Billing.LowBalance(),
		PlatformUserID: cfg.Billing.PlatformUserID,
	}, nil
}

func newVerifier(cfg *config.Config) (service.PaymentVerifier, error) {
	if cfg.Payment.BaseURL == "" {
		logger.Warn("No payment gateway configured; recharges will be rejected as unavailable")
		return payment.Disabled{}, nil
	}
	return payment.NewClient(payment.Config{
		BaseURL:     cfg.Payment.BaseURL,
		KeyID:       cfg.Payment.KeyID,
		KeySecret:   cfg.Payment.KeySecret,
		Timeout:     cfg.Payment.Timeout,
		MaxAttempts: cfg.Payment.MaxAttempts,
		Backoff:     cfg.Payment.Backoff,
	})
}

func (a *App) newDispatcher(ctx context.Context, store repository.Store) (*notification.Dispatcher, error) {
	n := a.Config.Notifications
	opts := notification.QueueOptions{
		Workers:    n.Workers,
		BufferSize: n.BufferSize,
		MaxRetries: n.MaxRetries,
	}

	var queue notification.Queue
	switch n.Queue {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,

			// Dispatch bounds each enqueue with a deadline; honor it on the socket.
			ContextTimeoutEnabled: true,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		queue = notification.NewRedisQueue(client, "notifications", opts)
	default:
		queue = notification.NewMemoryQueue(opts)
	}

	senders := make([]notification.Sender, 0, len(n.Channels))
	for _, ch := range n.Channels {
		switch ch {
		case notification.ChannelInApp:
			senders = append(senders, notification.NewInAppSender(store.Repos().Notifications))
		case notification.ChannelPush:
			push, err := notification.NewPushSender(ctx, n.Firebase.CredentialsFile, n.Firebase.ProjectID)
			if err != nil {
				return nil, err
			}
			senders = append(senders, push)
		case notification.ChannelEmail:
			senders = append(senders, notification.NewEmailSender(n.SMTP.Host, n.SMTP.Port, n.SMTP.User, n.SMTP.Password, n.SMTP.From))
		case notification.ChannelLog:
			senders = append(senders, notification.LogSender{})
		}
	}
	logger.Info("Notification delivery configured", "queue", n.Queue, "channels", n.Channels)
	return notification.NewDispatcher(queue, store.Repos().Users, senders...), nil
}
