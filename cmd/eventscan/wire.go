package main

import (
	"context"
	"fmt"
	"io"

	"eventscan/internal/config"
	"eventscan/internal/database"
	"eventscan/internal/domain"
	"eventscan/internal/events"
	"eventscan/internal/gateway"
	"eventscan/internal/logging"
	"eventscan/internal/metrics"
	"eventscan/internal/mq"
	"eventscan/internal/notify"
	"eventscan/internal/repository"
	"eventscan/internal/scan"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// app holds everything built from configuration for the lifetime of the process.
type app struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	handler *scan.Handler
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close resource")
		}
	}
}

func loadConfigAndLogger(configPath string) (*config.Config, *zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	if closer == nil {
		closer = closerFunc(func() error { return nil })
	}
	return cfg, logging.Component(logger, "main"), closer, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *app {
	a := &app{cfg: cfg, logger: logger}

	metrics.Register()
	bus := events.NewEventBus()
	metrics.Subscribe(bus)

	publishers := events.Fanout{bus}
	if cfg.Events.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.App.Name)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ unavailable, payment events stay in-process")
		} else {
			publishers = append(publishers, publisher)
			a.closers = append(a.closers, publisher)
		}
	}

	sink := notify.NewSink(cfg.Notify, logger)
	if !cfg.Notify.NotificationsConfigured() {
		logger.Warn().Msg("NotificationAPI credentials missing, alerts will only be logged")
	}

	opts := []scan.Option{
		scan.WithPublisher(publishers),
		scan.WithLocker(initRunLock(ctx, cfg, logger, a)),
	}
	if channel := initTelegram(cfg, logger); channel != nil {
		opts = append(opts, scan.WithAlertChannel(channel))
	}

	coordinator := scan.NewCoordinator(cfg, openBackends(logger), sink, logger, opts...)
	a.handler = scan.NewHandler(coordinator, logger)
	return a
}

func initRunLock(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, a *app) domain.RunLocker {
	memory := repository.NewMemoryRunLock()
	if cfg.Redis.Address == "" {
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	a.closers = append(a.closers, closerFunc(func() error { return repository.Close(client) }))
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable at startup, run lock starts in memory mode")
	}
	return repository.NewFailoverRunLock(repository.NewRedisRunLock(client), memory, logger)
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) domain.AlertChannel {
	if cfg.Notify.TelegramToken == "" || len(cfg.Notify.TelegramChats) == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Notify.TelegramToken)
	if err != nil {
		logger.Warn().Err(err).Msg("Telegram bot unavailable, alerts go to email only")
		return nil
	}
	return notify.NewTelegramChannel(bot, cfg.Notify.TelegramChats, logger)
}

// openBackends connects the store and the gateway for one run.
func openBackends(logger *zerolog.Logger) scan.BackendFactory {
	return func(ctx context.Context, cfg *config.Config) (*scan.Backends, error) {
		db, err := database.NewDB(cfg.Store.Driver, cfg.Store.URL, cfg.Store.Key, logging.Component(logger, "database"))
		if err != nil {
			return nil, fmt.Errorf("open bookings store: %w", err)
		}
		if cfg.Store.Driver == config.DriverPostgres && cfg.Store.MaxConnections > 0 {
			db.SetMaxOpenConns(cfg.Store.MaxConnections)
		}

		return &scan.Backends{
			Repository: db,
			Gateway:    gateway.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, nil, logger),
			Close:      db.Close,
		}, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
