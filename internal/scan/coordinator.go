package scan

import (
	"context"
	"fmt"
	"time"

	"eventscan/internal/config"
	"eventscan/internal/domain"
	"eventscan/internal/logging"
	"eventscan/internal/metrics"
	"eventscan/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backends are the store and gateway a single run works against.
type Backends struct {
	Repository domain.BookingRepository
	Gateway    domain.PaymentGateway
	Close      func() error
}

// BackendFactory opens the backends once credentials have been checked.
type BackendFactory func(ctx context.Context, cfg *config.Config) (*Backends, error)

type Coordinator struct {
	cfg       *config.Config
	open      BackendFactory
	sink      domain.NotificationSink
	channel   domain.AlertChannel
	publisher domain.EventPublisher
	locker    domain.RunLocker
	logger    *zerolog.Logger
}

type Option func(*Coordinator)

func WithAlertChannel(ch domain.AlertChannel) Option {
	return func(c *Coordinator) { c.channel = ch }
}

func WithPublisher(p domain.EventPublisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithLocker guards against overlapping runs.
func WithLocker(l domain.RunLocker) Option {
	return func(c *Coordinator) { c.locker = l }
}

func NewCoordinator(cfg *config.Config, open BackendFactory, sink domain.NotificationSink, logger *zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		open:   open,
		sink:   sink,
		logger: logging.Component(logger, "coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one reconciliation pass for the window around ref.
func (c *Coordinator) Run(ctx context.Context, ref time.Time) (*models.RunReport, error) {
	if err := c.cfg.CheckCredentials(); err != nil {
		return nil, &PreconditionError{Err: err}
	}

	run := &Run{ID: uuid.NewString()}
	runLogger := c.logger.With().Str("run_id", run.ID).Logger()
	run.Logger = &runLogger

	if c.locker != nil {
		token, ok, err := c.locker.Acquire(ctx, c.cfg.Redis.LockKey, c.cfg.Redis.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := c.locker.Release(context.WithoutCancel(ctx), c.cfg.Redis.LockKey, token); err != nil {
				run.Logger.Warn().Err(err).Msg("Failed to release run lock")
			}
		}()
	}

	backends, err := c.open(ctx, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("open backends: %w", err)
	}
	if backends.Close != nil {
		defer func() {
			if err := backends.Close(); err != nil {
				run.Logger.Warn().Err(err).Msg("Failed to close backends")
			}
		}()
	}

	admins, err := backends.Repository.FetchAdmins(ctx)
	if err != nil {
		run.Logger.Warn().Err(err).Msg("Failed to fetch admins, alerts will not be emailed")
	}
	run.Admins = admins

	window := NewWindow(ref)
	run.Logger.Info().
		Str("yesterday", window.Yesterday).
		Str("today", window.Today).
		Str("tomorrow", window.Tomorrow).
		Int("admins", len(admins)).
		Msg("Scanning bookings")

	buckets := make(map[string][]*models.Booking, 3)
	for _, date := range []string{window.Yesterday, window.Today, window.Tomorrow} {
		bookings, err := backends.Repository.FetchByDate(ctx, date)
		if err != nil {
			return nil, &FetchError{Date: date, Err: err}
		}
		buckets[date] = bookings
	}
	yesterday, today, tomorrow := buckets[window.Yesterday], buckets[window.Today], buckets[window.Tomorrow]

	metrics.SetBucketSize("yesterday", len(yesterday))
	metrics.SetBucketSize("today", len(today))
	metrics.SetBucketSize("tomorrow", len(tomorrow))

	alerter := NewAlerter(c.sink, c.channel, c.cfg.Notify.AlertRPS, c.cfg.Notify.AlertBurst)
	payouts := NewPayoutReconciler(backends.Repository, backends.Gateway, c.sink, alerter, c.publisher, c.cfg.Stripe.Currency).
		Reconcile(ctx, run, yesterday)

	for _, b := range today {
		run.Logger.Info().Str("booking_id", b.ID).Msg("Event today, would send reminder")
	}

	charges := NewChargeReconciler(backends.Repository, backends.Gateway, alerter, c.publisher, c.cfg.Stripe.Currency).
		Reconcile(ctx, run, tomorrow)

	report := AssembleReport(run.ID, window, yesterday, today, tomorrow, payouts, charges)
	run.Logger.Info().Int("total_events", report.Metadata.TotalEvents).Msg("Scan finished")
	return report, nil
}
