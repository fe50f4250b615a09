package scan

import (
	"context"

	"eventscan/internal/domain"
	"eventscan/internal/metrics"
	"eventscan/internal/models"

	"golang.org/x/time/rate"
)

// Alerter fans an operational alert out to every admin and, once, to the alert channel.
type Alerter struct {
	sink    domain.NotificationSink
	channel domain.AlertChannel
	limiter *rate.Limiter
}

// NewAlerter throttles admin sends to rps with the given burst; rps 0 disables throttling.
func NewAlerter(sink domain.NotificationSink, channel domain.AlertChannel, rps float64, burst int) *Alerter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Alerter{
		sink:    sink,
		channel: channel,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Alert never fails; every delivery problem is logged and dropped.
func (a *Alerter) Alert(ctx context.Context, run *Run, kind models.AlertKind, bookingID string) {
	logger := run.Logger.With().Str("alert", string(kind)).Str("booking_id", bookingID).Logger()
	metrics.IncAlert(string(kind))

	if len(run.Admins) == 0 {
		logger.Warn().Msg("No admins to alert")
	}

	for _, admin := range run.Admins {
		if err := a.limiter.Wait(ctx); err != nil {
			logger.Error().Err(err).Msg("Alert fan-out interrupted")
			break
		}
		if err := a.sink.SendAdminAlert(ctx, admin.Email, kind, bookingID); err != nil {
			logger.Error().Err(err).Str("admin", admin.Email).Msg("Failed to send admin alert")
		}
	}

	if a.channel != nil {
		if err := a.channel.Broadcast(ctx, kind, bookingID); err != nil {
			logger.Error().Err(err).Msg("Failed to broadcast alert")
		}
	}
}
