package scan

import (
	"context"

	"eventscan/internal/domain"
	"eventscan/internal/events"
	"eventscan/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Run is the per-invocation state shared by the reconcilers.
type Run struct {
	ID     string
	Admins []*models.Admin
	Logger *zerolog.Logger
}

func (r *Run) bookingLogger(b *models.Booking) zerolog.Logger {
	return r.Logger.With().Str("booking_id", b.ID).Str("event_date", b.EventDate).Logger()
}

// toMinor converts a major-unit amount to rounded minor units.
func toMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(models.MinorUnitsPerMajor)).Round(0).IntPart()
}

// outcomeRecorder publishes payment events; a nil publisher drops them.
type outcomeRecorder struct {
	publisher domain.EventPublisher
	currency  string
}

func (o outcomeRecorder) publish(ctx context.Context, logger *zerolog.Logger, eventType string, run *Run, b *models.Booking, minor int64, ref string, cause error) {
	if o.publisher == nil {
		return
	}
	payload := events.PaymentEventPayload{
		RunID:       run.ID,
		BookingID:   b.ID,
		EventDate:   b.EventDate,
		AmountMinor: minor,
		Currency:    o.currency,
		ReferenceID: ref,
	}
	if cause != nil {
		payload.Error = cause.Error()
	}
	if err := o.publisher.PublishJSON(ctx, eventType, payload); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish payment event")
	}
}

// untouched marks the bookings left when the run context ends mid-batch.
func untouched(bookings []*models.Booking) []models.Outcome {
	out := make([]models.Outcome, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, models.Outcome{BookingID: b.ID, Action: models.ActionUntouched, Reason: models.ReasonContextCanceled})
	}
	return out
}
