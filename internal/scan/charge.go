package scan

import (
	"context"
	"errors"
	"fmt"

	"eventscan/internal/domain"
	"eventscan/internal/events"
	"eventscan/internal/models"

	"github.com/rs/zerolog"
)

// ChargeReconciler collects the final balance for tomorrow's bookings.
type ChargeReconciler struct {
	repo     domain.BookingRepository
	gateway  domain.PaymentGateway
	alerter  *Alerter
	recorder outcomeRecorder
}

func NewChargeReconciler(
	repo domain.BookingRepository,
	gateway domain.PaymentGateway,
	alerter *Alerter,
	publisher domain.EventPublisher,
	currency string,
) *ChargeReconciler {
	return &ChargeReconciler{
		repo:     repo,
		gateway:  gateway,
		alerter:  alerter,
		recorder: outcomeRecorder{publisher: publisher, currency: currency},
	}
}

func (c *ChargeReconciler) Reconcile(ctx context.Context, run *Run, bookings []*models.Booking) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(bookings))
	for i, b := range bookings {
		if ctx.Err() != nil {
			run.Logger.Warn().Err(ctx.Err()).Int("remaining", len(bookings)-i).Msg("Charge pass stopped")
			return append(outcomes, untouched(bookings[i:])...)
		}
		outcomes = append(outcomes, c.reconcileOne(ctx, run, b))
	}
	return outcomes
}

func (c *ChargeReconciler) reconcileOne(ctx context.Context, run *Run, b *models.Booking) models.Outcome {
	logger := run.bookingLogger(b)
	skip := func(reason string) models.Outcome {
		logger.Info().Str("reason", reason).Msg("Charge skipped")
		return models.Outcome{BookingID: b.ID, Action: models.ActionSkipped, Reason: reason}
	}

	if b.CustomerCharged() {
		return skip(models.ReasonAlreadyCharged)
	}

	amount := b.AmountOwed()
	minor := toMinor(amount)
	if !amount.IsPositive() || minor <= 0 {
		return skip(models.ReasonNothingOwed)
	}

	token, err := c.repo.FetchCustomerPaymentToken(ctx, b.CustomerID)
	if err != nil || token == "" {
		if err != nil {
			logger.Error().Err(err).Msg("Payment token lookup failed")
		}
		c.alerter.Alert(ctx, run, models.AlertCustomerPaymentMethod, b.ID)
		return skip(models.ReasonNoPaymentToken)
	}

	methods, err := c.gateway.ListPaymentMethods(ctx, token, models.PaymentMethodTypeCard, 1)
	if err != nil {
		return c.fail(ctx, run, &logger, b, minor, fmt.Errorf("list payment methods: %w", err))
	}
	if len(methods) == 0 {
		if err := c.repo.UpdateBooking(ctx, b.ID, models.StatusUpdate(models.PaymentMethodRequired)); err != nil {
			logger.Error().Err(err).Msg("Failed to flag booking as payment_method_required")
		}
		logger.Info().Msg("Customer has no card on file")
		c.recorder.publish(ctx, &logger, events.EventPaymentMethodRequired, run, b, minor, "", nil)
		return models.Outcome{BookingID: b.ID, Action: models.ActionFlagged, Reason: models.ReasonNoPaymentMethod, AmountMinor: minor}
	}

	charge, err := c.gateway.CreateCharge(ctx, domain.ChargeRequest{
		AmountMinor:     minor,
		CustomerToken:   token,
		PaymentMethodID: methods[0].ID,
		Description:     "Final payment for booking " + b.ID,
		IdempotencyKey:  fmt.Sprintf("charge-%s-%d", b.ID, minor),
		Metadata: map[string]string{
			"booking_id": b.ID,
			"event_date": b.EventDate,
		},
	})
	if err == nil && charge == nil {
		err = errors.New("gateway returned no charge")
	}
	if err == nil && charge.Failed() {
		err = fmt.Errorf("charge %s ended in status %s", charge.ReferenceID, charge.Status)
	}
	if err != nil {
		return c.fail(ctx, run, &logger, b, minor, err)
	}

	outcome := models.Outcome{BookingID: b.ID, Action: models.ActionCharged, AmountMinor: minor, ReferenceID: charge.ReferenceID}
	if err := c.repo.UpdateBooking(ctx, b.ID, models.ChargedUpdate()); err != nil {
		logger.Error().Err(err).Str("payment_intent_id", charge.ReferenceID).Msg("Customer charged but booking not updated, reconcile manually")
		outcome.Reason = models.ReasonPersistenceGap
	}

	logger.Info().Int64("amount_minor", minor).Str("payment_intent_id", charge.ReferenceID).Msg("Customer charged")
	c.recorder.publish(ctx, &logger, events.EventChargeCompleted, run, b, minor, charge.ReferenceID, nil)
	return outcome
}

func (c *ChargeReconciler) fail(ctx context.Context, run *Run, logger *zerolog.Logger, b *models.Booking, minor int64, cause error) models.Outcome {
	logger.Error().Err(cause).Int64("amount_minor", minor).Msg("Charge failed")
	c.alerter.Alert(ctx, run, models.AlertCustomerPaymentFailure, b.ID)

	if err := c.repo.UpdateBooking(ctx, b.ID, models.StatusUpdate(models.PaymentFinalPaymentFailed)); err != nil {
		logger.Error().Err(err).Msg("Failed to mark booking final_payment_failed")
	}
	c.recorder.publish(ctx, logger, events.EventChargeFailed, run, b, minor, "", cause)
	return models.Outcome{BookingID: b.ID, Action: models.ActionFailed, Reason: models.ReasonGatewayError, AmountMinor: minor}
}
