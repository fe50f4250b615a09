package scan

import (
	"context"
	"errors"
	"fmt"

	"eventscan/internal/domain"
	"eventscan/internal/events"
	"eventscan/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PayoutReconciler pays chefs for yesterday's completed bookings.
type PayoutReconciler struct {
	repo     domain.BookingRepository
	gateway  domain.PaymentGateway
	sink     domain.NotificationSink
	alerter  *Alerter
	recorder outcomeRecorder
}

func NewPayoutReconciler(
	repo domain.BookingRepository,
	gateway domain.PaymentGateway,
	sink domain.NotificationSink,
	alerter *Alerter,
	publisher domain.EventPublisher,
	currency string,
) *PayoutReconciler {
	return &PayoutReconciler{
		repo:     repo,
		gateway:  gateway,
		sink:     sink,
		alerter:  alerter,
		recorder: outcomeRecorder{publisher: publisher, currency: currency},
	}
}

// Reconcile processes bookings one at a time; a failing booking never stops the batch.
func (p *PayoutReconciler) Reconcile(ctx context.Context, run *Run, bookings []*models.Booking) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(bookings))
	for i, b := range bookings {
		if ctx.Err() != nil {
			run.Logger.Warn().Err(ctx.Err()).Int("remaining", len(bookings)-i).Msg("Payout pass stopped")
			return append(outcomes, untouched(bookings[i:])...)
		}
		outcomes = append(outcomes, p.reconcileOne(ctx, run, b))
	}
	return outcomes
}

// PayoutAmount is the total price less the platform fee.
func PayoutAmount(total decimal.Decimal) (payout, fee decimal.Decimal) {
	fee = total.Mul(models.PlatformFeeRate)
	return total.Sub(fee), fee
}

func (p *PayoutReconciler) reconcileOne(ctx context.Context, run *Run, b *models.Booking) models.Outcome {
	logger := run.bookingLogger(b)
	skip := func(reason string) models.Outcome {
		logger.Info().Str("reason", reason).Msg("Payout skipped")
		return models.Outcome{BookingID: b.ID, Action: models.ActionSkipped, Reason: reason}
	}

	p.sendTipPrompt(ctx, run, &logger, b)

	if !b.ReadyForPayout() {
		return skip(models.ReasonPaymentIncomplete)
	}
	if b.ProviderPaid() {
		return skip(models.ReasonAlreadyPaidOut)
	}
	if b.Provider == nil {
		return skip(models.ReasonNoProvider)
	}
	account := b.Provider.PayoutAccount()
	if account == "" {
		return skip(models.ReasonNoPayoutAccount)
	}

	payout, fee := PayoutAmount(b.TotalPrice)
	minor := toMinor(payout)
	if !payout.IsPositive() || minor <= 0 {
		logger.Warn().Str("amount", payout.String()).Msg("Invalid payout amount")
		p.alerter.Alert(ctx, run, models.AlertChefTransferInvalidAmount, b.ID)
		return skip(models.ReasonInvalidAmount)
	}

	result, err := p.gateway.CreatePayout(ctx, domain.PayoutRequest{
		AmountMinor:        minor,
		DestinationAccount: account,
		Description:        fmt.Sprintf("Payout to %s for booking %s", b.Provider.Name(), b.ID),
		IdempotencyKey:     "payout-" + b.ID,
		Metadata: map[string]string{
			"booking_id": b.ID,
			"event_date": b.EventDate,
			"chef_id":    b.Provider.ID,
			"fee_rate":   models.PlatformFeeRate.String(),
			"fee_amount": fee.StringFixed(2),
		},
	})
	if err == nil && (result == nil || result.ReferenceID == "") {
		err = errors.New("gateway returned no transfer reference")
	}
	if err != nil {
		logger.Error().Err(err).Int64("amount_minor", minor).Msg("Payout failed")
		p.alerter.Alert(ctx, run, models.AlertChefTransferFailure, b.ID)
		p.recorder.publish(ctx, &logger, events.EventPayoutFailed, run, b, minor, "", err)
		return models.Outcome{BookingID: b.ID, Action: models.ActionFailed, Reason: models.ReasonGatewayError, AmountMinor: minor}
	}

	outcome := models.Outcome{BookingID: b.ID, Action: models.ActionPaidOut, AmountMinor: minor, ReferenceID: result.ReferenceID}
	if err := p.repo.UpdateBooking(ctx, b.ID, models.PaidOutUpdate(payout, result.ReferenceID)); err != nil {
		logger.Error().Err(err).Str("transfer_id", result.ReferenceID).Msg("Payout sent but booking not updated, reconcile manually")
		outcome.Reason = models.ReasonPersistenceGap
	}

	logger.Info().Int64("amount_minor", minor).Str("transfer_id", result.ReferenceID).Msg("Chef paid out")
	p.recorder.publish(ctx, &logger, events.EventPayoutCompleted, run, b, minor, result.ReferenceID, nil)
	return outcome
}

func (p *PayoutReconciler) sendTipPrompt(ctx context.Context, run *Run, logger *zerolog.Logger, b *models.Booking) {
	if !b.Customer.HasEmail() {
		return
	}
	if err := p.sink.SendCustomerMessage(ctx, b.Customer.Email, models.MessageTipPrompt, b.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to send tip prompt")
		p.alerter.Alert(ctx, run, models.AlertTippingNotificationFailure, b.ID)
	}
}
