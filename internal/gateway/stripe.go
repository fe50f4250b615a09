package gateway

import (
	"context"
	"fmt"

	"eventscan/internal/domain"
	"eventscan/internal/logging"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway moves money through Stripe: transfers to connected chef
// accounts and off-session PaymentIntents against saved customer cards.
type StripeGateway struct {
	api      *client.API
	currency string
	logger   *zerolog.Logger
}

// NewStripeGateway builds a gateway. A nil backends uses Stripe's live endpoints.
func NewStripeGateway(secretKey, currency string, backends *stripe.Backends, logger *zerolog.Logger) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{
		api:      api,
		currency: currency,
		logger:   logging.Component(logger, "stripe"),
	}
}

func (g *StripeGateway) CreatePayout(ctx context.Context, req domain.PayoutRequest) (*domain.Payout, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(g.currency),
		Destination: stripe.String(req.DestinationAccount),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	applyCommon(&params.Params, req.IdempotencyKey, req.Metadata)

	transfer, err := g.api.Transfers.New(params)
	if err != nil {
		return nil, fmt.Errorf("create transfer to %s: %w", req.DestinationAccount, err)
	}

	g.logger.Debug().Str("transfer_id", transfer.ID).Int64("amount", req.AmountMinor).Msg("Transfer created")
	return &domain.Payout{ReferenceID: transfer.ID}, nil
}

func (g *StripeGateway) ListPaymentMethods(ctx context.Context, customerToken, methodType string, limit int) ([]domain.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerToken),
		Type:     stripe.String(methodType),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))

	methods := []domain.PaymentMethod{}
	iter := g.api.PaymentMethods.List(params)
	for iter.Next() {
		methods = append(methods, domain.PaymentMethod{ID: iter.PaymentMethod().ID})
		if len(methods) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list payment methods for %s: %w", customerToken, err)
	}
	return methods, nil
}

func (g *StripeGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountMinor),
		Currency:      stripe.String(g.currency),
		Customer:      stripe.String(req.CustomerToken),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	applyCommon(&params.Params, req.IdempotencyKey, req.Metadata)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	g.logger.Debug().Str("payment_intent_id", intent.ID).Str("status", string(intent.Status)).Msg("Payment intent confirmed")
	return &domain.Charge{ReferenceID: intent.ID, Status: string(intent.Status)}, nil
}

func applyCommon(params *stripe.Params, idempotencyKey string, metadata map[string]string) {
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
}
