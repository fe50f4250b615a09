package domain

import (
	"context"
	"time"

	"eventscan/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	FetchByDate(ctx context.Context, date string) ([]*models.Booking, error)
	FetchAdmins(ctx context.Context) ([]*models.Admin, error)
	// FetchCustomerPaymentToken returns "" with a nil error when the customer has no token.
	FetchCustomerPaymentToken(ctx context.Context, customerID string) (string, error)
	UpdateBooking(ctx context.Context, id string, update models.BookingUpdate) error
}

// PayoutRequest moves money from the platform to a provider's connected account.
type PayoutRequest struct {
	AmountMinor        int64
	DestinationAccount string
	Description        string
	IdempotencyKey     string
	Metadata           map[string]string
}

type Payout struct {
	ReferenceID string
}

type PaymentMethod struct {
	ID string
}

// ChargeRequest is an immediate, confirmed, off-session charge of a stored payment method.
type ChargeRequest struct {
	AmountMinor     int64
	CustomerToken   string
	PaymentMethodID string
	Description     string
	IdempotencyKey  string
	Metadata        map[string]string
}

type Charge struct {
	ReferenceID string
	Status      string
}

// Failed reports a charge that came back without moving money.
func (c *Charge) Failed() bool {
	switch c.Status {
	case ChargeRequiresAction, ChargeRequiresPaymentMethod, ChargeCanceled:
		return true
	}
	return false
}

const (
	ChargeSucceeded             = "succeeded"
	ChargeRequiresAction        = "requires_action"
	ChargeRequiresPaymentMethod = "requires_payment_method"
	ChargeCanceled              = "canceled"
)

type PaymentGateway interface {
	CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error)
	ListPaymentMethods(ctx context.Context, customerToken, methodType string, limit int) ([]PaymentMethod, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// NotificationSink dispatches best-effort messages. Implementations never panic and
// report failures only through the returned error, which callers log and move past.
type NotificationSink interface {
	SendAdminAlert(ctx context.Context, adminEmail string, kind models.AlertKind, bookingID string) error
	SendCustomerMessage(ctx context.Context, customerEmail string, kind models.MessageKind, bookingID string) error
}

// AlertChannel receives each alert once, independent of the admin list.
type AlertChannel interface {
	Broadcast(ctx context.Context, kind models.AlertKind, bookingID string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, eventType string, payload interface{}) error
}

// RunLocker keeps two invocations from reconciling the same buckets at once.
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
