package scan

import (
	"context"
	"time"

	"eventscan/internal/config"
	"eventscan/internal/domain"
	"eventscan/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FetchByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockRepo) FetchAdmins(ctx context.Context) ([]*models.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Admin), args.Error(1)
}

func (m *mockRepo) FetchCustomerPaymentToken(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *mockRepo) UpdateBooking(ctx context.Context, id string, update models.BookingUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePayout(ctx context.Context, req domain.PayoutRequest) (*domain.Payout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *mockGateway) ListPaymentMethods(ctx context.Context, customerToken, methodType string, limit int) ([]domain.PaymentMethod, error) {
	args := m.Called(ctx, customerToken, methodType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentMethod), args.Error(1)
}

func (m *mockGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendAdminAlert(ctx context.Context, adminEmail string, kind models.AlertKind, bookingID string) error {
	args := m.Called(ctx, adminEmail, kind, bookingID)
	return args.Error(0)
}

func (m *mockSink) SendCustomerMessage(ctx context.Context, customerEmail string, kind models.MessageKind, bookingID string) error {
	args := m.Called(ctx, customerEmail, kind, bookingID)
	return args.Error(0)
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) Broadcast(ctx context.Context, kind models.AlertKind, bookingID string) error {
	args := m.Called(ctx, kind, bookingID)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, eventType string, payload interface{}) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockLocker) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

func testRun(admins ...*models.Admin) *Run {
	logger := zerolog.Nop()
	return &Run{ID: "run-1", Admins: admins, Logger: &logger}
}

func testConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverSQLite, URL: "file:bookings.db", Key: "service-key"},
		Stripe: config.StripeConfig{SecretKey: "sk_test_123", Currency: "cad"},
		Redis:  config.RedisConfig{LockKey: "eventscan:run", LockTTL: time.Minute},
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// eligibleForPayout is a booking whose customer has paid in full and whose chef has an account.
func eligibleForPayout(id, total string) *models.Booking {
	return &models.Booking{
		ID:                id,
		EventDate:         "2023-01-14",
		CustomerID:        "cust-" + id,
		ProviderID:        "chef-" + id,
		TotalPrice:        money(total),
		PaymentStatus:     models.PaymentFinalPaid,
		FinalCustomerPaid: true,
		Provider:          &models.Provider{ID: "chef-" + id, DisplayName: "Chef " + id, PayoutAccountID: "acct_" + id},
	}
}

func dueForCharge(id, total string) *models.Booking {
	return &models.Booking{
		ID:            id,
		EventDate:     "2023-01-16",
		CustomerID:    "cust-" + id,
		TotalPrice:    money(total),
		PaymentStatus: models.PaymentPending,
	}
}
