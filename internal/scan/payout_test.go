package scan

import (
	"context"
	"errors"
	"testing"

	"eventscan/internal/domain"
	"eventscan/internal/events"
	"eventscan/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type payoutFixture struct {
	repo      *mockRepo
	gateway   *mockGateway
	sink      *mockSink
	publisher *mockPublisher
	rec       *PayoutReconciler
}

func newPayoutFixture() *payoutFixture {
	f := &payoutFixture{
		repo:      new(mockRepo),
		gateway:   new(mockGateway),
		sink:      new(mockSink),
		publisher: new(mockPublisher),
	}
	f.publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	alerter := NewAlerter(f.sink, nil, 0, 1)
	f.rec = NewPayoutReconciler(f.repo, f.gateway, f.sink, alerter, f.publisher, "cad")
	return f
}

func paidOutWith(amount string, transferID string) interface{} {
	want := money(amount)
	return mock.MatchedBy(func(u models.BookingUpdate) bool {
		return u.FinalChefPaid != nil && *u.FinalChefPaid &&
			u.FinalChefPaidAmount != nil && u.FinalChefPaidAmount.Equal(want) &&
			u.FinalTransferID != nil && *u.FinalTransferID == transferID &&
			u.PaymentStatus == nil && u.FinalCustomerPaid == nil
	})
}

func TestPayoutAmount(t *testing.T) {
	payout, fee := PayoutAmount(decimal.NewFromInt(100))
	assert.True(t, payout.Equal(money("88.00")))
	assert.True(t, fee.Equal(money("12")))
	assert.Equal(t, int64(8800), toMinor(payout))

	payout, _ = PayoutAmount(money("123.45"))
	assert.Equal(t, int64(10864), toMinor(payout)) // 108.636

	payout, _ = PayoutAmount(decimal.Zero)
	assert.False(t, payout.IsPositive())
}

func TestPayoutReconciler_PaysEligibleBooking(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	b := eligibleForPayout("b1", "100")
	b.Customer = &models.Customer{ID: "cust-b1", Email: "ana@example.com"}

	f.sink.On("SendCustomerMessage", ctx, "ana@example.com", models.MessageTipPrompt, "b1").Return(nil).Once()
	f.gateway.On("CreatePayout", ctx, mock.MatchedBy(func(req domain.PayoutRequest) bool {
		return req.AmountMinor == 8800 &&
			req.DestinationAccount == "acct_b1" &&
			req.IdempotencyKey == "payout-b1" &&
			req.Metadata["booking_id"] == "b1" &&
			req.Metadata["event_date"] == "2023-01-14" &&
			req.Metadata["chef_id"] == "chef-b1" &&
			req.Metadata["fee_rate"] == "0.12" &&
			req.Metadata["fee_amount"] == "12.00"
	})).Return(&domain.Payout{ReferenceID: "tr_1"}, nil).Once()
	f.repo.On("UpdateBooking", ctx, "b1", paidOutWith("88", "tr_1")).Return(nil).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{b})

	require.Len(t, outcomes, 1)
	assert.Equal(t, models.Outcome{BookingID: "b1", Action: models.ActionPaidOut, AmountMinor: 8800, ReferenceID: "tr_1"}, outcomes[0])
	f.sink.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.repo.AssertExpectations(t)
	f.publisher.AssertCalled(t, "PublishJSON", ctx, events.EventPayoutCompleted, mock.MatchedBy(func(p events.PaymentEventPayload) bool {
		return p.BookingID == "b1" && p.AmountMinor == 8800 && p.ReferenceID == "tr_1" && p.Currency == "cad" && p.RunID == "run-1"
	}))
}

func TestPayoutReconciler_AlreadyPaidIsNoop(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()

	paidFlag := eligibleForPayout("b1", "100")
	paidFlag.FinalChefPaid = true

	paidAmount := eligibleForPayout("b2", "100")
	paidAmount.FinalChefPaidAmount = decimal.NewNullDecimal(money("88"))
	ref := "tr_old"
	paidAmount.FinalTransferID = &ref

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{paidFlag, paidAmount})

	for _, o := range outcomes {
		assert.Equal(t, models.ActionSkipped, o.Action)
		assert.Equal(t, models.ReasonAlreadyPaidOut, o.Reason)
	}
	f.gateway.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "tr_old", *paidAmount.FinalTransferID)
}

func TestPayoutReconciler_ZeroPriceAlertsEveryAdmin(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	admins := []*models.Admin{{ID: "a1", Email: "ops@example.com"}, {ID: "a2", Email: "finance@example.com"}}

	f.sink.On("SendAdminAlert", ctx, "ops@example.com", models.AlertChefTransferInvalidAmount, "b1").Return(nil).Once()
	f.sink.On("SendAdminAlert", ctx, "finance@example.com", models.AlertChefTransferInvalidAmount, "b1").Return(nil).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(admins...), []*models.Booking{eligibleForPayout("b1", "0")})

	require.Len(t, outcomes, 1)
	assert.Equal(t, models.ActionSkipped, outcomes[0].Action)
	assert.Equal(t, models.ReasonInvalidAmount, outcomes[0].Reason)
	f.sink.AssertExpectations(t)
	f.gateway.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
}

func TestPayoutReconciler_PartialFailureIsolation(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()

	eligible := eligibleForPayout("b1", "100")
	alreadyPaid := eligibleForPayout("b2", "100")
	alreadyPaid.FinalChefPaid = true
	unpaid := eligibleForPayout("b3", "100")
	unpaid.PaymentStatus = models.PaymentPending

	f.gateway.On("CreatePayout", ctx, mock.MatchedBy(func(req domain.PayoutRequest) bool {
		return req.DestinationAccount == "acct_b1"
	})).Return(&domain.Payout{ReferenceID: "tr_1"}, nil).Once()
	f.repo.On("UpdateBooking", ctx, "b1", paidOutWith("88", "tr_1")).Return(nil).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{eligible, alreadyPaid, unpaid})

	require.Len(t, outcomes, 3)
	assert.Equal(t, models.ActionPaidOut, outcomes[0].Action)
	assert.Equal(t, models.Outcome{BookingID: "b2", Action: models.ActionSkipped, Reason: models.ReasonAlreadyPaidOut}, outcomes[1])
	assert.Equal(t, models.Outcome{BookingID: "b3", Action: models.ActionSkipped, Reason: models.ReasonPaymentIncomplete}, outcomes[2])
	f.gateway.AssertNumberOfCalls(t, "CreatePayout", 1)
}

func TestPayoutReconciler_RequiresStatusAndFlag(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()

	flagOnly := eligibleForPayout("b1", "100")
	flagOnly.PaymentStatus = models.PaymentPending
	statusOnly := eligibleForPayout("b2", "100")
	statusOnly.FinalCustomerPaid = false

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{flagOnly, statusOnly})

	for _, o := range outcomes {
		assert.Equal(t, models.ReasonPaymentIncomplete, o.Reason)
	}
	f.gateway.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
}

func TestPayoutReconciler_MissingChef(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()

	noChef := eligibleForPayout("b1", "100")
	noChef.Provider = nil
	blankAccount := eligibleForPayout("b2", "100")
	blankAccount.Provider.PayoutAccountID = "   "

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{noChef, blankAccount})

	assert.Equal(t, models.ReasonNoProvider, outcomes[0].Reason)
	assert.Equal(t, models.ReasonNoPayoutAccount, outcomes[1].Reason)
	f.gateway.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
	f.sink.AssertNotCalled(t, "SendAdminAlert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPayoutReconciler_GatewayErrorContinues(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	admins := []*models.Admin{{ID: "a1", Email: "ops@example.com"}}

	f.gateway.On("CreatePayout", ctx, mock.MatchedBy(func(req domain.PayoutRequest) bool {
		return req.DestinationAccount == "acct_b1"
	})).Return(nil, errors.New("insufficient platform balance")).Once()
	f.gateway.On("CreatePayout", ctx, mock.MatchedBy(func(req domain.PayoutRequest) bool {
		return req.DestinationAccount == "acct_b2"
	})).Return(&domain.Payout{ReferenceID: "tr_2"}, nil).Once()
	f.sink.On("SendAdminAlert", ctx, "ops@example.com", models.AlertChefTransferFailure, "b1").Return(nil).Once()
	f.repo.On("UpdateBooking", ctx, "b2", paidOutWith("176", "tr_2")).Return(nil).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(admins...), []*models.Booking{eligibleForPayout("b1", "100"), eligibleForPayout("b2", "200")})

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.ActionFailed, outcomes[0].Action)
	assert.Equal(t, models.ReasonGatewayError, outcomes[0].Reason)
	assert.Equal(t, models.ActionPaidOut, outcomes[1].Action)
	f.gateway.AssertExpectations(t)
	f.sink.AssertExpectations(t)
	f.repo.AssertExpectations(t)
	f.publisher.AssertCalled(t, "PublishJSON", ctx, events.EventPayoutFailed, mock.Anything)
}

func TestPayoutReconciler_PersistenceGapIsNotRolledBack(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	admins := []*models.Admin{{ID: "a1", Email: "ops@example.com"}}

	f.gateway.On("CreatePayout", ctx, mock.Anything).Return(&domain.Payout{ReferenceID: "tr_1"}, nil).Once()
	f.repo.On("UpdateBooking", ctx, "b1", mock.Anything).Return(errors.New("connection reset")).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(admins...), []*models.Booking{eligibleForPayout("b1", "100")})

	require.Len(t, outcomes, 1)
	assert.Equal(t, models.ActionPaidOut, outcomes[0].Action)
	assert.Equal(t, models.ReasonPersistenceGap, outcomes[0].Reason)
	assert.Equal(t, "tr_1", outcomes[0].ReferenceID)
	f.repo.AssertNumberOfCalls(t, "UpdateBooking", 1)
	f.sink.AssertNotCalled(t, "SendAdminAlert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPayoutReconciler_TipFailureDoesNotBlockPayout(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	admins := []*models.Admin{{ID: "a1", Email: "ops@example.com"}}
	b := eligibleForPayout("b1", "100")
	b.Customer = &models.Customer{ID: "cust-b1", Email: "ana@example.com"}

	f.sink.On("SendCustomerMessage", ctx, "ana@example.com", models.MessageTipPrompt, "b1").Return(errors.New("template missing")).Once()
	f.sink.On("SendAdminAlert", ctx, "ops@example.com", models.AlertTippingNotificationFailure, "b1").Return(nil).Once()
	f.gateway.On("CreatePayout", ctx, mock.Anything).Return(&domain.Payout{ReferenceID: "tr_1"}, nil).Once()
	f.repo.On("UpdateBooking", ctx, "b1", mock.Anything).Return(nil).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(admins...), []*models.Booking{b})

	assert.Equal(t, models.ActionPaidOut, outcomes[0].Action)
	f.sink.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
}

func TestPayoutReconciler_TipPromptSentEvenWhenSkipped(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	b := eligibleForPayout("b1", "100")
	b.PaymentStatus = models.PaymentPending
	b.Customer = &models.Customer{ID: "cust-b1", Email: "ana@example.com"}

	f.sink.On("SendCustomerMessage", ctx, "ana@example.com", models.MessageTipPrompt, "b1").Return(nil).Once()

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{b})

	assert.Equal(t, models.ReasonPaymentIncomplete, outcomes[0].Reason)
	f.sink.AssertExpectations(t)
}

func TestPayoutReconciler_CanceledContext(t *testing.T) {
	f := newPayoutFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := f.rec.Reconcile(ctx, testRun(), []*models.Booking{eligibleForPayout("b1", "100"), eligibleForPayout("b2", "100")})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, models.ActionUntouched, o.Action)
		assert.Equal(t, models.ReasonContextCanceled, o.Reason)
	}
	f.gateway.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
}
