package models

// Action is what a reconciler ended up doing with one booking.
type Action string

const (
	ActionPaidOut   Action = "paid_out"
	ActionCharged   Action = "charged"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
	ActionFlagged   Action = "payment_method_required"
	ActionUntouched Action = "untouched"
)

// Skip and failure reasons recorded on an Outcome.
const (
	ReasonPaymentIncomplete = "payment_not_completed"
	ReasonAlreadyPaidOut    = "chef_already_paid"
	ReasonNoProvider        = "chef_missing"
	ReasonNoPayoutAccount   = "chef_payout_account_missing"
	ReasonInvalidAmount     = "invalid_amount"
	ReasonAlreadyCharged    = "customer_already_charged"
	ReasonNothingOwed       = "nothing_owed"
	ReasonNoPaymentToken    = "customer_payment_token_missing"
	ReasonNoPaymentMethod   = "no_payment_method"
	ReasonGatewayError      = "gateway_error"
	ReasonPersistenceGap    = "state_update_failed"
	ReasonContextCanceled   = "run_canceled"
)

// Outcome is the per-booking result of a reconciliation pass.
type Outcome struct {
	BookingID   string `json:"bookingId"`
	Action      Action `json:"action"`
	Reason      string `json:"reason,omitempty"`
	AmountMinor int64  `json:"amountMinor,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
}

type RunMetadata struct {
	RunID         string `json:"runId,omitempty"`
	YesterdayDate string `json:"yesterdayDate"`
	TodayDate     string `json:"todayDate"`
	TomorrowDate  string `json:"tomorrowDate"`
	TotalEvents   int    `json:"totalEvents"`
}

// RunReport is the body of a successful invocation.
type RunReport struct {
	YesterdayEvents []*Booking  `json:"yesterdayEvents"`
	TodayEvents     []*Booking  `json:"todayEvents"`
	TomorrowEvents  []*Booking  `json:"tomorrowEvents"`
	Metadata        RunMetadata `json:"metadata"`
	Payouts         []Outcome   `json:"payouts,omitempty"`
	Charges         []Outcome   `json:"charges,omitempty"`
}
