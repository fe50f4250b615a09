package models

import "github.com/shopspring/decimal"

// Booking is one row of booking_requests with its customer and provider joined in.
type Booking struct {
	ID         string `json:"id"`
	EventDate  string `json:"event_date"`
	CustomerID string `json:"customer_id,omitempty"`
	ProviderID string `json:"chef_id,omitempty"`

	TotalPrice    decimal.Decimal `json:"total_price"`
	DepositPaid   bool            `json:"deposit_paid"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`

	PaymentStatus     PaymentStatus `json:"payment_status"`
	FinalCustomerPaid bool          `json:"final_customer_paid"`

	FinalChefPaid       bool                `json:"final_chef_paid"`
	FinalChefPaidAmount decimal.NullDecimal `json:"final_chef_paid_amount"`
	FinalTransferID     *string             `json:"final_transfer_id"`

	Customer *Customer `json:"customers,omitempty"`
	Provider *Provider `json:"chefs,omitempty"`
}

// AmountOwed is what the customer still has to pay for the booking.
func (b *Booking) AmountOwed() decimal.Decimal {
	if b.DepositPaid {
		return b.TotalPrice.Sub(b.DepositAmount)
	}
	return b.TotalPrice
}

// CustomerCharged reports whether the final charge already went through.
// Either flag is taken as proof: a charge must never be attempted twice.
func (b *Booking) CustomerCharged() bool {
	return b.FinalCustomerPaid || b.PaymentStatus == PaymentFinalPaid
}

// ReadyForPayout requires both the status and the flag.
func (b *Booking) ReadyForPayout() bool {
	return b.PaymentStatus == PaymentFinalPaid && b.FinalCustomerPaid
}

// ProviderPaid reports whether a payout was already recorded for the booking.
func (b *Booking) ProviderPaid() bool {
	return b.FinalChefPaid || b.FinalChefPaidAmount.Valid
}

// BookingUpdate carries the payment-state fields to persist. Nil fields are left untouched.
type BookingUpdate struct {
	PaymentStatus       *PaymentStatus
	FinalCustomerPaid   *bool
	FinalChefPaid       *bool
	FinalChefPaidAmount *decimal.Decimal
	FinalTransferID     *string
}

// Empty reports whether the update changes nothing.
func (u BookingUpdate) Empty() bool {
	return u.PaymentStatus == nil && u.FinalCustomerPaid == nil && u.FinalChefPaid == nil &&
		u.FinalChefPaidAmount == nil && u.FinalTransferID == nil
}

func StatusUpdate(status PaymentStatus) BookingUpdate {
	return BookingUpdate{PaymentStatus: &status}
}

// ChargedUpdate marks the final customer charge as done.
func ChargedUpdate() BookingUpdate {
	status := PaymentFinalPaid
	paid := true
	return BookingUpdate{PaymentStatus: &status, FinalCustomerPaid: &paid}
}

// PaidOutUpdate records a completed provider payout.
func PaidOutUpdate(amount decimal.Decimal, transferID string) BookingUpdate {
	paid := true
	return BookingUpdate{FinalChefPaid: &paid, FinalChefPaidAmount: &amount, FinalTransferID: &transferID}
}
