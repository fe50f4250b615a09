package models

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentUnset              PaymentStatus = ""
	PaymentPending            PaymentStatus = "pending"
	PaymentMethodRequired     PaymentStatus = "payment_method_required"
	PaymentFinalPaid          PaymentStatus = "final_paid"
	PaymentFinalPaymentFailed PaymentStatus = "final_payment_failed"
)

// AlertKind is the "type" merge tag of an admin alert.
type AlertKind string

const (
	AlertTippingNotificationFailure AlertKind = "tipping_notification_failure"
	AlertChefTransferInvalidAmount  AlertKind = "chef_transfer_invalid_amount"
	AlertChefTransferFailure        AlertKind = "chef_transfer_failure"
	AlertCustomerPaymentMethod      AlertKind = "customer_payment_method_missing"
	AlertCustomerPaymentFailure     AlertKind = "customer_payment_failure"
)

type MessageKind string

const (
	MessageTipPrompt MessageKind = "customer_tip_notification"
)

// PlatformFeeRate is the share of the total price kept by the platform.
var PlatformFeeRate = decimal.RequireFromString("0.12")

const (
	DateLayout = "2006-01-02"

	// MinorUnitsPerMajor converts dollars to cents.
	MinorUnitsPerMajor = 100

	PaymentMethodTypeCard = "card"
)
