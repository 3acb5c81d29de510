package types

type PaymentProvider string

const (
	PaymentProviderRazorpay PaymentProvider = "razorpay"
)

// TransactionStatus moves created -> captured | failed and never back.
type TransactionStatus string

const (
	TransactionStatusCreated  TransactionStatus = "created"
	TransactionStatusCaptured TransactionStatus = "captured"
	TransactionStatusFailed   TransactionStatus = "failed"
)

// OrderAction is the purchase intent carried from initiation to activation.
type OrderAction string

const (
	OrderActionNew     OrderAction = "new"
	OrderActionRenew   OrderAction = "renew"
	OrderActionUpgrade OrderAction = "upgrade"
)

func (a OrderAction) Valid() bool {
	switch a {
	case OrderActionNew, OrderActionRenew, OrderActionUpgrade:
		return true
	}
	return false
}

// NeedsTarget reports whether the action operates on an existing subscription.
func (a OrderAction) NeedsTarget() bool {
	return a == OrderActionRenew || a == OrderActionUpgrade
}

// Razorpay webhook event names.
const (
	RazorpayEventPaymentCaptured   = "payment.captured"
	RazorpayEventPaymentFailed     = "payment.failed"
	RazorpayEventPaymentAuthorized = "payment.authorized"
)
