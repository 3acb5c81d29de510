package types

type SubscriptionStatus string

const (
	// SubscriptionStatusKYC is a freshly provisioned subscription whose holder
	// has not joined the channel yet.
	SubscriptionStatusKYC     SubscriptionStatus = "kycSub"
	SubscriptionStatusPending SubscriptionStatus = "pending"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
	SubscriptionStatusRevoked SubscriptionStatus = "revoked"
)

// Lapsable reports whether a status turns into expired once end_date passes.
func (s SubscriptionStatus) Lapsable() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusPending || s == SubscriptionStatusKYC
}

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonPurchase SubscriptionChangeReason = "purchase"
	SubscriptionChangeReasonRenew    SubscriptionChangeReason = "renew"
	SubscriptionChangeReasonUpgrade  SubscriptionChangeReason = "upgrade"
	SubscriptionChangeReasonExtend   SubscriptionChangeReason = "extend"
	SubscriptionChangeReasonRevoke   SubscriptionChangeReason = "revoke"
	SubscriptionChangeReasonCapture  SubscriptionChangeReason = "capture"
	SubscriptionChangeReasonFail     SubscriptionChangeReason = "fail"
	SubscriptionChangeReasonOrder    SubscriptionChangeReason = "order"
)

// ReasonForAction maps a purchase intent to the change reason recorded in logs.
func ReasonForAction(a OrderAction) SubscriptionChangeReason {
	switch a {
	case OrderActionRenew:
		return SubscriptionChangeReasonRenew
	case OrderActionUpgrade:
		return SubscriptionChangeReasonUpgrade
	}
	return SubscriptionChangeReasonPurchase
}
