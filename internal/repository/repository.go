package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fatflowers/tgpass/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentUpdate is returned when a version-checked write loses a race.
	ErrConcurrentUpdate = errors.New("concurrent update")
	// ErrAlreadyProvisioned is returned when a transaction already carries a subscription.
	ErrAlreadyProvisioned = errors.New("transaction already provisioned")
	ErrDuplicateOrder     = errors.New("duplicate gateway order id")
)

// CaptureOutcome tells the caller what a capture attempt did.
type CaptureOutcome int

const (
	// CaptureApplied means this call moved the transaction from created to captured.
	CaptureApplied CaptureOutcome = iota + 1
	// CaptureDuplicate means the transaction was already captured.
	CaptureDuplicate
	// CaptureOnFailed means the transaction is failed, which is terminal.
	CaptureOnFailed
)

func (o CaptureOutcome) String() string {
	switch o {
	case CaptureApplied:
		return "applied"
	case CaptureDuplicate:
		return "duplicate"
	case CaptureOnFailed:
		return "on_failed"
	}
	return "unknown"
}

// Activation is the set of writes that provisions a captured transaction.
// When Existing is false, Subscription (and InviteLink if set) are inserted;
// otherwise Subscription is updated guarded by ExpectedVersion.
// In both cases the transaction is linked only if it has no subscription yet.
type Activation struct {
	TransactionID   string
	Subscription    *models.Subscription
	InviteLink      *models.InviteLink
	Existing        bool
	ExpectedVersion int64
}

type CatalogRepository interface {
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	UpsertChannel(ctx context.Context, c *models.Channel) error
	UpsertPlan(ctx context.Context, p *models.Plan) error
}

type SubscriptionRepository interface {
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// UpdateSubscription writes plan, dates and status when the stored version
	// equals expectedVersion and the row is not revoked. On success sub.Version
	// is advanced.
	UpdateSubscription(ctx context.Context, sub *models.Subscription, expectedVersion int64) error
	// RevokeSubscription sets status revoked unless already revoked. The bool
	// reports whether this call changed the row.
	RevokeSubscription(ctx context.Context, id string) (*models.Subscription, bool, error)
	// ListSubscriptionsForUser returns the user's subscriptions, latest end date first.
	ListSubscriptionsForUser(ctx context.Context, userID string) ([]*models.Subscription, error)
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	// FindPendingTransaction returns the latest created transaction for the
	// tuple; targetID empty matches transactions without a target.
	FindPendingTransaction(ctx context.Context, userID, planID, targetID string) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByOrderID(ctx context.Context, orderID string) (*models.Transaction, error)
	// ListTransactionsForUser returns the user's transactions, newest first.
	// A limit of zero or less returns all of them.
	ListTransactionsForUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	MarkCaptured(ctx context.Context, orderID, paymentID string, at time.Time) (*models.Transaction, CaptureOutcome, error)
	// MarkFailed moves a created transaction to failed. The bool reports
	// whether this call changed the row.
	MarkFailed(ctx context.Context, orderID, paymentID string) (*models.Transaction, bool, error)
	SaveActivation(ctx context.Context, a *Activation) error
	ListUnprovisioned(ctx context.Context, limit int) ([]*models.Transaction, error)
}

// LogRepository persists append-only records.
type LogRepository interface {
	SaveNotificationLog(ctx context.Context, l *models.PaymentNotificationLog) error
	SaveAuditLog(ctx context.Context, l *models.AuditLog) error
	SaveSubscriptionLog(ctx context.Context, l *models.SubscriptionLog) error
	SaveTransactionLog(ctx context.Context, l *models.TransactionLog) error
}

type Repository interface {
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
	CatalogRepository
	SubscriptionRepository
	TransactionRepository
	LogRepository
}
