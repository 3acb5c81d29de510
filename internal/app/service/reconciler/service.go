package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/tgpass/internal/app/service/activation"
	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/changelog"
	notificationlog "github.com/fatflowers/tgpass/internal/app/service/notification_log"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/platform/razorpay"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/metrics"
	"github.com/fatflowers/tgpass/pkg/types"
)

const defaultUnprovisionedLimit = 100

// Event is a verified gateway notification reduced to what reconciliation needs.
type Event struct {
	Name        string
	OrderID     string
	PaymentID   string
	UserID      string
	ErrorReason string
	TraceID     string
	Raw         []byte
}

// EventFromWebhook builds an Event from a parsed Razorpay webhook.
func EventFromWebhook(env *razorpay.WebhookEnvelope, raw []byte, traceID string) *Event {
	p := &env.Payload.Payment.Entity
	return &Event{
		Name:        env.Event,
		OrderID:     p.OrderID,
		PaymentID:   p.ID,
		UserID:      p.Note("userid"),
		ErrorReason: p.ErrorReason,
		TraceID:     traceID,
		Raw:         raw,
	}
}

// Activator provisions a captured transaction.
type Activator interface {
	Activate(ctx context.Context, tx *models.Transaction) (string, error)
}

type Service struct {
	repo      repository.TransactionRepository
	activator Activator
	notifs    *notificationlog.Service
	audit     audit.Recorder
	changes   *changelog.Service
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewService(repo repository.Repository, act *activation.Service, notifs *notificationlog.Service, rec audit.Recorder, changes *changelog.Service, log *zap.SugaredLogger) *Service {
	return newService(repo, act, notifs, rec, changes, log)
}

func newService(repo repository.TransactionRepository, act Activator, notifs *notificationlog.Service, rec audit.Recorder, changes *changelog.Service, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, activator: act, notifs: notifs, audit: rec, changes: changes, log: log, now: time.Now}
}

// result is what handling an event did. It is stored with the handled log row.
type result struct {
	Outcome        string `json:"outcome"`
	TransactionID  string `json:"transaction_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HandleEvent applies ev to the matching transaction. Redelivered events are
// no-ops. The returned error is for logging only; the gateway is always acked.
func (s *Service) HandleEvent(ctx context.Context, ev *Event) (resErr error) {
	start := time.Now()
	log := logctx.FromCtx(ctx, s.log).With("event", ev.Name, "order_id", ev.OrderID, "payment_id", ev.PaymentID)
	log.Infow("webhook_event_received")

	s.notifs.Save(ctx, s.notificationRow(ev, models.PaymentNotificationLogStatusReceived, nil))

	res := &result{}
	defer func() {
		status := models.PaymentNotificationLogStatusHandled
		if resErr != nil {
			status = models.PaymentNotificationLogStatusHandleFailed
			res.Error = resErr.Error()
		}
		s.notifs.Save(ctx, s.notificationRow(ev, status, res))
		metrics.IncWebhookEvent(ev.Name, res.Outcome)
		metrics.ObserveBusinessProcess("webhook", ev.Name, start)
	}()

	switch ev.Name {
	case types.RazorpayEventPaymentCaptured:
		resErr = s.handleCaptured(ctx, log, ev, res)
	case types.RazorpayEventPaymentFailed:
		resErr = s.handleFailed(ctx, log, ev, res)
	case types.RazorpayEventPaymentAuthorized:
		res.Outcome = "logged"
		log.Infow("payment_authorized")
	default:
		res.Outcome = "ignored"
		log.Infow("webhook_event_ignored")
	}
	return resErr
}

func (s *Service) handleCaptured(ctx context.Context, log *zap.SugaredLogger, ev *Event, res *result) error {
	if ev.OrderID == "" || ev.PaymentID == "" {
		res.Outcome = "invalid"
		log.Warnw("payment_captured_missing_ids")
		return nil
	}

	tx, outcome, err := s.repo.MarkCaptured(ctx, ev.OrderID, ev.PaymentID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.Outcome = "unknown_order"
			log.Warnw("payment_captured_unknown_order")
			return nil
		}
		res.Outcome = "error"
		return fmt.Errorf("capture order %s: %w", ev.OrderID, err)
	}
	res.TransactionID = tx.ID

	switch outcome {
	case repository.CaptureDuplicate:
		res.Outcome = "duplicate"
		log.Infow("payment_captured_duplicate", "transaction_id", tx.ID, "stored_payment_id", lo.FromPtr(tx.GatewayPaymentID))
		return nil
	case repository.CaptureOnFailed:
		res.Outcome = "ignored_failed"
		log.Warnw("payment_captured_on_failed_transaction", "transaction_id", tx.ID)
		return nil
	}

	before := tx.Clone()
	before.Status = types.TransactionStatusCreated
	before.GatewayPaymentID = nil
	before.CapturedAt = nil
	s.changes.Transaction(ctx, before, tx, types.SubscriptionChangeReasonCapture, map[string]any{"payment_id": ev.PaymentID})

	subID, err := s.activator.Activate(ctx, tx)
	if err != nil {
		res.Outcome = "activation_failed"
		metrics.IncActivationFailure(string(tx.Action))
		log.Errorw("activation_failed_manual_reconciliation",
			"transaction_id", tx.ID, "user_id", tx.UserID, "plan_id", tx.PlanID, "action", tx.Action, "err", err)
		s.audit.Record(ctx, audit.Entry{
			Actor:       audit.SystemActor,
			Action:      audit.ActionSubActivationFailed,
			TargetType:  audit.TargetTransaction,
			TargetID:    tx.ID,
			Description: fmt.Sprintf("Payment %s captured for order %s but activation failed: %v", ev.PaymentID, ev.OrderID, err),
			Details: map[string]any{
				"user_id": tx.UserID,
				"plan_id": tx.PlanID,
				"action":  string(tx.Action),
			},
		})
		return fmt.Errorf("activate transaction %s: %w", tx.ID, err)
	}

	res.Outcome = "activated"
	res.SubscriptionID = subID
	log.Infow("payment_captured_activated", "transaction_id", tx.ID, "subscription_id", subID)
	return nil
}

func (s *Service) handleFailed(ctx context.Context, log *zap.SugaredLogger, ev *Event, res *result) error {
	if ev.OrderID == "" {
		res.Outcome = "invalid"
		log.Warnw("payment_failed_missing_order_id")
		return nil
	}
	tx, changed, err := s.repo.MarkFailed(ctx, ev.OrderID, ev.PaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.Outcome = "unknown_order"
			log.Warnw("payment_failed_unknown_order")
			return nil
		}
		res.Outcome = "error"
		return fmt.Errorf("fail order %s: %w", ev.OrderID, err)
	}
	res.TransactionID = tx.ID
	if !changed {
		res.Outcome = "noop"
		log.Infow("payment_failed_noop", "transaction_id", tx.ID, "status", tx.Status)
		return nil
	}

	res.Outcome = "failed"
	before := tx.Clone()
	before.Status = types.TransactionStatusCreated
	s.changes.Transaction(ctx, before, tx, types.SubscriptionChangeReasonFail, map[string]any{"error_reason": ev.ErrorReason})
	s.audit.Record(ctx, audit.Entry{
		Actor:       audit.SystemActor,
		Action:      audit.ActionPaymentFailed,
		TargetType:  audit.TargetTransaction,
		TargetID:    tx.ID,
		Description: fmt.Sprintf("Payment failed for order %s.", ev.OrderID),
		Details:     map[string]any{"payment_id": ev.PaymentID, "error_reason": ev.ErrorReason},
	})
	log.Infow("payment_failed_recorded", "transaction_id", tx.ID, "error_reason", ev.ErrorReason)
	return nil
}

// ListUnprovisioned returns captured transactions that never got a subscription.
func (s *Service) ListUnprovisioned(ctx context.Context, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > defaultUnprovisionedLimit {
		limit = defaultUnprovisionedLimit
	}
	out, err := s.repo.ListUnprovisioned(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprovisioned: %w", err)
	}
	return out, nil
}

func (s *Service) notificationRow(ev *Event, status models.PaymentNotificationLogStatus, res *result) *models.PaymentNotificationLog {
	row := &models.PaymentNotificationLog{
		ProviderID:       string(types.PaymentProviderRazorpay),
		TraceID:          ev.TraceID,
		EventType:        ev.Name,
		OrderID:          ev.OrderID,
		PaymentID:        ev.PaymentID,
		NotificationTime: s.now(),
		Status:           status,
	}
	if ev.UserID != "" {
		row.UserID = lo.ToPtr(ev.UserID)
	}
	if json.Valid(ev.Raw) {
		row.Data = datatypes.JSON(ev.Raw)
	}
	if res != nil {
		b, _ := json.Marshal(res)
		j := datatypes.JSON(b)
		row.Result = &j
	}
	return row
}

var Module = fx.Options(
	fx.Provide(NewService),
)
