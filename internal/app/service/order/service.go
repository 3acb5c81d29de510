package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/changelog"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/platform/razorpay"
	"github.com/fatflowers/tgpass/internal/platform/redislock"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/metrics"
	"github.com/fatflowers/tgpass/pkg/tool"
	"github.com/fatflowers/tgpass/pkg/types"
)

const lockKeyPrefix = "tgpass:order:"

type InitiateRequest struct {
	UserID               string
	PlanID               string
	Action               types.OrderAction
	TargetSubscriptionID string
	CouponCode           string
}

type OrderResult struct {
	TransactionID string            `json:"transaction_id"`
	OrderID       string            `json:"order_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	KeyID         string            `json:"key_id"`
	Action        types.OrderAction `json:"action"`
	Reused        bool              `json:"reused"`
}

type Service struct {
	cfg     *config.Config
	repo    repository.Repository
	gateway razorpay.Gateway
	locker  redislock.Locker
	audit   audit.Recorder
	changes *changelog.Service
	log     *zap.SugaredLogger
}

func NewService(cfg *config.Config, repo repository.Repository, gateway razorpay.Gateway, locker redislock.Locker, rec audit.Recorder, changes *changelog.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, repo: repo, gateway: gateway, locker: locker, audit: rec, changes: changes, log: log}
}

// Initiate returns a gateway order the client can pay. A pending order for the
// same user, plan and target is handed back instead of creating another one.
func (s *Service) Initiate(ctx context.Context, req *InitiateRequest) (res *OrderResult, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveBusinessProcess("order", string(req.Action), start)
		switch {
		case err == nil && res.Reused:
			metrics.IncOrder(string(req.Action), "reused")
		case err == nil:
			metrics.IncOrder(string(req.Action), "created")
		case apperr.KindOf(err) == apperr.KindInternal || apperr.KindOf(err) == apperr.KindUpstream:
			metrics.IncOrder(string(req.Action), "error")
		default:
			metrics.IncOrder(string(req.Action), "rejected")
		}
	}()

	if err := validate(req); err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	channelID := plan.ChannelID
	if req.Action.NeedsTarget() {
		target, err := s.loadTarget(ctx, req)
		if err != nil {
			return nil, err
		}
		if req.Action == types.OrderActionUpgrade {
			if target.PlanID == plan.ID {
				return nil, apperr.Validation("same_plan", "upgrade requires a different plan")
			}
			if target.Status == types.SubscriptionStatusRevoked {
				return nil, apperr.Conflict("subscription_revoked", "cannot upgrade a revoked subscription")
			}
		}
		channelID = target.ChannelID
	}

	amount, err := s.price(ctx, plan, channelID, req.CouponCode)
	if err != nil {
		return nil, err
	}

	log := logctx.FromCtx(ctx, s.log).With("user_id", req.UserID, "plan_id", plan.ID, "action", req.Action)

	if pending, err := s.findPending(ctx, req); err != nil || pending != nil {
		if pending != nil {
			log.Infow("order_reused", "order_id", pending.GatewayOrderID, "transaction_id", pending.ID)
			return s.result(pending, true), nil
		}
		return nil, err
	}

	key := lockKeyPrefix + req.UserID + ":" + plan.ID + ":" + req.TargetSubscriptionID
	token, lockErr := s.locker.TryLock(ctx, key, s.cfg.Redis.LockTTL)
	switch {
	case lockErr == nil:
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warnw("order_lock_release_failed", "err", err)
			}
		}()
	case errors.Is(lockErr, redislock.ErrNotAcquired):
		log.Infow("order_lock_busy")
	default:
		log.Warnw("order_lock_unavailable", "err", lockErr)
	}

	// another request may have created the order while we waited
	if pending, err := s.findPending(ctx, req); err != nil || pending != nil {
		if pending != nil {
			log.Infow("order_reused", "order_id", pending.GatewayOrderID, "transaction_id", pending.ID)
			return s.result(pending, true), nil
		}
		return nil, err
	}

	notes := &models.TransactionNotes{
		UserID:         req.UserID,
		PlanID:         plan.ID,
		SubscriptionID: req.TargetSubscriptionID,
		Action:         req.Action,
		Receipt:        string(req.Action) + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		CouponCode:     req.CouponCode,
	}
	order, err := s.gateway.CreateOrder(ctx, &razorpay.OrderRequest{
		Amount:         amount,
		Currency:       s.currency(),
		Receipt:        notes.Receipt,
		PaymentCapture: 1,
		Notes: map[string]string{
			"userid":         notes.UserID,
			"planid":         notes.PlanID,
			"subscriptionid": notes.SubscriptionID,
			"action":         string(notes.Action),
		},
	})
	if err != nil {
		log.Errorw("order_gateway_failed", "amount", amount, "err", err)
		return nil, apperr.Upstream("gateway_order_failed", err)
	}

	tx := &models.Transaction{
		ID:             tool.GenerateUUIDV7(),
		UserID:         req.UserID,
		PlanID:         plan.ID,
		ChannelID:      channelID,
		Amount:         amount,
		Currency:       s.currency(),
		ProviderID:     types.PaymentProviderRazorpay,
		GatewayOrderID: order.ID,
		Status:         types.TransactionStatusCreated,
		Action:         req.Action,
		Notes:          datatypes.NewJSONType(notes),
	}
	if req.TargetSubscriptionID != "" {
		tx.TargetSubscriptionID = lo.ToPtr(req.TargetSubscriptionID)
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction for order %s: %w", order.ID, err)
	}

	log.Infow("order_created", "order_id", order.ID, "transaction_id", tx.ID, "amount", amount)
	s.changes.Transaction(ctx, nil, tx, types.SubscriptionChangeReasonOrder, nil)
	s.audit.Record(ctx, audit.Entry{
		Actor:       audit.UserActor(req.UserID),
		Action:      audit.ActionOrderCreated,
		TargetType:  audit.TargetTransaction,
		TargetID:    tx.ID,
		Description: fmt.Sprintf("Order %s created for plan %s (%s).", order.ID, plan.ID, req.Action),
		Details: map[string]any{
			"amount":                 amount,
			"currency":               tx.Currency,
			"coupon_code":            req.CouponCode,
			"target_subscription_id": req.TargetSubscriptionID,
		},
	})
	return s.result(tx, false), nil
}

func validate(req *InitiateRequest) error {
	switch {
	case req.UserID == "":
		return apperr.Validation("missing_user", "user id is required")
	case req.PlanID == "":
		return apperr.Validation("missing_plan", "plan id is required")
	case !tool.IsUUID(req.PlanID):
		return apperr.Validation("invalid_id", "plan id is not a valid id")
	case !req.Action.Valid():
		return apperr.Validation("invalid_action", fmt.Sprintf("unknown action %q", req.Action))
	case req.Action.NeedsTarget() && req.TargetSubscriptionID == "":
		return apperr.Validation("missing_target", fmt.Sprintf("%s requires a subscription id", req.Action))
	case !req.Action.NeedsTarget() && req.TargetSubscriptionID != "":
		return apperr.Validation("unexpected_target", "a new purchase cannot target a subscription")
	case req.TargetSubscriptionID != "" && !tool.IsUUID(req.TargetSubscriptionID):
		return apperr.Validation("invalid_id", "subscription id is not a valid id")
	}
	return nil
}

func (s *Service) loadPlan(ctx context.Context, id string) (*models.Plan, error) {
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("plan_not_found", "plan not found")
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if !plan.IsActive {
		return nil, apperr.Conflict("plan_inactive", "plan is not available")
	}
	return plan, nil
}

// loadTarget hides subscriptions of other users behind not found.
func (s *Service) loadTarget(ctx context.Context, req *InitiateRequest) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, req.TargetSubscriptionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil || sub.UserID != req.UserID {
		return nil, apperr.NotFound("subscription_not_found", "subscription not found")
	}
	return sub, nil
}

func (s *Service) price(ctx context.Context, plan *models.Plan, channelID, coupon string) (int64, error) {
	amount := plan.BasePrice()
	if coupon != "" {
		ch, err := s.repo.GetChannel(ctx, channelID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("load channel: %w", err)
		}
		if !ch.HasCoupon(coupon) {
			return 0, apperr.Validation("invalid_coupon", "invalid coupon code")
		}
		amount = amount * int64(100-ch.CouponDiscount) / 100
	}
	if amount <= 0 {
		return 0, apperr.Validation("invalid_amount", "order amount must be positive")
	}
	return amount, nil
}

func (s *Service) findPending(ctx context.Context, req *InitiateRequest) (*models.Transaction, error) {
	tx, err := s.repo.FindPendingTransaction(ctx, req.UserID, req.PlanID, req.TargetSubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) currency() string {
	if s.cfg.Razorpay.Currency == "" {
		return "INR"
	}
	return s.cfg.Razorpay.Currency
}

func (s *Service) result(tx *models.Transaction, reused bool) *OrderResult {
	return &OrderResult{
		TransactionID: tx.ID,
		OrderID:       tx.GatewayOrderID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		KeyID:         s.gateway.KeyID(),
		Action:        tx.Action,
		Reused:        reused,
	}
}

var Module = fx.Options(
	fx.Provide(NewService),
)
