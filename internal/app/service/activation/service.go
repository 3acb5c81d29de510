package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/changelog"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/platform/telegram"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/metrics"
	"github.com/fatflowers/tgpass/pkg/tool"
	"github.com/fatflowers/tgpass/pkg/types"
)

// Service turns a captured transaction into subscription state.
type Service struct {
	cfg     *config.Config
	repo    repository.Repository
	bot     telegram.Bot
	audit   audit.Recorder
	changes *changelog.Service
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(cfg *config.Config, repo repository.Repository, bot telegram.Bot, rec audit.Recorder, changes *changelog.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, repo: repo, bot: bot, audit: rec, changes: changes, log: log, now: time.Now}
}

// Activate provisions tx according to its stored action and returns the id
// of the created or extended subscription. Calling it again for a transaction
// that is already linked returns a conflict and changes nothing.
func (s *Service) Activate(ctx context.Context, tx *models.Transaction) (string, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("activation", string(tx.Action), start)

	if tx.Provisioned() {
		return *tx.SubscriptionID, apperr.Conflict("already_provisioned", "transaction already provisioned")
	}
	plan, err := s.repo.GetPlan(ctx, tx.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("plan_not_found", fmt.Sprintf("plan %s not found", tx.PlanID))
		}
		return "", fmt.Errorf("load plan: %w", err)
	}

	var subID string
	switch tx.Action {
	case types.OrderActionUpgrade:
		subID, err = s.upgrade(ctx, tx, plan)
	case types.OrderActionNew, types.OrderActionRenew:
		subID, err = s.provision(ctx, tx, plan)
	default:
		err = apperr.Validation("invalid_action", fmt.Sprintf("unknown action %q", tx.Action))
	}
	if err != nil {
		return "", err
	}
	metrics.IncActivation(string(tx.Action))
	return subID, nil
}

// upgradeAttempts bounds how often an upgrade re-reads the subscription
// after losing a version race to another writer.
const upgradeAttempts = 3

func (s *Service) upgrade(ctx context.Context, tx *models.Transaction, plan *models.Plan) (string, error) {
	targetID := tx.TargetID()
	if targetID == "" {
		return "", apperr.Validation("missing_target", "upgrade requires a target subscription")
	}

	var before, sub *models.Subscription
	for attempt := 1; ; attempt++ {
		var err error
		before, sub, err = s.applyUpgrade(ctx, tx, plan, targetID)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConcurrentUpdate) {
			return "", err
		}
		if attempt == upgradeAttempts {
			return "", mapSaveErr(err)
		}
		logctx.FromCtx(ctx, s.log).Infow("subscription_upgrade_retry",
			"subscription_id", targetID, "transaction_id", tx.ID, "attempt", attempt)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_upgraded",
		"subscription_id", sub.ID, "transaction_id", tx.ID, "plan_id", plan.ID, "end_date", sub.EndDate)
	s.changes.Subscription(ctx, before, sub, types.SubscriptionChangeReasonUpgrade, map[string]any{"transaction_id": tx.ID})
	s.audit.Record(ctx, audit.Entry{
		Actor:       audit.SystemActor,
		Action:      audit.ActionSubscriptionExtended,
		TargetType:  audit.TargetSubscription,
		TargetID:    sub.ID,
		Description: fmt.Sprintf("Subscription upgraded to plan %s via order %s.", plan.ID, tx.GatewayOrderID),
		Details: map[string]any{
			"action":         string(types.OrderActionUpgrade),
			"transaction_id": tx.ID,
			"old_end_date":   before.EndDate,
			"new_end_date":   sub.EndDate,
			"old_plan_id":    before.PlanID,
		},
	})
	return sub.ID, nil
}

// applyUpgrade reads the target and writes the upgraded copy guarded by the
// version it read.
func (s *Service) applyUpgrade(ctx context.Context, tx *models.Transaction, plan *models.Plan, targetID string) (before, sub *models.Subscription, err error) {
	sub, err = s.repo.GetSubscription(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound("subscription_not_found", fmt.Sprintf("subscription %s not found", targetID))
		}
		return nil, nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub.Status == types.SubscriptionStatusRevoked {
		return nil, nil, apperr.Conflict("subscription_revoked", "cannot upgrade a revoked subscription")
	}

	before = sub.Clone()
	sub.EndDate = sub.ExtendFrom(s.now(), plan.ValidityDays)
	sub.Status = types.SubscriptionStatusActive
	sub.PlanID = plan.ID

	err = s.repo.SaveActivation(ctx, &repository.Activation{
		TransactionID:   tx.ID,
		Subscription:    sub,
		Existing:        true,
		ExpectedVersion: before.Version,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			return nil, nil, err
		}
		return nil, nil, mapSaveErr(err)
	}
	return before, sub, nil
}

func (s *Service) provision(ctx context.Context, tx *models.Transaction, plan *models.Plan) (string, error) {
	channelID := tx.ChannelID
	if channelID == "" {
		channelID = plan.ChannelID
	}
	channel, err := s.repo.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("channel_not_found", fmt.Sprintf("channel %s not found", channelID))
		}
		return "", fmt.Errorf("load channel: %w", err)
	}

	link, err := s.bot.CreateInviteLink(ctx, channel.TelegramChatID, s.memberLimit(), nil)
	if err != nil {
		return "", apperr.Upstream("invite_link_failed", err)
	}

	now := s.now()
	subID := tool.GenerateUUIDV7()
	linkID := tool.GenerateUUIDV7()
	sub := &models.Subscription{
		ID:           subID,
		UserID:       tx.UserID,
		PlanID:       plan.ID,
		ChannelID:    channel.ID,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, plan.ValidityDays),
		Status:       types.SubscriptionStatusKYC,
		InviteLinkID: &linkID,
	}
	if tx.Action == types.OrderActionRenew {
		if from := tx.TargetID(); from != "" {
			sub.FromSubscriptionID = &from
		}
	}

	err = s.repo.SaveActivation(ctx, &repository.Activation{
		TransactionID: tx.ID,
		Subscription:  sub,
		InviteLink: &models.InviteLink{
			ID:             linkID,
			URL:            link,
			ChannelID:      channel.ID,
			SubscriptionID: subID,
		},
	})
	if err != nil {
		return "", mapSaveErr(err)
	}

	action := audit.ActionSubscriptionCreated
	if tx.Action == types.OrderActionRenew {
		action = audit.ActionSubscriptionRenewed
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_provisioned",
		"subscription_id", sub.ID, "transaction_id", tx.ID, "action", tx.Action, "end_date", sub.EndDate, "simulated_bot", s.bot.Simulated())
	s.changes.Subscription(ctx, nil, sub, types.ReasonForAction(tx.Action), map[string]any{"transaction_id": tx.ID})
	s.audit.Record(ctx, audit.Entry{
		Actor:       audit.SystemActor,
		Action:      action,
		TargetType:  audit.TargetSubscription,
		TargetID:    sub.ID,
		Description: fmt.Sprintf("Subscription %s for user %s on plan %s via order %s.", tx.Action, tx.UserID, plan.ID, tx.GatewayOrderID),
		Details: map[string]any{
			"transaction_id":       tx.ID,
			"from_subscription_id": tx.TargetID(),
			"invite_link_id":       linkID,
		},
	})
	return sub.ID, nil
}

func (s *Service) memberLimit() int {
	if s.cfg != nil && s.cfg.Telegram.InviteMemberLimit > 0 {
		return s.cfg.Telegram.InviteMemberLimit
	}
	return 1
}

func mapSaveErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyProvisioned):
		return apperr.Conflict("already_provisioned", "transaction already provisioned")
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return apperr.Conflict("concurrent_update", "subscription changed concurrently")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("transaction_not_found", "transaction not found")
	}
	return fmt.Errorf("save activation: %w", err)
}

var Module = fx.Options(
	fx.Provide(NewService),
)
