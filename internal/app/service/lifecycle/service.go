package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/changelog"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/platform/telegram"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/metrics"
	"github.com/fatflowers/tgpass/pkg/tool"
	"github.com/fatflowers/tgpass/pkg/types"
)

// Remote removal outcomes reported by Revoke.
const (
	RemovalSucceeded = "succeeded"
	RemovalFailed    = "failed"
	RemovalSkipped   = "skipped"
)

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

type RevokeResult struct {
	Subscription   *models.Subscription `json:"subscription"`
	AlreadyRevoked bool                 `json:"already_revoked"`
	RemoteRemoval  string               `json:"remote_removal"`
}

// Service applies operator actions to subscriptions.
type Service struct {
	repo    repository.Repository
	bot     telegram.Bot
	audit   audit.Recorder
	changes *changelog.Service
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(repo repository.Repository, bot telegram.Bot, rec audit.Recorder, changes *changelog.Service, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, bot: bot, audit: rec, changes: changes, log: log, now: time.Now}
}

// Get returns the subscription with its status as of now.
func (s *Service) Get(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Status = sub.EffectiveStatus(s.now())
	return sub, nil
}

// ListForUser returns the user's subscriptions, latest end date first, each
// with its status as of now.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	if userID == "" {
		return nil, apperr.Validation("missing_user", "User ID is required.")
	}
	subs, err := s.repo.ListSubscriptionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", userID, err)
	}
	now := s.now()
	for _, sub := range subs {
		sub.Status = sub.EffectiveStatus(now)
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	return subs, nil
}

// Extend pushes the end date of one subscription by days.
func (s *Service) Extend(ctx context.Context, actor audit.Actor, id string, days int) (*models.Subscription, error) {
	if err := validateDays(days); err != nil {
		metrics.IncLifecycleOp("extend", "rejected")
		return nil, err
	}
	sub, err := s.extend(ctx, actor, id, days)
	metrics.IncLifecycleOp("extend", resultLabel(err))
	return sub, err
}

// BulkExtend extends each id independently. Only an invalid day count or an
// empty id list fails the whole call.
func (s *Service) BulkExtend(ctx context.Context, actor audit.Actor, ids []string, days int) (*BulkResult, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("missing_ids", "Subscription IDs are required.")
	}

	res := &BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range ids {
		_, err := s.extend(ctx, actor, id, days)
		metrics.IncLifecycleOp("bulk_extend", resultLabel(err))
		if err != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Reason: reasonOf(err), Error: messageOf(err)})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscriptions_bulk_extended",
		"days", days, "succeeded", len(res.Succeeded), "failed", len(res.Failed))
	return res, nil
}

func (s *Service) extend(ctx context.Context, actor audit.Actor, id string, days int) (*models.Subscription, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == types.SubscriptionStatusRevoked {
		return nil, apperr.Conflict("subscription_revoked", "Cannot extend revoked subscription.")
	}

	now := s.now()
	before := sub.Clone()
	sub.EndDate = sub.ExtendFrom(now, days)
	if before.EffectiveStatus(now) == types.SubscriptionStatusExpired {
		sub.Status = types.SubscriptionStatusActive
	}
	if err := s.repo.UpdateSubscription(ctx, sub, before.Version); err != nil {
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			return nil, apperr.Conflict("concurrent_update", "Subscription was modified concurrently, retry.")
		}
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_extended",
		"subscription_id", sub.ID, "days", days, "old_end_date", before.EndDate, "new_end_date", sub.EndDate, "actor_id", actor.ID)
	s.changes.Subscription(ctx, before, sub, types.SubscriptionChangeReasonExtend, map[string]any{"days": days, "actor_id": actor.ID})
	s.audit.Record(ctx, audit.Entry{
		Actor:       actor,
		Action:      audit.ActionSubscriptionExtended,
		TargetType:  audit.TargetSubscription,
		TargetID:    sub.ID,
		Description: fmt.Sprintf("Subscription extended by %d days.", days),
		Details: map[string]any{
			"days":         days,
			"old_end_date": before.EndDate,
			"new_end_date": sub.EndDate,
			"old_status":   string(before.Status),
			"new_status":   string(sub.Status),
		},
	})
	sub.Status = sub.EffectiveStatus(now)
	return sub, nil
}

// Revoke terminates a subscription. Removing the member from the channel is
// attempted afterwards and never undoes the revocation.
func (s *Service) Revoke(ctx context.Context, actor audit.Actor, id string) (*RevokeResult, error) {
	before, err := s.load(ctx, id)
	if err != nil {
		metrics.IncLifecycleOp("revoke", resultLabel(err))
		return nil, err
	}
	log := logctx.FromCtx(ctx, s.log).With("subscription_id", id, "actor_id", actor.ID)

	sub, changed, err := s.repo.RevokeSubscription(ctx, id)
	if err != nil {
		metrics.IncLifecycleOp("revoke", "error")
		return nil, fmt.Errorf("revoke subscription %s: %w", id, err)
	}
	if !changed {
		metrics.IncLifecycleOp("revoke", "noop")
		log.Infow("subscription_already_revoked")
		return &RevokeResult{Subscription: sub, AlreadyRevoked: true, RemoteRemoval: RemovalSkipped}, nil
	}

	log.Infow("subscription_revoked")
	s.changes.Subscription(ctx, before, sub, types.SubscriptionChangeReasonRevoke, map[string]any{"actor_id": actor.ID})
	s.audit.Record(ctx, audit.Entry{
		Actor:       actor,
		Action:      audit.ActionSubscriptionRevoked,
		TargetType:  audit.TargetSubscription,
		TargetID:    sub.ID,
		Description: "Subscription revoked manually.",
		Details:     map[string]any{"old_status": string(before.Status)},
	})

	res := &RevokeResult{Subscription: sub, RemoteRemoval: s.removeMember(ctx, log, actor, sub)}
	metrics.IncLifecycleOp("revoke", "ok")
	return res, nil
}

func (s *Service) removeMember(ctx context.Context, log *zap.SugaredLogger, actor audit.Actor, sub *models.Subscription) string {
	if sub.TelegramUserID == nil {
		log.Infow("telegram_remove_skipped", "reason", "no_telegram_user")
		return RemovalSkipped
	}
	ch, err := s.repo.GetChannel(ctx, sub.ChannelID)
	if err != nil || ch.TelegramChatID == "" {
		log.Warnw("telegram_remove_skipped", "reason", "no_channel", "channel_id", sub.ChannelID, "err", err)
		return RemovalSkipped
	}

	entry := audit.Entry{
		Actor:      actor,
		TargetType: audit.TargetSubscription,
		TargetID:   sub.ID,
		Details:    map[string]any{"telegram_user_id": *sub.TelegramUserID, "chat_id": ch.TelegramChatID},
	}
	if err := s.bot.RemoveMember(ctx, ch.TelegramChatID, *sub.TelegramUserID); err != nil {
		log.Errorw("telegram_remove_failed", "telegram_user_id", *sub.TelegramUserID, "err", err)
		entry.Action = audit.ActionTelegramRemoveFailed
		entry.Description = fmt.Sprintf("Failed to remove user from channel: %v", err)
		s.audit.Record(ctx, entry)
		return RemovalFailed
	}
	entry.Action = audit.ActionTelegramRemoveSuccess
	entry.Description = "User removed from channel."
	s.audit.Record(ctx, entry)
	return RemovalSucceeded
}

func (s *Service) load(ctx context.Context, id string) (*models.Subscription, error) {
	if !tool.IsUUID(id) {
		return nil, apperr.Validation("invalid_id", "Invalid ID format.")
	}
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("subscription_not_found", "Subscription not found.")
		}
		return nil, fmt.Errorf("load subscription %s: %w", id, err)
	}
	return sub, nil
}

func validateDays(days int) error {
	if days <= 0 {
		return apperr.Validation("invalid_days", "Days must be a positive number.")
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.KindOf(err) == apperr.KindInternal, apperr.KindOf(err) == apperr.KindUpstream:
		return "error"
	}
	return "rejected"
}

func reasonOf(err error) string {
	if r := apperr.ReasonOf(err); r != "" {
		return r
	}
	return "internal"
}

func messageOf(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

var Module = fx.Options(
	fx.Provide(NewService),
)
