package changelog

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/tool"
	"github.com/fatflowers/tgpass/pkg/types"
)

// Service writes before/after snapshots of subscriptions and transactions.
// Writes are asynchronous; a failed write is logged only.
type Service struct {
	repo repository.LogRepository
	log  *zap.SugaredLogger
	wg   sync.WaitGroup
}

func New(repo repository.Repository, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Subscription(ctx context.Context, before, after *models.Subscription, reason types.SubscriptionChangeReason, extra map[string]any) {
	ref := after
	if ref == nil {
		ref = before
	}
	if ref == nil {
		return
	}
	row := &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: ref.ID,
		UserID:         ref.UserID,
		Reason:         reason,
		Before:         datatypes.NewJSONType(before.Clone()),
		After:          datatypes.NewJSONType(after.Clone()),
		Extra:          datatypes.JSONMap(extra),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.SaveSubscriptionLog(context.WithoutCancel(ctx), row); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("subscription_log_save_failed", "subscription_id", row.SubscriptionID, "err", err)
		}
	}()
}

func (s *Service) Transaction(ctx context.Context, before, after *models.Transaction, reason types.SubscriptionChangeReason, extra map[string]any) {
	ref := after
	if ref == nil {
		ref = before
	}
	if ref == nil {
		return
	}
	row := &models.TransactionLog{
		ID:             tool.GenerateUUIDV7(),
		TransactionID:  ref.ID,
		UserID:         ref.UserID,
		ProviderID:     ref.ProviderID,
		GatewayOrderID: ref.GatewayOrderID,
		Reason:         reason,
		Before:         datatypes.NewJSONType(before.Clone()),
		After:          datatypes.NewJSONType(after.Clone()),
		Extra:          datatypes.JSONMap(extra),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.SaveTransactionLog(context.WithoutCancel(ctx), row); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("transaction_log_save_failed", "transaction_id", row.TransactionID, "err", err)
		}
	}()
}

func (s *Service) Wait() { s.wg.Wait() }

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Service) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			s.Wait()
			return nil
		}})
	}),
)
