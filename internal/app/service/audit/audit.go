package audit

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
)

const (
	ActorTypeSystem = "System"
	ActorTypeAdmin  = "Admin"
	ActorTypeUser   = "User"

	TargetSubscription = "Subscription"
	TargetTransaction  = "Transaction"
)

const (
	ActionOrderCreated          = "ORDER_CREATED"
	ActionPaymentFailed         = "PAYMENT_FAILED"
	ActionSubscriptionCreated   = "SUBSCRIPTION_CREATED"
	ActionSubscriptionRenewed   = "SUBSCRIPTION_RENEWED"
	ActionSubscriptionExtended  = "SUBSCRIPTION_EXTENDED"
	ActionSubActivationFailed   = "SUB_ACTIVATION_FAILED"
	ActionSubscriptionRevoked   = "SUBSCRIPTION_REVOKED_MANUAL"
	ActionTelegramRemoveFailed  = "TELEGRAM_REMOVE_USER_ERROR"
	ActionTelegramRemoveSuccess = "TELEGRAM_REMOVE_USER_SUCCESS"
)

type Actor struct {
	Type string
	ID   string
}

var SystemActor = Actor{Type: ActorTypeSystem}

func AdminActor(id string) Actor { return Actor{Type: ActorTypeAdmin, ID: id} }

func UserActor(id string) Actor { return Actor{Type: ActorTypeUser, ID: id} }

type Entry struct {
	Actor       Actor
	Action      string
	TargetType  string
	TargetID    string
	Description string
	Details     map[string]any
}

// Recorder is the audit sink. Record never blocks the caller and never fails it.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type Service struct {
	repo repository.LogRepository
	log  *zap.SugaredLogger
	wg   sync.WaitGroup
}

func New(repo repository.Repository, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Record(ctx context.Context, e Entry) {
	row := &models.AuditLog{
		ID:          tool.GenerateUUIDV7(),
		ActorType:   e.Actor.Type,
		ActorID:     e.Actor.ID,
		ActionType:  e.Action,
		TargetType:  e.TargetType,
		TargetID:    e.TargetID,
		Description: e.Description,
		Details:     datatypes.JSONMap(e.Details),
	}
	if row.ActorType == "" {
		row.ActorType = ActorTypeSystem
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.SaveAuditLog(context.WithoutCancel(ctx), row); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("audit_save_failed", "action", row.ActionType, "target_id", row.TargetID, "err", err)
		}
	}()
}

// Wait blocks until pending writes have finished.
func (s *Service) Wait() { s.wg.Wait() }

func registerFlush(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		s.Wait()
		return nil
	}})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(s *Service) Recorder { return s }),
	fx.Invoke(registerFlush),
)
