package activation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/changelog"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/types"
)

type fakeBot struct {
	mu    sync.Mutex
	err   error
	links int
}

func (b *fakeBot) CreateInviteLink(_ context.Context, chatID string, limit int, _ *time.Time) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.links++
	return fmt.Sprintf("https://t.me/+%s_%d", chatID, b.links), nil
}

func (b *fakeBot) RemoveMember(context.Context, string, int64) error { return nil }

func (b *fakeBot) Simulated() bool { return false }

type fixture struct {
	repo    *repository.Memory
	bot     *fakeBot
	audit   *audit.Service
	changes *changelog.Service
	svc     *Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemory()
	require.NoError(t, repo.UpsertChannel(ctx, &models.Channel{ID: "c1", TelegramChatID: "-1001", IsActive: true}))
	require.NoError(t, repo.UpsertPlan(ctx, &models.Plan{ID: "p30", ChannelID: "c1", MarkupPrice: 49900, ValidityDays: 30, IsActive: true}))
	require.NoError(t, repo.UpsertPlan(ctx, &models.Plan{ID: "p90", ChannelID: "c1", MarkupPrice: 129900, ValidityDays: 90, IsActive: true}))

	log := zap.NewNop().Sugar()
	f := &fixture{
		repo:    repo,
		bot:     &fakeBot{},
		audit:   audit.New(repo, log),
		changes: changelog.New(repo, log),
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{}
	cfg.Telegram.InviteMemberLimit = 1
	f.svc = NewService(cfg, repo, f.bot, f.audit, f.changes, log)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) captured(t *testing.T, id string, action types.OrderAction, planID, target string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	tx := &models.Transaction{
		ID:             id,
		UserID:         "u1",
		PlanID:         planID,
		ChannelID:      "c1",
		Amount:         49900,
		Currency:       "INR",
		ProviderID:     types.PaymentProviderRazorpay,
		GatewayOrderID: "order_" + id,
		Status:         types.TransactionStatusCreated,
		Action:         action,
	}
	if target != "" {
		tx.TargetSubscriptionID = &target
	}
	require.NoError(t, f.repo.CreateTransaction(ctx, tx))
	out, outcome, err := f.repo.MarkCaptured(ctx, tx.GatewayOrderID, "pay_"+id, f.now)
	require.NoError(t, err)
	require.Equal(t, repository.CaptureApplied, outcome)
	return out
}

func (f *fixture) flush() {
	f.audit.Wait()
	f.changes.Wait()
}

func TestActivateNewCreatesKYCSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.captured(t, "t1", types.OrderActionNew, "p30", "")

	subID, err := f.svc.Activate(ctx, tx)
	require.NoError(t, err)
	f.flush()

	sub, err := f.repo.GetSubscription(ctx, subID)
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusKYC, sub.Status)
	require.Equal(t, "u1", sub.UserID)
	require.Equal(t, f.now.AddDate(0, 0, 30), sub.EndDate)
	require.Nil(t, sub.FromSubscriptionID)
	require.NotNil(t, sub.InviteLinkID)

	links := f.repo.InviteLinks()
	require.Len(t, links, 1)
	require.Equal(t, subID, links[0].SubscriptionID)
	require.Equal(t, *sub.InviteLinkID, links[0].ID)

	require.Equal(t, subID, *f.repo.Transaction("t1").SubscriptionID)
	require.Equal(t, audit.ActionSubscriptionCreated, f.repo.Audits()[0].ActionType)
	require.Len(t, f.repo.SubscriptionLogs, 1)
}

func TestActivateRenewKeepsLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prior := &models.Subscription{ID: "s-old", UserID: "u1", PlanID: "p30", ChannelID: "c1",
		StartDate: f.now.AddDate(0, 0, -40), EndDate: f.now.AddDate(0, 0, -10), Status: types.SubscriptionStatusActive}
	f.repo.PutSubscription(prior)
	tx := f.captured(t, "t1", types.OrderActionRenew, "p30", "s-old")

	subID, err := f.svc.Activate(ctx, tx)
	require.NoError(t, err)
	f.flush()
	require.NotEqual(t, "s-old", subID)

	sub, err := f.repo.GetSubscription(ctx, subID)
	require.NoError(t, err)
	require.NotNil(t, sub.FromSubscriptionID)
	require.Equal(t, "s-old", *sub.FromSubscriptionID)
	require.Equal(t, types.SubscriptionStatusKYC, sub.Status)

	old, err := f.repo.GetSubscription(ctx, "s-old")
	require.NoError(t, err)
	require.Equal(t, prior.EndDate, old.EndDate)
	require.Equal(t, prior.Version, old.Version)
	require.Equal(t, audit.ActionSubscriptionRenewed, f.repo.Audits()[0].ActionType)
}

func TestActivateUpgradeExtendsFromLaterOfEndAndNow(t *testing.T) {
	cases := []struct {
		name    string
		end     time.Duration
		wantEnd func(now, end time.Time) time.Time
	}{
		{"running", 10 * 24 * time.Hour, func(_, end time.Time) time.Time { return end.AddDate(0, 0, 90) }},
		{"lapsed", -5 * 24 * time.Hour, func(now, _ time.Time) time.Time { return now.AddDate(0, 0, 90) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			end := f.now.Add(tc.end)
			status := types.SubscriptionStatusActive
			if tc.end < 0 {
				status = types.SubscriptionStatusExpired
			}
			f.repo.PutSubscription(&models.Subscription{ID: "s1", UserID: "u1", PlanID: "p30", ChannelID: "c1",
				StartDate: f.now.AddDate(0, 0, -20), EndDate: end, Status: status, Version: 2})
			tx := f.captured(t, "t1", types.OrderActionUpgrade, "p90", "s1")

			subID, err := f.svc.Activate(ctx, tx)
			require.NoError(t, err)
			f.flush()
			require.Equal(t, "s1", subID)

			sub, err := f.repo.GetSubscription(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, tc.wantEnd(f.now, end), sub.EndDate)
			require.Equal(t, types.SubscriptionStatusActive, sub.Status)
			require.Equal(t, "p90", sub.PlanID)
			require.Equal(t, int64(3), sub.Version)
			require.Len(t, f.repo.Subscriptions(), 1)
			require.Empty(t, f.repo.InviteLinks())
			require.Zero(t, f.bot.links)
		})
	}
}

func TestActivateUpgradeRevokedIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.PutSubscription(&models.Subscription{ID: "s1", UserID: "u1", PlanID: "p30", EndDate: f.now.AddDate(0, 0, 5), Status: types.SubscriptionStatusRevoked})
	tx := f.captured(t, "t1", types.OrderActionUpgrade, "p90", "s1")

	_, err := f.svc.Activate(ctx, tx)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, "subscription_revoked", apperr.ReasonOf(err))
	require.Nil(t, f.repo.Transaction("t1").SubscriptionID)
}

func TestActivateBotFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.bot.err = errors.New("Bad Request: not enough rights")
	tx := f.captured(t, "t1", types.OrderActionNew, "p30", "")

	_, err := f.svc.Activate(context.Background(), tx)
	require.ErrorIs(t, err, apperr.ErrUpstream)
	require.Empty(t, f.repo.Subscriptions())
	require.Empty(t, f.repo.InviteLinks())
	require.Nil(t, f.repo.Transaction("t1").SubscriptionID)
}

func TestActivateTwiceProvisionsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.captured(t, "t1", types.OrderActionNew, "p30", "")

	_, err := f.svc.Activate(ctx, tx)
	require.NoError(t, err)

	// stale copy, as a concurrent worker would hold
	_, err = f.svc.Activate(ctx, tx)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, "already_provisioned", apperr.ReasonOf(err))

	linked := f.repo.Transaction("t1")
	_, err = f.svc.Activate(ctx, linked)
	require.ErrorIs(t, err, apperr.ErrConflict)
	f.flush()

	require.Len(t, f.repo.Subscriptions(), 1)
	require.Len(t, f.repo.InviteLinks(), 1)
}

func TestActivateUnknownPlan(t *testing.T) {
	f := newFixture(t)
	tx := f.captured(t, "t1", types.OrderActionNew, "missing", "")

	_, err := f.svc.Activate(context.Background(), tx)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// racingRepo lets another writer touch the subscription right after each read.
type racingRepo struct {
	*repository.Memory
	races  int
	revoke bool
}

func (r *racingRepo) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := r.Memory.GetSubscription(ctx, id)
	if err != nil || r.races == 0 {
		return sub, err
	}
	r.races--
	if r.revoke {
		if _, _, err := r.Memory.RevokeSubscription(ctx, id); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if err := r.Memory.UpdateSubscription(ctx, sub.Clone(), sub.Version); err != nil {
		return nil, err
	}
	return sub, nil
}

func (f *fixture) racingService(repo *racingRepo) *Service {
	cfg := &config.Config{}
	cfg.Telegram.InviteMemberLimit = 1
	svc := NewService(cfg, repo, f.bot, f.audit, f.changes, zap.NewNop().Sugar())
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestActivateUpgradeRetriesAfterConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := f.now.AddDate(0, 0, 10)
	f.repo.PutSubscription(&models.Subscription{ID: "s1", UserID: "u1", PlanID: "p30", ChannelID: "c1",
		StartDate: f.now.AddDate(0, 0, -20), EndDate: end, Status: types.SubscriptionStatusActive, Version: 2})
	tx := f.captured(t, "t1", types.OrderActionUpgrade, "p90", "s1")

	svc := f.racingService(&racingRepo{Memory: f.repo, races: 1})
	subID, err := svc.Activate(ctx, tx)
	require.NoError(t, err)
	f.flush()
	require.Equal(t, "s1", subID)

	sub, err := f.repo.GetSubscription(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, end.AddDate(0, 0, 90), sub.EndDate)
	require.Equal(t, "p90", sub.PlanID)
	require.Equal(t, int64(4), sub.Version)
	require.Equal(t, "s1", *f.repo.Transaction("t1").SubscriptionID)
	require.Equal(t, audit.ActionSubscriptionExtended, f.repo.Audits()[0].ActionType)
}

func TestActivateUpgradeGivesUpAfterRepeatedRaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.PutSubscription(&models.Subscription{ID: "s1", UserID: "u1", PlanID: "p30", ChannelID: "c1",
		EndDate: f.now.AddDate(0, 0, 10), Status: types.SubscriptionStatusActive, Version: 1})
	tx := f.captured(t, "t1", types.OrderActionUpgrade, "p90", "s1")

	svc := f.racingService(&racingRepo{Memory: f.repo, races: upgradeAttempts})
	_, err := svc.Activate(ctx, tx)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, "concurrent_update", apperr.ReasonOf(err))
	require.Nil(t, f.repo.Transaction("t1").SubscriptionID)

	sub, err := f.repo.GetSubscription(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "p30", sub.PlanID)
	require.Equal(t, int64(1+upgradeAttempts), sub.Version)
}

func TestActivateUpgradeSeesConcurrentRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.PutSubscription(&models.Subscription{ID: "s1", UserID: "u1", PlanID: "p30", ChannelID: "c1",
		EndDate: f.now.AddDate(0, 0, 10), Status: types.SubscriptionStatusActive, Version: 1})
	tx := f.captured(t, "t1", types.OrderActionUpgrade, "p90", "s1")

	svc := f.racingService(&racingRepo{Memory: f.repo, races: 1, revoke: true})
	_, err := svc.Activate(ctx, tx)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, "subscription_revoked", apperr.ReasonOf(err))
	require.Nil(t, f.repo.Transaction("t1").SubscriptionID)
}
