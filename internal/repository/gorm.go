package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/types"
)

type gormRepository struct {
	db *gorm.DB
}

var _ Repository = (*gormRepository)(nil)

func NewGorm(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *gormRepository) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *gormRepository) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	var c models.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *gormRepository) UpsertChannel(ctx context.Context, c *models.Channel) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "name", "telegram_chat_id", "coupon_code", "coupon_discount", "is_active", "updated_at"}),
	}).Create(c).Error
}

func (r *gormRepository) UpsertPlan(ctx context.Context, p *models.Plan) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"channel_id", "name", "description", "markup_price", "discounted_price", "validity_days", "is_active", "updated_at"}),
	}).Create(p).Error
}

func (r *gormRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *gormRepository) UpdateSubscription(ctx context.Context, sub *models.Subscription, expectedVersion int64) error {
	return updateSubscriptionVersioned(r.db.WithContext(ctx), sub, expectedVersion)
}

func updateSubscriptionVersioned(tx *gorm.DB, sub *models.Subscription, expectedVersion int64) error {
	res := tx.Model(&models.Subscription{}).
		Where("id = ? AND version = ? AND status <> ?", sub.ID, expectedVersion, types.SubscriptionStatusRevoked).
		Updates(map[string]any{
			"plan_id":  sub.PlanID,
			"end_date": sub.EndDate,
			"status":   sub.Status,
			"version":  expectedVersion + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	sub.Version = expectedVersion + 1
	return nil
}

func (r *gormRepository) RevokeSubscription(ctx context.Context, id string) (*models.Subscription, bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status <> ?", id, types.SubscriptionStatusRevoked).
		Updates(map[string]any{
			"status":  types.SubscriptionStatusRevoked,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, false, fmt.Errorf("revoke subscription: %w", res.Error)
	}
	sub, err := r.GetSubscription(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return sub, res.RowsAffected > 0, nil
}

func (r *gormRepository) ListSubscriptionsForUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("end_date DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindPendingTransaction(ctx context.Context, userID, planID, targetID string) (*models.Transaction, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ? AND status = ? AND gateway_order_id <> ''", userID, planID, types.TransactionStatusCreated)
	if targetID == "" {
		q = q.Where("target_subscription_id IS NULL")
	} else {
		q = q.Where("target_subscription_id = ?", targetID)
	}
	var t models.Transaction
	if err := q.Order("created_at DESC").First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *gormRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *gormRepository) ListTransactionsForUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*models.Transaction
	err := q.Find(&out).Error
	return out, err
}

func (r *gormRepository) GetTransactionByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *gormRepository) MarkCaptured(ctx context.Context, orderID, paymentID string, at time.Time) (*models.Transaction, CaptureOutcome, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("gateway_order_id = ? AND status = ?", orderID, types.TransactionStatusCreated).
		Updates(map[string]any{
			"status":             types.TransactionStatusCaptured,
			"gateway_payment_id": paymentID,
			"captured_at":        at,
		})
	if res.Error != nil {
		return nil, 0, fmt.Errorf("capture transaction: %w", res.Error)
	}
	t, err := r.GetTransactionByOrderID(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}
	if res.RowsAffected > 0 {
		return t, CaptureApplied, nil
	}
	return t, outcomeFor(t), nil
}

func outcomeFor(t *models.Transaction) CaptureOutcome {
	if t.Status == types.TransactionStatusFailed {
		return CaptureOnFailed
	}
	return CaptureDuplicate
}

func (r *gormRepository) MarkFailed(ctx context.Context, orderID, paymentID string) (*models.Transaction, bool, error) {
	updates := map[string]any{"status": types.TransactionStatusFailed}
	if paymentID != "" {
		updates["gateway_payment_id"] = paymentID
	}
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("gateway_order_id = ? AND status = ?", orderID, types.TransactionStatusCreated).
		Updates(updates)
	if res.Error != nil {
		return nil, false, fmt.Errorf("fail transaction: %w", res.Error)
	}
	t, err := r.GetTransactionByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return t, res.RowsAffected > 0, nil
}

func (r *gormRepository) SaveActivation(ctx context.Context, a *Activation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.Existing {
			if err := updateSubscriptionVersioned(tx, a.Subscription, a.ExpectedVersion); err != nil {
				return err
			}
		} else {
			if err := tx.Create(a.Subscription).Error; err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
			if a.InviteLink != nil {
				if err := tx.Create(a.InviteLink).Error; err != nil {
					return fmt.Errorf("create invite link: %w", err)
				}
			}
		}

		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND subscription_id IS NULL", a.TransactionID).
			Update("subscription_id", a.Subscription.ID)
		if res.Error != nil {
			return fmt.Errorf("link transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyProvisioned
		}
		return nil
	})
}

func (r *gormRepository) ListUnprovisioned(ctx context.Context, limit int) ([]*models.Transaction, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND subscription_id IS NULL", types.TransactionStatusCaptured).
		Order("captured_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*models.Transaction
	err := q.Find(&out).Error
	return out, err
}

func (r *gormRepository) SaveNotificationLog(ctx context.Context, l *models.PaymentNotificationLog) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *gormRepository) SaveAuditLog(ctx context.Context, l *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *gormRepository) SaveSubscriptionLog(ctx context.Context, l *models.SubscriptionLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *gormRepository) SaveTransactionLog(ctx context.Context, l *models.TransactionLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}
