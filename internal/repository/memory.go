package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/types"
)

// Memory is a process-local Repository. Every method takes the same mutex, so
// the conditional writes behave like their SQL counterparts.
type Memory struct {
	mu            sync.Mutex
	plans         map[string]*models.Plan
	channels      map[string]*models.Channel
	subscriptions map[string]*models.Subscription
	inviteLinks   map[string]*models.InviteLink
	transactions  map[string]*models.Transaction
	byOrderID     map[string]string

	NotificationLogs []*models.PaymentNotificationLog
	AuditLogs        []*models.AuditLog
	SubscriptionLogs []*models.SubscriptionLog
	TransactionLogs  []*models.TransactionLog
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		plans:         map[string]*models.Plan{},
		channels:      map[string]*models.Channel{},
		subscriptions: map[string]*models.Subscription{},
		inviteLinks:   map[string]*models.InviteLink{},
		transactions:  map[string]*models.Transaction{},
		byOrderID:     map[string]string{},
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) GetPlan(_ context.Context, id string) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *Memory) GetChannel(_ context.Context, id string) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *ch
	return &c, nil
}

func (m *Memory) UpsertChannel(_ context.Context, c *models.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.channels[c.ID] = &cp
	return nil
}

func (m *Memory) UpsertPlan(_ context.Context, p *models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

// PutSubscription stores s as is. Used to seed state.
func (m *Memory) PutSubscription(s *models.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[s.ID] = s.Clone()
}

func (m *Memory) GetSubscription(_ context.Context, id string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Subscriptions returns a snapshot of all stored subscriptions.
func (m *Memory) Subscriptions() []*models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		out = append(out, s.Clone())
	}
	return out
}

func (m *Memory) InviteLinks() []*models.InviteLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.InviteLink, 0, len(m.inviteLinks))
	for _, l := range m.inviteLinks {
		c := *l
		out = append(out, &c)
	}
	return out
}

func (m *Memory) UpdateSubscription(_ context.Context, sub *models.Subscription, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSubscriptionLocked(sub, expectedVersion)
}

func (m *Memory) updateSubscriptionLocked(sub *models.Subscription, expectedVersion int64) error {
	cur, ok := m.subscriptions[sub.ID]
	if !ok || cur.Version != expectedVersion || cur.Status == types.SubscriptionStatusRevoked {
		return ErrConcurrentUpdate
	}
	cur.PlanID = sub.PlanID
	cur.EndDate = sub.EndDate
	cur.Status = sub.Status
	cur.Version = expectedVersion + 1
	cur.UpdatedAt = time.Now()
	sub.Version = cur.Version
	return nil
}

func (m *Memory) RevokeSubscription(_ context.Context, id string) (*models.Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subscriptions[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if cur.Status == types.SubscriptionStatusRevoked {
		return cur.Clone(), false, nil
	}
	cur.Status = types.SubscriptionStatusRevoked
	cur.Version++
	cur.UpdatedAt = time.Now()
	return cur.Clone(), true, nil
}

func (m *Memory) ListSubscriptionsForUser(_ context.Context, userID string) ([]*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Subscription
	for _, s := range m.subscriptions {
		if s.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndDate.After(out[j].EndDate)
	})
	return out, nil
}

func (m *Memory) CreateTransaction(_ context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byOrderID[t.GatewayOrderID]; dup {
		return ErrDuplicateOrder
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	m.transactions[t.ID] = t.Clone()
	m.byOrderID[t.GatewayOrderID] = t.ID
	return nil
}

// Transaction returns a copy of the transaction with the given id, or nil.
func (m *Memory) Transaction(id string) *models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[id].Clone()
}

func (m *Memory) FindPendingTransaction(_ context.Context, userID, planID, targetID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Transaction
	for _, t := range m.transactions {
		if t.UserID != userID || t.PlanID != planID || t.Status != types.TransactionStatusCreated || t.GatewayOrderID == "" {
			continue
		}
		if t.TargetID() != targetID {
			continue
		}
		if found == nil || t.CreatedAt.After(found.CreatedAt) {
			found = t
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found.Clone(), nil
}

func (m *Memory) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *Memory) ListTransactionsForUser(_ context.Context, userID string, limit int) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetTransactionByOrderID(_ context.Context, orderID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrderID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.transactions[id].Clone(), nil
}

func (m *Memory) MarkCaptured(_ context.Context, orderID, paymentID string, at time.Time) (*models.Transaction, CaptureOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrderID[orderID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	t := m.transactions[id]
	if t.Status != types.TransactionStatusCreated {
		return t.Clone(), outcomeFor(t), nil
	}
	t.Status = types.TransactionStatusCaptured
	t.GatewayPaymentID = &paymentID
	t.CapturedAt = &at
	t.UpdatedAt = time.Now()
	return t.Clone(), CaptureApplied, nil
}

func (m *Memory) MarkFailed(_ context.Context, orderID, paymentID string) (*models.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrderID[orderID]
	if !ok {
		return nil, false, ErrNotFound
	}
	t := m.transactions[id]
	if t.Status != types.TransactionStatusCreated {
		return t.Clone(), false, nil
	}
	t.Status = types.TransactionStatusFailed
	if paymentID != "" {
		t.GatewayPaymentID = &paymentID
	}
	t.UpdatedAt = time.Now()
	return t.Clone(), true, nil
}

func (m *Memory) SaveActivation(_ context.Context, a *Activation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[a.TransactionID]
	if !ok {
		return ErrNotFound
	}
	// checked up front so a rejected call leaves nothing behind
	if t.Provisioned() {
		return ErrAlreadyProvisioned
	}

	if a.Existing {
		if err := m.updateSubscriptionLocked(a.Subscription, a.ExpectedVersion); err != nil {
			return err
		}
	} else {
		now := time.Now()
		s := a.Subscription.Clone()
		s.CreatedAt, s.UpdatedAt = now, now
		m.subscriptions[s.ID] = s
		if a.InviteLink != nil {
			l := *a.InviteLink
			l.CreatedAt = now
			m.inviteLinks[l.ID] = &l
		}
	}

	subID := a.Subscription.ID
	t.SubscriptionID = &subID
	t.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) ListUnprovisioned(_ context.Context, limit int) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.Status == types.TransactionStatusCaptured && !t.Provisioned() {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return capturedAt(out[i]).Before(capturedAt(out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func capturedAt(t *models.Transaction) time.Time {
	if t.CapturedAt == nil {
		return t.UpdatedAt
	}
	return *t.CapturedAt
}

func (m *Memory) SaveNotificationLog(_ context.Context, l *models.PaymentNotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationLogs = append(m.NotificationLogs, l)
	return nil
}

func (m *Memory) SaveAuditLog(_ context.Context, l *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuditLogs = append(m.AuditLogs, l)
	return nil
}

// Audits returns a snapshot of recorded audit entries.
func (m *Memory) Audits() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AuditLog(nil), m.AuditLogs...)
}

func (m *Memory) SaveSubscriptionLog(_ context.Context, l *models.SubscriptionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubscriptionLogs = append(m.SubscriptionLogs, l)
	return nil
}

func (m *Memory) SaveTransactionLog(_ context.Context, l *models.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransactionLogs = append(m.TransactionLogs, l)
	return nil
}
