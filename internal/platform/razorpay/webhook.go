package razorpay

import (
	"encoding/json"
	"fmt"
)

// WebhookEnvelope is the subset of a Razorpay webhook body the service reads.
type WebhookEnvelope struct {
	Event     string `json:"event"`
	AccountID string `json:"account_id"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	ErrorReason string `json:"error_reason"`
	// Notes is an object, or an empty array when the order had no notes.
	Notes json.RawMessage `json:"notes"`
}

// Note returns the note stored under key, or "".
func (p *PaymentEntity) Note(key string) string {
	if len(p.Notes) == 0 || p.Notes[0] != '{' {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(p.Notes, &m); err != nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func ParseWebhook(body []byte) (*WebhookEnvelope, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse razorpay webhook: %w", err)
	}
	return &env, nil
}
