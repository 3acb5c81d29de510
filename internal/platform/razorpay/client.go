package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/tool"
)

// OrderRequest is the body of POST /orders. Amount is in minor units.
type OrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Gateway creates payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
	KeyID() string
}

// Client talks to the Razorpay REST API with basic auth.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewClient(keyID, keySecret, baseURL string, timeout time.Duration) *Client {
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) KeyID() string { return c.keyID }

func (c *Client) CreateOrder(ctx context.Context, in *OrderRequest) (*Order, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return nil, fmt.Errorf("razorpay error: status %d, code %s: %s", resp.StatusCode, e.Error.Code, e.Error.Description)
	}

	var out Order
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w, body: %s", err, string(raw))
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay returned an order without id")
	}
	return &out, nil
}

// Simulated issues local order ids. Used when no API key is configured.
type Simulated struct {
	log *zap.SugaredLogger
}

func NewSimulated(log *zap.SugaredLogger) *Simulated { return &Simulated{log: log} }

func (s *Simulated) KeyID() string { return "rzp_simulated" }

func (s *Simulated) CreateOrder(_ context.Context, in *OrderRequest) (*Order, error) {
	o := &Order{
		ID:       "order_sim_" + tool.CompactID(),
		Entity:   "order",
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  in.Receipt,
		Status:   "created",
	}
	s.log.Infow("razorpay_order_simulated", "order_id", o.ID, "amount", o.Amount)
	return o, nil
}

// NewGateway returns the real client when credentials are configured.
func NewGateway(cfg *cfgpkg.Config, log *zap.SugaredLogger) Gateway {
	rc := cfg.Razorpay
	if rc.KeyID == "" || rc.KeySecret == "" {
		log.Warnw("razorpay credentials missing, orders are simulated")
		return NewSimulated(log)
	}
	return NewClient(rc.KeyID, rc.KeySecret, rc.BaseURL, rc.Timeout)
}

var Module = fx.Options(
	fx.Provide(NewGateway),
)
