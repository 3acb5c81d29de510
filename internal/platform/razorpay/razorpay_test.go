package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		var in OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, int64(44910), in.Amount)
		assert.Equal(t, 1, in.PaymentCapture)
		assert.Equal(t, "u1", in.Notes["userid"])

		_ = json.NewEncoder(w).Encode(Order{ID: "order_abc", Amount: in.Amount, Currency: in.Currency, Receipt: in.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := NewClient("rzp_key", "rzp_secret", srv.URL+"/", time.Second)
	o, err := c.CreateOrder(context.Background(), &OrderRequest{
		Amount: 44910, Currency: "INR", Receipt: "receipt_1", PaymentCapture: 1,
		Notes: map[string]string{"userid": "u1"},
	})
	require.NoError(t, err)
	require.Equal(t, "order_abc", o.ID)
	require.Equal(t, "rzp_key", c.KeyID())
}

func TestClientCreateOrderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`))
	}))
	defer srv.Close()

	c := NewClient("k", "s", srv.URL, time.Second)
	_, err := c.CreateOrder(context.Background(), &OrderRequest{Amount: 1, Currency: "INR"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "amount too low")
}

func TestClientCreateOrderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient("k", "s", srv.URL, 20*time.Millisecond)
	_, err := c.CreateOrder(context.Background(), &OrderRequest{Amount: 100, Currency: "INR"})
	require.Error(t, err)
}

func TestSimulatedGateway(t *testing.T) {
	g := NewSimulated(zap.NewNop().Sugar())
	a, err := g.CreateOrder(context.Background(), &OrderRequest{Amount: 100, Currency: "INR"})
	require.NoError(t, err)
	b, err := g.CreateOrder(context.Background(), &OrderRequest{Amount: 100, Currency: "INR"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Contains(t, a.ID, "order_sim_")
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := Sign("whsec", body)

	require.NoError(t, VerifySignature("whsec", body, sig))
	require.ErrorIs(t, VerifySignature("whsec", body, "deadbeef"), ErrInvalidSignature)
	require.ErrorIs(t, VerifySignature("other", body, sig), ErrInvalidSignature)
	require.ErrorIs(t, VerifySignature("whsec", body, ""), ErrMissingSignature)
	require.ErrorIs(t, VerifySignature("", body, sig), ErrMissingSecret)
}

func TestParseWebhookNotes(t *testing.T) {
	withNotes := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","notes":{"action":"upgrade","userid":"u1"}}}}}`)
	env, err := ParseWebhook(withNotes)
	require.NoError(t, err)
	require.Equal(t, "payment.captured", env.Event)
	require.Equal(t, "pay_1", env.Payload.Payment.Entity.ID)
	require.Equal(t, "order_1", env.Payload.Payment.Entity.OrderID)
	require.Equal(t, "upgrade", env.Payload.Payment.Entity.Note("action"))

	emptyNotes := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","notes":[]}}}}`)
	env, err = ParseWebhook(emptyNotes)
	require.NoError(t, err)
	require.Empty(t, env.Payload.Payment.Entity.Note("action"))

	_, err = ParseWebhook([]byte(`not json`))
	require.Error(t, err)
}
