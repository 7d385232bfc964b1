package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/payment"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig()
	conf.Payment.BaseURL = srv.URL
	return NewClient(conf, srv.Client())
}

func TestNewClientNotConfigured(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Payment.KeySecret = ""
	assert.Nil(t, NewClient(conf))
}

func TestCreateOrder(t *testing.T) {
	plan, _ := payment.LookupPlan(payment.PlanPro)
	order := payment.NewOrderFor(plan, &payment.Customer{Name: "Asha Rao"}, time.Unix(1714557600, 0))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)

		var got map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, float64(99900), got["amount"])
		assert.Equal(t, "INR", got["currency"])
		assert.Equal(t, "eduflick_pro_1714557600000", got["receipt"])
		notes := got["notes"].(map[string]interface{})
		assert.Equal(t, "Asha Rao", notes["customerName"])
		assert.Nil(t, notes["customerEmail"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_EKwxwAgItmmXdp","entity":"order","amount":99900,"amount_paid":0,"amount_due":99900,
			"currency":"INR","receipt":"eduflick_pro_1714557600000","offer_id":null,"status":"created","attempts":0,
			"notes":{"planId":"pro"},"created_at":1714557600}`))
	})

	got, err := client.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "order_EKwxwAgItmmXdp", got.ID)
	assert.Equal(t, int64(99900), got.AmountDue)
	assert.Equal(t, "created", got.Status)
	assert.Nil(t, got.OfferID)
	assert.Equal(t, "pro", got.Notes["planId"])
}

func TestCreateOrderUpstreamError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"described", http.StatusBadRequest, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be at least INR 1.00"}}`, "The amount must be at least INR 1.00"},
		{"undescribed", http.StatusUnauthorized, `unauthorized`, fallbackMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.CreateOrder(context.Background(), payment.NewOrder{Amount: 100, Currency: "INR"})
			upErr, ok := errors.Cause(err).(*payment.UpstreamError)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tc.status, upErr.StatusCode)
			assert.Equal(t, tc.wantMsg, upErr.Message)
		})
	}
}

func TestCreateOrderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	conf := core.NewTestConfig()
	conf.Payment.BaseURL = srv.URL
	srv.Close()

	_, err := NewClient(conf).CreateOrder(context.Background(), payment.NewOrder{Amount: 100, Currency: "INR"})
	assert.Equal(t, payment.ErrUnreachable, errors.Cause(err))
}
