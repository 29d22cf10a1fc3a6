package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RazorpayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRazorpayClient(config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL + "/"})
}

func TestRazorpayClient_CreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var req GatewayOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(112900), req.Amount)
		assert.Equal(t, "JWL000001", req.Receipt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":112900,"currency":"INR","receipt":"JWL000001","status":"created","notes":[]}`))
	})

	rp, err := client.CreateOrder(context.Background(), GatewayOrderRequest{Amount: 112900, Currency: "INR", Receipt: "JWL000001"})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", rp.ID)
	assert.Equal(t, "created", rp.Status)
}

func TestRazorpayClient_Refund(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_1/refund", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"rfnd_1","entity":"refund","amount":5000,"payment_id":"pay_1","status":"processed"}`))
	})

	rf, err := client.Refund(context.Background(), "pay_1", GatewayRefundRequest{Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", rf.ID)
	assert.Equal(t, int64(5000), rf.Amount)
}

func TestRazorpayClient_ErrorResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
	})

	_, err := client.CreateOrder(context.Background(), GatewayOrderRequest{Amount: 10, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")
}

func TestRazorpayClient_MissingCredentials(t *testing.T) {
	client := NewRazorpayClient(config.RazorpayConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := client.CreateOrder(context.Background(), GatewayOrderRequest{Amount: 100})
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestSignatures(t *testing.T) {
	sig := Sign("secret", []byte("order_1|pay_1"))
	assert.Len(t, sig, 64)

	assert.True(t, VerifyPaymentSignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifyPaymentSignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifyPaymentSignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifyPaymentSignature("", "order_1", "pay_1", Sign("", []byte("order_1|pay_1"))))

	body := []byte(`{"event":"payment.captured"}`)
	assert.True(t, VerifyWebhookSignature("whsec", body, Sign("whsec", body)))
	assert.False(t, VerifyWebhookSignature("whsec", append(body, ' '), Sign("whsec", body)))
	assert.False(t, VerifyWebhookSignature("whsec", body, ""))
}
