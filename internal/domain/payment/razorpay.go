// internal/domain/payment/razorpay.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// RazorpayOrder is the gateway order a checkout is paid against
type RazorpayOrder struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status"`
	Notes      json.RawMessage `json:"notes,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// RazorpayPayment is a payment entity as delivered in webhooks
type RazorpayPayment struct {
	ID               string `json:"id"`
	Entity           string `json:"entity"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	OrderID          string `json:"order_id"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

// RazorpayRefund is the result of a refund call
type RazorpayRefund struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// GatewayOrderRequest is the body of POST /orders. Amount is in paise.
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayRefundRequest is the body of POST /payments/{id}/refund. Amount is in paise.
type GatewayRefundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayClient calls the Razorpay REST API with basic auth
type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewRazorpayClient creates a new Razorpay client
func NewRazorpayClient(cfg config.RazorpayConfig) *RazorpayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RazorpayClient{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// KeyID is the public key handed to the checkout widget
func (r *RazorpayClient) KeyID() string {
	return r.keyID
}

// CreateOrder creates order in Razorpay
func (r *RazorpayClient) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*RazorpayOrder, error) {
	var out RazorpayOrder
	if err := r.makeAPICall(ctx, http.MethodPost, "/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refund refunds amount of a captured payment
func (r *RazorpayClient) Refund(ctx context.Context, paymentID string, req GatewayRefundRequest) (*RazorpayRefund, error) {
	var out RazorpayRefund
	if err := r.makeAPICall(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// makeAPICall makes HTTP calls to Razorpay API and decodes the response into out
func (r *RazorpayClient) makeAPICall(ctx context.Context, method, endpoint string, data, out interface{}) error {
	if r.keyID == "" || r.keySecret == "" {
		return apperror.Upstream(fmt.Errorf("credentials not configured"), "Payment gateway is not configured")
	}

	var body io.Reader
	if data != nil {
		reqBody, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return apperror.Upstream(err, "Payment gateway request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperror.Upstream(err, "Payment gateway request failed")
	}

	if resp.StatusCode >= 400 {
		var apiErr razorpayError
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Description != "" {
			cause = fmt.Errorf("status %d: %s: %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
		}
		return apperror.Upstream(cause, "Payment gateway rejected the request")
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperror.Upstream(err, "Failed to parse payment gateway response")
		}
	}
	return nil
}
