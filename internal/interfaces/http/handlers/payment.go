// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/your-org/jewelry-backend/internal/domain/payment"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"github.com/your-org/jewelry-backend/internal/pkg/validation"
)

const headerRazorpaySignature = "X-Razorpay-Signature"

// PaymentHandler handles Razorpay checkout, verification and webhooks
type PaymentHandler struct {
	paymentService *payment.Service
	validate       *validatorv10.Validate
	errors         *response.Writer
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.Service, validate *validatorv10.Validate, errors *response.Writer) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
		errors:         errors,
	}
}

// CreatePaymentOrder handles POST /payments/create-order
func (h *PaymentHandler) CreatePaymentOrder(c *gin.Context) {
	var req payment.InitiateRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.paymentService.CreateGatewayOrder(c.Request.Context(), middleware.ActorFromContext(c), req.OrderID)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Payment order created successfully", result)
}

// VerifyPayment handles POST /payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req payment.VerifyRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.paymentService.VerifyAndApply(c.Request.Context(), middleware.ActorFromContext(c), &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Payment verified successfully", result)
}

// PaymentFailure handles POST /payments/failure reported by the checkout widget
func (h *PaymentHandler) PaymentFailure(c *gin.Context) {
	var req payment.FailureRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.paymentService.RecordFailure(c.Request.Context(), middleware.ActorFromContext(c), &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Payment failure recorded", result)
}

// Webhook handles POST /payments/webhook. The signature covers the raw
// body, so it is read before any decoding.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.errors.Error(c, apperror.Validation("Unreadable webhook body"))
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader(headerRazorpaySignature)); err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Webhook processed", nil)
}

// RefundOrder handles POST /admin/orders/:id/refund. Without an amount the
// remaining balance is refunded.
func (h *PaymentHandler) RefundOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	var req payment.RefundRequest
	if err := validation.BindOptionalJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.paymentService.Refund(c.Request.Context(), middleware.ActorFromContext(c), id, req.Amount)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Refund processed successfully", result)
}
