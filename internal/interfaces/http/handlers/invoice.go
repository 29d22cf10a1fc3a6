// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/pkg/pdf"
)

// InvoiceRenderer turns an order into an invoice document
type InvoiceRenderer interface {
	Data(o *order.Order) pdf.InvoiceData
	GenerateInvoice(o *order.Order) ([]byte, error)
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	orderService *order.Service
	renderer     InvoiceRenderer
	errors       *response.Writer
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, renderer InvoiceRenderer, errors *response.Writer) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		renderer:     renderer,
		errors:       errors,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	pdfBytes, err := h.renderer.GenerateInvoice(o)
	if err != nil {
		h.errors.Error(c, fmt.Errorf("failed to generate invoice for order %d: %w", o.ID, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GetInvoiceData handles GET /orders/:id/invoice/data for frontend preview
func (h *InvoiceHandler) GetInvoiceData(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}
	response.OK(c, "Invoice data retrieved successfully", h.renderer.Data(o))
}

func (h *InvoiceHandler) loadOrder(c *gin.Context) (*order.Order, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return nil, false
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		h.errors.Error(c, err)
		return nil, false
	}
	return o, true
}
