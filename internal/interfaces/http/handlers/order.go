// internal/interfaces/http/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/pkg/validation"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	validate     *validatorv10.Validate
	errors       *response.Writer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, validate *validatorv10.Validate, errors *response.Writer) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		validate:     validate,
		errors:       errors,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	created, err := h.orderService.CreateFromCart(c.Request.Context(), middleware.ActorFromContext(c), middleware.GetUserEmailFromContext(c), &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.Created(c, "Order created successfully", created)
}

// GetOrders handles GET /orders for the caller's own orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	filter := listFilter(c)
	filter.UserID = &actor.UserID

	result, err := h.orderService.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Orders retrieved successfully", result)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.orderService.GetOrder(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Order retrieved successfully", result)
}

// CancelOrder handles PUT /orders/:id/cancel. The body is optional.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	var req order.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := validation.BindJSON(c, &req, h.validate); err != nil {
			h.errors.Error(c, err)
			return
		}
	}

	result, err := h.orderService.Cancel(c.Request.Context(), middleware.ActorFromContext(c), id, req.Reason)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Order cancelled successfully", result)
}

// AdminListOrders handles GET /admin/orders
func (h *OrderHandler) AdminListOrders(c *gin.Context) {
	filter := listFilter(c)
	userID, err := parseOptionalID(c, "userId")
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	filter.UserID = userID

	result, err := h.orderService.ListOrders(c.Request.Context(), middleware.ActorFromContext(c), filter)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Orders retrieved successfully", result)
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	var req order.UpdateStatusRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.orderService.UpdateStatus(c.Request.Context(), middleware.ActorFromContext(c), id, &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Order status updated successfully", result)
}

// AddTracking handles PUT /admin/orders/:id/tracking
func (h *OrderHandler) AddTracking(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	var req order.TrackingRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.orderService.AddTracking(c.Request.Context(), middleware.ActorFromContext(c), id, &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Tracking updated successfully", result)
}

func listFilter(c *gin.Context) order.ListFilter {
	return order.ListFilter{
		Status:        order.OrderStatus(c.Query("status")),
		PaymentStatus: order.PaymentStatus(c.Query("paymentStatus")),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 20),
	}
}
