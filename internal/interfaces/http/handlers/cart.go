// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/your-org/jewelry-backend/internal/domain/cart"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/pkg/validation"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	validate    *validatorv10.Validate
	errors      *response.Writer
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, validate *validatorv10.Validate, errors *response.Writer) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validate:    validate,
		errors:      errors,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	result, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Cart retrieved successfully", result)
}

// AddToCart handles POST /cart
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req cart.AddToCartRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.cartService.AddItem(c.Request.Context(), userID, &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Item added to cart successfully", result)
}

// UpdateCartItem handles PUT /cart/:productId. A quantity of zero or less removes the line.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	productID, err := parseID(c, "productId")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	var req cart.UpdateCartItemRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.cartService.UpdateItemQuantity(c.Request.Context(), userID, productID, req.VariantID, *req.Quantity)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Cart item updated successfully", result)
}

// RemoveFromCart handles DELETE /cart/:productId?variantId=
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	productID, err := parseID(c, "productId")
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	variantID, err := parseOptionalID(c, "variantId")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.cartService.RemoveItem(c.Request.Context(), userID, productID, variantID)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Item removed from cart successfully", result)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Cart cleared successfully", nil)
}
