// internal/interfaces/http/handlers/product.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/your-org/jewelry-backend/internal/domain/product"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/pkg/validation"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	productService *product.Service
	validate       *validatorv10.Validate
	errors         *response.Writer
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service, validate *validatorv10.Validate, errors *response.Writer) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validate:       validate,
		errors:         errors,
	}
}

// GetProducts handles GET /products. Only active products are listed.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	result, err := h.productService.ListProducts(c.Request.Context(), product.ListFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		Search:     c.Query("search"),
		ActiveOnly: true,
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 20),
	})
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Products retrieved successfully", result)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Product retrieved successfully", result)
}

// GetProductBySlug handles GET /products/slug/:slug
func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	result, err := h.productService.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Product retrieved successfully", result)
}

// CreateProduct handles POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req product.ProductRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.Created(c, "Product created successfully", result)
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.errors.Error(c, err)
		return
	}

	var req product.ProductRequest
	if err := validation.BindJSON(c, &req, h.validate); err != nil {
		h.errors.Error(c, err)
		return
	}

	result, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.errors.Error(c, err)
		return
	}
	response.OK(c, "Product updated successfully", result)
}
