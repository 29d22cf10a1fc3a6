// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/handlers"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
)

// Handlers groups the endpoint handlers mounted under /api/v1
type Handlers struct {
	Cart    *handlers.CartHandler
	Order   *handlers.OrderHandler
	Payment *handlers.PaymentHandler
	Product *handlers.ProductHandler
	Invoice *handlers.InvoiceHandler
}

// SetupProductRoutes sets up public catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, h Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)
		products.GET("/slug/:slug", h.Product.GetProductBySlug)
	}
}

// SetupCartRoutes sets up cart routes
func SetupCartRoutes(rg *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	cart := rg.Group("/cart")
	cart.Use(auth)
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("", h.Cart.AddToCart)
		cart.PUT("/:productId", h.Cart.UpdateCartItem)
		cart.DELETE("/:productId", h.Cart.RemoveFromCart)
		cart.DELETE("", h.Cart.ClearCart)
	}
}

// SetupOrderRoutes sets up customer order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	orders := rg.Group("/orders")
	orders.Use(auth)
	{
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("/:id/cancel", h.Order.CancelOrder)
		orders.GET("/:id/invoice", h.Invoice.GenerateInvoice)
		orders.GET("/:id/invoice/data", h.Invoice.GetInvoiceData)
	}
}

// SetupPaymentRoutes sets up payment routes. The webhook is authenticated
// by its signature, not by a user token.
func SetupPaymentRoutes(rg *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	payments := rg.Group("/payments")
	payments.POST("/webhook", h.Payment.Webhook)

	protected := payments.Group("")
	protected.Use(auth)
	{
		protected.POST("/create-order", h.Payment.CreatePaymentOrder)
		protected.POST("/verify", h.Payment.VerifyPayment)
		protected.POST("/failure", h.Payment.PaymentFailure)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(auth, middleware.AdminMiddleware())
	{
		admin.POST("/products", h.Product.CreateProduct)
		admin.PUT("/products/:id", h.Product.UpdateProduct)

		admin.GET("/orders", h.Order.AdminListOrders)
		admin.GET("/orders/:id", h.Order.GetOrder)
		admin.PUT("/orders/:id/status", h.Order.UpdateOrderStatus)
		admin.PUT("/orders/:id/tracking", h.Order.AddTracking)
		admin.POST("/orders/:id/refund", h.Payment.RefundOrder)
	}
}

// SetupRoutes mounts every route group on rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	SetupProductRoutes(rg, h)
	SetupCartRoutes(rg, h, auth)
	SetupOrderRoutes(rg, h, auth)
	SetupPaymentRoutes(rg, h, auth)
	SetupAdminRoutes(rg, h, auth)
}
