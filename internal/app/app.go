// Package app assembles the services, stores and HTTP router shared by the
// server and serverless entry points.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/domain/cart"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/domain/payment"
	"github.com/your-org/jewelry-backend/internal/domain/pricing"
	"github.com/your-org/jewelry-backend/internal/domain/product"
	"github.com/your-org/jewelry-backend/internal/domain/user"
	"github.com/your-org/jewelry-backend/internal/infrastructure/database/mongo"
	"github.com/your-org/jewelry-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/jewelry-backend/internal/infrastructure/database/redis"
	"github.com/your-org/jewelry-backend/internal/infrastructure/queue"
	apphttp "github.com/your-org/jewelry-backend/internal/interfaces/http"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/handlers"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/routes"
	"github.com/your-org/jewelry-backend/internal/pkg/auth"
	"github.com/your-org/jewelry-backend/internal/pkg/cache"
	"github.com/your-org/jewelry-backend/internal/pkg/pdf"
	"github.com/your-org/jewelry-backend/internal/pkg/validation"
	"gorm.io/gorm"
)

// Options tune the build for an entry point
type Options struct {
	// Migrate runs auto-migrations, and seeding in development
	Migrate        bool
	RequestTimeout time.Duration
}

// App is the assembled application
type App struct {
	Router *gin.Engine
	Carts  *cart.Service

	log      logrus.FieldLogger
	interval time.Duration
	closers  []func(context.Context) error
}

// Build connects every store and wires the services into a router
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger, opts Options) (*App, error) {
	a := &App{log: log, interval: cfg.Cart.PurgeInterval}
	ok := false
	defer func() {
		if !ok {
			a.Close(context.Background())
		}
	}()

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return db.Close() })
	gormDB := db.GetDB()

	if opts.Migrate {
		if err := migrate(cfg, gormDB, log); err != nil {
			return nil, err
		}
	}

	checks := map[string]handlers.Checker{"database": db}

	var redisClient *goredis.Client
	var appCache cache.Cache
	if cfg.RedisEnabled() {
		rc, err := redis.NewConnection(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-process cache")
		} else {
			a.onClose(func(context.Context) error { return rc.Close() })
			redisClient = rc.GetClient()
			appCache = cache.NewRedisCache(redisClient, cfg.App.Name)
			checks["cache"] = rc
		}
	}
	if appCache == nil {
		appCache = cache.NewMemoryCache(cfg.Cache.MemoryMaxEntries)
	}
	loader := cache.NewLoader(appCache, log)

	calc := pricing.NewCalculator(cfg.Pricing.TaxRate, cfg.Pricing.ShippingFee, cfg.Pricing.FreeShippingThreshold)
	validate := validation.New()
	errWriter := &response.Writer{Logger: log, ExposeStack: cfg.ExposeStack()}

	products := product.NewService(postgres.NewProductRepository(gormDB), loader, cfg.Cache.ProductTTL, log)
	users := user.NewDirectory(postgres.NewUserRepository(gormDB), loader, cfg.Cache.UserTTL)

	cartRepo, err := a.cartRepository(ctx, cfg, gormDB, checks)
	if err != nil {
		return nil, err
	}
	carts := cart.NewService(cartRepo, products, calc, cart.Options{
		Currency:        cfg.Pricing.Currency,
		TTL:             cfg.Cart.TTL,
		MaxLineQuantity: cfg.Cart.MaxLineQuantity,
	}, log)
	a.Carts = carts

	events, err := queue.NewPublisher(ctx, cfg.External.Queue)
	if err != nil {
		return nil, err
	}

	orderRepo := postgres.NewOrderRepository(gormDB)
	uow := postgres.NewUnitOfWork(gormDB)

	payments := payment.NewService(payment.Dependencies{
		Orders:     orderRepo,
		UnitOfWork: uow,
		Gateway:    payment.NewRazorpayClient(cfg.External.Razorpay),
		Carts:      carts,
		Events:     events,
		Logger:     log,
	}, payment.Options{
		KeySecret:     cfg.External.Razorpay.KeySecret,
		WebhookSecret: cfg.External.Razorpay.WebhookSecret,
	})

	orders := order.NewService(order.Dependencies{
		Orders:     orderRepo,
		UnitOfWork: uow,
		Carts:      carts,
		Products:   products,
		Refunds:    payments,
		Events:     events,
		Pricing:    calc,
		Logger:     log,
	}, order.Options{
		NumberPrefix: cfg.Order.NumberPrefix,
		NumberWidth:  cfg.Order.NumberWidth,
		Currency:     cfg.Pricing.Currency,
	})

	router, err := apphttp.NewRouter(cfg, apphttp.RouterOptions{
		Logger: log,
		Redis:  redisClient,
		Health: handlers.NewHealthHandler(checks, cfg.App.Version, cfg.App.Environment),
		Handlers: routes.Handlers{
			Cart:    handlers.NewCartHandler(carts, validate, errWriter),
			Order:   handlers.NewOrderHandler(orders, validate, errWriter),
			Payment: handlers.NewPaymentHandler(payments, validate, errWriter),
			Product: handlers.NewProductHandler(products, validate, errWriter),
			Invoice: handlers.NewInvoiceHandler(orders, pdf.NewService(cfg.Company), errWriter),
		},
		Auth:           middleware.AuthMiddleware(auth.NewJWTManager(cfg), users, log),
		RequestTimeout: opts.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	a.Router = router

	ok = true
	return a, nil
}

func (a *App) cartRepository(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, checks map[string]handlers.Checker) (cart.Repository, error) {
	switch cfg.Cart.Store {
	case "", "postgres":
		return postgres.NewCartRepository(gormDB), nil
	case "mongo":
		mdb, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		repo := mongo.NewCartRepository(mdb)
		a.onClose(repo.Close)
		if err := repo.CreateIndexes(ctx); err != nil {
			return nil, err
		}
		checks["mongo"] = repo
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown cart store %q", cfg.Cart.Store)
	}
}

func migrate(cfg *config.Config, db *gorm.DB, log logrus.FieldLogger) error {
	migration := postgres.NewMigration(db, log)
	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("index creation failed")
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.WithError(err).Warn("data seeding failed")
		}
		migration.GetTableInfo()
	}
	return nil
}

// RunCartJanitor purges expired carts every purge interval until ctx ends
func (a *App) RunCartJanitor(ctx context.Context) {
	if a.interval <= 0 {
		return
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Carts.PurgeExpired(ctx); err != nil {
				a.log.WithError(err).Warn("cart purge failed")
			}
		}
	}
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of opening
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
