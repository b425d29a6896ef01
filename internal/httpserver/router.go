package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	messagesvc "storefront/internal/service/message"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
)

type OrderService interface {
	Create(ctx context.Context, caller domain.Caller, in ordersvc.CreateInput) (*domain.Order, error)
	ListAll(ctx context.Context, caller domain.Caller) ([]domain.Order, error)
	ListMine(ctx context.Context, caller domain.Caller) ([]domain.Order, error)
	Get(ctx context.Context, caller domain.Caller, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, caller domain.Caller, id string, in ordersvc.UpdateStatusInput) (*domain.Order, error)
	Delete(ctx context.Context, caller domain.Caller, id string) error
}

type UserService interface {
	Signup(ctx context.Context, in usersvc.SignupInput) (*usersvc.Session, error)
	Login(ctx context.Context, in usersvc.LoginInput) (*usersvc.Session, error)
	ResolveCaller(ctx context.Context, token string) (domain.Caller, error)
	ForgotPassword(ctx context.Context, in usersvc.ForgotPasswordInput) error
	ResetPassword(ctx context.Context, in usersvc.ResetPasswordInput) error
}

type ProductService interface {
	List(ctx context.Context, category string) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, caller domain.Caller, in productsvc.Input) (*domain.Product, error)
	Update(ctx context.Context, caller domain.Caller, id string, in productsvc.Input) (*domain.Product, error)
	Delete(ctx context.Context, caller domain.Caller, id string) error
}

type MessageService interface {
	Submit(ctx context.Context, in messagesvc.SubmitInput) (*domain.Message, error)
	ListAll(ctx context.Context, caller domain.Caller) ([]domain.Message, error)
	Delete(ctx context.Context, caller domain.Caller, id string) error
}

// Deps carries the services the router dispatches to.
type Deps struct {
	Orders   OrderService
	Users    UserService
	Products ProductService
	Messages MessageService
	// Metrics may be nil, in which case nothing is recorded and /metrics
	// answers 404.
	Metrics            *metrics.Metrics
	CORSAllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *slog.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Orders == nil || deps.Users == nil || deps.Products == nil || deps.Messages == nil {
		return nil, errors.New("httpserver: orders, users, products and messages services are required")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		requestLogger(logger),
		gin.CustomRecovery(recoveryHandler),
		deps.Metrics.Middleware(),
		cors.New(corsConfig(deps.CORSAllowedOrigins)),
	)

	router.GET("/", welcomeHandler)
	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	h := &handlers{
		orders:   deps.Orders,
		users:    deps.Users,
		products: deps.Products,
		messages: deps.Messages,
		metrics:  deps.Metrics,
	}
	authed := authMiddleware(deps.Users)

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", h.signup)
	auth.POST("/login", h.login)
	auth.POST("/forgot-password", h.forgotPassword)
	auth.POST("/reset-password", h.resetPassword)

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.POST("", authed, adminOnly, h.createProduct)
	products.PUT("/:id", authed, adminOnly, h.updateProduct)
	products.DELETE("/:id", authed, adminOnly, h.deleteProduct)

	orders := api.Group("/orders", authed)
	orders.POST("", h.createOrder)
	orders.GET("", adminOnly, h.listOrders)
	orders.GET("/myorders", h.myOrders)
	orders.GET("/:id", h.getOrder)
	orders.PUT("/:id", adminOnly, h.updateOrder)
	orders.DELETE("/:id", adminOnly, h.deleteOrder)

	messages := api.Group("/messages")
	messages.POST("", h.createMessage)
	messages.GET("", authed, adminOnly, h.listMessages)
	messages.DELETE("/:id", authed, adminOnly, h.deleteMessage)

	api.POST("/payment/process", authed, h.processPayment)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
