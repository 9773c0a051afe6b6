// Package sandbox is a small reference backend implementing the part of
// the storefront REST and WebSocket contract the client uses. It exists
// for local development and end-to-end tests; it is not a production
// backend.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/client/internal/infrastructure/logger"
)

// Config controls the sandbox server.
type Config struct {
	Addr           string
	JWTSecret      string
	TokenTTL       time.Duration
	DSN            string
	SeedProducts   int
	Seed           uint64
	AdminEmail     string
	AdminPassword  string
	// FailFirst makes the first N API requests fail with FailStatus.
	FailFirst      int
	FailStatus     int
	PingInterval   time.Duration
	StatsInterval  time.Duration
	LogLevel       string
	// TracerProvider receives HTTP and SQL spans. Nil uses the global one.
	TracerProvider trace.TracerProvider
}

// ServiceName names the sandbox in traces.
const ServiceName = "storefront-sandbox"

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8000",
		JWTSecret:     "sandbox-secret",
		TokenTTL:      24 * time.Hour,
		DSN:           InMemoryDSN,
		SeedProducts:  48,
		Seed:          42,
		AdminEmail:    "admin@example.com",
		AdminPassword: "Admin123",
		FailStatus:    http.StatusServiceUnavailable,
		PingInterval:  30 * time.Second,
		StatsInterval: 15 * time.Second,
		LogLevel:      "warn",
	}
}

// Server is the sandbox HTTP server.
type Server struct {
	cfg    Config
	db     *gorm.DB
	log    *zap.Logger
	tokens *TokenIssuer
	hub    *Hub
	router *gin.Engine

	failures  atomic.Int64
	startedAt time.Time
}

// New opens the database, seeds it and builds the router.
func New(cfg Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("sandbox: jwt secret is required")
	}
	if cfg.FailStatus == 0 {
		cfg.FailStatus = http.StatusServiceUnavailable
	}
	log = log.Named("sandbox")

	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	db, err := OpenDB(cfg.DSN, log, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	err = db.Use(otelgorm.NewPlugin(
		otelgorm.WithTracerProvider(cfg.TracerProvider),
		otelgorm.WithDBName("sandbox"),
		otelgorm.WithoutQueryVariables(),
	))
	if err != nil {
		return nil, fmt.Errorf("registering sql tracing: %w", err)
	}
	n, err := SeedProducts(db, cfg.SeedProducts, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if cfg.AdminEmail != "" {
		if _, err := EnsureUser(db, cfg.AdminEmail, cfg.AdminPassword, "admin"); err != nil {
			return nil, err
		}
	}
	log.Info("Sandbox ready", zap.Int("seeded_products", n), zap.String("admin", cfg.AdminEmail))

	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	s := &Server{
		cfg:    cfg,
		db:     db,
		log:    log,
		tokens: tokens,
		hub:    NewHub(tokens, log),

		startedAt: time.Now(),
	}
	s.failures.Store(int64(cfg.FailFirst))
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// DB exposes the database, mainly for tests.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bg, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(bg, s.cfg.PingInterval)
	go s.pushStats(bg, s.cfg.StatsInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Sandbox listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("sandbox server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down sandbox")
	s.hub.Close()
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sandbox shutdown: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Server) Close() error {
	s.hub.Close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Server) pushStats(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if s.hub.Clients() == 0 {
				continue
			}
			summary, err := s.statsSummary(ctx)
			if err != nil {
				s.log.Warn("stats push failed", zap.Error(err))
				continue
			}
			s.hub.Broadcast("stats_update", summary)
		}
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		otelgin.Middleware(ServiceName, otelgin.WithTracerProvider(s.cfg.TracerProvider)),
		logger.Recovery(s.log),
		logger.GinMiddleware(s.log),
		s.injectFaults(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ws/:channel", s.serveWS)

	auth := r.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/register", s.register)
	auth.GET("/me", s.requireUser, s.me)
	auth.PUT("/me", s.requireUser, s.updateMe)
	auth.POST("/refresh-token", s.requireUser, s.refresh)

	r.GET("/products", s.listProducts)
	r.GET("/products/featured/", s.featuredProducts)
	r.GET("/products/:id", s.getProduct)

	orders := r.Group("/orders", s.requireUser)
	orders.GET("/cart/", s.getCart)
	orders.POST("/cart/add/", s.addToCart)
	orders.PUT("/cart/update/", s.updateCart)
	orders.DELETE("/cart/remove/", s.removeFromCart)
	orders.GET("/", s.listOrders)
	orders.POST("/", s.createOrder)
	orders.GET("/by-number/:number", s.getOrderByNumber)
	orders.GET("/:id", s.getOrder)
	orders.PUT("/:id", s.requireAdmin, s.updateOrder)

	addresses := r.Group("/addresses", s.requireUser)
	addresses.GET("/", s.listAddresses)
	addresses.POST("/", s.createAddress)
	addresses.PUT("/:id", s.updateAddress)
	addresses.PUT("/:id/default", s.setDefaultAddress)
	addresses.DELETE("/:id", s.deleteAddress)

	payments := r.Group("/payments", s.requireUser)
	payments.GET("/", s.listPayments)
	payments.POST("/", s.createPayment)
	payments.PUT("/:id/default", s.setDefaultPayment)
	payments.DELETE("/:id", s.deletePayment)

	admin := r.Group("/admin", s.requireUser, s.requireAdmin)
	admin.GET("/dashboard/stats", s.dashboardStats)
	admin.GET("/system/status", s.systemStatus)
	admin.GET("/stats/orders", s.orderStats)
	admin.GET("/orders", s.adminListOrders)
	admin.PATCH("/orders/bulk-status", s.bulkOrderStatus)
	admin.GET("/products", s.listProducts)
	admin.PUT("/products/:id/status", s.setProductStatus)

	return r
}

// injectFaults fails the first FailFirst API requests, leaving health
// checks and sockets alone.
func (s *Server) injectFaults() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == "/health" || strings.HasPrefix(p, "/ws/") {
			c.Next()
			return
		}
		if s.failures.Load() > 0 && s.failures.Add(-1) >= 0 {
			s.log.Debug("injecting failure", zap.String("path", p), zap.Int("status", s.cfg.FailStatus))
			c.AbortWithStatusJSON(s.cfg.FailStatus, gin.H{"detail": "Injected failure"})
			return
		}
		c.Next()
	}
}

func (s *Server) serveWS(c *gin.Context) {
	if c.Param("channel") != DashboardChannel {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown channel"})
		return
	}
	s.hub.ServeHTTP(c.Writer, c.Request)
}
