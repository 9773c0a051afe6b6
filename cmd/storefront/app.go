package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/application/account"
	"github.com/storefront/client/internal/application/admin"
	"github.com/storefront/client/internal/application/checkout"
	"github.com/storefront/client/internal/application/tracking"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/cache"
	"github.com/storefront/client/internal/infrastructure/config"
	"github.com/storefront/client/internal/infrastructure/httpclient"
	"github.com/storefront/client/internal/infrastructure/metrics"
	"github.com/storefront/client/internal/infrastructure/realtime"
	"github.com/storefront/client/internal/infrastructure/session"
	"github.com/storefront/client/internal/infrastructure/storeapi"
	"github.com/storefront/client/internal/infrastructure/telemetry"
)

// app holds the wired client for one command invocation.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Collector
	tracer  *telemetry.TracerProvider
	session *session.Manager
	api     *storeapi.API
	rt      *realtime.Client
	redis   *redis.Client
	guard   shared.SubmissionGuard

	account   *account.Service
	addresses *account.Addresses
	payments  *account.Payments
	checkout  *checkout.Service
	tracking  *tracking.Service
	orders    *admin.Orders
	products  *admin.Products

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(metrics.DefaultConfig()),
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.tracer = tp
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	})

	store, err := a.sessionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = session.NewManager(store, session.WithLogger(log))
	if err := a.session.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	hc, err := httpclient.New(httpclient.Config{
		BaseURL:            cfg.API.BaseURL,
		Timeout:            cfg.API.Timeout,
		MaxRetries:         cfg.API.MaxRetries,
		RetryDelay:         cfg.API.RetryDelay,
		OverloadRetries:    httpclient.DefaultConfig().OverloadRetries,
		OverloadRetryDelay: cfg.API.OverloadRetryDelay,
		RateLimit:          cfg.API.RateLimit,
		UserAgent:          "storefront-cli/" + version,
	}, a.session,
		httpclient.WithLogger(log),
		httpclient.WithMetrics(a.metrics),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building http client: %w", err)
	}

	a.api = storeapi.New(hc,
		storeapi.WithLogger(log),
		storeapi.WithMetrics(a.metrics),
		storeapi.WithDebounceWindow(cfg.API.DebounceWindow),
		storeapi.WithTryOn(cfg.API.TryOnURL, cfg.API.TryOnTimeout),
	)
	a.onClose(a.api.Close)

	a.rt = realtime.New(realtime.Config{
		BaseURL:        cfg.API.BaseURL,
		AuthDelay:      cfg.Realtime.AuthDelay,
		MaxReconnects:  cfg.Realtime.MaxReconnects,
		ReconnectBase:  cfg.Realtime.ReconnectBase,
		ReconnectLimit: cfg.Realtime.ReconnectLimit,
		DialTimeout:    realtime.DefaultConfig().DialTimeout,
		MaxMessageSize: realtime.DefaultConfig().MaxMessageSize,
	}, a.session,
		realtime.WithLogger(log),
		realtime.WithMetrics(a.metrics),
	)

	a.guard = a.submissionGuard()
	a.onClose(func() { _ = a.guard.Close() })

	a.account = account.NewService(a.api.Auth, a.api.Security, a.session, log)
	a.addresses = account.NewAddresses(a.api.Addresses)
	a.payments = account.NewPayments(a.api.Payments)
	a.checkout = checkout.NewServiceFromAPI(a.api, a.guard,
		checkout.WithUsers(a.session),
		checkout.WithLogger(log),
		checkout.WithDuplicateTTL(cfg.Checkout.DuplicateTTL),
	)
	a.tracking = tracking.NewService(a.api.Orders, log)
	a.orders = admin.NewOrders(a.api.Admin, log)
	a.products = admin.NewProducts(a.api.Admin, log)
	return a, nil
}

// sessionStore picks the configured session persistence.
func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.Session.Store {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, a.redisConfig())
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		a.redis = client
		a.onClose(func() { _ = client.Close() })
		return session.NewRedisStore(client, a.cfg.App.Env), nil
	default:
		return session.NewFileStore(a.cfg.Session.Path), nil
	}
}

// submissionGuard shares checkout claims across processes through Redis
// when sessions live there too; a lone CLI process only needs memory.
func (a *app) submissionGuard() shared.SubmissionGuard {
	if a.redis != nil {
		return cache.NewRedisGuard(a.redis, "")
	}
	return cache.NewMemoryGuard()
}

func (a *app) redisConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Host:     a.cfg.Redis.Host,
		Port:     a.cfg.Redis.Port,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}
}

// dashboard builds an admin dashboard bound to the realtime client.
func (a *app) dashboard(opts ...admin.DashboardOption) *admin.Dashboard {
	opts = append([]admin.DashboardOption{admin.WithDashboardLogger(a.log)}, opts...)
	return admin.NewDashboard(a.api.Admin, a.rt, opts...)
}

// requireAdmin fails fast for commands the backend would reject anyway.
func (a *app) requireAdmin() error {
	if !a.session.IsAuthenticated() {
		return shared.ErrNotAuthenticated
	}
	if a.session.Role() != identity.RoleAdmin {
		return shared.ErrForbidden
	}
	return nil
}

// serveMetrics exposes the collector until the returned func is called.
func (a *app) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("Metrics endpoint stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.log.Info("Serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
