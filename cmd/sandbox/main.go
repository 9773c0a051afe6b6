package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/infrastructure/config"
	"github.com/storefront/client/internal/infrastructure/logger"
	"github.com/storefront/client/internal/infrastructure/telemetry"
	"github.com/storefront/client/internal/interfaces/sandbox"
)

func main() {
	flags := pflag.NewFlagSet("sandbox", pflag.ExitOnError)
	flags.String("sandbox-port", "", "Port to listen on (default 8000)")
	flags.Int("fail-first", 0, "Fail the first N API requests with 503")
	flags.Int("seed-products", 0, "Number of generated products (default 24)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (json, console)")
	seed := flags.Uint64("seed", 42, "Seed for the generated catalog")
	adminEmail := flags.String("admin-email", "admin@example.com", "Email of the seeded admin account")
	adminPassword := flags.String("admin-password", "Admin123", "Password of the seeded admin account")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.ProductionConfig()
	if flags.Changed("log-level") || os.Getenv("STOREFRONT_LOG_LEVEL") != "" {
		logCfg.Level = cfg.Log.Level
	}
	if flags.Changed("log-format") || os.Getenv("STOREFRONT_LOG_FORMAT") != "" {
		logCfg.Format = cfg.Log.Format
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	// The provider becomes the global one, which the sandbox picks up for
	// its request and SQL spans.
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       sandbox.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	sc := sandbox.DefaultConfig()
	sc.Addr = ":" + cfg.Sandbox.Port
	sc.JWTSecret = cfg.Sandbox.JWTSecret
	sc.DSN = cfg.Sandbox.DSN
	sc.SeedProducts = cfg.Sandbox.SeedProducts
	sc.FailFirst = cfg.Sandbox.FailFirst
	sc.Seed = *seed
	sc.AdminEmail = *adminEmail
	sc.AdminPassword = *adminPassword
	sc.LogLevel = logCfg.Level

	srv, err := sandbox.New(sc, log)
	if err != nil {
		log.Fatal("Failed to start sandbox", zap.Error(err))
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting sandbox",
		zap.String("addr", sc.Addr),
		zap.String("dsn", sc.DSN),
		zap.Int("fail_first", sc.FailFirst),
	)
	if err := srv.Run(ctx); err != nil {
		log.Error("Sandbox stopped with error", zap.Error(err))
		return
	}
	log.Info("Sandbox stopped")
}
