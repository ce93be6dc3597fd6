// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelamos/scribe/internal/admin"
	"github.com/angelamos/scribe/internal/auth"
	"github.com/angelamos/scribe/internal/catalog"
	"github.com/angelamos/scribe/internal/challenge"
	"github.com/angelamos/scribe/internal/config"
	"github.com/angelamos/scribe/internal/core"
	"github.com/angelamos/scribe/internal/generation"
	"github.com/angelamos/scribe/internal/health"
	"github.com/angelamos/scribe/internal/middleware"
	"github.com/angelamos/scribe/internal/migrations"
	"github.com/angelamos/scribe/internal/onboarding"
	"github.com/angelamos/scribe/internal/plan"
	"github.com/angelamos/scribe/internal/provider"
	"github.com/angelamos/scribe/internal/server"
	"github.com/angelamos/scribe/internal/sms"
	"github.com/angelamos/scribe/internal/user"
)

const (
	drainDelay      = 5 * time.Second
	janitorInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if err := migrations.Up(ctx, db.DB.DB); err != nil {
		return err
	}
	logger.Info("migrations applied")

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	clock := core.SystemClock{}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	if cfg.Bootstrap.AdminEmail != "" {
		if err := userSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			return err
		}
	}

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	smsDispatcher := sms.NewDispatcher(sms.New(cfg.SMS, logger), cfg.SMS, logger)
	logger.Info("sms transport configured", "driver", cfg.SMS.Driver)

	challengeMgr := challenge.NewManager(
		challenge.NewRepository(db.DB),
		clock,
		cfg.OTP,
		smsDispatcher,
		logger,
	)

	onboardingSvc := onboarding.NewService(
		userRepo,
		onboarding.NewTxRegistrar(db.DB),
		challengeMgr,
		authSvc,
		clock,
		logger,
	)
	onboardingHandler := onboarding.NewHandler(onboardingSvc)

	planRepo := plan.NewRepository(db.DB)
	planSvc := plan.NewService(db.DB, planRepo)
	planHandler := plan.NewHandler(planSvc)

	catalogRepo := catalog.NewRepository(db.DB)
	catalogCache := catalog.NewCache(
		catalogRepo,
		catalog.NewRedisKV(redis.Client),
		cfg.Catalog.CacheTTL,
		logger,
	)
	catalogHandler := catalog.NewHandler(catalog.NewService(db.DB, catalogRepo, catalogCache))

	genProvider, err := provider.New(ctx, cfg.Generation)
	if err != nil {
		return err
	}
	logger.Info("generation provider configured", "provider", genProvider.Name())

	historyRepo := generation.NewRepository(db.DB)
	generationSvc := generation.NewService(
		historyRepo,
		planRepo,
		plan.NewLedger(planRepo),
		catalogCache,
		genProvider,
		generation.NewTxRecorder(db.DB),
		cfg.Generation,
		logger,
	)
	generationHandler := generation.NewHandler(generationSvc)

	healthHandler := health.NewHandler(
		health.Ping("database", db),
		health.Ping("redis", redis),
		health.Probe{
			Name:     "default_plan",
			Optional: true,
			Check: func(ctx context.Context) error {
				_, err := planRepo.GetDefault(ctx)
				return err
			},
		},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Users:       userSvc.CountUsers,
		Generations: generationSvc.Count,
		QuotaUsed:   planSvc.TotalUsed,
		Active:      authSvc.CountActiveSessions,
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		Sessions:    authSvc,
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go auth.NewJanitor(authRepo, clock, janitorInterval, logger).Run(janitorCtx)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	otpLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.RateLimit.OTPRequests, cfg.RateLimit.OTPBurst),
		KeyFunc:  middleware.KeyWithPrefix("otp", middleware.KeyByIP),
		FailOpen: true,
	}).Handler

	generationLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.Generation.RateLimitPerMinute, cfg.Generation.RateLimitPerMinute),
		KeyFunc:  middleware.KeyWithPrefix("generate", middleware.KeyByUser),
		FailOpen: true,
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		onboardingHandler.RegisterRoutes(r, otpLimiter)

		userHandler.RegisterRoutes(r, authenticator)
		planHandler.RegisterRoutes(r, authenticator)
		catalogHandler.RegisterRoutes(r)
		generationHandler.RegisterRoutes(r, authenticator, generationLimiter)

		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		planHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		catalogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	healthHandler.SetReady(true)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopJanitor()

	if err := smsDispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending sms deliveries abandoned", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
