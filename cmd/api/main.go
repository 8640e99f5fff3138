package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/quillpad/quillpad/internal/api"
	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/config"
	"github.com/quillpad/quillpad/internal/database"
	"github.com/quillpad/quillpad/internal/gateway"
	"github.com/quillpad/quillpad/internal/governance/audit"
	"github.com/quillpad/quillpad/internal/governance/entitlement"
	"github.com/quillpad/quillpad/internal/governance/quota"
	mw "github.com/quillpad/quillpad/internal/middleware"
	inats "github.com/quillpad/quillpad/internal/nats"
	"github.com/quillpad/quillpad/internal/providers"
	"github.com/quillpad/quillpad/internal/ratelimit"
	iredis "github.com/quillpad/quillpad/internal/redis"
	"github.com/quillpad/quillpad/internal/server"
	"github.com/quillpad/quillpad/internal/subscribers"
	"github.com/quillpad/quillpad/internal/subscriptions"
)

var errNATSDisconnected = errors.New("nats disconnected")

// auditSink keeps a missing publisher a nil interface.
type auditSink interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

func auditPublisher(p *inats.Publisher) auditSink {
	if p == nil {
		return nil
	}
	return p
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.Migrations.Path); err != nil {
		return err
	}

	readiness := map[string]api.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
	}

	// Rate limiting
	var store ratelimit.Store
	var memStore *ratelimit.MemoryStore
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		redisClient, err := iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		store = ratelimit.NewRedisStore(redisClient)
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	default:
		memStore = ratelimit.NewMemoryStore()
		store = memStore
	}
	generationLimiter := mw.NewRateLimiter(ratelimit.New(store), mw.RateLimitPolicy{
		Name:        "generate",
		CallerLimit: cfg.RateLimit.CallerLimit,
		GlobalLimit: cfg.RateLimit.GlobalLimit,
		Window:      cfg.RateLimit.Window,
	})

	// Audit events are optional
	var natsClient *inats.Client
	var publisher *inats.Publisher
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
		readiness["nats"] = func(context.Context) error {
			if !natsClient.Healthy() {
				return errNATSDisconnected
			}
			return nil
		}
	} else {
		slog.Warn("NATS_URL not set; audit events are disabled")
	}

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)

	// Stores
	subscriberRepo := subscribers.NewRepository(pool)
	subscriptionRepo := subscriptions.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)

	// Governance
	resolver := entitlement.NewResolver(subscriberRepo, subscriptionRepo)
	guard := quota.NewGuard(resolver, subscriberRepo, quota.Limits{
		FreeGenerations: cfg.Quota.FreeGenerations,
		FreeExports:     cfg.Quota.FreeExports,
	}, auditPublisher(publisher))
	lifecycle := subscriptions.NewLifecycle(subscriptionRepo, subscriberRepo, auditPublisher(publisher))

	// Providers
	router := providers.NewRouter(cfg.Providers.Timeout,
		providers.NewGemini(providers.Options{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			RPS:     cfg.Providers.RPS,
		}),
		providers.NewOpenAICompatible("groq", providers.Options{
			APIKey:  cfg.Groq.APIKey,
			Model:   cfg.Groq.Model,
			BaseURL: cfg.Groq.BaseURL,
			RPS:     cfg.Providers.RPS,
		}),
	)
	slog.Info("generation providers", "configured", router.Configured(),
		"primary", cfg.Providers.Primary, "alternate", cfg.Providers.Alternate)

	gatewaySvc := gateway.NewService(guard, router, gateway.ProviderOrder{
		Primary:   cfg.Providers.Primary,
		Alternate: cfg.Providers.Alternate,
	}, auditPublisher(publisher))

	// Handlers
	gatewayHandler := gateway.NewHandler(gatewaySvc)
	quotaHandler := quota.NewHandler(guard)
	subscriptionHandler := subscriptions.NewHandler(lifecycle)
	auditHandler := audit.NewHandler(auditRepo, subscriberRepo)

	requestTimeout := cfg.Providers.RequestTimeout()
	handler := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins:    cfg.CORS.AllowedOrigins,
		TrustProxyHeaders:     cfg.Server.TrustProxy,
		GenerationRateLimiter: generationLimiter.Middleware,
		ReadinessChecks:       readiness,
		RequestTimeout:        requestTimeout,
	}, api.HandlerSet{
		Generate:             gatewayHandler.Generate,
		GetQuota:             quotaHandler.GetQuota,
		AuthorizeExport:      quotaHandler.AuthorizeExport,
		GetSubscription:      subscriptionHandler.Get,
		ActivateSubscription: subscriptionHandler.Activate,
		BlockSubscription:    subscriptionHandler.Block,
		ListAuditLogs:        auditHandler.List,
		AuthMiddleware:       auth.Middleware(jwtManager),
	})

	g, gctx := errgroup.WithContext(ctx)

	srv := server.New(cfg.Server, handler, requestTimeout)
	g.Go(func() error { return srv.Run(gctx) })

	if memStore != nil {
		g.Go(func() error { return memStore.Start(gctx, cfg.RateLimit.SweepInterval) })
	}

	if natsClient != nil {
		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		g.Go(func() error { return consumer.Start(gctx) })
	}

	return g.Wait()
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
