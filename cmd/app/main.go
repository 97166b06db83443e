// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creative-ai-studio/internal/config"
	"creative-ai-studio/internal/domain/ports/adapter"
	"creative-ai-studio/internal/infra/adapters/fal"
	pg "creative-ai-studio/internal/infra/db/postgres"
	"creative-ai-studio/internal/infra/logging"
	"creative-ai-studio/internal/infra/metrics"
	red "creative-ai-studio/internal/infra/redis"
	"creative-ai-studio/internal/infra/sched"
	"creative-ai-studio/internal/infra/web"
	"creative-ai-studio/internal/infra/worker"
	"creative-ai-studio/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider, relaxed auth config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepoCacheDecorator(
		pg.NewPostgresAccountRepo(pool), redisClient, cfg.Redis.TTL)
	jobRepo := pg.NewPostgresJobRepo(pool)

	// ---- Provider adapter ----
	var provider adapter.GenerationProviderAdapter
	if cfg.Provider.Key != "" {
		provider, err = fal.NewQueueAdapter(cfg.Provider)
		if err != nil {
			logger.Fatal().Err(err).Msg("provider adapter")
		}
		logger.Info().Str("base_url", cfg.Provider.BaseURL).Msg("provider: fal queue")
	} else {
		provider = fal.NewNoopAdapter()
		logger.Info().Msg("provider: noop (no key configured)")
	}

	// ---- Use cases ----
	policies := usecase.PollPolicies{
		Image: usecase.PollPolicy{Interval: cfg.Provider.ImagePoll.Interval, MaxAttempts: cfg.Provider.ImagePoll.MaxAttempts},
		Video: usecase.PollPolicy{Interval: cfg.Provider.VideoPoll.Interval, MaxAttempts: cfg.Provider.VideoPoll.MaxAttempts},
	}
	entitlementUC := usecase.NewEntitlementUseCase()
	accountUC := usecase.NewAccountUseCase(accountRepo, logger)
	genUC := usecase.NewGenerationUseCase(
		entitlementUC, accountRepo, jobRepo, provider, policies, usecase.NewRealClock(), logger)

	// ---- Worker pool ----
	genPool := worker.NewPool(cfg.Web.MaxConcurrent, logger)
	genPool.Start(ctx)
	defer genPool.Stop()

	// ---- Web server ----
	jwtSecret := cfg.Web.JWTSecret
	if jwtSecret == "" {
		logger.Warn().Msg("web.jwt_secret not set; using dev secret (INSECURE)")
		jwtSecret = "dev-secret-do-not-use-in-prod"
	}
	auth := web.NewAuthManager(jwtSecret, !cfg.Runtime.Dev, "", cfg.Web.SessionTTL)
	srv := web.NewServer(genUC, accountUC, entitlementUC, auth, rateLimiter, genPool,
		cfg.Web.RateLimit, cfg.Web.RateWindow, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: srv.Routes(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Stale-job reaper ----
	reaper := sched.NewJobReaper(cfg.Scheduler.ReapInterval, 30*time.Minute, jobRepo, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
