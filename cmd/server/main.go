package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dailymint/internal/auth"
	"dailymint/internal/breaker"
	"dailymint/internal/cache"
	"dailymint/internal/coins"
	"dailymint/internal/config"
	"dailymint/internal/db"
	"dailymint/internal/handlers"
	"dailymint/internal/ledger"
	"dailymint/internal/llm"
	"dailymint/internal/logging"
	"dailymint/internal/metrics"
	mw "dailymint/internal/middleware"
	"dailymint/internal/rewards"
	"dailymint/internal/scheduler"
	"dailymint/internal/server"
	"dailymint/internal/services"
	"dailymint/internal/store"
	"dailymint/internal/store/memory"
	"dailymint/internal/store/postgres"
	"dailymint/internal/streak"
	"dailymint/internal/submission"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Dev: cfg.LogDev, Level: cfg.LogLevel})
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	var st store.Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using the in-memory store, data is lost on restart")
		st = memory.New()
	} else {
		dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open db", zap.Error(err))
		}
		defer dbConn.Close()
		dbConn.SetMaxOpenConns(cfg.DBMaxOpenConns)
		dbConn.SetConnMaxLifetime(2 * time.Hour)
		if err = dbConn.Ping(); err != nil {
			logger.Fatal("failed to ping db", zap.Error(err))
		}
		if err := db.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("failed migrations", zap.Error(err))
		}
		st = postgres.New(dbConn)
	}

	var balanceCache ledger.BalanceCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisBalanceCache(context.Background(), cfg.RedisURL, cfg.BalanceCacheTTL)
		if err != nil {
			logger.Warn("redis unavailable; balances are read from the store", zap.Error(err))
		} else {
			defer rc.Close()
			balanceCache = rc
		}
	}

	encSvc, err := services.NewEncryptionServiceFromKey(cfg.ContentEncryptionKey)
	if err != nil {
		logger.Fatal("invalid content encryption key", zap.Error(err))
	}

	m := metrics.New()
	breakers := breaker.NewManager(breaker.DefaultConfig(), logger)
	days := streak.NewNormalizer(time.Now, cfg.Location())
	tokens := ledger.New(st, balanceCache, logger)
	streaks := streak.NewLedger(st, time.Now)

	orchestrator := submission.New(st, tokens, days, submission.Config{
		MaxContentLength: cfg.ContentMaxLength,
		Rewards:          rewards.Policy{Base: cfg.RewardBase, PerDayBonus: cfg.RewardPerDayBonus},
	}, encSvc, m, logger)

	var generator llm.PromptGenerator
	if cfg.AnthropicAPIKey != "" {
		generator = llm.NewAnthropicGenerator(llm.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel}, breakers, logger)
	}
	prompts := services.NewPromptService(st, generator, days, logger)

	coinClient := coins.NewClient(coins.Config{
		CoinAPIURL: cfg.CoinAPIURL,
		CoinAPIKey: cfg.CoinAPIKey,
		RPCURL:     cfg.ChainRPCURL,
		ChainID:    cfg.ChainID,
	}, breakers, logger)
	var minter coins.Minter
	if cfg.CoinAPIURL != "" {
		minter = coinClient
	}
	var balances coins.BalanceReader
	if cfg.ChainRPCURL != "" {
		balances = coinClient
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.JWTSecret), cfg.AuthIssuer)
	router := server.NewRouter(server.Handlers{
		Creations: handlers.NewCreationHandler(orchestrator, st, encSvc, minter, handlers.CreationConfig{
			ChainID:       cfg.ChainID,
			PublicURL:     cfg.PublicURL,
			PayoutAddress: cfg.PayoutAddress,
		}, m, logger),
		Prompts:   handlers.NewPromptHandler(prompts, logger),
		Tokens:    handlers.NewTokenHandler(tokens, balances, logger),
		Dashboard: handlers.NewDashboardHandler(streaks, st, days, logger),
		Users:     handlers.NewUserHandler(st, logger),
		Meta:      handlers.NewMetaHandler(st, cfg.PublicURL, logger),
	}, server.Options{
		Auth:        mw.NewAuthMiddleware(verifier, st, cfg.AuthDomain, cfg.Admins(), logger),
		RateLimiter: mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		Metrics:     m,
		Logger:      logger,
	})

	var sched *scheduler.Scheduler
	if generator != nil && cfg.PromptCron != "" {
		sched, err = scheduler.New(cfg.PromptCron, cfg.Location(), prompts, logger)
		if err != nil {
			logger.Fatal("invalid prompt schedule", zap.Error(err))
		}
		sched.Start()
		logger.Info("prompt rotation scheduled", zap.String("cron", cfg.PromptCron))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
