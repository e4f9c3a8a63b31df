package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-runtime/internal/auth"
	"voice-runtime/internal/callstate"
	"voice-runtime/internal/clarify"
	"voice-runtime/internal/config"
	"voice-runtime/internal/decision"
	"voice-runtime/internal/handlers"
	"voice-runtime/internal/llm"
	"voice-runtime/internal/loopdetect"
	"voice-runtime/internal/metrics"
	"voice-runtime/internal/runtime"
	"voice-runtime/internal/tenant"
	"voice-runtime/internal/trace"
	"voice-runtime/internal/vendorlog"
	"voice-runtime/pkg/logger"
	"voice-runtime/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	m := metrics.New()

	// LLM client behind the circuit breaker. Without an API key the
	// pipeline runs entirely on rules and fallbacks.
	var llmClient llm.Client
	if cfg.LLM.APIKey != "" {
		anthropic, err := llm.NewAnthropicClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens)
		if err != nil {
			log.Error("llm init failed", "err", err)
			os.Exit(1)
		}
		breaker := llm.NewBreaker(llm.BreakerConfig{
			FailureThreshold: cfg.LLM.BreakerFailureThreshold,
			SuccessThreshold: cfg.LLM.BreakerSuccessThreshold,
			OpenTimeout:      cfg.LLM.BreakerOpenTimeout,
		})
		breaker.OnTransition(func(from, to llm.BreakerState) {
			log.Warn("llm breaker transition", "from", from.String(), "to", to.String())
			m.BreakerState.WithLabelValues(to.String()).Inc()
		})
		llmClient = llm.NewGuardedClient(anthropic, breaker)
	} else {
		log.Warn("no llm api key configured, running on rule fallbacks only")
	}

	loops := loopdetect.NewDetector(cfg.Runtime.LoopHistoryTTL)
	loops.StartSweeper(rootCtx, time.Minute)

	store, err := callstate.NewRedisStore(rdb, cfg.Runtime.SessionTTL)
	if err != nil {
		log.Error("call state store init failed", "err", err)
		os.Exit(1)
	}

	tenants, err := tenant.NewPostgresProvider(db)
	if err != nil {
		log.Error("tenant provider init failed", "err", err)
		os.Exit(1)
	}

	traceRepo, err := trace.NewPostgresRepo(db)
	if err != nil {
		log.Error("trace repo init failed", "err", err)
		os.Exit(1)
	}
	traces := trace.NewWriter(trace.NewService(traceRepo), log).
		OnDrop(m.TracesDropped.Inc)
	defer traces.Close()

	vendorRepo, err := vendorlog.NewPostgresRepo(db)
	if err != nil {
		log.Error("vendor log init failed", "err", err)
		os.Exit(1)
	}

	registry := handlers.NewRegistry(handlers.Deps{
		Vendors: vendorlog.NewService(vendorRepo),
	})

	rt, err := runtime.New(runtime.Deps{
		Store:     store,
		Tenants:   tenants,
		Engine:    decision.NewEngine(llmClient, loops),
		Handlers:  registry,
		Clarifier: clarify.New(llmClient, cfg.Runtime.ClarifierTimeout),
		Loops:     loops,
		Traces:    traces,
		Metrics:   m,
	}, runtime.Options{
		MaxTurnHistory:    cfg.Runtime.MaxTurnHistory,
		LateTurnThreshold: cfg.Runtime.LateTurnThreshold,
	})
	if err != nil {
		log.Error("runtime init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		auth:    authManager,
		runtime: rt,
		metrics: m,
		db:      db,
		rdb:     rdb,
		cfg:     cfg,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
