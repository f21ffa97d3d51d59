package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/b9b4ymiN/botwallet/internal/backfill"
	"github.com/b9b4ymiN/botwallet/internal/config"
	"github.com/b9b4ymiN/botwallet/internal/ledger"
	"github.com/b9b4ymiN/botwallet/internal/metrics"
	"github.com/b9b4ymiN/botwallet/internal/notify"
	"github.com/b9b4ymiN/botwallet/internal/price"
	"github.com/b9b4ymiN/botwallet/internal/solana"
	"github.com/b9b4ymiN/botwallet/internal/store"
	"github.com/b9b4ymiN/botwallet/internal/token"
	"github.com/b9b4ymiN/botwallet/internal/tracker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	wallets, err := cfg.LoadWallets()
	if err != nil {
		slog.Error("wallet config error", "err", err)
		os.Exit(1)
	}
	slog.Info("tracking wallets", "count", len(wallets))

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (positions will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Chain access ---
	// One limiter shared by the live tracker and backfill scans so the
	// RPC provider sees a bounded aggregate rate.
	limiter := rate.NewLimiter(rate.Limit(cfg.RPCRatePerSec), cfg.RPCBurst)
	chain := solana.NewClient(cfg.RPCURL, limiter, logger)
	resolver := token.NewService(chain, logger)
	oracle := price.NewOracle(cfg.PriceCacheTTL(), logger)
	tokenPrices := price.NewTokenOracle(cfg.PriceCacheTTL(), logger)

	// --- Ledger and backfill ---
	led := ledger.New(st, logger)
	reconciler := backfill.NewReconciler(chain, resolver, oracle, led, st, cfg.Throttle(), cfg.BackfillMaxTx, logger)

	// --- Notification sinks ---
	hub := notify.NewHub()
	go hub.Run()

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.DiscordWebhookURL != "" {
		dn, err := notify.NewDiscordNotifier(cfg.DiscordWebhookURL, logger)
		if err != nil {
			slog.Error("invalid DISCORD_WEBHOOK_URL", "err", err)
			os.Exit(1)
		}
		notifier = dn
		slog.Info("Discord notifications enabled")
	}

	// --- Live tracker ---
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cfg.WSURL != "" {
		sub := solana.NewLogSubscriber(cfg.WSURL, logger)
		tr := tracker.New(cfg, wallets, chain, sub, resolver, oracle, tokenPrices, led, hub, notifier, logger)
		go func() {
			if err := tr.Run(rootCtx); err != nil && rootCtx.Err() == nil {
				slog.Error("tracker stopped", "err", err)
			}
		}()
	} else {
		slog.Warn("HELIUS_WS_URL not set, live tracking disabled (backfill API only)")
	}

	// --- HTTP router ---
	api := tracker.NewServer(st, led, reconciler, wallets, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"botwallet"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time trade events.
		r.Get("/ws", hub.HandleWS)
		api.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("botwallet listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	rootCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down botwallet...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("botwallet stopped")
}
