package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bnbbrain-backend/internal/config"
	"bnbbrain-backend/internal/database"
	"bnbbrain-backend/internal/handlers"
	"bnbbrain-backend/internal/market"
	"bnbbrain-backend/internal/pubsub"
	"bnbbrain-backend/internal/repository"
	"bnbbrain-backend/internal/router"
	"bnbbrain-backend/internal/services"
	"bnbbrain-backend/internal/websocket"
	"bnbbrain-backend/internal/worker"
	"bnbbrain-backend/pkg/logger"
)

func main() {
	// ──── Step 1: Load Configuration ────
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatalf("✗ Configuration failed: %v", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Warnf("Logging config: %v", err)
	}
	logger.Info("🚀 Starting BNB Brain backend...")
	logger.Info("✓ Configuration loaded")

	if !cfg.HasGeminiKey() {
		logger.Warnf("GEMINI_API_KEY is not set: /api/chat and analysis will answer 500")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Tick Storage ────
	var ticks repository.TickStore = repository.NewMemoryTickStore(cfg.TickHistorySize)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
			logger.Fatalf("✗ Database migration failed: %v", err)
		}
		ticks = repository.NewTickRepo(pool, cfg.TickHistorySize)
		logger.Info("✓ PostgreSQL connected, migrations applied")
	} else {
		logger.Info("✓ No DATABASE_URL, keeping ticks in memory")
	}

	// ──── Step 3: Pub/Sub ────
	var broker pubsub.Broker = pubsub.NewMemoryBroker()
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		broker = pubsub.NewRedisBroker(redisClient)
		logger.Info("✓ Redis connected")
	} else {
		logger.Info("✓ No REDIS_URL, using in-process pub/sub")
	}

	// ──── Step 4: Gemini ────
	relay := services.NewRelayService(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiTimeout)
	analyst, err := services.NewAnalystService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		logger.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer analyst.Close()
	logger.Infof("✓ Gemini relay ready (model %s)", cfg.GeminiModel)

	// ──── Step 5: Market Feed ────
	rest := market.NewClient(cfg.BinanceRESTURL)
	stream := market.NewStream(cfg.BinanceStreamURL, rest, cfg.StreamReconnectDelay)
	feed := worker.NewFeed(stream, ticks, broker, cfg.MarketSymbols)

	// ──── Step 6: WebSocket Hub ────
	wsHub := websocket.NewHub(broker, feed, cfg.MarketSymbols[0], cfg.FrontendURL)
	defer wsHub.Close()

	// ──── Step 7: HTTP Server ────
	chatLimiter := router.ChatLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	if chatLimiter != nil {
		defer chatLimiter.Stop()
	}

	r := router.New(
		handlers.NewChatHandler(relay),
		handlers.NewMarketHandler(feed, rest, ticks, analyst),
		wsHub.HandleWebSocket,
		chatLimiter,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Must outlast a full upstream call.
		WriteTimeout: cfg.GeminiTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.Run(gctx)
	})
	g.Go(func() error {
		logger.Infof("✓ BNB Brain backend ready on http://localhost:%s", cfg.Port)
		logger.Infof("  API: http://localhost:%s/api", cfg.Port)
		logger.Infof("  WS:  ws://localhost:%s/api/ws?symbol=%s", cfg.Port, cfg.MarketSymbols[0])
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		wsHub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Info("Stopped")
}
