package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/papertrader/internal/config"
	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/handler"
	"github.com/efreitasn/papertrader/internal/llm"
	"github.com/efreitasn/papertrader/internal/quote"
	"github.com/efreitasn/papertrader/internal/service"
	"github.com/efreitasn/papertrader/internal/store"
	"github.com/efreitasn/papertrader/internal/store/mongostore"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores.
	var (
		accounts service.AccountRepository
		trades   service.TradeRepository
		closeDB  func(context.Context) error
	)
	switch cfg.Store {
	case config.StoreMongo:
		db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Error("failed to connect to mongo", slog.String("error", err.Error()))
			os.Exit(1)
		}
		accounts, trades, closeDB = db, db, db.Close
		logger.Info("using mongo store", slog.String("database", cfg.MongoDatabase))
	default:
		accounts, trades = store.NewAccountStore(), store.NewTradeStore()
		logger.Info("using in-memory store")
	}

	// Market data.
	httpClient := &http.Client{Timeout: cfg.QuoteTimeout}
	var provider quote.Provider
	switch cfg.QuoteProvider {
	case config.ProviderPolygon:
		provider = quote.NewPolygon(cfg.QuoteAPIKey, cfg.QuoteBaseURL, httpClient, quote.SystemClock{})
	default:
		provider = quote.NewAlphaVantage(cfg.QuoteAPIKey, cfg.QuoteBaseURL, httpClient)
	}
	clock := quote.SystemClock{}
	market := quote.NewClient(
		provider,
		quote.NewCache[domain.Quote](cfg.QuoteCacheTTL, cfg.QuoteCacheSize, clock),
		quote.NewGate(cfg.QuoteMinInterval, clock, clock),
		domain.NewSectorRegistry(domain.DefaultSectors),
		quote.ClientConfig{MaxRetries: cfg.QuoteMaxRetries, Timeout: cfg.QuoteTimeout},
		logger,
	)
	market.StartSweeper(ctx, cfg.CacheSweepInterval)

	// Advice model; left nil when no key is configured.
	var gen service.Generator
	if cfg.AdviceEnabled() {
		gemini, err := llm.NewGemini(ctx, llm.Config{
			APIKey:          cfg.GeminiAPIKey,
			Model:           cfg.AdviceModel,
			MaxOutputTokens: 1000,
			Temperature:     0.7,
		}, logger)
		if err != nil {
			logger.Error("failed to create advice model client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		gen = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, advice endpoints disabled")
	}

	// Services.
	accountSvc := service.NewAccountService(accounts, cfg.StartingCash)
	marketSvc := service.NewMarketService(market)
	portfolioSvc := service.NewPortfolioService(accounts, trades, market, market, logger)
	tradeSvc := service.NewTradeService(accounts, trades, market, portfolioSvc, cfg.PriceTolerance, logger)
	adviceSvc := service.NewAdviceService(gen, accounts, portfolioSvc, cfg.AdviceHistory, logger)

	// Router.
	router := handler.NewRouter(accountSvc, marketSvc, tradeSvc, portfolioSvc, adviceSvc, cfg.CORSOrigins, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("quote_provider", cfg.QuoteProvider),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, stop the sweeper, then close the database.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	if closeDB != nil {
		if err := closeDB(shutdownCtx); err != nil {
			logger.Error("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}
