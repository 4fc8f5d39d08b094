// cmd/server/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/badge"
	"github.com/bookfairhq/bookfair-backend/internal/config"
	"github.com/bookfairhq/bookfair-backend/internal/database"
	"github.com/bookfairhq/bookfair-backend/internal/draft"
	"github.com/bookfairhq/bookfair-backend/internal/handler"
	"github.com/bookfairhq/bookfair-backend/internal/notify"
	"github.com/bookfairhq/bookfair-backend/internal/payment"
	"github.com/bookfairhq/bookfair-backend/internal/repository"
	"github.com/bookfairhq/bookfair-backend/internal/workflow"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()

	// ── 1. External collaborators ─────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("schema", zap.Error(err))
	}
	logger.Info("connected to postgres")

	rdb, err := draft.NewRedis(cfg.RedisAddr, cfg.RedisPassword, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	producer, err := notify.NewProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.Fatal("kafka", zap.Error(err))
	}
	defer producer.Close()

	shutdownTracing, err := handler.InitTracing("bookfair-backend")
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	subRepo := repository.NewSubmissionRepository(pool)
	catRepo := repository.NewCatalogRepository(pool)
	gateway := payment.NewClient(
		cfg.GatewayBaseURL, cfg.GatewaySecretKey,
		cfg.CallbackBaseURL+"/payments/verify", logger,
	)
	notifier := notify.NewKafkaNotifier(producer, cfg.KafkaTopic, logger)
	drafts := draft.NewCache(rdb, cfg.DraftTTL)
	issuer := badge.NewIssuer(cfg.BadgeBaseURL, cfg.BadgeSecret)

	flow := workflow.NewController(subRepo, catRepo, gateway, notifier, drafts, issuer,
		workflow.Pricing{
			HomeCountry:         cfg.HomeCountry,
			Currency:            cfg.Currency,
			CurrencyMinorFactor: cfg.CurrencyMinorFactor,
			InternationalTicket: cfg.InternationalTicket,
			StandPrices:         cfg.StandPrices,
			PayLaterGrace:       cfg.PayLaterGrace,
		}, logger)

	h := handler.New(flow, drafts, logger)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(handler.Metrics)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", handler.PrometheusHandler())

	r.Route("/submissions/{kind}", func(r chi.Router) {
		r.Post("/", h.CreateSubmission)
		r.Get("/", h.GetSubmission)
		r.Patch("/", h.PatchSubmission)
		r.Post("/advance", h.Advance)
		r.Get("/resume", h.Resume)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/session", h.CreatePaymentSession)
		r.Get("/verify", h.VerifyPayment)
	})

	r.Get("/badges", h.Badge)
	r.With(handler.RateLimit(rate.Limit(10), 20)).Post("/scan", h.Scan)

	r.Get("/catalog", h.Catalog)
	r.Post("/drafts", h.SaveDraft)
	r.Get("/drafts/{token}", h.LoadDraft)

	r.Route("/admin", func(r chi.Router) {
		r.Use(handler.AdminAuth(cfg.JWTSecret, logger))
		r.Post("/confirm", h.Confirm)
		r.Get("/export", h.Export)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
