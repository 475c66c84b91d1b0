// Package main is the entry point for the intake API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lexassist-ai/intake-platform/internal/config"
	"github.com/lexassist-ai/intake-platform/internal/flow"
	"github.com/lexassist-ai/intake-platform/internal/handler"
	"github.com/lexassist-ai/intake-platform/internal/llm"
	"github.com/lexassist-ai/intake-platform/internal/middleware"
	natsclient "github.com/lexassist-ai/intake-platform/internal/nats"
	"github.com/lexassist-ai/intake-platform/internal/service"
	"github.com/lexassist-ai/intake-platform/internal/store"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
	"github.com/lexassist-ai/intake-platform/pkg/tracing"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting intake API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "intake-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS; the JetStream stream is the conversation message log.
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Postgres holds conversations, leads and tenant branding.
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	conversationStore := store.NewConversationStore(db)
	leadStore := store.NewLeadStore(db)
	tenantStore := store.NewTenantStore(db)

	// Completion provider: Anthropic preferred, OpenAI as the alternative.
	var llmClient llm.Client
	switch {
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	default:
		log.Error("no completion API key configured")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create completion client", zap.Error(err))
		os.Exit(1)
	}

	extractor, err := flow.NewExtractor(cfg.ContactPhonePattern)
	if err != nil {
		log.Error("invalid contact phone pattern", zap.Error(err))
		os.Exit(1)
	}

	generator := flow.NewGenerator(llmClient, cfg.LLMTimeout, log)
	engine := flow.NewEngine(streamManager, leadStore, conversationStore, tenantStore, generator, extractor, log)

	conversationSvc := service.NewConversationService(conversationStore, streamManager, log)
	intakeSvc := service.NewIntakeService(streamManager, conversationStore, engine, log)

	healthHandler := handler.NewHealthHandler(natsClient, db)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(intakeSvc, conversationSvc, log)
	leadHandler := handler.NewLeadHandler(leadStore, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Post("/end", conversationHandler.End)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
			})
		})

		r.Route("/leads", func(r chi.Router) {
			r.Use(middleware.RequireScope("leads:read"))
			r.Get("/", leadHandler.List)
			r.Get("/{id}", leadHandler.Get)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
