package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tenang-cloud/mindgate/internal/config"
	dbRedis "github.com/tenang-cloud/mindgate/internal/db/redis"
	logpkg "github.com/tenang-cloud/mindgate/internal/logger"
	"github.com/tenang-cloud/mindgate/internal/metrics"
	sessionrepo "github.com/tenang-cloud/mindgate/internal/repository/session"
	chiTransport "github.com/tenang-cloud/mindgate/internal/transport/chi"
	"github.com/tenang-cloud/mindgate/internal/transport/inference"
	"github.com/tenang-cloud/mindgate/internal/usecase/fallback"
	"github.com/tenang-cloud/mindgate/internal/usecase/gateway"
	healthuc "github.com/tenang-cloud/mindgate/internal/usecase/health"
	"github.com/tenang-cloud/mindgate/internal/usecase/lifecycle"
	"github.com/tenang-cloud/mindgate/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mindgate API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("inference_url", cfg.Inference.BaseURL),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register inference metrics explicitly (no init())
	metrics.RegisterInferenceMetrics()

	// Downstream inference client
	client := inference.NewClient(&inference.Config{
		BaseURL:          cfg.Inference.BaseURL,
		HealthBaseURL:    cfg.Inference.HealthBaseURL,
		Timeout:          time.Duration(cfg.Inference.TimeoutSec) * time.Second,
		MaxRetries:       cfg.Inference.MaxRetries,
		ServerBackoff:    time.Duration(cfg.Inference.ServerBackoffSec) * time.Second,
		NetworkBackoff:   time.Duration(cfg.Inference.NetworkBackoffSec) * time.Second,
		RateLimitBackoff: time.Duration(cfg.Inference.RateLimitBackoffSec) * time.Second,
		HealthTimeout:    time.Duration(cfg.Inference.HealthTimeoutSec) * time.Second,
		Logger:           logger,
	})

	gatewaySvc := gateway.New(client, logger)

	// Session tracking over Redis hashes
	sessionRepo := sessionrepo.New(store, cfg.Storage.KeyPrefix).
		WithTTL(time.Duration(cfg.Session.TTLHours) * time.Hour)

	lifecycleMgr := lifecycle.New(gatewaySvc, sessionRepo, logger)

	// Offline fallback corpus, optionally hot-reloaded
	var matcher *fallback.Matcher
	if cfg.Fallback.CorpusPath != "" {
		entries, err := fallback.LoadCorpus(cfg.Fallback.CorpusPath)
		if err != nil {
			logger.Fatal("Failed to load fallback corpus", zap.Error(err))
		}
		matcher = fallback.NewMatcher(entries)
		logger.Info("Fallback corpus loaded",
			zap.String("path", cfg.Fallback.CorpusPath),
			zap.Int("entries", len(entries)),
			zap.Int("keywords", matcher.Size()),
		)

		if cfg.Fallback.Watch {
			watcher := fallback.NewWatcher(cfg.Fallback.CorpusPath, matcher, logger)
			if err := watcher.Start(ctx); err != nil {
				logger.Fatal("Failed to start corpus watcher", zap.Error(err))
			}
			defer watcher.Stop()
		}
	}

	// Health service
	healthSvc := healthuc.New(store, gatewaySvc)

	// Create chi server
	server := chiTransport.NewServer(
		lifecycleMgr, matcher, sessionRepo, healthSvc, cfg.Fallback.BannedWords, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
