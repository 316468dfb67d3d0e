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

	"github.com/daochai/teasommelier/internal/config"
	"github.com/daochai/teasommelier/internal/db"
	dbRedis "github.com/daochai/teasommelier/internal/db/redis"
	"github.com/daochai/teasommelier/internal/domain"
	logpkg "github.com/daochai/teasommelier/internal/logger"
	"github.com/daochai/teasommelier/internal/metrics"
	"github.com/daochai/teasommelier/internal/repository/catalog"
	"github.com/daochai/teasommelier/internal/repository/catalog/xlsx"
	"github.com/daochai/teasommelier/internal/repository/embcache"
	"github.com/daochai/teasommelier/internal/transport/httpapi"
	openaiTransport "github.com/daochai/teasommelier/internal/transport/openai"
	"github.com/daochai/teasommelier/internal/transport/telegram"
	healthuc "github.com/daochai/teasommelier/internal/usecase/health"
	recommenduc "github.com/daochai/teasommelier/internal/usecase/recommend"
	"github.com/daochai/teasommelier/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tea sommelier service",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog", cfg.Catalog.Path),
	)

	ctx := context.Background()

	// Embedding cache store is optional: without Redis every embed goes to
	// the provider directly.
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache store", zap.Strings("addrs", cfg.Database.Addrs))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterRecommenderMetrics()

	embedder, baseEmbedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", store != nil),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Load and vectorize the catalog. Fatal only when the whole file is
	// unreadable; individual bad rows are logged and skipped.
	reader := xlsx.NewReader(cfg.Catalog.Path, cfg.Catalog.Sheet, logger)
	teas, err := reader.Load()
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	logger.Info("Catalog loaded", zap.Int("teas", len(teas)))

	catalogStore, err := catalog.Build(ctx, teas, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to build catalog store", zap.Error(err))
	}
	metrics.CatalogSize.Set(float64(catalogStore.Len()))
	logger.Info("Catalog vectorized", zap.Int("teas", catalogStore.Len()))

	recommendSvc := recommenduc.New(catalogStore, embedder, generator, recommenduc.Config{
		DefaultTopN: cfg.Recommend.TopN,
		MaxComments: cfg.Recommend.MaxComments,
	}, logger)

	var cachePinger healthuc.CacheStorePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(catalogStore, newEmbeddingHealthChecker(baseEmbedder), cachePinger)

	server := httpapi.NewServer(recommendSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Telegram transport is optional: no token, no bot.
	botCtx, stopBot := context.WithCancel(ctx)
	defer stopBot()
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, recommendSvc, telegram.Config{
			DisplayTopN: cfg.Recommend.DisplayTopN,
			ChunkDelay:  time.Duration(cfg.Telegram.ChunkDelayMilli) * time.Millisecond,
			PollTimeout: cfg.Telegram.PollTimeoutSec,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram bot", zap.Error(err))
		}
		go bot.Run(botCtx)
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
	stopBot()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached.
// Returns the outermost embedder and the base provider for health checks.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) (domain.Embedder, *openaiTransport.Embedder) {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}
	return embedder, base
}

// embeddingHealthChecker adapts the base embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.HealthChecker
}

func newEmbeddingHealthChecker(embedder domain.HealthChecker) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.embedder.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
