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

	"github.com/craftbridge/artisanmatch/internal/cache"
	"github.com/craftbridge/artisanmatch/internal/config"
	"github.com/craftbridge/artisanmatch/internal/db"
	dbRedis "github.com/craftbridge/artisanmatch/internal/db/redis"
	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	logpkg "github.com/craftbridge/artisanmatch/internal/logger"
	"github.com/craftbridge/artisanmatch/internal/metrics"
	"github.com/craftbridge/artisanmatch/internal/repository/catalog"
	"github.com/craftbridge/artisanmatch/internal/repository/embcache"
	"github.com/craftbridge/artisanmatch/internal/text"
	chiTransport "github.com/craftbridge/artisanmatch/internal/transport/chi"
	openaiEmb "github.com/craftbridge/artisanmatch/internal/transport/openai"
	embeddinguc "github.com/craftbridge/artisanmatch/internal/usecase/embedding"
	fallbackuc "github.com/craftbridge/artisanmatch/internal/usecase/fallback"
	healthuc "github.com/craftbridge/artisanmatch/internal/usecase/health"
	matchuc "github.com/craftbridge/artisanmatch/internal/usecase/match"
	retrievaluc "github.com/craftbridge/artisanmatch/internal/usecase/retrieval"
	"github.com/craftbridge/artisanmatch/internal/version"
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

	logger.Info("Starting artisanmatch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_driver", cfg.Catalog.Driver),
		zap.Strings("catalog_addrs", cfg.Catalog.Addrs),
	)

	ctx, stopSub := context.WithCancel(context.Background())
	defer stopSub()

	// Catalog store based on driver
	var (
		catalogStore catalog.Store
		kvStore      db.Store
	)
	switch cfg.Catalog.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Catalog.Addrs,
			Password: cfg.Catalog.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create catalog store", zap.Error(err))
		}
		defer store.Close()

		readiness := time.Duration(cfg.Catalog.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Catalog store not ready", zap.Error(err))
		}
		logger.Info("Connected to catalog store")

		kvStore = store
		catalogStore = catalog.NewRedis(ctx, store, cfg.Catalog.KeyPrefix, logger)
	case "memory":
		catalogStore = catalog.NewMemory()
		logger.Info("Using in-memory catalog store")
	default:
		logger.Fatal("Unknown catalog driver", zap.String("driver", cfg.Catalog.Driver))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchingMetrics()

	// Embedding chain: OpenAI transport -> batching client -> per-field cache
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		Provider:       "openai",
		Timeout:        time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		RequestsPerSec: cfg.Embedding.RequestsPerSec,
		Logger:         logger,
	})

	tracker := embeddinguc.NewTracker(cfg.Embedding.HealthWindow, cfg.Embedding.HealthMaxFails)
	embClient, err := embeddinguc.NewClient(base, tracker, embeddinguc.Options{
		MaxBatchSize: cfg.Embedding.MaxBatchSize,
		Workers:      cfg.Embedding.Workers,
		RetryDelay:   time.Duration(cfg.Embedding.RetryDelayMs) * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}
	defer embClient.Close()

	embMemory := cache.New[[]float32](
		cfg.Cache.EmbeddingSize,
		time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second,
	)
	storeTTL := time.Duration(cfg.Cache.EmbeddingTTLSec) * time.Second

	fieldEmbedder := func(field domain.FieldType) retrievaluc.Embedder {
		var kv embcache.KVStore
		if kvStore != nil {
			kv = kvStore
		}
		return embcache.New(embClient, embMemory, kv, storeTTL, field,
			metrics.EmbeddingCacheTotal, logger)
	}

	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Matching services
	normCfg := text.DefaultNormalizerConfig()
	resultCache := cache.New[result.Ranked](
		cfg.Cache.ResultSize,
		time.Duration(cfg.Cache.ResultTTLSec)*time.Second,
	)

	retrievalSvc := retrievaluc.NewService(
		catalogStore,
		retrievaluc.FieldEmbedders{
			Query:          fieldEmbedder(domain.FieldQuery),
			Composite:      fieldEmbedder(domain.FieldComposite),
			Description:    fieldEmbedder(domain.FieldDescription),
			Specialization: fieldEmbedder(domain.FieldSpecialization),
		},
		normCfg,
		resultCache,
		retrievaluc.Options{ReembedBudget: cfg.Matching.ReembedBudget},
		logger,
	)
	fallbackSvc := fallbackuc.NewService(catalogStore, normCfg, logger)

	orchestrator := matchuc.New(
		retrievalSvc,
		fallbackSvc,
		tracker,
		catalogStore,
		normCfg,
		matchuc.Options{
			VectorTimeout: time.Duration(cfg.Matching.VectorPathTimeoutS) * time.Second,
		},
		logger,
	)

	healthSvc := healthuc.New(catalogStore, base, tracker)

	// HTTP server
	server := chiTransport.NewServer(orchestrator, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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
