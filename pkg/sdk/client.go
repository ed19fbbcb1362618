package artisanmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/cache"
	dbRedis "github.com/craftbridge/artisanmatch/internal/db/redis"
	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	"github.com/craftbridge/artisanmatch/internal/metrics"
	"github.com/craftbridge/artisanmatch/internal/repository/catalog"
	"github.com/craftbridge/artisanmatch/internal/repository/embcache"
	"github.com/craftbridge/artisanmatch/internal/text"
	embeddinguc "github.com/craftbridge/artisanmatch/internal/usecase/embedding"
	fallbackuc "github.com/craftbridge/artisanmatch/internal/usecase/fallback"
	healthuc "github.com/craftbridge/artisanmatch/internal/usecase/health"
	matchuc "github.com/craftbridge/artisanmatch/internal/usecase/match"
	retrievaluc "github.com/craftbridge/artisanmatch/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// matchUseCase is the internal orchestrator interface, narrowed for tests.
type matchUseCase interface {
	Match(ctx context.Context, q *query.Query) (*result.Response, error)
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the artisanmatch SDK entry point.
type Client struct {
	store     *dbRedis.Store // nil for the memory driver
	catalog   catalog.Store
	matchSvc  matchUseCase
	healthSvc healthUseCase
	embClient *embeddinguc.Client // nil without an embedder
	cancel    context.CancelFunc
	obs       *observer
}

// New creates an artisanmatch Client. The provided context is used for the
// initial readiness check; its cancellation also stops the catalog
// invalidation subscriber for the redis driver.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:     "artisanmatch:",
		vectorTimeout: 5 * time.Second,
		cacheSize:     2048,
		cacheTTL:      time.Hour,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("artisanmatch: catalog driver required (use WithRedis or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return wireClient(ctx, cfg, obs)
}

func wireClient(ctx context.Context, cfg *clientConfig, obs *observer) (*Client, error) {
	log := zap.NewNop()
	subCtx, cancel := context.WithCancel(context.Background())

	var (
		store *dbRedis.Store
		cat   catalog.Store
	)
	switch cfg.driver {
	case "memory":
		cat = catalog.NewMemory()
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("artisanmatch: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			cancel()
			return nil, fmt.Errorf("artisanmatch: catalog not ready: %w", err)
		}
		store = s
		cat = catalog.NewRedis(subCtx, s, cfg.keyPrefix, log)
	default:
		cancel()
		return nil, fmt.Errorf("artisanmatch: unknown driver %q", cfg.driver)
	}

	normCfg := text.DefaultNormalizerConfig()

	var (
		vector    matchuc.VectorSearcher
		health    matchuc.HealthReporter = neverHealthy{}
		embClient *embeddinguc.Client
		checker   healthuc.EmbeddingChecker
		window    healthuc.WindowReporter
	)
	if cfg.embedder != nil {
		tracker := embeddinguc.NewTracker(cfg.healthWindow, cfg.healthMaxFails)
		var err error
		embClient, err = embeddinguc.NewClient(
			&embedderAdapter{inner: cfg.embedder},
			tracker,
			embeddinguc.Options{MaxBatchSize: cfg.maxBatchSize},
			log,
		)
		if err != nil {
			closeStore(store)
			cancel()
			return nil, fmt.Errorf("artisanmatch: create embedding client: %w", err)
		}

		embMemory := cache.New[[]float32](cfg.cacheSize, cfg.cacheTTL)
		fieldEmbedder := func(field domain.FieldType) retrievaluc.Embedder {
			var kv embcache.KVStore
			if store != nil {
				kv = store
			}
			return embcache.New(embClient, embMemory, kv, cfg.cacheTTL, field, metrics.EmbeddingCacheTotal, log)
		}

		results := cache.New[result.Ranked](cfg.cacheSize, cfg.cacheTTL)
		vector = retrievaluc.NewService(cat, retrievaluc.FieldEmbedders{
			Query:          fieldEmbedder(domain.FieldQuery),
			Composite:      fieldEmbedder(domain.FieldComposite),
			Description:    fieldEmbedder(domain.FieldDescription),
			Specialization: fieldEmbedder(domain.FieldSpecialization),
		}, normCfg, results, retrievaluc.Options{}, log)

		health = tracker
		window = tracker
		if hc, ok := cfg.embedder.(HealthChecker); ok {
			checker = healthCheckAdapter{inner: hc}
		}
	}

	fallbackSvc := fallbackuc.NewService(cat, normCfg, log)
	orch := matchuc.New(vector, fallbackSvc, health, cat, normCfg,
		matchuc.Options{VectorTimeout: cfg.vectorTimeout}, log)
	healthSvc := healthuc.New(cat, checker, window)

	return &Client{
		store:     store,
		catalog:   cat,
		matchSvc:  orch,
		healthSvc: healthSvc,
		embClient: embClient,
		cancel:    cancel,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	c.cancel()
	if c.embClient != nil {
		c.embClient.Close()
	}
	closeStore(c.store)
}

// Ping checks catalog connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.catalog.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Profiles returns the catalog profile service.
func (c *Client) Profiles() *ProfileService {
	return &ProfileService{store: c.catalog, obs: c.obs}
}

func closeStore(s *dbRedis.Store) {
	if s != nil {
		s.Close()
	}
}

// neverHealthy routes every request to keyword matching when no embedding
// provider is configured.
type neverHealthy struct{}

func (neverHealthy) IsHealthy() bool { return false }

// embedderAdapter wraps the public Embedder to satisfy the internal
// provider contract. Batch calls use the inner BatchEmbedder when
// implemented and fall back to sequential single embeds otherwise.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, t string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, t)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := a.inner.(BatchEmbedder); ok {
		r, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return domain.BatchEmbeddingResult{
			Embeddings:   r.Embeddings,
			Missing:      r.Missing,
			PromptTokens: r.PromptTokens,
			TotalTokens:  r.TotalTokens,
		}, nil
	}

	out := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Missing:    make([]bool, len(texts)),
	}
	for i, t := range texts {
		r, err := a.Embed(ctx, t)
		if err != nil {
			out.Missing[i] = true
			continue
		}
		out.Embeddings[i] = r.Embedding
		out.PromptTokens += r.PromptTokens
		out.TotalTokens += r.TotalTokens
	}
	return out, nil
}

// healthCheckAdapter lifts the public HealthChecker into the internal one.
type healthCheckAdapter struct {
	inner HealthChecker
}

func (a healthCheckAdapter) HealthCheck(ctx context.Context) error {
	return a.inner.HealthCheck(ctx)
}
