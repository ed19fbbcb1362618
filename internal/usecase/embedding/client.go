// Package embedding turns a raw embedding provider into the resilient client
// the matching path depends on: sub-batch splitting over a bounded worker
// pool, a single retry for transient failures, per-item gap reporting and
// rolling health accounting.
package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/domain"
)

// Provider is the consumer interface for the decorated embedder chain.
type Provider interface {
	domain.Embedder
	domain.BatchEmbedder
}

// Compile-time check: Client satisfies the same contract it decorates.
var _ Provider = (*Client)(nil)

// Options tune client behavior. Zero values fall back to safe defaults.
type Options struct {
	MaxBatchSize int           // max texts per provider call
	Workers      int           // concurrent sub-batch workers
	RetryDelay   time.Duration // pause before the single retry
}

// Client embeds texts through a provider with batching, concurrency and
// health tracking. A sub-batch that fails even after retry does not fail the
// whole request: its items come back flagged missing so callers can degrade
// per item instead of per query.
type Client struct {
	provider   Provider
	tracker    *Tracker
	pool       *ants.Pool
	maxBatch   int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient creates an embedding client. The tracker is shared with the
// matching orchestrator, which consults it before choosing the vector path.
func NewClient(provider Provider, tracker *Tracker, opts Options, logger *zap.Logger) (*Client, error) {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Client{
		provider:   provider,
		tracker:    tracker,
		pool:       pool,
		maxBatch:   opts.MaxBatchSize,
		retryDelay: opts.RetryDelay,
		logger:     logger,
	}, nil
}

// Close releases the worker pool.
func (c *Client) Close() {
	c.pool.Release()
}

// Embed vectorizes a single text with one retry on failure.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := c.provider.Embed(ctx, text)
	if err != nil && ctx.Err() == nil {
		c.tracker.RecordFailure()
		c.logger.Warn("Embedding failed, retrying once",
			zap.Duration("retry_delay", c.retryDelay),
			zap.Error(err),
		)
		if !c.sleep(ctx) {
			return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", ctx.Err())
		}
		result, err = c.provider.Embed(ctx, text)
	}
	if err != nil {
		c.tracker.RecordFailure()
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	c.tracker.RecordSuccess(time.Since(start))
	return result, nil
}

// BatchEmbed splits texts into provider-sized sub-batches and runs them on
// the worker pool. The returned result keeps input order; items whose
// sub-batch failed after retry are flagged Missing rather than failing the
// call. The call errors only when nothing could be embedded at all.
func (c *Client) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Missing:    make([]bool, len(texts)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for offset := 0; offset < len(texts); offset += c.maxBatch {
		end := offset + c.maxBatch
		if end > len(texts) {
			end = len(texts)
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, err := c.embedSubBatch(ctx, texts[offset:end])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for i := offset; i < end; i++ {
					out.Missing[i] = true
				}
				return
			}
			for i := offset; i < end; i++ {
				j := i - offset
				if j < len(res.Missing) && res.Missing[j] {
					out.Missing[i] = true
					continue
				}
				if j >= len(res.Embeddings) || res.Embeddings[j] == nil {
					out.Missing[i] = true
					continue
				}
				out.Embeddings[i] = res.Embeddings[j]
			}
			out.PromptTokens += res.PromptTokens
			out.TotalTokens += res.TotalTokens
		}
		if err := c.pool.Submit(task); err != nil {
			// Pool is released or overloaded; run inline so order and
			// completeness still hold.
			task()
		}
	}

	wg.Wait()

	if ctx.Err() != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", ctx.Err())
	}

	missing := 0
	for _, m := range out.Missing {
		if m {
			missing++
		}
	}
	if missing == len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", domain.ErrEmbeddingProvider)
	}
	if missing > 0 {
		c.logger.Warn("Batch embedding completed with gaps",
			zap.Int("batch_size", len(texts)),
			zap.Int("missing", missing),
		)
	}

	return out, nil
}

// embedSubBatch performs one provider call with a single delayed retry.
func (c *Client) embedSubBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	start := time.Now()

	res, err := c.provider.BatchEmbed(ctx, texts)
	if err != nil && ctx.Err() == nil {
		c.tracker.RecordFailure()
		c.logger.Warn("Sub-batch embedding failed, retrying once",
			zap.Int("sub_batch_size", len(texts)),
			zap.Duration("retry_delay", c.retryDelay),
			zap.Error(err),
		)
		if !c.sleep(ctx) {
			return domain.BatchEmbeddingResult{}, ctx.Err()
		}
		res, err = c.provider.BatchEmbed(ctx, texts)
	}
	if err != nil {
		c.tracker.RecordFailure()
		return domain.BatchEmbeddingResult{}, err
	}

	c.tracker.RecordSuccess(time.Since(start))
	return res, nil
}

// sleep waits the retry delay, returning false if the context ended first.
func (c *Client) sleep(ctx context.Context) bool {
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
