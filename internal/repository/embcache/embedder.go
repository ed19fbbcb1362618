// Package embcache decorates an embedder with content-addressed caching.
// L1 is the shared in-process bounded cache; L2 is an optional key-value
// store so restarts and replicas reuse paid-for vectors.
package embcache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/cache"
	"github.com/craftbridge/artisanmatch/internal/db"
	"github.com/craftbridge/artisanmatch/internal/domain"
)

const cacheKeyPrefix = "artisanmatch:emb_cache:"

// KVStore is the consumer interface for the persistent cache tier.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings by (fieldType, content hash).
type CachedEmbedder struct {
	inner      domain.Embedder
	memory     *cache.Cache[[]float32]
	store      KVStore
	storeTTL   time.Duration
	fieldType  domain.FieldType
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. store may be nil (memory-only caching).
// cacheTotal is a counter vec with labels "tier" and "result", passed explicitly.
func New(
	inner domain.Embedder,
	memory *cache.Cache[[]float32],
	store KVStore,
	storeTTL time.Duration,
	fieldType domain.FieldType,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		memory:     memory,
		store:      store,
		storeTTL:   storeTTL,
		fieldType:  fieldType,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder. Two calls
// with the same text never reach the provider twice while the entry lives.
// Cache hits report TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.memory.Get(key); ok {
		c.incCache("memory", "hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.incCache("memory", "miss")

	if vec, ok := c.getFromStore(ctx, key, text); ok {
		c.incCache("store", "hit")
		c.memory.Set(key, vec)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	if c.store != nil {
		c.incCache("store", "miss")
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.memory.Set(key, result.Embedding)
	c.putToStore(ctx, key, text, result.Embedding)
	return result, nil
}

// BatchEmbed serves what it can from cache and forwards only the misses to
// the inner embedder. Results keep input order; inner Missing flags pass
// through untouched.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Missing:    make([]bool, len(texts)),
	}

	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.memory.Get(key); ok {
			c.incCache("memory", "hit")
			out.Embeddings[i] = vec
			continue
		}
		c.incCache("memory", "miss")
		if vec, ok := c.getFromStore(ctx, key, text); ok {
			c.incCache("store", "hit")
			c.memory.Set(key, vec)
			out.Embeddings[i] = vec
			continue
		}
		if c.store != nil {
			c.incCache("store", "miss")
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	inner, ok := c.inner.(domain.BatchEmbedder)
	if !ok {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner embedder does not support batching")
	}
	res, err := inner.BatchEmbed(ctx, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}

	for j, i := range missIdx {
		if j < len(res.Missing) && res.Missing[j] {
			out.Missing[i] = true
			continue
		}
		if j >= len(res.Embeddings) || res.Embeddings[j] == nil {
			out.Missing[i] = true
			continue
		}
		vec := res.Embeddings[j]
		out.Embeddings[i] = vec
		key := c.cacheKey(texts[i])
		c.memory.Set(key, vec)
		c.putToStore(ctx, key, texts[i], vec)
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens

	return out, nil
}

func (c *CachedEmbedder) incCache(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

// cacheKey derives the content-addressed key: identical normalized text for
// the same field type always produces the same key, so concurrent writers
// racing on one key store identical values.
func (c *CachedEmbedder) cacheKey(text string) string {
	return cacheKeyPrefix + string(c.fieldType) + ":" + domain.HashText(text)
}

// storedRecord is the L2 wire form of a domain.EmbeddingRecord. The vector
// is packed as little-endian float32 bytes; json base64-encodes it.
type storedRecord struct {
	FieldType   string    `json:"fieldType"`
	ContentHash string    `json:"contentHash"`
	GeneratedAt time.Time `json:"generatedAt"`
	Vector      []byte    `json:"vector"`
}

func (c *CachedEmbedder) getFromStore(ctx context.Context, key, text string) ([]float32, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	vec, err := bytesToVector(stored.Vector)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	record := domain.EmbeddingRecord{
		FieldType:   domain.FieldType(stored.FieldType),
		ContentHash: stored.ContentHash,
		Vector:      vec,
		GeneratedAt: stored.GeneratedAt,
	}
	// A record whose content hash no longer matches the text is stale and
	// must be regenerated, not served.
	if !record.Fresh(text) {
		c.logger.Warn("Discarding stale cached embedding", zap.String("key", key))
		return nil, false
	}

	return record.Vector, true
}

func (c *CachedEmbedder) putToStore(ctx context.Context, key, text string, vec []float32) {
	if c.store == nil {
		return
	}
	record := domain.EmbeddingRecord{
		FieldType:   c.fieldType,
		ContentHash: domain.HashText(text),
		Vector:      vec,
		GeneratedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(storedRecord{
		FieldType:   string(record.FieldType),
		ContentHash: record.ContentHash,
		GeneratedAt: record.GeneratedAt,
		Vector:      vectorToCacheBytes(record.Vector),
	})
	if err != nil {
		c.logger.Warn("Failed to encode embedding record", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.storeTTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
