package embedder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Per-model request ceilings and pricing, matching the provider's published
// limits for the small and large embedding model classes.
const (
	defaultRequestsPerMinute      = 3500
	defaultRequestsPerMinuteLarge = 500
	defaultMaxRetries             = 3
	defaultBaseDelay              = time.Second
)

var defaultCostPer1KTokens = map[string]float64{
	"text-embedding-3-small": 0.00002,
	"text-embedding-3-large": 0.00013,
}

// UsageStats tracks what this client instance has spent against the
// provider. Counters only move on successful calls.
type UsageStats struct {
	RequestCount    int64     `json:"request_count"`
	TotalTokens     int64     `json:"total_tokens"`
	TotalCostUSD    float64   `json:"total_cost_usd"`
	LastRequestTime time.Time `json:"last_request_time"`
}

type ClientConfig struct {
	Model             string
	RequestsPerMinute int           // 0 picks a ceiling from the model class
	MaxRetries        int           // 0 means the default of 3
	BaseDelay         time.Duration // first retry delay, doubled per attempt
	CostPer1KTokens   float64       // 0 looks up the default price table
}

// Client wraps a Provider with rate limiting, retry with exponential
// backoff, and usage accounting.
type Client struct {
	provider   Provider
	model      string
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	costPer1K  float64

	mu    sync.Mutex
	stats UsageStats
}

func NewClient(provider Provider, cfg ClientConfig) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
		if strings.Contains(cfg.Model, "large") {
			rpm = defaultRequestsPerMinuteLarge
		}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	costPer1K := cfg.CostPer1KTokens
	if costPer1K <= 0 {
		costPer1K = defaultCostPer1KTokens[cfg.Model]
		if costPer1K == 0 {
			costPer1K = defaultCostPer1KTokens["text-embedding-3-small"]
		}
	}
	return &Client{
		provider:   provider,
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		costPer1K:  costPer1K,
	}
}

func (c *Client) Model() string {
	return c.model
}

// EmbedOne embeds a single text. Blank input fails immediately with
// ErrEmptyInput; transient provider failures are retried.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := c.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in chunks of batchSize, one provider call per
// chunk. The result always has exactly len(texts) entries in input order;
// a chunk that exhausts its retries contributes empty placeholder vectors
// so the rest of the batch still makes progress.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := logutil.GetLogger(ctx)
	totalChunks := (len(texts) + batchSize - 1) / batchSize
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[i:end]
		chunkNum := i/batchSize + 1
		vectors, err := c.embedChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("embedding chunk failed, filling placeholders",
				zap.Int("chunk", chunkNum),
				zap.Int("total_chunks", totalChunks),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			for range chunk {
				out = append(out, nil)
			}
			continue
		}
		logger.Debug("embedding chunk completed",
			zap.Int("chunk", chunkNum),
			zap.Int("total_chunks", totalChunks),
			zap.Int("size", len(chunk)),
		)
		out = append(out, vectors...)
	}
	return out, nil
}

// TestConnection probes the provider with a trivial embed call. It never
// returns an error; failure is the false result.
func (c *Client) TestConnection(ctx context.Context) bool {
	vec, err := c.EmbedOne(ctx, "Hello, world!")
	if err != nil {
		logutil.GetLogger(ctx).Warn("connection test failed", zap.Error(err))
		return false
	}
	logutil.GetLogger(ctx).Info("connection test ok", zap.Int("dimension", len(vec)))
	return true
}

func (c *Client) UsageStats() UsageStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Client) ResetUsageStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = UsageStats{}
}

func (c *Client) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	logger := logutil.GetLogger(ctx)
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			logger.Warn("embedding request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.maxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vectors, tokens, err := c.provider.EmbedBatch(ctx, c.model, texts)
		if err == nil {
			c.recordUsage(tokens)
			return vectors, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) recordUsage(tokens int) {
	cost := float64(tokens) / 1000 * c.costPer1K
	c.mu.Lock()
	c.stats.RequestCount++
	c.stats.TotalTokens += int64(tokens)
	c.stats.TotalCostUSD += cost
	c.stats.LastRequestTime = time.Now()
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
