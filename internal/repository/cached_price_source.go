package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/pkg/cache"
	applogger "FinRisk/pkg/logger"
)

// CachedPriceSource is a read-through cache in front of another PriceSource. The key is
// derived from the request fingerprint, so ticker order does not matter.
type CachedPriceSource struct {
	next         domrepo.PriceSource
	cache        cache.Service
	ttl          time.Duration
	forceRefresh bool
	metrics      domrepo.Metrics
	l            *applogger.Logger
}

// CacheOption configures CachedPriceSource.
type CacheOption func(*CachedPriceSource)

// WithCacheTTL sets how long cached matrices stay valid (0 = forever).
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedPriceSource) { c.ttl = ttl }
}

// WithForceRefresh skips cache reads; fresh data is still written back.
func WithForceRefresh(force bool) CacheOption {
	return func(c *CachedPriceSource) { c.forceRefresh = force }
}

// WithCacheMetrics records hit/miss/bypass counts.
func WithCacheMetrics(m domrepo.Metrics) CacheOption {
	return func(c *CachedPriceSource) { c.metrics = m }
}

// WithCacheLogger injects a structured logger.
func WithCacheLogger(l *applogger.Logger) CacheOption {
	return func(c *CachedPriceSource) { c.l = l }
}

func NewCachedPriceSource(next domrepo.PriceSource, svc cache.Service, opts ...CacheOption) *CachedPriceSource {
	c := &CachedPriceSource{next: next, cache: svc, l: applogger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domrepo.PriceSource = (*CachedPriceSource)(nil)

func (c *CachedPriceSource) Name() string { return c.next.Name() }

// CacheKey returns the key a request is stored under: "prices:" + 16 hex chars of the
// SHA-256 of the request fingerprint.
func CacheKey(req models.DataRequest) string {
	return cache.GenerateKey("prices", cache.HashKey(req.Fingerprint(), 16))
}

func (c *CachedPriceSource) Fetch(ctx context.Context, req models.DataRequest) (*models.PriceMatrix, error) {
	key := CacheKey(req)

	if c.forceRefresh {
		c.record("bypass")
	} else {
		var m models.PriceMatrix
		err := c.cache.Get(ctx, key, &m)
		switch {
		case err == nil:
			c.record("hit")
			c.l.Info("price cache hit",
				applogger.String("key", key),
				applogger.Int("rows", m.Rows()),
			)
			return reorder(&m, req.Tickers), nil
		case errors.Is(err, cache.ErrCacheMiss):
			c.record("miss")
		default:
			c.record("miss")
			c.l.Warn("price cache read failed",
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
	}

	m, err := c.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, m, c.ttl); err != nil {
		c.l.Warn("price cache write failed",
			applogger.String("key", key),
			applogger.Error(err),
		)
	} else {
		c.l.Debug("price cache stored", applogger.String("key", key), applogger.Int("rows", m.Rows()))
	}
	return m, nil
}

func (c *CachedPriceSource) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(result)
	}
}

// reorder returns m with columns in the requested ticker order. The cached matrix may
// have been stored by a request listing the same tickers differently.
func reorder(m *models.PriceMatrix, tickers []string) *models.PriceMatrix {
	if slices.Equal(m.Tickers, tickers) {
		return m
	}
	col := make(map[string]int, len(m.Tickers))
	for j, t := range m.Tickers {
		col[t] = j
	}
	out := &models.PriceMatrix{
		Tickers: append([]string(nil), tickers...),
		Index:   m.Index,
		Values:  make([][]float64, len(m.Values)),
	}
	for i, row := range m.Values {
		out.Values[i] = make([]float64, len(tickers))
		for j, t := range tickers {
			out.Values[i][j] = row[col[t]]
		}
	}
	return out
}
