package usecase

import (
	"context"
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
)

// PriceIngester copies closes from an upstream source into a PriceStore so later
// runs can read them back without touching the provider.
type PriceIngester struct {
	source  domrepo.PriceSource
	store   domrepo.PriceStore
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewPriceIngester(source domrepo.PriceSource, store domrepo.PriceStore, metrics domrepo.Metrics, l *applogger.Logger) *PriceIngester {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PriceIngester{source: source, store: store, metrics: metrics, l: l}
}

// IngestResult counts the rows written per ticker.
type IngestResult struct {
	Source string
	Rows   map[string]int
}

// Ingest fetches req from the source and stores one batch per ticker. Missing
// observations (NaN cells from the outer join) are not written.
func (p *PriceIngester) Ingest(ctx context.Context, req models.DataRequest) (*IngestResult, error) {
	start := time.Now()

	m, err := p.source.Fetch(ctx, req)
	if err != nil {
		p.metrics.RecordError("ingest_fetch")
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	res := &IngestResult{Source: p.source.Name(), Rows: make(map[string]int, len(m.Tickers))}
	for j, ticker := range m.Tickers {
		batch := models.PriceBatch{
			Ticker:   ticker,
			Interval: req.Interval,
			Adjusted: req.AutoAdjust,
			Source:   res.Source,
			Points:   m.Points(j),
		}
		if err := p.store.StoreBatch(ctx, batch); err != nil {
			p.metrics.RecordError("ingest_store")
			return res, fmt.Errorf("store %s: %w", ticker, err)
		}
		res.Rows[ticker] = len(batch.Points)
		p.l.Debug("prices stored", applogger.String("ticker", ticker), applogger.Int("rows", len(batch.Points)))
	}

	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	p.l.Info("ingest complete",
		applogger.String("source", res.Source),
		applogger.Strings("tickers", m.Tickers),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}
