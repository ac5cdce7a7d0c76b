package repository

import (
	"context"

	"FinRisk/internal/domain/models"
)

// PriceSource loads close prices for a request. Columns follow req.Tickers order.
type PriceSource interface {
	Fetch(ctx context.Context, req models.DataRequest) (*models.PriceMatrix, error)
	Name() string
}

// PriceStore persists close prices so they can be served back by a PriceSource.
type PriceStore interface {
	StoreBatch(ctx context.Context, b models.PriceBatch) error
}

// ReportPublisher ships finished reports to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, r *models.RiskReport) error
	Close() error
}

type Metrics interface {
	RecordComputation(metric, result string)
	RecordError(kind string)
	RecordMetricValue(scope, metric string, value float64)
	RecordLatency(op string, seconds float64)
	RecordCacheLookup(result string)
}
