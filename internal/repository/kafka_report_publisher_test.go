package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"FinRisk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaReportPublisher(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaReportPublisher(fp, "risk.reports")

	report := &models.RiskReport{
		ID:               "r-1",
		Tickers:          []string{"AAPL", "MSFT"},
		Summary:          map[string]float64{"historical_var@95%": 0.02},
		PortfolioReturns: []models.SeriesPoint{{Value: 0.01}},
	}
	require.NoError(t, pub.Publish(context.Background(), report))

	assert.Equal(t, "risk.reports", fp.topic)
	assert.Equal(t, "AAPL,MSFT", string(fp.key))

	b, err := json.Marshal(fp.value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"historical_var@95%":0.02`)
	assert.NotContains(t, string(b), "PortfolioReturns")

	require.NoError(t, pub.Close())
	assert.True(t, fp.closed)
}

func TestKafkaReportPublisherWrapsError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	pub := NewKafkaReportPublisher(fp, "risk.reports")

	err := pub.Publish(context.Background(), &models.RiskReport{ID: "r-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r-2")
	assert.Contains(t, err.Error(), "broker down")
}
