package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FinRisk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Jan 2..5 2024, 14:30 UTC (09:30 New York).
const chartBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL","gmtoffset":-18000,"timezone":"EST"},
"timestamp":[1704205800,1704292200,1704378600,1704465000],
"indicators":{"quote":[{"close":[185.64,184.25,null,181.18]}],
"adjclose":[{"adjclose":[184.9,183.5,null,180.4]}]}}],"error":null}}`

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func yahooRequest(adjust bool) models.DataRequest {
	return models.DataRequest{
		Tickers:    []string{"AAPL"},
		Start:      day(1),
		End:        day(5),
		Interval:   "1d",
		AutoAdjust: adjust,
	}
}

func TestYahooFetchParsesChart(t *testing.T) {
	var gotUA, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotInterval = r.URL.Query().Get("interval")
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	src := NewYahooPriceSource(srv.URL, WithYahooBackoffs())
	m, err := src.Fetch(context.Background(), yahooRequest(false))
	require.NoError(t, err)

	assert.Contains(t, gotUA, "Mozilla")
	assert.Equal(t, "1d", gotInterval)
	// null close skipped, Jan 5 excluded by the exclusive end
	require.Equal(t, 2, m.Rows())
	assert.Equal(t, []time.Time{day(2), day(3)}, m.Index)
	assert.Equal(t, []float64{185.64, 184.25}, m.Column(0))
}

func TestYahooFetchUsesAdjustedClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	src := NewYahooPriceSource(srv.URL, WithYahooBackoffs())
	m, err := src.Fetch(context.Background(), yahooRequest(true))
	require.NoError(t, err)
	assert.Equal(t, []float64{184.9, 183.5}, m.Column(0))
}

func TestYahooRetriesTooManyRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("Edge: Too Many Requests"))
		case 2:
			_, _ = w.Write([]byte("<html>consent</html>"))
		default:
			_, _ = w.Write([]byte(chartBody))
		}
	}))
	defer srv.Close()

	src := NewYahooPriceSource(srv.URL, WithYahooBackoffs(time.Millisecond, time.Millisecond, time.Millisecond))
	m, err := src.Fetch(context.Background(), yahooRequest(false))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestYahooGivesUpAfterBackoffs(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewYahooPriceSource(srv.URL, WithYahooBackoffs(time.Millisecond, time.Millisecond))
	_, err := src.Fetch(context.Background(), yahooRequest(false))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestYahooUnknownSymbol(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	src := NewYahooPriceSource(srv.URL, WithYahooBackoffs(time.Millisecond))
	_, err := src.Fetch(context.Background(), yahooRequest(false))
	assert.ErrorIs(t, err, models.ErrNoPrices)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestYahooEmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	req := yahooRequest(false)
	req.Start, req.End = day(20), day(25)
	_, err := NewYahooPriceSource(srv.URL).Fetch(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrNoPrices)
}
