package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"FinRisk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB is a database/sql connector that records statements and serves canned rows
// keyed by the first query argument (the symbol).
type fakeDB struct {
	mu      sync.Mutex
	execs   []fakeCall
	queries []fakeCall
	rows    map[string][][]driver.Value
}

type fakeCall struct {
	query string
	args  []driver.Value
}

func (f *fakeDB) Connect(context.Context) (driver.Conn, error) { return &fakeConn{f: f}, nil }
func (f *fakeDB) Driver() driver.Driver                        { return fakeDriver{f: f} }

type fakeDriver struct{ f *fakeDB }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{f: d.f}, nil }

type fakeConn struct{ f *fakeDB }

func (c *fakeConn) Prepare(q string) (driver.Stmt, error) { return &fakeStmt{f: c.f, q: q}, nil }
func (c *fakeConn) Close() error                          { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)             { return nil, errors.New("no transactions") }

type fakeStmt struct {
	f *fakeDB
	q string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.execs = append(s.f.execs, fakeCall{query: s.q, args: args})
	return driver.RowsAffected(len(args) / 6), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.queries = append(s.f.queries, fakeCall{query: s.q, args: args})
	sym, _ := args[0].(string)
	return &fakeRows{data: s.f.rows[sym]}, nil
}

type fakeRows struct {
	data [][]driver.Value
	i    int
}

func (r *fakeRows) Columns() []string { return []string{"bucket", "close"} }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.i])
	r.i++
	return nil
}

func newFakeStore(t *testing.T, rows map[string][][]driver.Value) (*CHPriceStore, *fakeDB) {
	t.Helper()
	f := &fakeDB{rows: rows}
	db := sql.OpenDB(f)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHPriceStore(db, "finrisk.daily_prices"), f
}

func TestCHPriceStoreFetch(t *testing.T) {
	store, f := newFakeStore(t, map[string][][]driver.Value{
		"AAA": {{day(2), 10.0}, {day(3), 11.0}},
		"BBB": {{day(3), 21.0}},
	})
	req := models.DataRequest{Tickers: []string{"AAA", "BBB"}, Start: day(1), End: day(5), Interval: "1d", AutoAdjust: true}

	m, err := store.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2), day(3)}, m.Index)
	assert.Equal(t, []float64{10, 11}, m.Column(0))

	require.Len(t, f.queries, 2)
	q := f.queries[0]
	assert.Contains(t, q.query, "FROM finrisk.daily_prices FINAL")
	require.Len(t, q.args, 5)
	assert.Equal(t, "AAA", q.args[0])
	assert.Equal(t, "1d", q.args[1])
	assert.Equal(t, int64(1), q.args[2])
}

func TestCHPriceStoreFetchMissingTicker(t *testing.T) {
	store, _ := newFakeStore(t, nil)
	req := models.DataRequest{Tickers: []string{"ZZZ"}, Start: day(1), End: day(5), Interval: "1d"}
	_, err := store.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrNoPrices)
}

func TestCHPriceStoreStoreBatchChunks(t *testing.T) {
	store, f := newFakeStore(t, nil)
	pts := make([]models.PricePoint, 2001)
	for i := range pts {
		pts[i] = models.PricePoint{Time: day(1).AddDate(0, 0, i), Close: float64(100 + i)}
	}

	err := store.StoreBatch(context.Background(), models.PriceBatch{
		Ticker: "AAA", Interval: "1d", Adjusted: true, Source: "yahoo", Points: pts,
	})
	require.NoError(t, err)

	require.Len(t, f.execs, 2)
	assert.Contains(t, f.execs[0].query, "INSERT INTO finrisk.daily_prices (symbol, interval, adjusted, bucket, close, source)")
	assert.Len(t, f.execs[0].args, 2000*6)
	assert.Len(t, f.execs[1].args, 6)
	assert.Equal(t, "yahoo", f.execs[1].args[5])
}

func TestCHPriceStoreSchema(t *testing.T) {
	store, _ := newFakeStore(t, nil)
	stmts := store.Schema()
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS finrisk", stmts[0])
	assert.Contains(t, stmts[1], "ReplacingMergeTree(ingested_at)")
}
