package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
)

// CHPriceStore reads and writes close prices in a ClickHouse ReplacingMergeTree table.
// Re-ingesting a day replaces the earlier row, so reads use FINAL.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(db *sql.DB, table string) *CHPriceStore {
	return &CHPriceStore{db: db, table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

var (
	_ domrepo.PriceSource = (*CHPriceStore)(nil)
	_ domrepo.PriceStore  = (*CHPriceStore)(nil)
)

func (s *CHPriceStore) Name() string { return "clickhouse" }

// Schema returns the idempotent DDL for the price table (and its database when the
// table name is qualified).
func (s *CHPriceStore) Schema() []string {
	var stmts []string
	if i := strings.IndexByte(s.table, '.'); i > 0 {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.table[:i]))
	}
	stmts = append(stmts, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol      LowCardinality(String),
            interval    LowCardinality(String),
            adjusted    UInt8,
            bucket      DateTime('UTC'),
            close       Float64,
            source      LowCardinality(String),
            ingested_at DateTime DEFAULT now()
        )
        ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (symbol, interval, adjusted, bucket)
    `, s.table))
	return stmts
}

func (s *CHPriceStore) Fetch(ctx context.Context, req models.DataRequest) (*models.PriceMatrix, error) {
	points := make(map[string][]models.PricePoint, len(req.Tickers))
	for _, ticker := range req.Tickers {
		pts, err := s.query(ctx, ticker, req)
		if err != nil {
			return nil, err
		}
		if len(pts) == 0 {
			return nil, fmt.Errorf("clickhouse %s: %w", ticker, models.ErrNoPrices)
		}
		points[ticker] = pts
	}
	return models.NewPriceMatrix(req.Tickers, points), nil
}

func (s *CHPriceStore) query(ctx context.Context, ticker string, req models.DataRequest) ([]models.PricePoint, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, close
        FROM %s FINAL
        WHERE symbol = ? AND interval = ? AND adjusted = ? AND bucket >= ? AND bucket < ?
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, req.Interval, boolToUInt8(req.AutoAdjust), req.Start, req.End)
	if err != nil {
		s.l.Error("clickhouse price query error",
			applogger.String("table", s.table),
			applogger.String("symbol", ticker),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query prices %s: %w", ticker, err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 256)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Time, &p.Close); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Time = p.Time.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse price query ok",
		applogger.String("table", s.table),
		applogger.String("symbol", ticker),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBatch inserts the batch with multi-row VALUES statements, 2000 rows per statement.
func (s *CHPriceStore) StoreBatch(ctx context.Context, b models.PriceBatch) error {
	if len(b.Points) == 0 {
		return nil
	}
	const chunkSize = 2000
	adjusted := boolToUInt8(b.Adjusted)
	for start := 0; start < len(b.Points); start += chunkSize {
		end := start + chunkSize
		if end > len(b.Points) {
			end = len(b.Points)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, p := range b.Points[start:end] {
			if p.Time.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, b.Ticker, b.Interval, adjusted, p.Time.UTC(), p.Close, b.Source)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, interval, adjusted, bucket, close, source) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert prices %s: %w", b.Ticker, err)
		}
	}
	s.l.Info("clickhouse prices stored",
		applogger.String("table", s.table),
		applogger.String("symbol", b.Ticker),
		applogger.Int("rows", len(b.Points)),
	)
	return nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
