package di

import (
	"context"
	"fmt"
	"time"

	"FinRisk/internal/domain/repository"
	"FinRisk/internal/handler/api"
	internalrepo "FinRisk/internal/repository"
	"FinRisk/internal/service/ratelimit"
	"FinRisk/internal/usecase"
	"FinRisk/pkg/cache"
	pkgch "FinRisk/pkg/clickhouse"
	"FinRisk/pkg/config"
	xhttp "FinRisk/pkg/http"
	pkgkafka "FinRisk/pkg/kafka"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/metrics"
	"FinRisk/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger builds the process logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

// ProvideRegistry creates the registry behind /metrics. A fresh registry per
// injector keeps repeated wiring in one process from colliding.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache builds the price cache backend. "none" yields a nil Service.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	var (
		svc cache.Service
		err error
	)
	switch cfg.Data.CacheBackend {
	case "none":
		return nil, func() {}, nil
	case "file":
		svc, err = cache.NewFileCache(cfg.Data.CacheDir)
	case "memory":
		svc = cache.NewMemoryCache()
	case "redis":
		svc, err = newRedisCache(cfg)
	case "layered":
		var l2 *cache.RedisCache
		l2, err = newRedisCache(cfg)
		if err == nil {
			svc = cache.NewLayeredCache(l2)
		}
	default:
		err = fmt.Errorf("unknown cache backend %q", cfg.Data.CacheBackend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("price cache: %w", err)
	}
	return svc, func() { _ = svc.Close() }, nil
}

func newRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	return cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
}

// ProvideClickHouseClient connects to ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCHPriceStore binds the price table and makes sure it exists.
func ProvideCHPriceStore(cfg *config.Config, client *pkgch.Client, l *applogger.Logger) (*internalrepo.CHPriceStore, error) {
	store := internalrepo.NewCHPriceStore(client.DB(), cfg.ClickHouse.Table)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, store.Schema()); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

func newYahooSource(cfg *config.Config, l *applogger.Logger) *internalrepo.YahooPriceSource {
	return internalrepo.NewYahooPriceSource(cfg.Data.Yahoo.BaseURL,
		internalrepo.WithYahooTimeout(cfg.Data.Yahoo.Timeout),
		internalrepo.WithYahooRateLimit(ratelimit.New(), cfg.Data.Yahoo.RPS),
		internalrepo.WithYahooLogger(l),
	)
}

func newCSVSource(cfg *config.Config, l *applogger.Logger) *internalrepo.CSVPriceSource {
	src := internalrepo.NewCSVPriceSource(cfg.Data.CSVDir)
	src.SetLogger(l)
	return src
}

// ProvidePriceSource builds the configured source and puts the cache in front of it.
// A ClickHouse source opens its own connection, released by the returned cleanup.
func ProvidePriceSource(cfg *config.Config, c cache.Service, m repository.Metrics, l *applogger.Logger) (repository.PriceSource, func(), error) {
	var (
		src     repository.PriceSource
		cleanup = func() {}
	)
	switch cfg.Data.Source {
	case "yahoo":
		src = newYahooSource(cfg, l)
	case "csv":
		src = newCSVSource(cfg, l)
	case "clickhouse":
		client, closeClient, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := ProvideCHPriceStore(cfg, client, l)
		if err != nil {
			closeClient()
			return nil, nil, err
		}
		src, cleanup = store, closeClient
	default:
		return nil, nil, fmt.Errorf("unknown price source %q", cfg.Data.Source)
	}

	if c == nil {
		return src, cleanup, nil
	}
	return internalrepo.NewCachedPriceSource(src, c,
		internalrepo.WithCacheTTL(cfg.Data.CacheTTL),
		internalrepo.WithForceRefresh(cfg.Data.ForceRefresh),
		internalrepo.WithCacheMetrics(m),
		internalrepo.WithCacheLogger(l),
	), cleanup, nil
}

// ProvideUpstreamSource is the provider an ingest reads from: CSV when configured,
// Yahoo otherwise (ClickHouse is the destination, never the origin).
func ProvideUpstreamSource(cfg *config.Config, l *applogger.Logger) repository.PriceSource {
	if cfg.Data.Source == "csv" {
		return newCSVSource(cfg, l)
	}
	return newYahooSource(cfg, l)
}

// ProvideReportPublisher creates the Kafka report publisher, or nil when publishing
// is disabled.
func ProvideReportPublisher(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (repository.ReportPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic)
	pub.SetLogger(l)
	return pub, func() { _ = pub.Close() }, nil
}

// ProvideRiskAnalyzer creates the risk analysis use case.
func ProvideRiskAnalyzer(src repository.PriceSource, m repository.Metrics, l *applogger.Logger) *usecase.RiskAnalyzer {
	return usecase.NewRiskAnalyzer(src, m, l)
}

// ProvideRunPipeline creates the batch run use case.
func ProvideRunPipeline(cfg *config.Config, analyzer *usecase.RiskAnalyzer, pub repository.ReportPublisher, m repository.Metrics) *usecase.RunPipeline {
	return usecase.NewRunPipeline(cfg, analyzer, pub, m)
}

// ProvidePriceIngester creates the ingest use case writing into ClickHouse.
func ProvidePriceIngester(src repository.PriceSource, store *internalrepo.CHPriceStore, m repository.Metrics, l *applogger.Logger) *usecase.PriceIngester {
	return usecase.NewPriceIngester(src, store, m, l)
}

// ProvideRiskHandler creates the risk API handler.
func ProvideRiskHandler(cfg *config.Config, l *applogger.Logger, analyzer *usecase.RiskAnalyzer) *api.RiskEchoHandler {
	return api.NewRiskEchoHandler(l, analyzer, api.PortfolioDefaults{
		AutoAdjust:          cfg.Data.AutoAdjust,
		ConfidenceLevels:    cfg.Risk.ConfidenceLevels,
		AnnualisationFactor: cfg.Risk.AnnualisationFactor,
	})
}

// ProvideHTTPServer creates the Echo server with the risk routes.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.RiskEchoHandler, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the serve-mode application.
func ProvideApp(l *applogger.Logger, srv *xhttp.Server) *server.App {
	return server.New(l, srv)
}
