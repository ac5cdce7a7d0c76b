//go:build wireinject
// +build wireinject

package di

import (
	"FinRisk/internal/usecase"
	"FinRisk/pkg/config"
	"FinRisk/pkg/server"

	"github.com/google/wire"
)

var baseSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
)

var analysisSet = wire.NewSet(
	baseSet,
	ProvideCache,
	ProvidePriceSource,
	ProvideRiskAnalyzer,
)

// InitializeApp wires the HTTP API. Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		analysisSet,
		ProvideRiskHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeRunPipeline wires one batch run.
func InitializeRunPipeline(cfg *config.Config) (*usecase.RunPipeline, func(), error) {
	wire.Build(
		analysisSet,
		ProvideReportPublisher,
		ProvideRunPipeline,
	)
	return nil, nil, nil
}

// InitializePriceIngester wires the upstream-to-ClickHouse copy.
func InitializePriceIngester(cfg *config.Config) (*usecase.PriceIngester, func(), error) {
	wire.Build(
		baseSet,
		ProvideClickHouseClient,
		ProvideCHPriceStore,
		ProvideUpstreamSource,
		ProvidePriceIngester,
	)
	return nil, nil, nil
}
