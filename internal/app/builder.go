package app

import (
	"context"
	"time"

	"fiberatt/internal/analysis"
	"fiberatt/internal/attenuation"
	"fiberatt/internal/config"
	"fiberatt/internal/logger"
	"fiberatt/internal/plot"
	"fiberatt/internal/store"
	"fiberatt/internal/store/gormstore"
	fithttp "fiberatt/internal/transport/http/fit"
)

type AppBuilder struct {
	cfg *config.Config

	storeFn func(config.StoreConfig) (store.RunRepository, error)
	sinksFn func(config.PlotConfig) []plot.Sink
	httpFn  func(config.HTTPConfig, fithttp.RouterConfig) (*fithttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithStoreFactory 替换存储构造，测试中可注入内存实现。
func WithStoreFactory(fn func(config.StoreConfig) (store.RunRepository, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.storeFn = fn }
}

func WithSinkFactory(fn func(config.PlotConfig) []plot.Sink) AppBuilderOption {
	return func(b *AppBuilder) { b.sinksFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:     cfg,
		storeFn: buildRunStore,
		sinksFn: buildSinks,
		httpFn:  buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	fitter := attenuation.NewFitter(attenuation.FitterOptions{
		MaxIterations: cfg.Fit.MaxIterations,
		FTol:          cfg.Fit.FTol,
		XTol:          cfg.Fit.XTol,
	})
	bands := attenuation.NewBandGenerator()

	var runs store.RunRepository
	if cfg.Store.Enabled {
		r, err := b.storeFn(cfg.Store)
		if err != nil {
			return nil, err
		}
		runs = r
	}
	sinks := b.sinksFn(cfg.Plot)

	cliOpts := []analysis.Option{analysis.WithSinks(sinks...)}
	apiOpts := []analysis.Option{}
	if runs != nil {
		cliOpts = append(cliOpts, analysis.WithStore(runs))
		apiOpts = append(apiOpts, analysis.WithStore(runs))
	}
	analyzer := analysis.NewAnalyzer(fitter, bands, cliOpts...)

	// HTTP 请求只返回数据与按需渲染的图，不写本地文件。
	httpSrv, err := b.httpFn(cfg.HTTP, fithttp.RouterConfig{
		Analyzer:      analysis.NewAnalyzer(fitter, bands, apiOpts...),
		Runs:          runs,
		RatePerMinute: cfg.HTTP.RatePerMinute,
		Burst:         cfg.HTTP.Burst,
		MaxSamples:    cfg.HTTP.MaxSamples,
		ChartSize:     chartSize(cfg.Plot),
	})
	if err != nil {
		if runs != nil {
			_ = runs.Close()
		}
		return nil, err
	}

	return &App{
		cfg:      cfg,
		analyzer: analyzer,
		runs:     runs,
		httpSrv:  httpSrv,
		Summary:  newStartupSummary(cfg, sinks, runs != nil),
	}, nil
}

func buildRunStore(cfg config.StoreConfig) (store.RunRepository, error) {
	s, err := gormstore.NewGormStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Debugf("run store opened at %s", cfg.Path)
	return s, nil
}

func buildSinks(cfg config.PlotConfig) []plot.Sink {
	if !cfg.Enabled {
		return nil
	}
	size := chartSize(cfg)
	sinks := []plot.Sink{plot.NewHTMLSink(cfg.OutputDir, size)}
	if cfg.PNG {
		timeout := time.Duration(cfg.RenderTimeoutSeconds) * time.Second
		sinks = append(sinks, plot.NewPNGSink(cfg.OutputDir, size, timeout))
	}
	return sinks
}

func buildHTTPServer(cfg config.HTTPConfig, router fithttp.RouterConfig) (*fithttp.Server, error) {
	return fithttp.NewServer(fithttp.ServerConfig{Addr: cfg.Addr, Router: router})
}

func chartSize(cfg config.PlotConfig) plot.ChartSize {
	return plot.ChartSize{Width: cfg.Width, Height: cfg.Height}
}
