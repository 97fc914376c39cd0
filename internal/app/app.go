package app

import (
	"context"
	"errors"
	"fmt"

	"fiberatt/internal/analysis"
	"fiberatt/internal/config"
	"fiberatt/internal/logger"
	"fiberatt/internal/source"
	"fiberatt/internal/store"
	fithttp "fiberatt/internal/transport/http/fit"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→执行分析或启动 HTTP 服务。
type App struct {
	cfg      *config.Config
	analyzer *analysis.Analyzer
	runs     store.RunRepository
	httpSrv  *fithttp.Server
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	return buildAppWithWire(context.Background(), cfg)
}

// Analyze 对一个数据源执行完整分析。
func (a *App) Analyze(ctx context.Context, src source.DataSource) (*analysis.Result, error) {
	if a == nil || a.analyzer == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return a.analyzer.Run(ctx, src)
}

// Runs 返回历史记录仓库；存储关闭时为 nil。
func (a *App) Runs() store.RunRepository {
	if a == nil {
		return nil
	}
	return a.runs
}

// Serve 启动 HTTP 服务；watcher 非空时在退出时停止热更新。
func (a *App) Serve(ctx context.Context, watcher *config.Watcher) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.httpSrv == nil {
		return fmt.Errorf("http server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("HTTP listening on %s", a.httpSrv.Addr())
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	if watcher != nil {
		group.Go(func() error {
			<-ctx.Done()
			watcher.Stop()
			logger.Debugf("config watcher stopped at version %d", watcher.Version())
			return nil
		})
	}
	return group.Wait()
}

// ApplyConfig 应用热更新中可以在运行期生效的字段。
func ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config reloaded, log_level=%s", cfg.App.LogLevel)
}

// Close 释放存储等资源。
func (a *App) Close() error {
	if a == nil || a.runs == nil {
		return nil
	}
	err := a.runs.Close()
	a.runs = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
