package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fiberatt/internal/attenuation"
	"fiberatt/internal/logger"
	"fiberatt/internal/plot"
	"fiberatt/internal/report"
	"fiberatt/internal/source"
	"fiberatt/internal/store"

	"github.com/google/uuid"
)

// Result 是一次完整分析的产物。
type Result struct {
	RunID     string
	Source    string
	CreatedAt time.Time
	Samples   attenuation.SampleSet
	Fit       attenuation.FitResult
	CI        attenuation.ConfidenceInterval
	Bundle    attenuation.CurveBundle
	Artifacts []plot.Artifact
}

// Summary 转换为报告视图。
func (r *Result) Summary() report.Summary {
	paths := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		if a.Path != "" {
			paths = append(paths, a.Path)
		}
	}
	return report.Build(report.Input{
		RunID:     r.RunID,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		Samples:   r.Samples,
		Fit:       r.Fit,
		CI:        r.CI,
		Bundle:    r.Bundle,
		Artifacts: paths,
	})
}

// Figures 返回线性与 dB 两个域的图数据。
func (r *Result) Figures() []plot.Figure {
	return plot.BuildFigures(r.Source, r.Samples, r.Bundle)
}

// Analyzer 串联 加载→拟合→置信区间→曲线→绘图→存档。
type Analyzer struct {
	fitter *attenuation.Fitter
	bands  *attenuation.BandGenerator
	sinks  []plot.Sink
	runs   store.RunRepository
	now    func() time.Time
}

type Option func(*Analyzer)

// WithSinks 追加绘图输出。
func WithSinks(sinks ...plot.Sink) Option {
	return func(a *Analyzer) {
		for _, s := range sinks {
			if s != nil {
				a.sinks = append(a.sinks, s)
			}
		}
	}
}

// WithStore 启用运行记录持久化。
func WithStore(runs store.RunRepository) Option {
	return func(a *Analyzer) { a.runs = runs }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAnalyzer(fitter *attenuation.Fitter, bands *attenuation.BandGenerator, opts ...Option) *Analyzer {
	if fitter == nil {
		fitter = attenuation.NewFitter(attenuation.DefaultFitterOptions())
	}
	if bands == nil {
		bands = attenuation.NewBandGenerator()
	}
	a := &Analyzer{fitter: fitter, bands: bands, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 从数据源加载样本并执行分析。
func (a *Analyzer) Run(ctx context.Context, src source.DataSource) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("nil data source")
	}
	samples, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}
	logger.Infof("loaded %d samples from %s", len(samples), src.Name())
	return a.Analyze(ctx, src.Name(), samples)
}

// Analyze 对已加载的样本执行拟合与曲线生成。拟合失败直接返回错误，
// 绘图失败只记录日志，存档失败同样不影响结果。
func (a *Analyzer) Analyze(ctx context.Context, name string, samples attenuation.SampleSet) (*Result, error) {
	fit, err := a.fitter.Fit(samples)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", name, err)
	}
	ci := attenuation.NewConfidenceInterval(fit)
	logger.Debugf("fit %s: %s", name, fit)

	bundle, err := a.bands.Generate(fit, ci, samples.LengthRange())
	if err != nil {
		return nil, fmt.Errorf("curves %s: %w", name, err)
	}
	warnBundle(name, ci, bundle)

	res := &Result{
		Source:    name,
		CreatedAt: a.now(),
		Samples:   samples,
		Fit:       fit,
		CI:        ci,
		Bundle:    bundle,
	}
	res.Artifacts = a.plot(ctx, res.Figures())

	// 只有写入存储的结果才带 RunID。
	if a.runs != nil {
		res.RunID = uuid.NewString()
		if _, err := a.runs.Save(ctx, toRun(res)); err != nil {
			logger.With("run_id", res.RunID, "source", name).Warn("save run failed", "err", err)
			res.RunID = ""
		}
	}
	return res, nil
}

// Replot 用存档的拟合结果重新生成曲线与图数据。
func (a *Analyzer) Replot(run store.Run) ([]plot.Figure, error) {
	bundle, err := a.bands.Generate(run.Fit, run.CI, run.Range)
	if err != nil {
		return nil, err
	}
	return plot.BuildFigures(run.Source, run.Samples, bundle), nil
}

func (a *Analyzer) plot(ctx context.Context, figs []plot.Figure) []plot.Artifact {
	var out []plot.Artifact
	for _, sink := range a.sinks {
		for _, fig := range figs {
			if ctx.Err() != nil {
				return out
			}
			art, err := sink.Plot(ctx, fig)
			if err != nil {
				logger.Warnf("plot %s (%s): %v", fig.Name, fig.Domain, err)
				continue
			}
			out = append(out, art)
		}
	}
	return out
}

func warnBundle(name string, ci attenuation.ConfidenceInterval, bundle attenuation.CurveBundle) {
	if bundle.Degenerate {
		logger.Warnf("%s: degenerate length range [%g, %g], curves collapse to one point",
			name, bundle.Range.Min, bundle.Range.Max)
	}
	if n := bundle.DB.Invalid(); n > 0 {
		logger.Warnf("%s: %d dB grid points undefined (fit=%d lo=%d hi=%d)",
			name, n, bundle.DB.Fit.Invalid, bundle.DB.Lo.Invalid, bundle.DB.Hi.Invalid)
	} else if ci.AtRisk() {
		logger.Debugf("%s: CI bound crosses zero power but no grid point was affected", name)
	}
}

func toRun(r *Result) store.Run {
	return store.Run{
		ID:        r.RunID,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		Samples:   r.Samples,
		Fit:       r.Fit,
		CI:        r.CI,
		Range:     r.Bundle.Range,
		InvalidDB: r.Bundle.DB.Invalid(),
	}
}

// FitErrorCode 把拟合错误映射为机器可读的代码；非拟合错误返回空串。
func FitErrorCode(err error) string {
	var div *attenuation.FitDivergenceError
	switch {
	case errors.As(err, &div):
		return div.Reason.Code()
	case errors.Is(err, attenuation.ErrInsufficientData):
		return "insufficient_data"
	}
	return ""
}
