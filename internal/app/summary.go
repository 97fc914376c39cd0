package app

import (
	"fmt"
	"strings"

	"fiberatt/internal/config"
	"fiberatt/internal/plot"
)

type StartupSummary struct {
	Env        string
	LogLevel   string
	Fit        config.FitConfig
	Loader     config.LoaderConfig
	Sinks      []string
	OutputDir  string
	StoreOn    bool
	StorePath  string
	HTTPAddr   string
	RatePerMin int
}

func newStartupSummary(cfg *config.Config, sinks []plot.Sink, storeOn bool) *StartupSummary {
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		switch s.(type) {
		case *plot.HTMLSink:
			names = append(names, "html")
		case *plot.PNGSink:
			names = append(names, "png")
		default:
			names = append(names, fmt.Sprintf("%T", s))
		}
	}
	return &StartupSummary{
		Env:        cfg.App.Env,
		LogLevel:   cfg.App.LogLevel,
		Fit:        cfg.Fit,
		Loader:     cfg.Loader,
		Sinks:      names,
		OutputDir:  cfg.Plot.OutputDir,
		StoreOn:    storeOn,
		StorePath:  cfg.Store.Path,
		HTTPAddr:   cfg.HTTP.Addr,
		RatePerMin: cfg.HTTP.RatePerMinute,
	}
}

// String 渲染启动摘要，Print 直接输出到 stdout。
func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 64)
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "%*s\n", 32+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Fprintln(&b, line)

	fmt.Fprintln(&b, "[运行环境 (APP)]")
	fmt.Fprintf(&b, "  环境: %s\n", orDash(s.Env))
	fmt.Fprintf(&b, "  日志级别: %s\n", orDash(s.LogLevel))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[拟合 (FIT)]")
	fmt.Fprintf(&b, "  最大迭代: %d\n", s.Fit.MaxIterations)
	fmt.Fprintf(&b, "  ftol / xtol: %g / %g\n", s.Fit.FTol, s.Fit.XTol)
	fmt.Fprintf(&b, "  CSV: delimiter=%q header=%s comment=%q\n", s.Loader.Delimiter, s.Loader.Header, s.Loader.Comment)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[输出 (OUTPUT)]")
	fmt.Fprintf(&b, "  绘图: %s -> %s\n", formatList(s.Sinks), orDash(s.OutputDir))
	if s.StoreOn {
		fmt.Fprintf(&b, "  历史记录: %s\n", s.StorePath)
	} else {
		fmt.Fprintln(&b, "  历史记录: (关闭)")
	}
	fmt.Fprintf(&b, "  HTTP: %s (%d req/min)\n", orDash(s.HTTPAddr), s.RatePerMin)
	fmt.Fprintln(&b, line)
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
