package config

import (
	"fmt"
	"strings"
)

// Validate 在命令行覆盖配置后重新校验。
func (c *Config) Validate() error {
	return validate(c)
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Fit.validate(); err != nil {
		return err
	}
	if err := c.Loader.validate(); err != nil {
		return err
	}
	if err := c.Plot.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	return c.HTTP.validate()
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
}

func (f *FitConfig) validate() error {
	if f.MaxIterations <= 0 {
		return fmt.Errorf("fit.max_iterations must be > 0")
	}
	if f.FTol <= 0 || f.XTol <= 0 {
		return fmt.Errorf("fit.ftol and fit.xtol must be > 0")
	}
	return nil
}

func (l *LoaderConfig) validate() error {
	switch l.Header {
	case HeaderAuto, HeaderNone, HeaderSkip:
	default:
		return fmt.Errorf("loader.header must be one of auto/none/skip, got %q", l.Header)
	}
	switch l.DelimiterRune() {
	case '"', '\r', '\n':
		return fmt.Errorf("loader.delimiter %q is not usable", l.Delimiter)
	}
	return nil
}

func (p *PlotConfig) validate() error {
	if p.Enabled && strings.TrimSpace(p.OutputDir) == "" {
		return fmt.Errorf("plot.output_dir cannot be empty when plot.enabled")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("plot.width/plot.height must be > 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if s.Enabled && strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("store.path cannot be empty when store.enabled")
	}
	return nil
}

func (h *HTTPConfig) validate() error {
	if strings.TrimSpace(h.Addr) == "" {
		return fmt.Errorf("http.addr cannot be empty")
	}
	if h.RatePerMinute <= 0 || h.Burst <= 0 {
		return fmt.Errorf("http.rate_per_minute and http.burst must be > 0")
	}
	if h.MaxSamples < 3 {
		return fmt.Errorf("http.max_samples must be >= 3")
	}
	return nil
}
