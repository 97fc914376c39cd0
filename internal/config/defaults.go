package config

import "strings"

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogFormat    = "text"
	defaultFitMaxIter      = 200
	defaultFitTolerance    = 1.49012e-8
	defaultLoaderDelimiter = ","
	defaultLoaderHeader    = HeaderAuto
	defaultLoaderComment   = "#"
	defaultPlotOutputDir   = "out"
	defaultPlotWidth       = 1200
	defaultPlotHeight      = 700
	defaultPlotTimeout     = 20
	defaultStorePath       = "data/fiberatt.db"
	defaultHTTPAddr        = ":9992"
	defaultHTTPRate        = 120
	defaultHTTPBurst       = 20
	defaultHTTPMaxSamples  = 100000
)

// 表头策略
const (
	HeaderAuto = "auto"
	HeaderNone = "none"
	HeaderSkip = "skip"
)

// Default 返回未读取任何文件时的配置。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Fit.applyDefaults(keys)
	c.Loader.applyDefaults(keys)
	c.Plot.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
	)
}

func (f *FitConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "fit.max_iterations",
			need:  func() bool { return f.MaxIterations <= 0 },
			apply: func() { f.MaxIterations = defaultFitMaxIter },
		},
		fieldDefault{
			key:   "fit.ftol",
			need:  func() bool { return f.FTol <= 0 },
			apply: func() { f.FTol = defaultFitTolerance },
		},
		fieldDefault{
			key:   "fit.xtol",
			need:  func() bool { return f.XTol <= 0 },
			apply: func() { f.XTol = defaultFitTolerance },
		},
	)
}

func (l *LoaderConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "loader.delimiter",
			need:  func() bool { return l.Delimiter == "" },
			apply: func() { l.Delimiter = defaultLoaderDelimiter },
		},
		stringFieldDefault("loader.header", &l.Header, defaultLoaderHeader),
		stringFieldDefault("loader.comment", &l.Comment, defaultLoaderComment),
	)
	l.Header = strings.ToLower(strings.TrimSpace(l.Header))
}

func (p *PlotConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("plot.enabled", &p.Enabled, true),
		stringFieldDefault("plot.output_dir", &p.OutputDir, defaultPlotOutputDir),
		fieldDefault{
			key:   "plot.width",
			need:  func() bool { return p.Width <= 0 },
			apply: func() { p.Width = defaultPlotWidth },
		},
		fieldDefault{
			key:   "plot.height",
			need:  func() bool { return p.Height <= 0 },
			apply: func() { p.Height = defaultPlotHeight },
		},
		fieldDefault{
			key:   "plot.render_timeout_seconds",
			need:  func() bool { return p.RenderTimeoutSeconds <= 0 },
			apply: func() { p.RenderTimeoutSeconds = defaultPlotTimeout },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("store.enabled", &s.Enabled, true),
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr),
		fieldDefault{
			key:   "http.rate_per_minute",
			need:  func() bool { return h.RatePerMinute <= 0 },
			apply: func() { h.RatePerMinute = defaultHTTPRate },
		},
		fieldDefault{
			key:   "http.burst",
			need:  func() bool { return h.Burst <= 0 },
			apply: func() { h.Burst = defaultHTTPBurst },
		},
		fieldDefault{
			key:   "http.max_samples",
			need:  func() bool { return h.MaxSamples <= 0 },
			apply: func() { h.MaxSamples = defaultHTTPMaxSamples },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
