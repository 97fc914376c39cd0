package config

import "strings"

// Config 是 fiberatt 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	Fit    FitConfig    `toml:"fit"`
	Loader LoaderConfig `toml:"loader"`
	Plot   PlotConfig   `toml:"plot"`
	Store  StoreConfig  `toml:"store"`
	HTTP   HTTPConfig   `toml:"http"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "text" | "json"
	LogPath   string `toml:"log_path"`
}

// FitConfig 控制 Levenberg–Marquardt 求解器；种子策略固定，不可配置。
type FitConfig struct {
	MaxIterations int     `toml:"max_iterations"`
	FTol          float64 `toml:"ftol"`
	XTol          float64 `toml:"xtol"`
}

// LoaderConfig 描述 CSV 数据加载方式。
type LoaderConfig struct {
	Delimiter string `toml:"delimiter"`
	Header    string `toml:"header"`  // "auto" | "none" | "skip"
	Comment   string `toml:"comment"` // 注释行前缀
}

// DelimiterRune 返回分隔符的第一个字符，空值时为逗号。
func (l LoaderConfig) DelimiterRune() rune {
	d := l.Delimiter
	if d == `\t` || strings.EqualFold(d, "tab") {
		return '\t'
	}
	for _, r := range d {
		return r
	}
	return ','
}

type PlotConfig struct {
	Enabled              bool   `toml:"enabled"`
	OutputDir            string `toml:"output_dir"`
	PNG                  bool   `toml:"png"`
	Width                int    `toml:"width"`
	Height               int    `toml:"height"`
	RenderTimeoutSeconds int    `toml:"render_timeout_seconds"`
}

type StoreConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type HTTPConfig struct {
	Addr          string `toml:"addr"`
	RatePerMinute int    `toml:"rate_per_minute"`
	Burst         int    `toml:"burst"`
	MaxSamples    int    `toml:"max_samples"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
