package plot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"fiberatt/internal/attenuation"
)

const (
	colorBackground    = "#ffffff"
	colorTextPrimary   = "#1f2937"
	colorTextSecondary = "#6b7280"
	colorSamples       = "#2563eb"
	colorFit           = "#dc2626"
	colorBand          = "#f59e0b"

	seriesSamples = "Measured data"
	seriesFit     = "Best-fit"
	seriesBand    = "95% CI"
	seriesBandLo  = "ci_base"
	bandStack     = "ci"

	// echarts 把 "-" 视为缺失值，曲线在此处断开
	missingValue = "-"
)

// ChartSize 为渲染尺寸（像素）。
type ChartSize struct {
	Width  int
	Height int
}

func (s ChartSize) orDefault() ChartSize {
	if s.Width <= 0 {
		s.Width = 1200
	}
	if s.Height <= 0 {
		s.Height = 700
	}
	return s
}

// RenderHTML 把 Figure 渲染为独立的 echarts HTML 页面。
// 置信带画成 min(lo,hi) 与 max(lo,hi) 之间的堆叠面积。
func RenderHTML(fig Figure, size ChartSize) ([]byte, error) {
	if len(fig.Fit.Points) == 0 {
		return nil, fmt.Errorf("figure %s/%s has no fit curve", fig.Name, fig.Domain)
	}
	size = size.orDefault()
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", size.Width),
			Height:          fmt.Sprintf("%dpx", size.Height),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fig.Title,
			Subtitle:      subtitle(fig),
			Left:          "center",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
			Data: []string{seriesSamples, seriesFit, seriesBand},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      fig.XLabel,
			Type:      "value",
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      fig.YLabel,
			Type:      "value",
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)

	base, width := bandSeries(fig.Lo, fig.Hi)
	line.AddSeries(seriesBandLo, base,
		charts.WithLineChartOpts(opts.LineChart{Stack: bandStack, ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
	)
	line.AddSeries(seriesBand, width,
		charts.WithLineChartOpts(opts.LineChart{Stack: bandStack, ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: colorBand, Opacity: opts.Float(0.3)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBand}),
	)
	line.AddSeries(seriesFit, toLineData(fig.Fit),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorFit, Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorFit}),
	)

	scatter := charts.NewScatter()
	scatter.AddSeries(seriesSamples, toScatterData(fig.Samples),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorSamples}),
	)
	line.Overlap(scatter)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func subtitle(fig Figure) string {
	invalid := fig.Fit.Invalid + fig.Lo.Invalid + fig.Hi.Invalid
	if invalid == 0 {
		return fig.Name
	}
	return fmt.Sprintf("%s | %d grid points undefined in this domain", fig.Name, invalid)
}

func bandSeries(lo, hi attenuation.CurveSeries) (base, width []opts.LineData) {
	n := min(len(lo.Points), len(hi.Points))
	base = make([]opts.LineData, n)
	width = make([]opts.LineData, n)
	for i := 0; i < n; i++ {
		x := lo.Points[i].Length
		a, b := lo.Points[i].Value, hi.Points[i].Value
		if math.IsNaN(a) || math.IsNaN(b) {
			base[i] = opts.LineData{Value: []interface{}{x, missingValue}}
			width[i] = opts.LineData{Value: []interface{}{x, missingValue}}
			continue
		}
		base[i] = opts.LineData{Value: []interface{}{x, math.Min(a, b)}}
		width[i] = opts.LineData{Value: []interface{}{x, math.Abs(b - a)}}
	}
	return base, width
}

func toLineData(series attenuation.CurveSeries) []opts.LineData {
	out := make([]opts.LineData, len(series.Points))
	for i, p := range series.Points {
		out[i] = opts.LineData{Value: xy(p)}
	}
	return out
}

func toScatterData(points []attenuation.Point) []opts.ScatterData {
	out := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) {
			continue
		}
		out = append(out, opts.ScatterData{Value: xy(p)})
	}
	return out
}

func xy(p attenuation.Point) []interface{} {
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return []interface{}{p.Length, missingValue}
	}
	return []interface{}{p.Length, p.Value}
}

// HTMLSink 把每个 Figure 写成 <dir>/<name>_<domain>.html。
type HTMLSink struct {
	Dir  string
	Size ChartSize
}

func NewHTMLSink(dir string, size ChartSize) *HTMLSink {
	return &HTMLSink{Dir: dir, Size: size}
}

func (s *HTMLSink) Plot(ctx context.Context, fig Figure) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	html, err := RenderHTML(fig, s.Size)
	if err != nil {
		return Artifact{}, err
	}
	path, err := writeArtifact(s.Dir, fig, "html", html)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Figure: fig.Name, Domain: fig.Domain, Path: path, Format: "html"}, nil
}

func writeArtifact(dir string, fig Figure, ext string, data []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("plot output dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", FileStem(fig.Name), fig.Domain, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// FileStem 去掉扩展名并替换文件名中不安全的字符。
func FileStem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		return "figure"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return name
}
