package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"fiberatt/internal/attenuation"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Format 为报告输出格式。
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 解析 --format 参数，空字符串按 text 处理。
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", raw)
}

// displayPlaces 为报告中数值保留的有效小数位。
const displayPlaces = 6

// Estimate 是一个参数的点估计与区间。
type Estimate struct {
	Value  float64 `json:"value" yaml:"value"`
	StdErr float64 `json:"std_err" yaml:"std_err"`
	Lo     float64 `json:"ci_lo" yaml:"ci_lo"`
	Hi     float64 `json:"ci_hi" yaml:"ci_hi"`
}

// Summary 是一次分析对外报告的标量视图。
type Summary struct {
	RunID      string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source     string    `json:"source" yaml:"source"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Samples    int       `json:"samples" yaml:"samples"`
	Iterations int       `json:"iterations" yaml:"iterations"`

	P0    Estimate `json:"p0" yaml:"p0"`
	Alpha Estimate `json:"alpha" yaml:"alpha"`

	Covariance      [2][2]float64 `json:"covariance" yaml:"covariance"`
	AttenuationDB   float64       `json:"attenuation_db_per_unit" yaml:"attenuation_db_per_unit"`
	AttenuationDBKm float64       `json:"attenuation_db_per_km" yaml:"attenuation_db_per_km"`
	RSquared        float64       `json:"r_squared" yaml:"r_squared"`
	RMSE            float64       `json:"rmse" yaml:"rmse"`

	RangeMin   float64  `json:"range_min" yaml:"range_min"`
	RangeMax   float64  `json:"range_max" yaml:"range_max"`
	Degenerate bool     `json:"degenerate_range" yaml:"degenerate_range"`
	InvalidDB  int      `json:"invalid_db_points" yaml:"invalid_db_points"`
	BandAtRisk bool     `json:"band_at_risk" yaml:"band_at_risk"`
	Artifacts  []string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Input 汇总生成 Summary 所需的分析产物。
type Input struct {
	RunID     string
	Source    string
	CreatedAt time.Time
	Samples   attenuation.SampleSet
	Fit       attenuation.FitResult
	CI        attenuation.ConfidenceInterval
	Bundle    attenuation.CurveBundle
	Artifacts []string
}

// Build 计算报告字段并做显示精度的舍入。长度单位按米处理，dB/km 为 dB/m × 1000。
func Build(in Input) Summary {
	se := in.Fit.StdErr()
	perUnit := in.Fit.AttenuationDB()
	s := Summary{
		RunID:      in.RunID,
		Source:     in.Source,
		CreatedAt:  in.CreatedAt,
		Samples:    len(in.Samples),
		Iterations: in.Fit.Iterations,
		P0: Estimate{
			Value:  round(in.Fit.P0),
			StdErr: round(se[0]),
			Lo:     round(in.CI.P0Lo),
			Hi:     round(in.CI.P0Hi),
		},
		Alpha: Estimate{
			Value:  round(in.Fit.Alpha),
			StdErr: round(se[1]),
			Lo:     round(in.CI.AlphaLo),
			Hi:     round(in.CI.AlphaHi),
		},
		AttenuationDB:   round(perUnit),
		AttenuationDBKm: round(perUnit * 1000),
		RSquared:        round(in.Fit.RSquared(in.Samples)),
		RMSE:            round(in.Fit.RMSE()),
		RangeMin:        in.Bundle.Range.Min,
		RangeMax:        in.Bundle.Range.Max,
		Degenerate:      in.Bundle.Degenerate,
		InvalidDB:       in.Bundle.DB.Invalid(),
		BandAtRisk:      in.CI.AtRisk(),
		Artifacts:       in.Artifacts,
	}
	for i := range in.Fit.Covariance {
		for j := range in.Fit.Covariance[i] {
			s.Covariance[i][j] = roundSig(in.Fit.Covariance[i][j])
		}
	}
	return s
}

// round 保留 displayPlaces 位小数；NaN/Inf 原样返回。
func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(displayPlaces).Float64()
	return f
}

// roundSig 按有效数字舍入，协方差常远小于 1e-6。
func roundSig(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	exp := int32(math.Floor(math.Log10(math.Abs(v))))
	f, _ := decimal.NewFromFloat(v).Round(displayPlaces - 1 - exp).Float64()
	return f
}

// Write 按格式输出报告。
func Write(w io.Writer, s Summary, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, RenderText(s))
		return err
	}
	return fmt.Errorf("unknown report format %q", format)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("244"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RenderText 生成终端友好的报告。
func RenderText(s Summary) string {
	var b strings.Builder
	title := "Fiber attenuation fit"
	if s.Source != "" {
		title += ": " + s.Source
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
		b.WriteString("\n")
	}
	if s.RunID != "" {
		row("Run", s.RunID)
	}
	row("Samples", fmt.Sprintf("%d (%d iterations)", s.Samples, s.Iterations))
	row("P0", formatEstimate(s.P0))
	row("alpha", formatEstimate(s.Alpha))
	row("Attenuation", fmt.Sprintf("%s dB/m  (%s dB/km)", formatFloat(s.AttenuationDB), formatFloat(s.AttenuationDBKm)))
	row("R²", formatFloat(s.RSquared))
	row("RMSE", formatFloat(s.RMSE))
	row("Covariance", fmt.Sprintf("[[%g, %g], [%g, %g]]",
		s.Covariance[0][0], s.Covariance[0][1], s.Covariance[1][0], s.Covariance[1][1]))
	row("Length range", fmt.Sprintf("[%s, %s]", formatFloat(s.RangeMin), formatFloat(s.RangeMax)))
	for _, a := range s.Artifacts {
		row("Chart", a)
	}

	var warnings []string
	if s.Degenerate {
		warnings = append(warnings, "all lengths are identical; curves collapse to a single point")
	}
	if s.InvalidDB > 0 {
		warnings = append(warnings, fmt.Sprintf("%d dB band points are undefined (non-positive power)", s.InvalidDB))
	}
	if len(warnings) > 0 {
		b.WriteString("\n")
		for _, w := range warnings {
			b.WriteString(warnStyle.Render("! " + w))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatEstimate(e Estimate) string {
	return fmt.Sprintf("%s ± %s  95%% CI [%s, %s]",
		formatFloat(e.Value), formatFloat(e.StdErr), formatFloat(e.Lo), formatFloat(e.Hi))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return decimal.NewFromFloat(v).String()
}
