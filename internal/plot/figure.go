package plot

import (
	"context"
	"fmt"

	"fiberatt/internal/attenuation"
)

// Domain 表示绘图的功率表示域。
type Domain string

const (
	DomainLinear Domain = "linear"
	DomainDB     Domain = "db"
)

const (
	LabelLength      = "Fiber length (m)"
	LabelPowerLinear = "Power (mW)"
	LabelPowerDB     = "Power (dB·mW)"
)

// ParseDomain 把查询参数映射为 Domain。
func ParseDomain(raw string) (Domain, error) {
	switch Domain(raw) {
	case DomainLinear, "":
		return DomainLinear, nil
	case DomainDB, "dB", "DB":
		return DomainDB, nil
	default:
		return "", fmt.Errorf("unknown plot domain %q", raw)
	}
}

// Figure 是一个表示域下交给 Sink 的全部数据。
type Figure struct {
	Name   string
	Domain Domain
	Title  string
	XLabel string
	YLabel string

	Samples []attenuation.Point
	Fit     attenuation.CurveSeries
	Lo      attenuation.CurveSeries
	Hi      attenuation.CurveSeries
}

// Artifact 描述 Sink 的输出。
type Artifact struct {
	Figure string `json:"figure"`
	Domain Domain `json:"domain"`
	Path   string `json:"path,omitempty"`
	Format string `json:"format"`
	Bytes  []byte `json:"-"`
}

// Sink 消费曲线数据并产出可视化结果，不参与数值计算。
type Sink interface {
	Plot(ctx context.Context, fig Figure) (Artifact, error)
}

// BuildFigures 构造线性与 dB 两个图。样本在 dB 图中同样做 10·log10 变换。
func BuildFigures(name string, samples attenuation.SampleSet, bundle attenuation.CurveBundle) []Figure {
	linearPts := make([]attenuation.Point, len(samples))
	for i, s := range samples {
		linearPts[i] = attenuation.Point{Length: s.Length, Value: s.Power}
	}
	return []Figure{
		{
			Name:    name,
			Domain:  DomainLinear,
			Title:   "Exponential Attenuation Fit (Linear Domain)",
			XLabel:  LabelLength,
			YLabel:  LabelPowerLinear,
			Samples: linearPts,
			Fit:     bundle.Linear.Fit,
			Lo:      bundle.Linear.Lo,
			Hi:      bundle.Linear.Hi,
		},
		{
			Name:    name,
			Domain:  DomainDB,
			Title:   "Exponential Attenuation Fit (dB Domain)",
			XLabel:  LabelLength,
			YLabel:  LabelPowerDB,
			Samples: attenuation.SamplesDB(samples),
			Fit:     bundle.DB.Fit,
			Lo:      bundle.DB.Lo,
			Hi:      bundle.DB.Hi,
		},
	}
}

// FigureFor 返回指定域的图。
func FigureFor(figs []Figure, domain Domain) (Figure, bool) {
	for _, f := range figs {
		if f.Domain == domain {
			return f, true
		}
	}
	return Figure{}, false
}
