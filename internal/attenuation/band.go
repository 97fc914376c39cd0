package attenuation

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Point 为曲线上的一个点；Value 为 NaN 表示该点无效。
type Point struct {
	Length float64 `json:"length" yaml:"length"`
	Value  float64 `json:"value" yaml:"value"`
}

// CurveSeries 是网格上的有序点列。
type CurveSeries struct {
	Name    string  `json:"name" yaml:"name"`
	Points  []Point `json:"points" yaml:"points"`
	Invalid int     `json:"invalid" yaml:"invalid"`
}

// DomainCurves 为某一表示域下的拟合曲线与置信带上下界。
type DomainCurves struct {
	Fit CurveSeries `json:"fit" yaml:"fit"`
	Lo  CurveSeries `json:"lo" yaml:"lo"`
	Hi  CurveSeries `json:"hi" yaml:"hi"`
}

// Invalid 返回三条曲线中无效点总数。
func (d DomainCurves) Invalid() int {
	return d.Fit.Invalid + d.Lo.Invalid + d.Hi.Invalid
}

// CurveBundle 汇总线性与 dB 两个域的六条曲线。
type CurveBundle struct {
	Linear     DomainCurves `json:"linear" yaml:"linear"`
	DB         DomainCurves `json:"db" yaml:"db"`
	Range      LengthRange  `json:"range" yaml:"range"`
	Degenerate bool         `json:"degenerate" yaml:"degenerate"`
}

// Linspace 返回 [lo, hi] 上 n 个等距点，首尾精确等于 lo/hi。
// lo == hi 时返回 n 个相同的值。
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 || lo == hi {
		for i := range out {
			out[i] = lo
		}
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// BandGenerator 在长度网格上生成拟合曲线与置信带。
//
// 上下界使用配对参数 (P0Lo, AlphaLo) / (P0Hi, AlphaHi)，不枚举参数盒的四个角，
// 因此真实的最坏情况包络可能更宽。
type BandGenerator struct {
	points int
}

func NewBandGenerator() *BandGenerator {
	return &BandGenerator{points: GridPoints}
}

// Generate 计算六条曲线。dB 域中非正的线性值记为 NaN 并计入 Invalid，不中断整条曲线。
func (g *BandGenerator) Generate(fit FitResult, ci ConfidenceInterval, rng LengthRange) (CurveBundle, error) {
	if !isFinite(rng.Min) || !isFinite(rng.Max) || rng.Min > rng.Max {
		return CurveBundle{}, fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, rng.Min, rng.Max)
	}
	grid := Linspace(rng.Min, rng.Max, g.points)

	params := [3][2]float64{fit.Params(), ci.Low(), ci.High()}
	names := [3]string{"fit", "ci_lo", "ci_hi"}
	var linear [3]CurveSeries
	var eg errgroup.Group
	for i := range params {
		i := i
		eg.Go(func() error {
			linear[i] = evaluate(names[i], grid, params[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return CurveBundle{}, err
	}

	return CurveBundle{
		Linear: DomainCurves{Fit: linear[0], Lo: linear[1], Hi: linear[2]},
		DB: DomainCurves{
			Fit: toDBSeries(linear[0]),
			Lo:  toDBSeries(linear[1]),
			Hi:  toDBSeries(linear[2]),
		},
		Range:      rng,
		Degenerate: rng.Degenerate(),
	}, nil
}

func evaluate(name string, grid []float64, p [2]float64) CurveSeries {
	series := CurveSeries{Name: name, Points: make([]Point, len(grid))}
	for i, l := range grid {
		v := Model(l, p[0], p[1])
		if !isFinite(v) {
			v = math.NaN()
			series.Invalid++
		}
		series.Points[i] = Point{Length: l, Value: v}
	}
	return series
}

func toDBSeries(src CurveSeries) CurveSeries {
	out := CurveSeries{Name: src.Name + "_db", Points: make([]Point, len(src.Points))}
	for i, p := range src.Points {
		v, ok := ToDB(p.Value)
		if !ok {
			out.Invalid++
		}
		out.Points[i] = Point{Length: p.Length, Value: v}
	}
	return out
}
