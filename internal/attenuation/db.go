package attenuation

import "math"

// ToDB 返回 10·log10(v)。v 非正或非有限时返回 (NaN, false)。
func ToDB(v float64) (float64, bool) {
	if !isFinite(v) || v <= 0 {
		return math.NaN(), false
	}
	return 10 * math.Log10(v), true
}

// FromDB 是 ToDB 的逆变换。
func FromDB(db float64) float64 {
	return math.Pow(10, db/10)
}

// SamplesDB 把样本功率换算到 dB 域，用于报告/绘图阶段。
func SamplesDB(samples SampleSet) []Point {
	out := make([]Point, len(samples))
	for i, s := range samples {
		v, _ := ToDB(s.Power)
		out[i] = Point{Length: s.Length, Value: v}
	}
	return out
}
