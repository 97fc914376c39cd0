package attenuation

import (
	"fmt"
	"math"
)

// GridPoints 是曲线重采样网格的固定点数。
const GridPoints = 500

// ConfidenceZ 为双侧 95% 正态近似的倍数。
const ConfidenceZ = 1.96

// dBPerNeper 即 10·log10(e)，把 1/长度 的衰减系数换算成 dB/长度。
var dBPerNeper = 10 / math.Ln10

// Sample 是一次 (光纤长度, 功率) 测量。
type Sample struct {
	Length float64 `json:"length" yaml:"length"`
	Power  float64 `json:"power" yaml:"power"`
}

// SampleSet 为一组测量，顺序不影响拟合。
type SampleSet []Sample

// Lengths 返回长度列。
func (s SampleSet) Lengths() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Length
	}
	return out
}

// Powers 返回功率列。
func (s SampleSet) Powers() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Power
	}
	return out
}

// LengthRange 返回样本长度的 [min, max]；空集合返回零值。
func (s SampleSet) LengthRange() LengthRange {
	if len(s) == 0 {
		return LengthRange{}
	}
	rng := LengthRange{Min: s[0].Length, Max: s[0].Length}
	for _, p := range s[1:] {
		rng.Min = math.Min(rng.Min, p.Length)
		rng.Max = math.Max(rng.Max, p.Length)
	}
	return rng
}

// LengthRange 描述插值网格的长度区间。
type LengthRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r LengthRange) Degenerate() bool {
	return r.Min == r.Max
}

// Model 计算 P0·exp(−alpha·L)。
func Model(length, p0, alpha float64) float64 {
	return p0 * math.Exp(-alpha*length)
}

// FitResult 是一次拟合的不可变结果。
type FitResult struct {
	P0         float64       `json:"p0" yaml:"p0"`
	Alpha      float64       `json:"alpha" yaml:"alpha"`
	Covariance [2][2]float64 `json:"covariance" yaml:"covariance"`

	N          int     `json:"n" yaml:"n"`
	RSS        float64 `json:"rss" yaml:"rss"`
	Iterations int     `json:"iterations" yaml:"iterations"`
}

// Params 返回 [P0, alpha]。
func (f FitResult) Params() [2]float64 {
	return [2]float64{f.P0, f.Alpha}
}

// StdErr 返回协方差对角线的平方根；舍入产生的负值按 0 处理。
func (f FitResult) StdErr() [2]float64 {
	return [2]float64{
		math.Sqrt(math.Max(f.Covariance[0][0], 0)),
		math.Sqrt(math.Max(f.Covariance[1][1], 0)),
	}
}

// Predict 在给定长度处求拟合功率。
func (f FitResult) Predict(length float64) float64 {
	return Model(length, f.P0, f.Alpha)
}

// RMSE 为残差均方根。
func (f FitResult) RMSE() float64 {
	if f.N == 0 {
		return 0
	}
	return math.Sqrt(f.RSS / float64(f.N))
}

// RSquared 计算决定系数；功率全部相同时返回 1。
func (f FitResult) RSquared(samples SampleSet) float64 {
	if len(samples) == 0 {
		return 0
	}
	mean := 0.0
	for _, s := range samples {
		mean += s.Power
	}
	mean /= float64(len(samples))
	var ssTot, ssRes float64
	for _, s := range samples {
		d := s.Power - mean
		ssTot += d * d
		r := s.Power - f.Predict(s.Length)
		ssRes += r * r
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

// AttenuationDB 返回每单位长度的衰减（dB）。
func (f FitResult) AttenuationDB() float64 {
	return dBPerNeper * f.Alpha
}

func (f FitResult) String() string {
	se := f.StdErr()
	return fmt.Sprintf("FitResult{P0: %.6g ± %.3g, alpha: %.6g ± %.3g, n: %d, iter: %d}",
		f.P0, se[0], f.Alpha, se[1], f.N, f.Iterations)
}
