package attenuation

// ConfidenceInterval 为逐参数独立的 95% 区间，不含相关项。
type ConfidenceInterval struct {
	P0Lo    float64 `json:"p0_lo" yaml:"p0_lo"`
	P0Hi    float64 `json:"p0_hi" yaml:"p0_hi"`
	AlphaLo float64 `json:"alpha_lo" yaml:"alpha_lo"`
	AlphaHi float64 `json:"alpha_hi" yaml:"alpha_hi"`
}

// NewConfidenceInterval 按 param ± 1.96·se 计算区间。
func NewConfidenceInterval(fit FitResult) ConfidenceInterval {
	se := fit.StdErr()
	return ConfidenceInterval{
		P0Lo:    fit.P0 - ConfidenceZ*se[0],
		P0Hi:    fit.P0 + ConfidenceZ*se[0],
		AlphaLo: fit.Alpha - ConfidenceZ*se[1],
		AlphaHi: fit.Alpha + ConfidenceZ*se[1],
	}
}

// Low 返回配对的下界参数 (P0Lo, AlphaLo)。
func (c ConfidenceInterval) Low() [2]float64 {
	return [2]float64{c.P0Lo, c.AlphaLo}
}

// High 返回配对的上界参数 (P0Hi, AlphaHi)。
func (c ConfidenceInterval) High() [2]float64 {
	return [2]float64{c.P0Hi, c.AlphaHi}
}

// AtRisk 报告界参数是否可能产生非正功率（dB 变换未定义）。
func (c ConfidenceInterval) AtRisk() bool {
	return c.P0Lo <= 0 || c.P0Hi <= 0
}
