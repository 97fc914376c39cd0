package fithttp

import (
	"fiberatt/internal/attenuation"
	"fiberatt/internal/report"
)

// FitRequest 为 POST /api/fits 的请求体。
type FitRequest struct {
	Name    string                `json:"name"`
	Samples attenuation.SampleSet `json:"samples"`
}

// FitResponse 返回一次分析的标量结果。
type FitResponse struct {
	RunID   string         `json:"run_id,omitempty"`
	Summary report.Summary `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeInvalidRequest = "invalid_request"
	codeTooManySamples = "too_many_samples"
	codeRateLimited    = "rate_limited"
	codeNotFound       = "not_found"
	codeStoreDisabled  = "store_disabled"
	codeInternal       = "internal"
)
