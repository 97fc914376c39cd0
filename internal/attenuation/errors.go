package attenuation

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData 样本数少于 MinSamples。
	ErrInsufficientData = errors.New("insufficient data")
	// ErrFitDivergence 求解器未收敛或输入超出模型定义域。
	ErrFitDivergence = errors.New("fit diverged")
	// ErrInvalidRange 长度区间非有限或 min > max。
	ErrInvalidRange = errors.New("invalid length range")
)

// MinSamples 为两参数加一个自由度。
const MinSamples = 3

type InsufficientDataError struct {
	Got int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d samples, got %d", MinSamples, e.Got)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// DivergenceReason 区分拟合失败的具体条件。
type DivergenceReason int

const (
	ReasonNotConverged DivergenceReason = iota
	ReasonSingular
	ReasonDomain
	ReasonNonFinite
)

var divergenceReasonCodes = map[DivergenceReason]string{
	ReasonNotConverged: "not_converged",
	ReasonSingular:     "singular",
	ReasonDomain:       "domain",
	ReasonNonFinite:    "non_finite",
}

// Code 返回机器可读的原因标识。
func (r DivergenceReason) Code() string {
	if code, ok := divergenceReasonCodes[r]; ok {
		return code
	}
	return "unknown"
}

func (r DivergenceReason) String() string {
	switch r {
	case ReasonNotConverged:
		return "solver did not converge"
	case ReasonSingular:
		return "singular jacobian"
	case ReasonDomain:
		return "input outside model domain"
	case ReasonNonFinite:
		return "non-finite residual"
	default:
		return "unknown"
	}
}

type FitDivergenceError struct {
	Reason     DivergenceReason
	Detail     string
	Iterations int
}

func (e *FitDivergenceError) Error() string {
	msg := "fit diverged: " + e.Reason.String()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Iterations > 0 {
		msg += fmt.Sprintf(" after %d iterations", e.Iterations)
	}
	return msg
}

func (e *FitDivergenceError) Unwrap() error { return ErrFitDivergence }

func divergence(reason DivergenceReason, iter int, format string, args ...any) error {
	return &FitDivergenceError{Reason: reason, Detail: fmt.Sprintf(format, args...), Iterations: iter}
}
