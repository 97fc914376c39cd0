package source

import (
	"context"
	"fmt"

	"fiberatt/internal/attenuation"
)

// DataSource 向分析流程提供一组 (长度, 功率) 样本。
type DataSource interface {
	Load(ctx context.Context) (attenuation.SampleSet, error)
	Name() string
}

// ParseError 描述 CSV 中无法解析的单元格。
type ParseError struct {
	Line   int
	Column int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d column %d: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Static 是内存中的样本集合，用于 HTTP 请求与测试。
type Static struct {
	Label   string
	Samples attenuation.SampleSet
}

func NewStatic(label string, samples attenuation.SampleSet) *Static {
	return &Static{Label: label, Samples: samples}
}

func (s *Static) Load(ctx context.Context) (attenuation.SampleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(attenuation.SampleSet, len(s.Samples))
	copy(out, s.Samples)
	return out, nil
}

func (s *Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}
