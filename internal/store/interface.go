package store

import (
	"context"
	"errors"
	"time"

	"fiberatt/internal/attenuation"
)

// ErrRunNotFound 表示指定 ID 的拟合记录不存在。
var ErrRunNotFound = errors.New("run not found")

// Run 是一次已完成分析的持久化视图。
type Run struct {
	ID        string                         `json:"id" yaml:"id"`
	Source    string                         `json:"source" yaml:"source"`
	CreatedAt time.Time                      `json:"created_at" yaml:"created_at"`
	Samples   attenuation.SampleSet          `json:"samples,omitempty" yaml:"samples,omitempty"`
	Fit       attenuation.FitResult          `json:"fit" yaml:"fit"`
	CI        attenuation.ConfidenceInterval `json:"ci" yaml:"ci"`
	Range     attenuation.LengthRange        `json:"range" yaml:"range"`
	InvalidDB int                            `json:"invalid_db_points" yaml:"invalid_db_points"`
}

// RunRepository handles analysis run persistence.
type RunRepository interface {
	Save(ctx context.Context, run Run) (string, error)
	Get(ctx context.Context, id string) (Run, error)
	// List returns the most recent runs first, without samples.
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
