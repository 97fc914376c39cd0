package model

import (
	"time"

	"gorm.io/datatypes"
)

// FitRunModel 对应 fit_runs 表，一行一次分析。
type FitRunModel struct {
	ID          string         `gorm:"column:id;primaryKey;size:36"`
	Source      string         `gorm:"column:source;index"`
	SampleCount int            `gorm:"column:sample_count"`
	P0          float64        `gorm:"column:p0"`
	Alpha       float64        `gorm:"column:alpha"`
	CovP0P0     float64        `gorm:"column:cov_p0_p0"`
	CovP0Alpha  float64        `gorm:"column:cov_p0_alpha"`
	CovAlpha    float64        `gorm:"column:cov_alpha_alpha"`
	RSS         float64        `gorm:"column:rss"`
	Iterations  int            `gorm:"column:iterations"`
	P0Lo        float64        `gorm:"column:p0_lo"`
	P0Hi        float64        `gorm:"column:p0_hi"`
	AlphaLo     float64        `gorm:"column:alpha_lo"`
	AlphaHi     float64        `gorm:"column:alpha_hi"`
	RangeMin    float64        `gorm:"column:range_min"`
	RangeMax    float64        `gorm:"column:range_max"`
	InvalidDB   int            `gorm:"column:invalid_db_points"`
	Samples     datatypes.JSON `gorm:"column:samples"`
	CreatedAt   time.Time      `gorm:"column:created_at;index"`
}

func (FitRunModel) TableName() string { return "fit_runs" }
