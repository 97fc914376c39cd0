package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fiberatt/internal/attenuation"
	"fiberatt/internal/store"
	storemodel "fiberatt/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type fitRunModel = storemodel.FitRunModel

// GormStore implements run storage using Gorm on the pure-Go SQLite driver.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.RunRepository = (*GormStore)(nil)

// NewGormStore opens (or creates) the database at path and migrates the schema.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&fitRunModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save persists run and returns its ID, generating one when empty.
func (s *GormStore) Save(ctx context.Context, run store.Run) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("gorm store not initialized")
	}
	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	raw, err := json.Marshal(run.Samples)
	if err != nil {
		return "", fmt.Errorf("encode samples: %w", err)
	}
	m := fitRunModel{
		ID:          run.ID,
		Source:      run.Source,
		SampleCount: len(run.Samples),
		P0:          run.Fit.P0,
		Alpha:       run.Fit.Alpha,
		CovP0P0:     run.Fit.Covariance[0][0],
		CovP0Alpha:  run.Fit.Covariance[0][1],
		CovAlpha:    run.Fit.Covariance[1][1],
		RSS:         run.Fit.RSS,
		Iterations:  run.Fit.Iterations,
		P0Lo:        run.CI.P0Lo,
		P0Hi:        run.CI.P0Hi,
		AlphaLo:     run.CI.AlphaLo,
		AlphaHi:     run.CI.AlphaHi,
		RangeMin:    run.Range.Min,
		RangeMax:    run.Range.Max,
		InvalidDB:   run.InvalidDB,
		Samples:     datatypes.JSON(raw),
		CreatedAt:   run.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (store.Run, error) {
	if s == nil || s.db == nil {
		return store.Run{}, fmt.Errorf("gorm store not initialized")
	}
	var m fitRunModel
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Run{}, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	if err != nil {
		return store.Run{}, err
	}
	run := toRun(m)
	if len(m.Samples) > 0 {
		if err := json.Unmarshal(m.Samples, &run.Samples); err != nil {
			return store.Run{}, fmt.Errorf("decode samples of %s: %w", id, err)
		}
	}
	return run, nil
}

func (s *GormStore) List(ctx context.Context, limit int) ([]store.Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var models []fitRunModel
	err := s.db.WithContext(ctx).
		Omit("samples").
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]store.Run, 0, len(models))
	for _, m := range models {
		out = append(out, toRun(m))
	}
	return out, nil
}

func toRun(m fitRunModel) store.Run {
	return store.Run{
		ID:        m.ID,
		Source:    m.Source,
		CreatedAt: m.CreatedAt,
		Fit: attenuation.FitResult{
			P0:    m.P0,
			Alpha: m.Alpha,
			Covariance: [2][2]float64{
				{m.CovP0P0, m.CovP0Alpha},
				{m.CovP0Alpha, m.CovAlpha},
			},
			N:          m.SampleCount,
			RSS:        m.RSS,
			Iterations: m.Iterations,
		},
		CI: attenuation.ConfidenceInterval{
			P0Lo:    m.P0Lo,
			P0Hi:    m.P0Hi,
			AlphaLo: m.AlphaLo,
			AlphaHi: m.AlphaHi,
		},
		Range:     attenuation.LengthRange{Min: m.RangeMin, Max: m.RangeMax},
		InvalidDB: m.InvalidDB,
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
