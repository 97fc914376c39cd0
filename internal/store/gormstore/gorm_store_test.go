package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fiberatt/internal/attenuation"
	"fiberatt/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := store.Run{
		Source:  "fiber.csv",
		Samples: attenuation.SampleSet{{Length: 0, Power: 10}, {Length: 1, Power: 6.07}, {Length: 2, Power: 3.68}},
		Fit: attenuation.FitResult{
			P0: 10, Alpha: 0.5, N: 3, RSS: 0.001, Iterations: 7,
			Covariance: [2][2]float64{{0.01, 0.002}, {0.002, 0.0004}},
		},
		CI:        attenuation.ConfidenceInterval{P0Lo: 9.8, P0Hi: 10.2, AlphaLo: 0.46, AlphaHi: 0.54},
		Range:     attenuation.LengthRange{Min: 0, Max: 2},
		InvalidDB: 3,
	}
	id, err := s.Save(ctx, run)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, run.Samples, got.Samples)
	assert.Equal(t, run.Fit, got.Fit)
	assert.Equal(t, run.CI, got.CI)
	assert.Equal(t, run.Range, got.Range)
	assert.Equal(t, 3, got.InvalidDB)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGormStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestGormStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		_, err := s.Save(ctx, store.Run{
			Source:    name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Samples:   attenuation.SampleSet{{Length: 1, Power: 1}},
		})
		require.NoError(t, err)
	}
	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.csv", runs[0].Source)
	assert.Equal(t, "b.csv", runs[1].Source)
	assert.Empty(t, runs[0].Samples)
}
