package app

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fiberatt/internal/attenuation"
	"fiberatt/internal/config"
	"fiberatt/internal/plot"
	"fiberatt/internal/source"
	"fiberatt/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Plot.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Plot.PNG = false
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func samples() attenuation.SampleSet {
	out := attenuation.SampleSet{}
	for _, l := range []float64{0, 2, 4, 6, 8, 10} {
		out = append(out, attenuation.Sample{Length: l, Power: 5 * math.Exp(-0.2*l)})
	}
	return out
}

func TestBuild_AnalyzeWritesChartsAndHistory(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Analyze(context.Background(), source.NewStatic("span", samples()))
	require.NoError(t, err)
	assert.InEpsilon(t, 0.2, res.Fit.Alpha, 1e-6)
	require.Len(t, res.Artifacts, 2)
	for _, art := range res.Artifacts {
		assert.FileExists(t, art.Path)
	}

	require.NotNil(t, a.Runs())
	runs, err := a.Runs().List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
}

func TestBuild_DisabledStoreAndPlot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	cfg.Plot.Enabled = false

	calls := 0
	a, err := NewAppBuilder(cfg, WithStoreFactory(func(config.StoreConfig) (store.RunRepository, error) {
		calls++
		return nil, nil
	})).Build(context.Background())
	require.NoError(t, err)

	assert.Zero(t, calls)
	assert.Nil(t, a.Runs())
	res, err := a.Analyze(context.Background(), source.NewStatic("span", samples()))
	require.NoError(t, err)
	assert.Empty(t, res.Artifacts)
	assert.Empty(t, res.RunID)
	assert.NoError(t, a.Close())
}

func TestBuild_CustomSinks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	mem := &plot.MemorySink{}
	a, err := NewAppBuilder(cfg, WithSinkFactory(func(config.PlotConfig) []plot.Sink {
		return []plot.Sink{mem}
	})).Build(context.Background())
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), source.NewStatic("span", samples()))
	require.NoError(t, err)
	assert.Len(t, mem.Figures(), 2)
	assert.Contains(t, a.Summary.String(), "MemorySink")
}

func TestStartupSummary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Plot.PNG = true
	sinks := buildSinks(cfg.Plot)
	s := newStartupSummary(cfg, sinks, true)
	assert.Equal(t, []string{"html", "png"}, s.Sinks)
	out := s.String()
	assert.Contains(t, out, cfg.Store.Path)
	assert.Contains(t, out, cfg.HTTP.Addr)
}

func TestServe_StopsWatcherOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	cfg.HTTP.Addr = "127.0.0.1:0"
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: info\n"), 0o644))
	watcher, err := config.Watch(path, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Serve(ctx, watcher))
	assert.True(t, watcher.Stopped())
}
