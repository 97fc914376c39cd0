package attenuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceInterval_ContainsEstimate(t *testing.T) {
	fits := []FitResult{
		{P0: 10, Alpha: 0.5, Covariance: [2][2]float64{{0.01, 0.0001}, {0.0001, 0.0004}}},
		{P0: 3, Alpha: -0.2, Covariance: [2][2]float64{{4, -1}, {-1, 2}}},
		{P0: 1, Alpha: 0.1, Covariance: [2][2]float64{{-1e-20, 0}, {0, 0}}},
	}
	for _, fit := range fits {
		ci := NewConfidenceInterval(fit)
		assert.LessOrEqual(t, ci.P0Lo, fit.P0)
		assert.GreaterOrEqual(t, ci.P0Hi, fit.P0)
		assert.LessOrEqual(t, ci.AlphaLo, fit.Alpha)
		assert.GreaterOrEqual(t, ci.AlphaHi, fit.Alpha)
	}

	ci := NewConfidenceInterval(fits[0])
	assert.InDelta(t, 10-1.96*0.1, ci.P0Lo, 1e-12)
	assert.InDelta(t, 0.5+1.96*0.02, ci.AlphaHi, 1e-12)
}

func TestLinspace(t *testing.T) {
	grid := Linspace(0.5, 4, GridPoints)
	require.Len(t, grid, GridPoints)
	assert.Equal(t, 0.5, grid[0])
	assert.Equal(t, 4.0, grid[GridPoints-1])
	for i := 1; i < len(grid); i++ {
		assert.GreaterOrEqual(t, grid[i], grid[i-1])
	}
	assert.Empty(t, Linspace(0, 1, 0))
}

func TestGenerate_GridShape(t *testing.T) {
	fit, err := NewFitter(FitterOptions{}).Fit(exampleSamples())
	require.NoError(t, err)
	bundle, err := NewBandGenerator().Generate(fit, NewConfidenceInterval(fit), exampleSamples().LengthRange())
	require.NoError(t, err)

	series := []CurveSeries{
		bundle.Linear.Fit, bundle.Linear.Lo, bundle.Linear.Hi,
		bundle.DB.Fit, bundle.DB.Lo, bundle.DB.Hi,
	}
	for _, s := range series {
		require.Len(t, s.Points, GridPoints, s.Name)
		assert.Equal(t, 0.0, s.Points[0].Length, s.Name)
		assert.Equal(t, 4.0, s.Points[GridPoints-1].Length, s.Name)
		for i := 1; i < len(s.Points); i++ {
			assert.GreaterOrEqual(t, s.Points[i].Length, s.Points[i-1].Length)
		}
	}
	assert.False(t, bundle.Degenerate)
	assert.Zero(t, bundle.Linear.Invalid()+bundle.DB.Invalid())
	assert.InDelta(t, fit.P0, bundle.Linear.Fit.Points[0].Value, 1e-12)
}

func TestGenerate_DegenerateRange(t *testing.T) {
	fit := FitResult{P0: 2, Alpha: 0.1}
	bundle, err := NewBandGenerator().Generate(fit, NewConfidenceInterval(fit), LengthRange{Min: 5, Max: 5})
	require.NoError(t, err)
	assert.True(t, bundle.Degenerate)
	require.Len(t, bundle.Linear.Fit.Points, GridPoints)
	for _, p := range bundle.Linear.Fit.Points {
		assert.Equal(t, 5.0, p.Length)
		assert.InDelta(t, 2*math.Exp(-0.5), p.Value, 1e-12)
	}
}

func TestGenerate_InvalidRange(t *testing.T) {
	fit := FitResult{P0: 2, Alpha: 0.1}
	gen := NewBandGenerator()
	for _, rng := range []LengthRange{{Min: 3, Max: 1}, {Min: math.NaN(), Max: 1}, {Min: 0, Max: math.Inf(1)}} {
		_, err := gen.Generate(fit, NewConfidenceInterval(fit), rng)
		assert.ErrorIs(t, err, ErrInvalidRange)
	}
}

func TestGenerate_NonPositiveBoundBecomesNaNInDB(t *testing.T) {
	// se(P0) = 1 ⇒ P0Lo = 1 − 1.96 < 0：低界曲线整体为负
	fit := FitResult{P0: 1, Alpha: 0.2, Covariance: [2][2]float64{{1, 0}, {0, 0.0001}}}
	ci := NewConfidenceInterval(fit)
	require.True(t, ci.AtRisk())

	bundle, err := NewBandGenerator().Generate(fit, ci, LengthRange{Min: 0, Max: 10})
	require.NoError(t, err)

	assert.Zero(t, bundle.Linear.Lo.Invalid)
	assert.Less(t, bundle.Linear.Lo.Points[0].Value, 0.0)

	require.Len(t, bundle.DB.Lo.Points, GridPoints)
	assert.Equal(t, GridPoints, bundle.DB.Lo.Invalid)
	for _, p := range bundle.DB.Lo.Points {
		assert.True(t, math.IsNaN(p.Value))
	}
	assert.Zero(t, bundle.DB.Fit.Invalid)
	assert.Zero(t, bundle.DB.Hi.Invalid)
}

func TestDB_RoundTrip(t *testing.T) {
	for _, v := range []float64{1e-9, 0.003, 0.5, 1, 6.07, 1234.5} {
		db, ok := ToDB(v)
		require.True(t, ok)
		assert.InEpsilon(t, v, FromDB(db), 1e-12)
	}
	assert.InDelta(t, 10.0, must(ToDB(10)), 1e-12)

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		db, ok := ToDB(v)
		assert.False(t, ok)
		assert.True(t, math.IsNaN(db))
	}
}

func TestSamplesDB(t *testing.T) {
	pts := SamplesDB(SampleSet{{Length: 1, Power: 100}, {Length: 2, Power: 0}})
	assert.InDelta(t, 20.0, pts[0].Value, 1e-12)
	assert.True(t, math.IsNaN(pts[1].Value))
}

func must(v float64, ok bool) float64 {
	if !ok {
		panic("unexpected invalid value")
	}
	return v
}
