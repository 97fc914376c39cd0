package attenuation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exactSamples(p0, alpha float64, lengths ...float64) SampleSet {
	out := make(SampleSet, len(lengths))
	for i, l := range lengths {
		out[i] = Sample{Length: l, Power: Model(l, p0, alpha)}
	}
	return out
}

func exampleSamples() SampleSet {
	return SampleSet{
		{Length: 0, Power: 10.0},
		{Length: 1, Power: 6.07},
		{Length: 2, Power: 3.68},
		{Length: 3, Power: 2.23},
		{Length: 4, Power: 1.35},
	}
}

func TestFit_RecoversNoiselessParameters(t *testing.T) {
	cases := []struct {
		name   string
		p0     float64
		alpha  float64
		length []float64
	}{
		{name: "short fiber", p0: 5, alpha: 0.3, length: []float64{0, 1, 2, 3, 4, 5}},
		{name: "unsorted", p0: 12.5, alpha: 0.05, length: []float64{20, 0, 10, 5, 15}},
		{name: "slow decay", p0: 1.2, alpha: 0.02, length: []float64{0, 10, 25, 40}},
	}
	fitter := NewFitter(DefaultFitterOptions())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fit, err := fitter.Fit(exactSamples(tc.p0, tc.alpha, tc.length...))
			require.NoError(t, err)
			assert.InEpsilon(t, tc.p0, fit.P0, 1e-6)
			assert.InEpsilon(t, tc.alpha, fit.Alpha, 1e-6)
			assert.InDelta(t, 0, fit.Covariance[0][0], 1e-12)
			assert.InDelta(t, 0, fit.Covariance[1][1], 1e-12)
			assert.Equal(t, len(tc.length), fit.N)
		})
	}
}

func TestFit_ExampleScenario(t *testing.T) {
	fit, err := NewFitter(FitterOptions{}).Fit(exampleSamples())
	require.NoError(t, err)

	assert.InDelta(t, 10.0, fit.P0, 0.05)
	assert.InDelta(t, 0.5, fit.Alpha, 0.01)
	se := fit.StdErr()
	assert.Less(t, se[0], 0.1)
	assert.Less(t, se[1], 0.01)
	assert.Greater(t, fit.RSquared(exampleSamples()), 0.999)
	assert.InDelta(t, 10/math.Ln10*fit.Alpha, fit.AttenuationDB(), 1e-12)
}

func TestFit_InsufficientData(t *testing.T) {
	_, err := NewFitter(FitterOptions{}).Fit(exampleSamples()[:2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.NotErrorIs(t, err, ErrFitDivergence)

	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 2, ide.Got)
}

func TestFit_RejectsDomainViolations(t *testing.T) {
	cases := map[string]Sample{
		"zero power":      {Length: 2, Power: 0},
		"negative power":  {Length: 2, Power: -0.4},
		"nan power":       {Length: 2, Power: math.NaN()},
		"negative length": {Length: -1, Power: 3},
		"infinite length": {Length: math.Inf(1), Power: 3},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			samples := exampleSamples()
			samples[2] = bad
			_, err := NewFitter(FitterOptions{}).Fit(samples)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFitDivergence)

			var de *FitDivergenceError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, ReasonDomain, de.Reason)
			assert.Equal(t, "domain", de.Reason.Code())
		})
	}
}

func TestFit_EqualLengthsUsePseudoInverse(t *testing.T) {
	samples := SampleSet{{Length: 0, Power: 3}, {Length: 0, Power: 3.2}, {Length: 0, Power: 2.9}}
	fit, err := NewFitter(FitterOptions{}).Fit(samples)
	require.NoError(t, err)

	// L=0 时 alpha 不可辨识，保持种子值；P0 收敛到均值。
	assert.InDelta(t, (3+3.2+2.9)/3, fit.P0, 1e-6)
	assert.Equal(t, initialAlpha, fit.Alpha)
	assert.InDelta(t, 0.0466666666666667/3, fit.Covariance[0][0], 1e-6)
	assert.InDelta(t, 0, fit.Covariance[0][1], 1e-15)
	assert.InDelta(t, 0, fit.Covariance[1][1], 1e-15)
}

func TestFit_EqualNonZeroLengths(t *testing.T) {
	samples := SampleSet{{Length: 5, Power: 3.0}, {Length: 5, Power: 3.2}, {Length: 5, Power: 2.9}, {Length: 5, Power: 3.1}}
	fit, err := NewFitter(FitterOptions{}).Fit(samples)
	require.NoError(t, err)

	assert.InDelta(t, 3.05, fit.Predict(5), 1e-6)
	for _, row := range fit.Covariance {
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
	ci := NewConfidenceInterval(fit)
	assert.LessOrEqual(t, ci.P0Lo, fit.P0)
	assert.GreaterOrEqual(t, ci.AlphaHi, fit.Alpha)
}

func TestCovariance_RankDeficientDistinctLengths(t *testing.T) {
	// P0 = 0 使 ∂/∂alpha 整列为零，而长度互不相同，无法用伪逆恢复。
	_, err := covariance([]float64{0, 1, 2}, [2]float64{0, 0.5}, 1)
	require.Error(t, err)

	var de *FitDivergenceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonSingular, de.Reason)
}

func TestFit_NotConverged(t *testing.T) {
	_, err := NewFitter(FitterOptions{MaxIterations: 1}).Fit(exampleSamples())
	require.Error(t, err)

	var de *FitDivergenceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonNotConverged, de.Reason)
	assert.Equal(t, 1, de.Iterations)
	assert.Contains(t, err.Error(), "did not converge")
}

func TestFit_ThreeSamplesIsLegal(t *testing.T) {
	samples := SampleSet{{Length: 0, Power: 10.2}, {Length: 2, Power: 3.5}, {Length: 4, Power: 1.4}}
	fit, err := NewFitter(FitterOptions{}).Fit(samples)
	require.NoError(t, err)

	// 自由度为 1，协方差按 RSS/1 缩放
	se := fit.StdErr()
	assert.Greater(t, se[0], 0.0)
	assert.Greater(t, se[1], 0.0)
	assert.Equal(t, 3, fit.N)
}

func TestInitialGuess(t *testing.T) {
	guess := InitialGuess(SampleSet{{Length: 3, Power: 2}, {Length: 0, Power: 9.5}, {Length: 1, Power: 7}})
	assert.Equal(t, [2]float64{9.5, 0.1}, guess)
}

func TestFit_IsDeterministic(t *testing.T) {
	fitter := NewFitter(FitterOptions{})
	a, err := fitter.Fit(exampleSamples())
	require.NoError(t, err)
	b, err := fitter.Fit(exampleSamples())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewFitter_AppliesDefaults(t *testing.T) {
	opts := NewFitter(FitterOptions{MaxIterations: -3}).Options()
	assert.Equal(t, DefaultFitterOptions(), opts)
}
