package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"fiberatt/internal/attenuation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleInput() Input {
	fit := attenuation.FitResult{
		P0:         10.000000123,
		Alpha:      0.5,
		Covariance: [2][2]float64{{0.0004, 1.23456789e-9}, {1.23456789e-9, 2.5e-5}},
		N:          3,
		RSS:        0.03,
		Iterations: 9,
	}
	return Input{
		RunID:   "run-1",
		Source:  "fiber.csv",
		Samples: attenuation.SampleSet{{Length: 0, Power: 10}, {Length: 1, Power: 6.07}, {Length: 2, Power: 3.68}},
		Fit:     fit,
		CI:      attenuation.NewConfidenceInterval(fit),
		Bundle: attenuation.CurveBundle{
			Range: attenuation.LengthRange{Min: 0, Max: 2},
			DB: attenuation.DomainCurves{
				Lo: attenuation.CurveSeries{Invalid: 4},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	s := Build(sampleInput())
	assert.Equal(t, 10.0, s.P0.Value)
	assert.Equal(t, 0.02, s.P0.StdErr)
	assert.Equal(t, 0.005, s.Alpha.StdErr)
	assert.InDelta(t, 9.9608, s.P0.Lo, 1e-9)
	assert.InDelta(t, 2.171472, s.AttenuationDB, 1e-6)
	assert.InDelta(t, 2171.47241, s.AttenuationDBKm, 1e-5)
	assert.Equal(t, 0.1, s.RMSE)
	assert.Equal(t, 1.23457e-9, s.Covariance[0][1])
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, 4, s.InvalidDB)
	assert.False(t, s.BandAtRisk)
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(sampleInput()), FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "fiber.csv", decoded["source"])
	assert.EqualValues(t, 4, decoded["invalid_db_points"])
	assert.Contains(t, decoded, "attenuation_db_per_km")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(sampleInput()), FormatYAML))
	var decoded Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 0.5, decoded.Alpha.Value)
}

func TestRenderTextWarnings(t *testing.T) {
	in := sampleInput()
	in.Bundle.Degenerate = true
	out := RenderText(Build(in))
	assert.Contains(t, out, "fiber.csv")
	assert.Contains(t, out, "dB/km")
	assert.Contains(t, out, "4 dB band points are undefined")
	assert.Contains(t, out, "all lengths are identical")
}
