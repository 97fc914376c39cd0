package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	body := "plot:\n  output_dir: " + filepath.Join(dir, "out") + "\n" +
		"store:\n  path: " + filepath.Join(dir, "runs.db") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, dir
}

func TestAnalyzeCommand_JSONReport(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	out, err := execute(t, "analyze", "testdata/example.csv", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	p0 := summary["p0"].(map[string]any)
	alpha := summary["alpha"].(map[string]any)
	assert.InDelta(t, 10.0, p0["value"], 0.05)
	assert.InDelta(t, 0.5, alpha["value"], 0.01)
	assert.EqualValues(t, 5, summary["samples"])
	assert.NotEmpty(t, summary["run_id"])

	assert.FileExists(t, filepath.Join(dir, "out", "example_linear.html"))
	assert.FileExists(t, filepath.Join(dir, "out", "example_db.html"))

	out, err = execute(t, "runs", "--config", cfgPath, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "example.csv")
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "analyze", "testdata/missing.csv", "--config", cfgPath, "--no-store", "--no-plot")
	assert.Error(t, err)

	_, err = execute(t, "analyze", "testdata/example.csv", "--config", cfgPath, "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "analyze", "testdata/example.csv", "--config", cfgPath, "--header", "maybe", "--format", "text")
	assert.Error(t, err)
}
