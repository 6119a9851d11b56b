package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateDefaultScenario(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "dao_metrics.csv")

	out, err := execute(t, "simulate", "--seed", "42", "--csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "legit=7/7 accepted replays=100/100 rejected")
	assert.Contains(t, out, "Total DAOs received: 107")
	assert.Contains(t, out, "Replay rejection %:  93.46")

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "107,7,100,93.46,"), "csv row: %q", raw)
}

func TestSimulateWithoutAttackerSkipsCSV(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	out, err := execute(t, "simulate", "--attacker=false", "--senders", "2", "--csv", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Rejected DAOs:       0")
	_, statErr := os.Stat(filepath.Join(dir, "dao_metrics.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSimulateRejectsNegativeBurst(t *testing.T) {
	_, err := execute(t, "simulate", "--burst-threshold", "-1s", "--csv", "")
	require.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validator:\n  burst_threshold: 150ms\n"), 0o600))

	out, err := execute(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "looks good")

	require.NoError(t, os.WriteFile(path, []byte("policy:\n  on_queue_full: spill\n"), 0o600))
	_, err = execute(t, "validate", "--config", path)
	require.Error(t, err)
}

func TestStatsFromEmptyCheckpoint(t *testing.T) {
	mr := miniredis.RunT(t)

	out, err := execute(t, "stats", "--redis", "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.Contains(t, out, "no checkpoint at daoguard:checkpoint")
}

func TestScrapeTargets(t *testing.T) {
	body := `# HELP daoguard_advertisements_total Decoded advertisements by verdict.
# TYPE daoguard_advertisements_total counter
daoguard_advertisements_total{verdict="accepted"} 7
daoguard_advertisements_total{verdict="rejected"} 100
daoguard_queue_length 3
go_goroutines 12
`
	values, err := scrapeTargets(strings.NewReader(body), statsTargets)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		`daoguard_advertisements_total{verdict="accepted"}`: 7,
		`daoguard_advertisements_total{verdict="rejected"}`: 100,
		"daoguard_queue_length":                             3,
	}, values)
}
