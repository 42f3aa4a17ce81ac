package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultWeights(), c.Weights)
	assert.Equal(t, 0.7, c.StrongCorrelation)
	assert.Equal(t, ":8000", c.ServerAddr)
	assert.Equal(t, filepath.Join(home, ".datalens", "history"), c.HistoryDir)
	assert.NoError(t, c.ProfileOptions().Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server_addr: \":9000\"\nmax_rows: 50\nweights:\n  completeness: 0.5\n  uniqueness: 0.2\n"), 0o644))
	t.Setenv("DATALENS_MAX_ROWS", "7")

	c, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.ServerAddr)
	assert.Equal(t, 7, c.MaxRows)
	assert.Equal(t, 7, c.LoadOptions().MaxRows)
	assert.Equal(t, 0.5, c.Weights.Completeness)
	assert.Equal(t, 0.2, c.Weights.Uniqueness)
	assert.Equal(t, 0.15, c.Weights.Numeric)
}

func TestLoadBrokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server_addr: [unclosed\n"), 0o644))
	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestSetAndSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	require.NoError(t, c.Set("weights.numeric", "0.2"))
	require.NoError(t, c.Set("log_level", "DEBUG"))
	require.NoError(t, c.Set("save_history", "false"))
	require.NoError(t, c.Set("base_url", "http://localhost:8080/v1/"))
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "http://localhost:8080/v1", c.BaseURL)

	assert.Error(t, c.Set("weights.numeric", "1.5"))
	assert.Error(t, c.Set("max_rows", "-1"))
	assert.Error(t, c.Set("log_level", "loud"))
	assert.Error(t, c.Set("nope", "1"))

	require.NoError(t, Save(c, ""))
	back, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.2, back.Weights.Numeric)
	assert.False(t, back.SaveHistory)
	assert.Equal(t, "debug", back.LogLevel)
}

func TestKeysAreSettable(t *testing.T) {
	c := &Global{}
	samples := map[string]string{
		"save_history":           "true",
		"log_level":              "info",
		"strong_correlation":     "0.8",
		"high_missing_threshold": "0.5",
	}
	for _, k := range Keys() {
		v, ok := samples[k]
		if !ok {
			v = "0"
		}
		assert.NoError(t, c.Set(k, v), k)
	}
}

func TestGetMirrorsSet(t *testing.T) {
	c := &Global{}
	require.NoError(t, c.Set("workers", "8"))
	require.NoError(t, c.Set("weights.uniqueness", "0.25"))
	require.NoError(t, c.Set("model", "llama3"))

	v, ok := c.Get("workers")
	assert.True(t, ok)
	assert.Equal(t, "8", v)
	v, _ = c.Get("weights.uniqueness")
	assert.Equal(t, "0.25", v)
	v, _ = c.Get("model")
	assert.Equal(t, "llama3", v)

	for _, k := range Keys() {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	_, ok = c.Get("nope")
	assert.False(t, ok)
}

func TestSetRejectsZeroThresholds(t *testing.T) {
	c := &Global{StrongCorrelation: 0.7, HighMissingThreshold: 0.5}
	assert.Error(t, c.Set("strong_correlation", "0"))
	assert.Error(t, c.Set("high_missing_threshold", "0"))
	assert.Error(t, c.Set("high_missing_threshold", "1.5"))
	assert.Error(t, c.Set("strong_correlation", "1"))
	assert.Equal(t, 0.7, c.StrongCorrelation)
	assert.Equal(t, 0.5, c.HighMissingThreshold)

	require.NoError(t, c.Set("strong_correlation", "0.9"))
	require.NoError(t, c.Set("high_missing_threshold", "1"))
	assert.Equal(t, 0.9, c.ProfileOptions().StrongCorrelation)
	assert.Equal(t, 1.0, c.ProfileOptions().HighMissingThreshold)
}
