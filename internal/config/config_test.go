package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "_site", cfg.Output)
	assert.Equal(t, "notebooks", cfg.Notebooks)
	assert.Equal(t, "apps", cfg.Apps)
	assert.Equal(t, "notebooks_wasm", cfg.NotebooksWasm)
	assert.True(t, cfg.Sandbox)
	assert.False(t, cfg.Parallel)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, int64(10<<20), cfg.MaxFileSize())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("output", "public")
	viper.Set("sandbox", false)
	viper.Set("parallel", true)
	viper.Set("max_workers", 8)
	viper.Set("timeout", "90s")
	viper.Set("audit.enabled", true)
	viper.Set("audit.log_file", "events.log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.Output)
	assert.False(t, cfg.Sandbox)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "events.log", cfg.Audit.LogFile)
}

func TestLoadClampsWorkers(t *testing.T) {
	resetViper(t)
	viper.Set("max_workers", 500)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.MaxWorkers)
}

func TestLoadRejectsDangerousPaths(t *testing.T) {
	for _, tc := range []struct {
		name  string
		key   string
		value string
	}{
		{"shell metacharacter in output", "output", "out;rm -rf /"},
		{"command substitution in notebooks", "notebooks", "$(whoami)"},
		{"backtick in template", "template", "`id`.html"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resetViper(t)
			viper.Set(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "dangerous character")
		})
	}
}

func TestLoadRejectsNegativeValues(t *testing.T) {
	for _, tc := range []struct {
		name  string
		key   string
		value any
	}{
		{"negative workers", "max_workers", -2},
		{"negative timeout", "timeout", "-5s"},
		{"negative size ceiling", "max_file_size_mb", -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resetViper(t)
			viper.Set(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsMissingBinPath(t *testing.T) {
	resetViper(t)
	viper.Set("bin_path", "/nonexistent/toolchain/bin")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bin_path")
}

func TestLoadAcceptsExistingBinPath(t *testing.T) {
	resetViper(t)
	viper.Set("bin_path", t.TempDir())

	_, err := Load()
	require.NoError(t, err)
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	resetViper(t)
	viper.Set("log.format", "xml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log format")
}
