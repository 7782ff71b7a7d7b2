package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestDefaultsWithoutEnvFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, core.DefaultLimits(), cfg.Limits())
}

func TestEnvFileAndOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "# fitness server\nFITNESS_HTTP_ADDR=:18080\nFITNESS_MAX_GENES=200\nFITNESS_MEMO=true\nFITNESS_METHOD=kernel\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))
	t.Setenv("FITNESS_MAX_GENES", "300")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, ":18080", cfg.HTTPAddr)
	assert.Equal(t, 300, cfg.MaxGenes, "environment wins over .env")
	assert.True(t, cfg.Memo)

	mc, err := cfg.FactoryConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel", "software"}, mc.PreferredOrder)
	assert.True(t, mc.EnableMemo)
	assert.Equal(t, core.Limits{MaxGenes: 300, MaxDim: core.DefaultMaxDim, MaxBats: core.DefaultMaxBats}, mc.Limits)
}

func TestInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("FITNESS_WORKERS", "many")
	_, err := LoadFrom(t.TempDir())
	assert.ErrorIs(t, err, core.ErrConfiguration)

	clearEnv(t)
	t.Setenv("FITNESS_MEMO", "perhaps")
	_, err = LoadFrom(t.TempDir())
	assert.ErrorIs(t, err, core.ErrConfiguration)

	clearEnv(t)
	t.Setenv("FITNESS_MAX_DIM", "0")
	_, err = LoadFrom(t.TempDir())
	assert.ErrorIs(t, err, core.ErrConfiguration)

	clearEnv(t)
	t.Setenv("FITNESS_MAX_BATS", "-5")
	_, err = LoadFrom(t.TempDir())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestFactoryConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "methods.json")
	saved := factory.DefaultMethodConfig()
	saved.PreferredOrder = []string{"kernel", "software"}
	saved.Workers = 2
	require.NoError(t, factory.SaveConfigToFile(saved, path))
	t.Setenv("FITNESS_METHOD_CONFIG", path)

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	mc, err := cfg.FactoryConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel", "software"}, mc.PreferredOrder)
	assert.Equal(t, 2, mc.Workers)

	logCfg := cfg.Logging()
	assert.Equal(t, "info", logCfg.Level)
	assert.Equal(t, "stdout", logCfg.Output)
}
