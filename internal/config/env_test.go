package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRuntimeEnvDefaults(t *testing.T) {
	e, err := LoadRuntimeEnvFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Workers)
	assert.Empty(t, e.ConfigPath)
	assert.Zero(t, e.Seed)

	cfg := EmptyDigitizerConfig()
	e.ApplyTo(cfg)
	assert.Nil(t, cfg.Seed, "zero seed leaves config untouched")
}

func TestLoadRuntimeEnvOverrides(t *testing.T) {
	e, err := LoadRuntimeEnvFrom(map[string]string{
		"PADSIM_CONFIG":  "/etc/padsim/run.json",
		"PADSIM_DB":      "/tmp/run.db",
		"PADSIM_WORKERS": "4",
		"PADSIM_SEED":    "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "/etc/padsim/run.json", e.ConfigPath)
	assert.Equal(t, "/tmp/run.db", e.DBPath)
	assert.Equal(t, 4, e.Workers)
	assert.Equal(t, uint64(1234), e.Seed)

	cfg := EmptyDigitizerConfig()
	e.ApplyTo(cfg)
	assert.Equal(t, uint64(1234), cfg.GetSeed())
}

func TestLoadRuntimeEnvClampsWorkers(t *testing.T) {
	e, err := LoadRuntimeEnvFrom(map[string]string{"PADSIM_WORKERS": "0"})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Workers)
}

func TestLoadRuntimeEnvRejectsGarbage(t *testing.T) {
	_, err := LoadRuntimeEnvFrom(map[string]string{"PADSIM_WORKERS": "many"})
	assert.Error(t, err)
}

func TestLoadRuntimeEnvProcess(t *testing.T) {
	t.Setenv("PADSIM_PLOTS", "/tmp/plots")
	e, err := LoadRuntimeEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/plots", e.PlotsDir)
}

func TestEnvironMap(t *testing.T) {
	m := environMap([]string{"A=1", "B=x=y", "C="})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, m)
}
