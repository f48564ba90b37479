package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// RuntimeEnv holds the process-level settings that may come from the
// environment. Command-line flags default to these values.
type RuntimeEnv struct {
	ConfigPath string `env:"PADSIM_CONFIG"`
	DBPath     string `env:"PADSIM_DB"`
	PlotsDir   string `env:"PADSIM_PLOTS"`
	Workers    int    `env:"PADSIM_WORKERS" envDefault:"1"`
	Seed       uint64 `env:"PADSIM_SEED"` // 0 keeps the configured seed
}

// LoadRuntimeEnv parses RuntimeEnv from the process environment.
func LoadRuntimeEnv() (RuntimeEnv, error) {
	return LoadRuntimeEnvFrom(environMap(os.Environ()))
}

// LoadRuntimeEnvFrom parses RuntimeEnv from an explicit environment.
func LoadRuntimeEnvFrom(environ map[string]string) (RuntimeEnv, error) {
	var e RuntimeEnv
	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return RuntimeEnv{}, fmt.Errorf("parse env: %w", err)
	}
	if e.Workers < 1 {
		e.Workers = 1
	}
	return e, nil
}

func environMap(kv []string) map[string]string {
	m := make(map[string]string, len(kv))
	for _, s := range kv {
		if k, v, ok := strings.Cut(s, "="); ok {
			m[k] = v
		}
	}
	return m
}

// ApplyTo copies environment overrides into cfg.
func (e RuntimeEnv) ApplyTo(cfg *DigitizerConfig) {
	if e.Seed != 0 {
		cfg.Seed = ptrUint64(e.Seed)
	}
}
