package gas

import (
	"testing"

	"github.com/banshee-data/padplane/internal/config"
)

func TestFromConfigUsesDefaults(t *testing.T) {
	g := FromConfig(config.EmptyDigitizerConfig())
	if g.MeanEnergyPerIonPair() != 26.0 {
		t.Errorf("MeanEnergyPerIonPair() = %f, want 26", g.MeanEnergyPerIonPair())
	}
	if g.DriftVelocity() != 0.05 {
		t.Errorf("DriftVelocity() = %f, want 0.05", g.DriftVelocity())
	}
	if g.TransverseDiffusion() != 0.16 || g.LongitudinalDiffusion() != 0.12 {
		t.Errorf("diffusion = %f/%f, want 0.16/0.12", g.TransverseDiffusion(), g.LongitudinalDiffusion())
	}
}

func TestFromConfigConvertsVelocity(t *testing.T) {
	cfg := config.MustLoadDefaultConfig()
	v, unit := 5.0, "cm/us"
	cfg.DriftVelocity = &v
	cfg.DriftVelocityUnit = &unit

	g := FromConfig(cfg)
	if got := g.DriftVelocity(); got < 0.0499999 || got > 0.0500001 {
		t.Errorf("DriftVelocity() = %f, want 0.05 mm/ns", got)
	}
}
