// Package gas supplies constant drift-gas properties to the digitizer.
// Values would normally come from an external gas-transport solver; here
// they are read from the digitizer configuration.
package gas

import (
	"github.com/banshee-data/padplane/internal/config"
)

// Static is a gas whose properties do not depend on the drift field.
type Static struct {
	W            float64 // mean energy per ion pair, eV
	Velocity     float64 // drift velocity, mm/ns
	Transverse   float64 // transverse diffusion, mm/sqrt(mm)
	Longitudinal float64 // longitudinal diffusion, mm/sqrt(mm)
}

// FromConfig reads the gas section of cfg.
func FromConfig(cfg *config.DigitizerConfig) Static {
	return Static{
		W:            cfg.GetMeanEnergyPerIonPair(),
		Velocity:     cfg.GetDriftVelocity(),
		Transverse:   cfg.GetTransverseDiffusionCoef(),
		Longitudinal: cfg.GetLongitudinalDiffusionCoef(),
	}
}

func (s Static) MeanEnergyPerIonPair() float64  { return s.W }
func (s Static) DriftVelocity() float64         { return s.Velocity }
func (s Static) TransverseDiffusion() float64   { return s.Transverse }
func (s Static) LongitudinalDiffusion() float64 { return s.Longitudinal }
