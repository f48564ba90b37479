package digitizer

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleTag identifies the particle that produced a step.
type ParticleTag uint8

const (
	TagUnknown ParticleTag = iota
	TagElectron
	TagProton
	TagAlpha
	TagCarbon
	TagOxygen
	TagOther
	numTags
)

var tagNames = [numTags]string{"unknown", "electron", "proton", "alpha", "carbon", "oxygen", "other"}

func (t ParticleTag) String() string {
	if t < numTags {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// ParseParticleTag maps a name such as "alpha" or "C12" to a tag.
// Unrecognised names map to TagOther.
func ParseParticleTag(s string) ParticleTag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return TagUnknown
	case "e-", "e+", "electron", "positron":
		return TagElectron
	case "proton", "p":
		return TagProton
	case "alpha", "he4":
		return TagAlpha
	case "carbon", "c12":
		return TagCarbon
	case "oxygen", "o16":
		return TagOxygen
	default:
		return TagOther
	}
}

// IonizationStep is one energy deposit produced by the particle transport.
// Position is in world millimetres and EnergyDeposit in electronvolts.
type IonizationStep struct {
	Position      r3.Vec
	EnergyDeposit float64
	ParticleTag   ParticleTag
}

// GasProperties is the drift-gas collaborator. Diffusion coefficients are
// in mm/sqrt(mm), the drift velocity in mm/ns and the ion-pair energy in eV.
type GasProperties interface {
	MeanEnergyPerIonPair() float64
	DriftVelocity() float64
	TransverseDiffusion() float64
	LongitudinalDiffusion() float64
}

// TagTally counts the steps and deposited energy of one particle species
// within an event.
type TagTally struct {
	Steps  int
	Energy float64
}

// Readout is the row-major snapshot of one event.
type Readout struct {
	Event       int
	Charge      []float64 // coulombs per pad
	Time        []float64 // charge-weighted mean drift time per pad, 0 without charge
	Hits        []int     // pads above the hit threshold, ascending
	TotalCharge float64
	Tags        map[ParticleTag]TagTally
}

// Summary holds run-level diagnostics. Summaries of independent workers
// combine with Merge.
type Summary struct {
	Steps             int64
	Events            int64
	EmptySteps        int64 // no energy deposited
	RejectedSteps     int64 // non-finite input
	ZeroChargeSteps   int64 // gain draw clamped to zero
	ClampedDrifts     int64 // drift fluctuation clamped at the plane
	IntegratedPads    int64
	PrunedPads        int64
	NumericalWarnings int64
	InjectedCharge    float64
	CollectedCharge   float64
}

// Merge adds o into s.
func (s *Summary) Merge(o Summary) {
	s.Steps += o.Steps
	s.Events += o.Events
	s.EmptySteps += o.EmptySteps
	s.RejectedSteps += o.RejectedSteps
	s.ZeroChargeSteps += o.ZeroChargeSteps
	s.ClampedDrifts += o.ClampedDrifts
	s.IntegratedPads += o.IntegratedPads
	s.PrunedPads += o.PrunedPads
	s.NumericalWarnings += o.NumericalWarnings
	s.InjectedCharge += o.InjectedCharge
	s.CollectedCharge += o.CollectedCharge
}

func (s Summary) String() string {
	return fmt.Sprintf("events=%d steps=%d empty=%d rejected=%d zero_charge=%d clamped_drift=%d integrated_pads=%d pruned_pads=%d warnings=%d injected=%.4g C collected=%.4g C",
		s.Events, s.Steps, s.EmptySteps, s.RejectedSteps, s.ZeroChargeSteps, s.ClampedDrifts,
		s.IntegratedPads, s.PrunedPads, s.NumericalWarnings, s.InjectedCharge, s.CollectedCharge)
}
