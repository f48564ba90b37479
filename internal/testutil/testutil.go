// Package testutil provides shared test fixtures for the digitization
// packages: random ionization tracks and float comparison helpers.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/steps"
)

// Bounds is the box random steps are drawn from, in millimetres.
type Bounds struct {
	Min, Max r3.Vec
}

// NewRand returns a deterministic generator for fixtures.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomSteps draws n steps uniformly inside b with deposits up to maxEnergy eV.
// Tags cycle through the known particle species.
func RandomSteps(rng *rand.Rand, n int, b Bounds, maxEnergy float64) []digitizer.IonizationStep {
	tags := []digitizer.ParticleTag{
		digitizer.TagProton, digitizer.TagAlpha, digitizer.TagCarbon,
		digitizer.TagOxygen, digitizer.TagOther,
	}
	out := make([]digitizer.IonizationStep, n)
	for i := range out {
		out[i] = digitizer.IonizationStep{
			Position: r3.Vec{
				X: b.Min.X + rng.Float64()*(b.Max.X-b.Min.X),
				Y: b.Min.Y + rng.Float64()*(b.Max.Y-b.Min.Y),
				Z: b.Min.Z + rng.Float64()*(b.Max.Z-b.Min.Z),
			},
			EnergyDeposit: rng.Float64() * maxEnergy,
			ParticleTag:   tags[i%len(tags)],
		}
	}
	return out
}

// RandomEvents builds events with contiguous ids starting at firstID.
func RandomEvents(rng *rand.Rand, n, stepsPerEvent int, firstID int64, b Bounds, maxEnergy float64) []steps.Event {
	events := make([]steps.Event, n)
	for i := range events {
		events[i] = steps.Event{
			ID:    firstID + int64(i),
			Steps: RandomSteps(rng, stepsPerEvent, b, maxEnergy),
		}
	}
	return events
}

// AssertClose fails the test when got and want differ by more than rel
// relative to the larger magnitude, or abs absolutely, whichever is looser.
func AssertClose(t testing.TB, got, want, abs, rel float64) {
	t.Helper()
	if math.IsNaN(got) || math.IsNaN(want) {
		t.Errorf("got %v, want %v", got, want)
		return
	}
	if !scalar.EqualWithinAbsOrRel(got, want, abs, rel) {
		t.Errorf("got %.12g, want %.12g (abs %g, rel %g)", got, want, abs, rel)
	}
}
