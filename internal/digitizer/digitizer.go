package digitizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/padplane/internal/accumulator"
	"github.com/banshee-data/padplane/internal/chargecloud"
	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/integrate"
	"github.com/banshee-data/padplane/internal/monitoring"
	"github.com/banshee-data/padplane/internal/padplane"
	"github.com/banshee-data/padplane/internal/units"
)

// ErrEventNotCleared is returned when steps arrive after ReadOut but before Clear.
var ErrEventNotCleared = errors.New("digitizer: event was read out but not cleared")

const logComponent = "digitizer"

// maxLoggedWarnings caps how many numerical warnings are logged per Digitizer.
const maxLoggedWarnings = 20

// Digitizer drives the per-step processing of one worker.
type Digitizer struct {
	cfg     Config
	grid    *padplane.Grid
	gas     GasProperties
	acc     *accumulator.Accumulator
	hist    *accumulator.HitHistogram
	model   *chargecloud.Model
	integ   integrate.Integrator
	sampler Sampler

	shares  []PadShare
	tags    [numTags]TagTally
	summary Summary
}

// New wires a Digitizer. The accumulator and histogram are owned by the
// caller and must match the grid's pad count. A missing or non-physical gas
// collaborator is an ErrConfiguration.
func New(cfg Config, grid *padplane.Grid, gas GasProperties, acc *accumulator.Accumulator, hist *accumulator.HitHistogram) (*Digitizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, errs.Configf("pad plane grid not configured")
	}
	if err := validateGas(gas); err != nil {
		return nil, err
	}
	if acc == nil || acc.Len() != grid.NumPads() {
		return nil, errs.Configf("accumulator does not match the %d-pad grid", grid.NumPads())
	}
	if hist == nil || hist.Len() != grid.NumPads() {
		return nil, errs.Configf("hit histogram does not match the %d-pad grid", grid.NumPads())
	}

	model := chargecloud.NewModel(gas.TransverseDiffusion(), cfg.IntrinsicDiffusionStd)
	model.SetStrict(cfg.Strict)

	return &Digitizer{
		cfg:     cfg,
		grid:    grid,
		gas:     gas,
		acc:     acc,
		hist:    hist,
		model:   model,
		integ:   integrate.ClosedForm{},
		sampler: NewGaussianSampler(cfg.Seed),
	}, nil
}

func validateGas(gas GasProperties) error {
	if gas == nil {
		return errs.Configf("gas properties not configured")
	}
	if w := gas.MeanEnergyPerIonPair(); !(w > 0) {
		return errs.Configf("mean energy per ion pair must be positive, got %g", w)
	}
	if v := gas.DriftVelocity(); !(v > 0) {
		return errs.Configf("drift velocity must be positive, got %g", v)
	}
	if d := gas.TransverseDiffusion(); !(d >= 0) {
		return errs.Configf("transverse diffusion must be non-negative, got %g", d)
	}
	if d := gas.LongitudinalDiffusion(); !(d >= 0) {
		return errs.Configf("longitudinal diffusion must be non-negative, got %g", d)
	}
	return nil
}

// WithSampler replaces the gain and drift sampler.
func (d *Digitizer) WithSampler(s Sampler) *Digitizer {
	d.sampler = s
	return d
}

// WithIntegrator replaces the pad integrator.
func (d *Digitizer) WithIntegrator(i integrate.Integrator) *Digitizer {
	d.integ = i
	return d
}

// Grid returns the pad plane.
func (d *Digitizer) Grid() *padplane.Grid { return d.grid }

// Accumulator returns the per-event pad state.
func (d *Digitizer) Accumulator() *accumulator.Accumulator { return d.acc }

// Histogram returns the run-level hit histogram.
func (d *Digitizer) Histogram() *accumulator.HitHistogram { return d.hist }

// Summary returns the run diagnostics so far.
func (d *Digitizer) Summary() Summary { return d.summary }

// ProcessStep digitizes one step into the current event. Numerical
// problems are logged and counted but do not stop the step; the returned
// error is non-nil only for rejected input or a missing Clear.
func (d *Digitizer) ProcessStep(step IonizationStep) error {
	if d.acc.Sealed() {
		return ErrEventNotCleared
	}
	d.summary.Steps++

	if !finite(step.EnergyDeposit) || step.EnergyDeposit < 0 {
		d.summary.RejectedSteps++
		return fmt.Errorf("%w: energy deposit %g", errs.ErrInvalidArgument, step.EnergyDeposit)
	}
	x, y, drift := d.grid.ToPlane(step.Position)
	if !finite(x) || !finite(y) || !finite(drift) {
		d.summary.RejectedSteps++
		return fmt.Errorf("%w: step position %v", errs.ErrInvalidArgument, step.Position)
	}
	if step.ParticleTag < numTags {
		d.tags[step.ParticleTag].Steps++
		d.tags[step.ParticleTag].Energy += step.EnergyDeposit
	}
	if step.EnergyDeposit == 0 {
		d.summary.EmptySteps++
		return nil
	}

	electrons := step.EnergyDeposit / d.gas.MeanEnergyPerIonPair() * d.cfg.CollectionEfficiency
	charge := d.sampleCharge(electrons)
	if charge == 0 {
		d.summary.ZeroChargeSteps++
		return nil
	}
	d.summary.InjectedCharge += charge

	driftLength := d.sampleDrift(drift)
	driftTime := driftLength / d.gas.DriftVelocity()

	cloud, err := d.model.Prepare(charge, x, y, driftLength)
	if err != nil {
		if !errs.IsWarning(err) {
			d.summary.RejectedSteps++
			return err
		}
		d.warn(err)
	}

	var stats DistributeStats
	d.shares, stats, err = Distribute(d.shares[:0], d.grid, d.integ, cloud, d.cfg.PruneFactor)
	if err != nil {
		d.warn(err)
	}
	d.summary.IntegratedPads += int64(stats.Integrated)
	d.summary.PrunedPads += int64(stats.Pruned)

	hitLevel := d.cfg.HitFractionThreshold * charge
	for _, s := range d.shares {
		d.acc.AddCharge(s.Index, s.Charge)
		d.acc.AddWeightedTime(s.Index, driftTime, s.Charge)
		if s.Charge > hitLevel {
			d.acc.MarkHit(s.Index)
		}
		d.summary.CollectedCharge += s.Charge
	}
	return nil
}

// sampleCharge returns the amplified charge in coulombs. Negative or
// non-finite draws yield exactly zero.
func (d *Digitizer) sampleCharge(electrons float64) float64 {
	mean := electrons * d.cfg.GainMean
	std := math.Sqrt(electrons) * d.cfg.GainStd()
	n := d.sampler.Normal(mean, std)
	if !(n > 0) || math.IsInf(n, 1) {
		return 0
	}
	return units.ElectronsToCoulombs(n)
}

// sampleDrift fluctuates the drift length longitudinally, clamped at the plane.
func (d *Digitizer) sampleDrift(drift float64) float64 {
	l := d.sampler.Normal(drift, d.gas.LongitudinalDiffusion()*math.Sqrt(drift))
	if l < 0 {
		d.summary.ClampedDrifts++
		d.warn(&errs.NumericalWarning{Op: "drift", Detail: fmt.Sprintf("drift length %g below the plane", l), Estimate: 0})
		return 0
	}
	return l
}

func (d *Digitizer) warn(err error) {
	n := countWarnings(err)
	before := d.summary.NumericalWarnings
	d.summary.NumericalWarnings += int64(n)
	switch {
	case before < maxLoggedWarnings:
		monitoring.Warnf(logComponent, "%v", err)
	case before == maxLoggedWarnings:
		monitoring.Warnf(logComponent, "further numerical warnings suppressed; see run summary")
	}
}

func countWarnings(err error) int {
	if err == nil {
		return 0
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		n := 0
		for _, e := range j.Unwrap() {
			n += countWarnings(e)
		}
		return n
	}
	return 1
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ProcessTrack digitizes the steps of one track in order. Each step's whole
// deposit sits at its recorded position. A rejected step does not stop the
// rest of the track; the rejections are returned joined.
func (d *Digitizer) ProcessTrack(steps []IonizationStep) error {
	var rejected []error
	for i, s := range steps {
		if err := d.ProcessStep(s); err != nil {
			if errors.Is(err, ErrEventNotCleared) {
				return err
			}
			rejected = append(rejected, fmt.Errorf("step %d: %w", i, err))
		}
	}
	return errors.Join(rejected...)
}

// ReadOut snapshots the event, adds its hit pads to the histogram and seals
// the accumulator. Clear must run before the next event.
func (d *Digitizer) ReadOut() (Readout, error) {
	if d.acc.Sealed() {
		return Readout{}, ErrEventNotCleared
	}
	r := Readout{
		Event:  int(d.summary.Events),
		Charge: d.acc.Charges(),
		Time:   d.acc.Times(),
		Hits:   d.acc.HitIndices(),
		Tags:   make(map[ParticleTag]TagTally),
	}
	r.TotalCharge = floats.Sum(r.Charge)
	for t, tally := range d.tags {
		if tally.Steps > 0 {
			r.Tags[ParticleTag(t)] = tally
		}
	}

	for _, idx := range r.Hits {
		d.hist.Increment(idx)
	}
	d.hist.RecordEvent()
	d.acc.Seal()
	d.summary.Events++
	return r, nil
}

// Clear resets the per-event state. It runs exactly once between events.
func (d *Digitizer) Clear() {
	d.acc.Clear()
	d.tags = [numTags]TagTally{}
}

// FinishEvent reads the event out and clears it.
func (d *Digitizer) FinishEvent() (Readout, error) {
	r, err := d.ReadOut()
	if err != nil {
		return Readout{}, err
	}
	d.Clear()
	return r, nil
}
