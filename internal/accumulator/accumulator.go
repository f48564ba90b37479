// Package accumulator owns the mutable per-pad state of one event and the
// per-pad hit counts of a whole run.
package accumulator

import (
	"github.com/banshee-data/padplane/internal/errs"
)

// Pad is one accumulator slot.
type Pad struct {
	ChargeSum       float64
	WeightedTimeSum float64
	Hit             bool
}

// Accumulator holds one Pad per pad index, row-major. It is not safe for
// concurrent use; each worker owns its own.
type Accumulator struct {
	pads   []Pad
	sealed bool
}

// New returns an Accumulator for nPads pads.
func New(nPads int) (*Accumulator, error) {
	if nPads <= 0 {
		return nil, errs.Configf("accumulator needs a positive pad count, got %d", nPads)
	}
	return &Accumulator{pads: make([]Pad, nPads)}, nil
}

// Len returns the number of pads.
func (a *Accumulator) Len() int { return len(a.pads) }

func (a *Accumulator) slot(index int) *Pad {
	errs.CheckIndex(index, len(a.pads))
	return &a.pads[index]
}

func (a *Accumulator) mutable(index int) *Pad {
	if a.sealed {
		panic("accumulator: event was read out; Clear must run before the next event")
	}
	return a.slot(index)
}

// AddCharge adds amount to the pad's charge. Negative amounts are ignored.
func (a *Accumulator) AddCharge(index int, amount float64) {
	p := a.mutable(index)
	if amount > 0 {
		p.ChargeSum += amount
	}
}

// AddWeightedTime adds time*weight to the pad's weighted time sum.
func (a *Accumulator) AddWeightedTime(index int, time, weight float64) {
	p := a.mutable(index)
	if weight > 0 {
		p.WeightedTimeSum += time * weight
	}
}

// MarkHit flags the pad as hit for this event.
func (a *Accumulator) MarkHit(index int) {
	a.mutable(index).Hit = true
}

// GetCharge returns the accumulated charge of a pad.
func (a *Accumulator) GetCharge(index int) float64 {
	return a.slot(index).ChargeSum
}

// GetTime returns the charge-weighted mean time of a pad, or 0 without charge.
func (a *Accumulator) GetTime(index int) float64 {
	p := a.slot(index)
	if p.ChargeSum > 0 {
		return p.WeightedTimeSum / p.ChargeSum
	}
	return 0
}

// IsHit reports whether the pad was marked this event.
func (a *Accumulator) IsHit(index int) bool {
	return a.slot(index).Hit
}

// Charges returns a row-major copy of the pad charges.
func (a *Accumulator) Charges() []float64 {
	out := make([]float64, len(a.pads))
	for i := range a.pads {
		out[i] = a.pads[i].ChargeSum
	}
	return out
}

// Times returns a row-major copy of the pad mean times.
func (a *Accumulator) Times() []float64 {
	out := make([]float64, len(a.pads))
	for i := range a.pads {
		out[i] = a.GetTime(i)
	}
	return out
}

// HitIndices returns the indices of hit pads in ascending order.
func (a *Accumulator) HitIndices() []int {
	var out []int
	for i := range a.pads {
		if a.pads[i].Hit {
			out = append(out, i)
		}
	}
	return out
}

// Seal marks the event as read out. Any mutation before Clear panics.
func (a *Accumulator) Seal() { a.sealed = true }

// Sealed reports whether the event was read out and not yet cleared.
func (a *Accumulator) Sealed() bool { return a.sealed }

// Clear resets every pad and unseals the accumulator. It runs once per event
// boundary.
func (a *Accumulator) Clear() {
	clear(a.pads)
	a.sealed = false
}
