// Package report renders per-pad diagnostics: hit occupancy over a run and
// the charge map of a single event, as PNG heatmaps (gonum/plot) and
// interactive HTML (go-echarts).
package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/padplane/internal/accumulator"
	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/padplane"
	"github.com/banshee-data/padplane/internal/units"
)

// PadMap is one value per pad, row-major like the accumulator.
type PadMap struct {
	Title  string
	Label  string // unit of Values, shown on the colour scale
	NPadX  int
	NPadY  int
	Values []float64
}

// Dims, Z, X and Y make PadMap a plotter.GridXYZ.
func (m PadMap) Dims() (c, r int)   { return m.NPadX, m.NPadY }
func (m PadMap) Z(c, r int) float64 { return m.Values[r*m.NPadX+c] }
func (m PadMap) X(c int) float64    { return float64(c) }
func (m PadMap) Y(r int) float64    { return float64(r) }

// Occupancy returns the fraction of events in which each pad was hit.
func Occupancy(grid *padplane.Grid, h *accumulator.HitHistogram) (PadMap, error) {
	if h.Len() != grid.NumPads() {
		return PadMap{}, fmt.Errorf("histogram has %d pads, grid has %d", h.Len(), grid.NumPads())
	}
	m := PadMap{
		Title:  fmt.Sprintf("Pad occupancy (%d events)", h.Events()),
		Label:  "hit fraction",
		NPadX:  grid.NPadX,
		NPadY:  grid.NPadY,
		Values: make([]float64, h.Len()),
	}
	if h.Events() == 0 {
		return m, nil
	}
	for i, c := range h.Counts() {
		m.Values[i] = float64(c) / float64(h.Events())
	}
	return m, nil
}

// ChargeMap returns the charge of each pad in one event, in electrons.
func ChargeMap(grid *padplane.Grid, r digitizer.Readout) (PadMap, error) {
	if len(r.Charge) != grid.NumPads() {
		return PadMap{}, fmt.Errorf("readout has %d pads, grid has %d", len(r.Charge), grid.NumPads())
	}
	values := make([]float64, len(r.Charge))
	floats.ScaleTo(values, 1/units.ElementaryCharge, r.Charge)
	return PadMap{
		Title:  fmt.Sprintf("Event %d charge", r.Event),
		Label:  "electrons",
		NPadX:  grid.NPadX,
		NPadY:  grid.NPadY,
		Values: values,
	}, nil
}

// Stats summarises a PadMap.
type Stats struct {
	Mean    float64
	StdDev  float64
	Max     float64
	MaxPad  int
	Zero    int // pads with a zero value
	NonZero int
}

// Summarize computes Stats over every pad.
func (m PadMap) Summarize() Stats {
	var s Stats
	if len(m.Values) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(m.Values, nil)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	s.MaxPad = floats.MaxIdx(m.Values)
	s.Max = m.Values[s.MaxPad]
	for _, v := range m.Values {
		if v == 0 {
			s.Zero++
		} else {
			s.NonZero++
		}
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("mean=%.4g std=%.4g max=%.4g max_pad=%d nonzero=%d zero=%d",
		s.Mean, s.StdDev, s.Max, s.MaxPad, s.NonZero, s.Zero)
}
