package digitizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/padplane/internal/chargecloud"
	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/integrate"
	"github.com/banshee-data/padplane/internal/padplane"
)

// PadShare is the charge one pad receives from one cloud.
type PadShare struct {
	Index  int
	Charge float64
}

// DistributeStats counts the pads a distribution looked at.
type DistributeStats struct {
	Integrated int
	Pruned     int // inside the search window but farther than the prune radius
}

// Distribute integrates cloud over every pad whose active rectangle comes
// within pruneFactor·sigma of the cloud centre and appends the non-zero
// shares to dst. Only the pads inside the bounding window of that radius are
// visited, so the cost follows the cloud size rather than the grid size.
//
// Integration problems never abort: the integrator's estimate is used and
// the warnings are returned joined.
func Distribute(dst []PadShare, grid *padplane.Grid, integ integrate.Integrator, cloud chargecloud.Cloud, pruneFactor float64) ([]PadShare, DistributeStats, error) {
	var stats DistributeStats
	r := pruneFactor * cloud.Sigma()
	x0, x1, okX := grid.ColumnRange(cloud.CenterX-r, cloud.CenterX+r)
	y0, y1, okY := grid.RowRange(cloud.CenterY-r, cloud.CenterY+r)
	if !okX || !okY {
		return dst, stats, nil
	}

	var warnings []error
	rr := r * r
	for iy := y0; iy <= y1; iy++ {
		for ix := x0; ix <= x1; ix++ {
			idx := grid.IndexOf(ix, iy)
			lo, hi := grid.PadBounds(idx)
			dx := math.Max(math.Max(lo.X-cloud.CenterX, cloud.CenterX-hi.X), 0)
			dy := math.Max(math.Max(lo.Y-cloud.CenterY, cloud.CenterY-hi.Y), 0)
			if dx*dx+dy*dy > rr {
				stats.Pruned++
				continue
			}
			var w error
			dst, w = integratePad(dst, integ, cloud, idx, lo, hi)
			if w != nil {
				warnings = append(warnings, w)
			}
			stats.Integrated++
		}
	}
	return dst, stats, errors.Join(warnings...)
}

// DistributeExhaustive integrates cloud over every pad of the grid with no
// pruning. It is the reference Distribute is checked against.
func DistributeExhaustive(dst []PadShare, grid *padplane.Grid, integ integrate.Integrator, cloud chargecloud.Cloud) ([]PadShare, error) {
	var warnings []error
	for idx := 0; idx < grid.NumPads(); idx++ {
		lo, hi := grid.PadBounds(idx)
		var w error
		dst, w = integratePad(dst, integ, cloud, idx, lo, hi)
		if w != nil {
			warnings = append(warnings, w)
		}
	}
	return dst, errors.Join(warnings...)
}

func integratePad(dst []PadShare, integ integrate.Integrator, cloud chargecloud.Cloud, idx int, lo, hi r2.Vec) ([]PadShare, error) {
	q, err := integ.RectangleIntegral(cloud, lo, hi)
	if err != nil && !errs.IsWarning(err) {
		err = &errs.NumericalWarning{Op: "integrate", Detail: err.Error(), Estimate: q}
	}
	if math.IsNaN(q) || math.IsInf(q, 0) {
		detail := fmt.Sprintf("pad %d integral is %v", idx, q)
		return dst, errors.Join(err, &errs.NumericalWarning{Op: "integrate", Detail: detail, Estimate: 0})
	}
	if q > 0 {
		dst = append(dst, PadShare{Index: idx, Charge: q})
	}
	return dst, err
}
