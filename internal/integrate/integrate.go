// Package integrate computes the charge a cloud deposits on a rectangle.
//
// ClosedForm is exact for the Gaussian cloud and is what the digitizer uses.
// Adaptive is a quadrature fallback for arbitrary kernels.
package integrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/padplane/internal/chargecloud"
	"github.com/banshee-data/padplane/internal/errs"
)

// Integrator returns the charge of c inside the rectangle [lo, hi]. A
// *errs.NumericalWarning may accompany a best-effort value.
type Integrator interface {
	RectangleIntegral(c chargecloud.Cloud, lo, hi r2.Vec) (float64, error)
}

// ClosedForm integrates the isotropic Gaussian exactly using the error function.
type ClosedForm struct{}

// RectangleIntegral implements Integrator.
func (ClosedForm) RectangleIntegral(c chargecloud.Cloud, lo, hi r2.Vec) (float64, error) {
	if hi.X <= lo.X || hi.Y <= lo.Y {
		return 0, nil
	}
	s := math.Sqrt2 * c.Sigma()
	fx := erfDiff((lo.X-c.CenterX)/s, (hi.X-c.CenterX)/s)
	fy := erfDiff((lo.Y-c.CenterY)/s, (hi.Y-c.CenterY)/s)
	return c.TotalCharge / 4 * fx * fy, nil
}

// erfDiff returns erf(b) - erf(a) for a <= b, switching to erfc in the tails
// so far-away pads keep their relative precision.
func erfDiff(a, b float64) float64 {
	switch {
	case a >= 0:
		return math.Erfc(a) - math.Erfc(b)
	case b <= 0:
		return math.Erfc(-b) - math.Erfc(-a)
	default:
		return math.Erf(b) - math.Erf(a)
	}
}

// Kernel is a charge density evaluated at a plane point.
type Kernel func(c chargecloud.Cloud, x, y float64) float64

// Adaptive integrates Kernel by recursive quadrant bisection, estimating each
// cell with nested fixed-order Gauss-Legendre rules.
type Adaptive struct {
	Kernel    Kernel  // defaults to chargecloud.Density
	Tolerance float64 // relative to the cloud charge; default 1e-9
	Order     int     // Legendre points per axis per cell; default 12
	MaxDepth  int     // default 10
	MaxCells  int     // default 20000
}

func (a Adaptive) withDefaults() Adaptive {
	if a.Kernel == nil {
		a.Kernel = chargecloud.Density
	}
	if a.Tolerance <= 0 {
		a.Tolerance = 1e-9
	}
	if a.Order <= 0 {
		a.Order = 12
	}
	if a.MaxDepth <= 0 {
		a.MaxDepth = 10
	}
	if a.MaxCells <= 0 {
		a.MaxCells = 20000
	}
	return a
}

type adaptState struct {
	Adaptive
	cloud chargecloud.Cloud
	cells int
}

// RectangleIntegral implements Integrator. When the refinement budget runs
// out before convergence the current estimate is returned with a warning.
func (a Adaptive) RectangleIntegral(c chargecloud.Cloud, lo, hi r2.Vec) (float64, error) {
	if hi.X <= lo.X || hi.Y <= lo.Y {
		return 0, nil
	}
	st := &adaptState{Adaptive: a.withDefaults(), cloud: c}
	whole := st.cell(lo, hi)
	scale := math.Max(math.Abs(whole), math.Abs(c.TotalCharge))
	if scale == 0 {
		return 0, nil
	}
	v, ok := st.refine(lo, hi, whole, st.Tolerance*scale, 0)
	if !ok {
		return v, &errs.NumericalWarning{
			Op:       "integrate.Adaptive",
			Detail:   fmt.Sprintf("no convergence after %d cells", st.cells),
			Estimate: v,
		}
	}
	return v, nil
}

func (s *adaptState) cell(lo, hi r2.Vec) float64 {
	s.cells++
	return quad.Fixed(func(x float64) float64 {
		return quad.Fixed(func(y float64) float64 {
			return s.Kernel(s.cloud, x, y)
		}, lo.Y, hi.Y, s.Order, nil, 0)
	}, lo.X, hi.X, s.Order, nil, 0)
}

func (s *adaptState) refine(lo, hi r2.Vec, whole, tol float64, depth int) (float64, bool) {
	mid := r2.Vec{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2}
	quads := [4][2]r2.Vec{
		{lo, mid},
		{{X: mid.X, Y: lo.Y}, {X: hi.X, Y: mid.Y}},
		{{X: lo.X, Y: mid.Y}, {X: mid.X, Y: hi.Y}},
		{mid, hi},
	}
	var parts [4]float64
	sum := 0.0
	for i, q := range quads {
		parts[i] = s.cell(q[0], q[1])
		sum += parts[i]
	}
	if math.Abs(sum-whole) <= tol {
		return sum, true
	}
	if depth >= s.MaxDepth || s.cells >= s.MaxCells {
		return sum, false
	}

	total := 0.0
	ok := true
	for i, q := range quads {
		v, qok := s.refine(q[0], q[1], parts[i], tol/4, depth+1)
		total += v
		ok = ok && qok
	}
	return total, ok
}
