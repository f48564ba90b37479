// Package chargecloud models the transverse spread of a drifting electron
// cloud as an isotropic 2D Gaussian.
package chargecloud

import (
	"fmt"
	"math"

	"github.com/banshee-data/padplane/internal/errs"
)

// VarianceFloor is the smallest variance a Cloud may carry.
const VarianceFloor = 1e-12

// Cloud is the charge density of one step after drift. It lives only for
// the processing of that step.
type Cloud struct {
	TotalCharge float64
	CenterX     float64
	CenterY     float64
	Variance    float64
}

// Sigma returns the standard deviation of the cloud.
func (c Cloud) Sigma() float64 { return math.Sqrt(c.Variance) }

// Model turns a drift length into a Cloud.
type Model struct {
	diffCoef     float64
	intrinsicStd float64
	strict       bool
}

// NewModel returns a Model with the given transverse diffusion coefficient
// (length per sqrt(length)) and intrinsic spread.
func NewModel(diffCoef, intrinsicStd float64) *Model {
	return &Model{diffCoef: diffCoef, intrinsicStd: intrinsicStd}
}

// SetDiffusionCoefficient sets the transverse diffusion coefficient.
func (m *Model) SetDiffusionCoefficient(coef float64) { m.diffCoef = coef }

// SetIntrinsicSpread sets the spread present before any drift.
func (m *Model) SetIntrinsicSpread(std float64) { m.intrinsicStd = std }

// SetStrict makes Prepare reject negative drift lengths instead of clamping.
func (m *Model) SetStrict(strict bool) { m.strict = strict }

// DiffusionCoefficient returns the transverse diffusion coefficient.
func (m *Model) DiffusionCoefficient() float64 { return m.diffCoef }

// IntrinsicSpread returns the intrinsic standard deviation.
func (m *Model) IntrinsicSpread() float64 { return m.intrinsicStd }

// Variance returns coef²·driftLength + intrinsic² for a non-negative drift length.
func (m *Model) Variance(driftLength float64) float64 {
	return m.diffCoef*m.diffCoef*driftLength + m.intrinsicStd*m.intrinsicStd
}

// Prepare builds the cloud for a step. A negative drift length is an
// ErrInvalidArgument in strict mode and is clamped to zero otherwise. When
// the variance falls below VarianceFloor it is floored and a
// *errs.NumericalWarning is returned together with the usable cloud.
func (m *Model) Prepare(totalCharge, centerX, centerY, driftLength float64) (Cloud, error) {
	if math.IsNaN(driftLength) {
		return Cloud{}, fmt.Errorf("%w: drift length is NaN", errs.ErrInvalidArgument)
	}
	if driftLength < 0 {
		if m.strict {
			return Cloud{}, fmt.Errorf("%w: negative drift length %g", errs.ErrInvalidArgument, driftLength)
		}
		driftLength = 0
	}

	c := Cloud{
		TotalCharge: totalCharge,
		CenterX:     centerX,
		CenterY:     centerY,
		Variance:    m.Variance(driftLength),
	}
	if !(c.Variance >= VarianceFloor) {
		detail := fmt.Sprintf("variance %g below floor", c.Variance)
		c.Variance = VarianceFloor
		return c, &errs.NumericalWarning{Op: "chargecloud.Prepare", Detail: detail, Estimate: VarianceFloor}
	}
	return c, nil
}

// Density evaluates the charge density of the cloud at (x, y). Its integral
// over the whole plane equals TotalCharge.
func Density(c Cloud, x, y float64) float64 {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return c.TotalCharge * math.Exp(-(dx*dx+dy*dy)/(2*c.Variance)) / (2 * math.Pi * c.Variance)
}
