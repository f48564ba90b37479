package integrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/padplane/internal/chargecloud"
	"github.com/banshee-data/padplane/internal/errs"
)

func TestClosedFormWholePlane(t *testing.T) {
	c := chargecloud.Cloud{TotalCharge: 1000, CenterX: 20, CenterY: 20, Variance: 4}
	v, err := ClosedForm{}.RectangleIntegral(c, r2.Vec{X: -1e3, Y: -1e3}, r2.Vec{X: 1e3, Y: 1e3})
	require.NoError(t, err)
	assert.InDelta(t, 1000, v, 1e-9)
}

func TestClosedFormQuadrant(t *testing.T) {
	c := chargecloud.Cloud{TotalCharge: 1, CenterX: 0, CenterY: 0, Variance: 1}
	v, err := ClosedForm{}.RectangleIntegral(c, r2.Vec{}, r2.Vec{X: 50, Y: 50})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v, 1e-12)
}

func TestClosedFormOneSigmaBand(t *testing.T) {
	c := chargecloud.Cloud{TotalCharge: 1, Variance: 1}
	v, err := ClosedForm{}.RectangleIntegral(c, r2.Vec{X: -1, Y: -100}, r2.Vec{X: 1, Y: 100})
	require.NoError(t, err)
	assert.InDelta(t, math.Erf(1/math.Sqrt2), v, 1e-12)
}

func TestClosedFormDegenerateRectangle(t *testing.T) {
	c := chargecloud.Cloud{TotalCharge: 1, Variance: 1}
	v, err := ClosedForm{}.RectangleIntegral(c, r2.Vec{X: 1, Y: 0}, r2.Vec{X: 1, Y: 3})
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestErfDiffTailPrecision(t *testing.T) {
	// Deep in the tail erf(b)-erf(a) cancels to zero, erfc keeps it.
	got := erfDiff(7, 8)
	assert.Greater(t, got, 0.0)
	assert.InDelta(t, math.Erfc(7)-math.Erfc(8), got, 1e-30)
	assert.InDelta(t, got, erfDiff(-8, -7), 1e-30)
}

func TestAdaptiveMatchesClosedForm(t *testing.T) {
	c := chargecloud.Cloud{TotalCharge: 1000, CenterX: 17, CenterY: 23, Variance: 4}
	rects := [][2]r2.Vec{
		{{X: 10, Y: 20}, {X: 20, Y: 30}},
		{{X: 0, Y: 0}, {X: 10, Y: 10}},
		{{X: 16.5, Y: 22.5}, {X: 17.5, Y: 23.5}},
	}
	for _, r := range rects {
		want, err := ClosedForm{}.RectangleIntegral(c, r[0], r[1])
		require.NoError(t, err)
		got, err := Adaptive{}.RectangleIntegral(c, r[0], r[1])
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-6*c.TotalCharge, "rect %v", r)
	}
}

func TestAdaptiveCustomKernel(t *testing.T) {
	flat := func(c chargecloud.Cloud, x, y float64) float64 { return 2 }
	got, err := Adaptive{Kernel: flat}.RectangleIntegral(chargecloud.Cloud{TotalCharge: 1}, r2.Vec{}, r2.Vec{X: 3, Y: 4})
	require.NoError(t, err)
	assert.InDelta(t, 24, got, 1e-9)
}

func TestAdaptiveReportsNonConvergence(t *testing.T) {
	// A discontinuous kernel cannot satisfy the tolerance with a tiny budget.
	step := func(c chargecloud.Cloud, x, y float64) float64 {
		if x+y < 1.2345 {
			return 1
		}
		return 0
	}
	a := Adaptive{Kernel: step, Tolerance: 1e-15, MaxDepth: 1, Order: 2}
	got, err := a.RectangleIntegral(chargecloud.Cloud{TotalCharge: 1}, r2.Vec{}, r2.Vec{X: 2, Y: 2})
	require.Error(t, err)
	assert.True(t, errs.IsWarning(err))
	assert.Greater(t, got, 0.0, "best estimate is still returned")
}
