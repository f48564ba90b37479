// Package padplane describes the static geometry of a planar grid of
// rectangular charge-collection pads.
//
// Pads are indexed row-major: index = y*NPadX + x. Plane coordinates have
// their origin at the lower-left corner of the plane, so the plane spans
// [0, Width] x [0, Height]. The plane centre sits at Center in world
// coordinates and electrons drift along z towards Center.Z.
package padplane

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/padplane/internal/errs"
)

// Grid is immutable after New and safe to share between workers.
type Grid struct {
	NPadX  int
	NPadY  int
	Width  float64 // plane extent along x
	Height float64 // plane extent along y
	Center r3.Vec  // world position of the plane centre
	Margin float64 // dead gap removed from each side of every pad

	padW float64
	padH float64
}

// New validates the geometry and returns a Grid.
func New(nPadX, nPadY int, width, height float64, center r3.Vec, margin float64) (*Grid, error) {
	if nPadX <= 0 || nPadY <= 0 {
		return nil, errs.Configf("pad counts must be positive, got %dx%d", nPadX, nPadY)
	}
	if width <= 0 || height <= 0 {
		return nil, errs.Configf("pad plane size must be positive, got %gx%g", width, height)
	}
	padW := width / float64(nPadX)
	padH := height / float64(nPadY)
	if margin < 0 {
		return nil, errs.Configf("pad margin must be non-negative, got %g", margin)
	}
	if 2*margin >= math.Min(padW, padH) {
		return nil, errs.Configf("pad margin %g leaves no active area on %gx%g pads", margin, padW, padH)
	}
	return &Grid{
		NPadX:  nPadX,
		NPadY:  nPadY,
		Width:  width,
		Height: height,
		Center: center,
		Margin: margin,
		padW:   padW,
		padH:   padH,
	}, nil
}

// NumPads returns NPadX*NPadY.
func (g *Grid) NumPads() int { return g.NPadX * g.NPadY }

// PadWidth returns the pitch along x.
func (g *Grid) PadWidth() float64 { return g.padW }

// PadHeight returns the pitch along y.
func (g *Grid) PadHeight() float64 { return g.padH }

// IndexOf maps pad column x and row y to the row-major pad index.
func (g *Grid) IndexOf(x, y int) int {
	if x < 0 || x >= g.NPadX || y < 0 || y >= g.NPadY {
		panic(&errs.IndexError{Index: y*g.NPadX + x, Len: g.NumPads()})
	}
	return y*g.NPadX + x
}

// PositionOf is the inverse of IndexOf.
func (g *Grid) PositionOf(index int) (x, y int) {
	errs.CheckIndex(index, g.NumPads())
	return index % g.NPadX, index / g.NPadX
}

// PadBounds returns the active rectangle of a pad, shrunk by Margin on each side.
func (g *Grid) PadBounds(index int) (min, max r2.Vec) {
	x, y := g.PositionOf(index)
	min = r2.Vec{X: float64(x)*g.padW + g.Margin, Y: float64(y)*g.padH + g.Margin}
	max = r2.Vec{X: float64(x+1)*g.padW - g.Margin, Y: float64(y+1)*g.padH - g.Margin}
	return min, max
}

// PadCenter returns the centre of a pad in plane coordinates.
func (g *Grid) PadCenter(index int) r2.Vec {
	x, y := g.PositionOf(index)
	return r2.Vec{X: (float64(x) + 0.5) * g.padW, Y: (float64(y) + 0.5) * g.padH}
}

// Contains reports whether a plane coordinate lies on the plane.
func (g *Grid) Contains(x, y float64) bool {
	return x >= 0 && x <= g.Width && y >= 0 && y <= g.Height
}

// PadAt returns the pad whose pitch cell holds the plane coordinate. Points on
// the upper plane edge belong to the last row/column.
func (g *Grid) PadAt(x, y float64) (int, bool) {
	if !g.Contains(x, y) {
		return 0, false
	}
	ix := min(int(x/g.padW), g.NPadX-1)
	iy := min(int(y/g.padH), g.NPadY-1)
	return iy*g.NPadX + ix, true
}

// ToPlane converts a world position into plane coordinates and the drift
// length to the plane.
func (g *Grid) ToPlane(pos r3.Vec) (x, y, drift float64) {
	x = pos.X - g.Center.X + g.Width/2
	y = pos.Y - g.Center.Y + g.Height/2
	drift = math.Abs(pos.Z - g.Center.Z)
	return x, y, drift
}

// ColumnRange returns the inclusive column span whose pitch cells overlap
// [lo, hi] along x. ok is false when the span misses the plane.
func (g *Grid) ColumnRange(lo, hi float64) (first, last int, ok bool) {
	return span(lo, hi, g.padW, g.NPadX)
}

// RowRange is ColumnRange along y.
func (g *Grid) RowRange(lo, hi float64) (first, last int, ok bool) {
	return span(lo, hi, g.padH, g.NPadY)
}

func span(lo, hi, pitch float64, n int) (int, int, bool) {
	if math.IsNaN(lo) || math.IsNaN(hi) || hi < 0 || lo > pitch*float64(n) || hi < lo {
		return 0, 0, false
	}
	lo = math.Max(lo, 0)
	hi = math.Min(hi, pitch*float64(n))
	first := int(math.Floor(lo / pitch))
	last := min(int(math.Floor(hi/pitch)), n-1)
	return first, last, first <= last
}
