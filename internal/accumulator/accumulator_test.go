package accumulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/padplane/internal/errs"
)

func newAcc(t *testing.T, n int) *Accumulator {
	t.Helper()
	a, err := New(n)
	require.NoError(t, err)
	return a
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestWeightedTime(t *testing.T) {
	a := newAcc(t, 4)

	a.AddCharge(2, 3)
	a.AddWeightedTime(2, 10, 3)
	a.AddCharge(2, 1)
	a.AddWeightedTime(2, 20, 1)

	assert.InDelta(t, 4.0, a.GetCharge(2), 1e-12)
	assert.InDelta(t, 12.5, a.GetTime(2), 1e-12)
	assert.Zero(t, a.GetTime(1), "no charge means zero time")
}

func TestNegativeAmountsIgnored(t *testing.T) {
	a := newAcc(t, 2)
	a.AddCharge(0, -1)
	a.AddWeightedTime(0, 5, -1)
	assert.Zero(t, a.GetCharge(0))
	assert.Zero(t, a.GetTime(0))
}

func TestClearIsIdempotent(t *testing.T) {
	a := newAcc(t, 16)
	for i := 0; i < a.Len(); i++ {
		a.AddCharge(i, float64(i+1))
		a.AddWeightedTime(i, 2, float64(i+1))
		a.MarkHit(i)
	}

	a.Clear()
	a.Clear()
	for i := 0; i < a.Len(); i++ {
		assert.Zero(t, a.GetCharge(i))
		assert.Zero(t, a.GetTime(i))
		assert.False(t, a.IsHit(i))
	}
	assert.Empty(t, a.HitIndices())
}

func TestOutOfRangeIsIndexError(t *testing.T) {
	a := newAcc(t, 4)
	for _, fn := range []func(){
		func() { a.AddCharge(4, 1) },
		func() { a.AddWeightedTime(-1, 1, 1) },
		func() { a.MarkHit(10) },
		func() { a.GetCharge(4) },
		func() { a.GetTime(-2) },
	} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				_, ok := r.(*errs.IndexError)
				assert.True(t, ok, "got %T", r)
			}()
			fn()
		}()
	}
}

func TestSealDetectsMissingClear(t *testing.T) {
	a := newAcc(t, 4)
	a.AddCharge(1, 2)
	a.Seal()
	require.True(t, a.Sealed())

	assert.Panics(t, func() { a.AddCharge(1, 1) })
	assert.InDelta(t, 2.0, a.GetCharge(1), 1e-12, "reads still work while sealed")

	a.Clear()
	assert.False(t, a.Sealed())
	assert.NotPanics(t, func() { a.AddCharge(1, 1) })
}

func TestSnapshotsAreCopies(t *testing.T) {
	a := newAcc(t, 3)
	a.AddCharge(0, 1)
	a.AddWeightedTime(0, 4, 1)
	a.MarkHit(0)

	charges := a.Charges()
	times := a.Times()
	a.Clear()

	assert.Equal(t, []float64{1, 0, 0}, charges)
	assert.Equal(t, []float64{4, 0, 0}, times)
}
