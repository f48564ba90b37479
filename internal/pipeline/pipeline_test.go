package pipeline

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/gas"
	"github.com/banshee-data/padplane/internal/monitoring"
	"github.com/banshee-data/padplane/internal/padplane"
	"github.com/banshee-data/padplane/internal/steps"
	"github.com/banshee-data/padplane/internal/testutil"
	"github.com/banshee-data/padplane/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

type memorySink struct {
	readouts map[int64]digitizer.Readout
}

func (m *memorySink) WriteEvent(_ context.Context, id int64, r digitizer.Readout) error {
	if m.readouts == nil {
		m.readouts = make(map[int64]digitizer.Readout)
	}
	m.readouts[id] = r
	return nil
}

type failingSink struct{}

func (failingSink) WriteEvent(context.Context, int64, digitizer.Readout) error {
	return errors.New("disk full")
}

func testOptions(t *testing.T, workers int) Options {
	t.Helper()
	grid, err := padplane.New(16, 16, 160, 160, r3.Vec{}, 0)
	require.NoError(t, err)
	return Options{
		Workers: workers,
		Config: digitizer.Config{
			CollectionEfficiency:  1,
			GainMean:              200,
			GainTheta:             1,
			IntrinsicDiffusionStd: 0.1,
			PruneFactor:           10,
			HitFractionThreshold:  1e-6,
			Seed:                  42,
		},
		Grid:  grid,
		Gas:   gas.Static{W: 26, Velocity: 0.05, Transverse: 0.16, Longitudinal: 0.12},
		Clock: timeutil.NewMockClock(time.Unix(0, 0)),
	}
}

func randomEvents(n int) []steps.Event {
	bounds := testutil.Bounds{Min: r3.Vec{X: -60, Y: -60, Z: 5}, Max: r3.Vec{X: 60, Y: 60, Z: 305}}
	return testutil.RandomEvents(testutil.NewRand(1), n, 20, 100, bounds, 2000)
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	events := randomEvents(24)

	run := func(workers int) (Result, map[int64]digitizer.Readout) {
		sink := &memorySink{}
		opts := testOptions(t, workers)
		opts.Sink = sink
		res, err := Run(context.Background(), opts, NewSliceSource(events))
		require.NoError(t, err)
		return res, sink.readouts
	}

	one, oneOut := run(1)
	four, fourOut := run(4)

	require.Len(t, oneOut, len(events))
	if diff := cmp.Diff(oneOut, fourOut); diff != "" {
		t.Errorf("readouts differ between 1 and 4 workers (-one +four):\n%s", diff)
	}
	assert.Equal(t, one.Histogram.Counts(), four.Histogram.Counts())
	assert.Equal(t, int64(len(events)), four.Histogram.Events())
	assert.Equal(t, int64(len(events)), four.Summary.Events)
	assert.Equal(t, one.Summary.Steps, four.Summary.Steps)
	assert.InDelta(t, one.Summary.InjectedCharge, four.Summary.InjectedCharge, 1e-9*one.Summary.InjectedCharge)
	assert.Equal(t, 4, four.Workers)
	assert.Zero(t, four.Elapsed, "mock clock does not advance")
}

func TestRunReadoutsCarryEventIDs(t *testing.T) {
	events := randomEvents(5)
	sink := &memorySink{}
	opts := testOptions(t, 2)
	opts.Sink = sink

	_, err := Run(context.Background(), opts, NewSliceSource(events))
	require.NoError(t, err)

	var ids []int64
	for id, r := range sink.readouts {
		assert.Equal(t, int(id), r.Event)
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{100, 101, 102, 103, 104}, ids)
}

func TestRunConservesChargePerEvent(t *testing.T) {
	sink := &memorySink{}
	opts := testOptions(t, 3)
	opts.Sink = sink
	res, err := Run(context.Background(), opts, NewSliceSource(randomEvents(6)))
	require.NoError(t, err)

	var total float64
	for _, r := range sink.readouts {
		total += r.TotalCharge
	}
	testutil.AssertClose(t, total, res.Summary.InjectedCharge, 0, 1e-6)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testOptions(t, 2), NewSliceSource(randomEvents(50)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReportsSinkErrors(t *testing.T) {
	opts := testOptions(t, 2)
	opts.Sink = failingSink{}

	_, err := Run(context.Background(), opts, NewSliceSource(randomEvents(3)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

type brokenSource struct{}

func (brokenSource) Next() (steps.Event, error) { return steps.Event{}, errors.New("truncated input") }

func TestRunReportsSourceErrors(t *testing.T) {
	_, err := Run(context.Background(), testOptions(t, 1), brokenSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated input")
}

func TestRunRejectsBadSetup(t *testing.T) {
	opts := testOptions(t, 1)
	opts.Gas = nil
	_, err := Run(context.Background(), opts, NewSliceSource(nil))
	assert.True(t, errors.Is(err, errs.ErrConfiguration))

	opts = testOptions(t, 1)
	opts.Grid = nil
	_, err = Run(context.Background(), opts, NewSliceSource(nil))
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestRunCountsRejectedSteps(t *testing.T) {
	events := []steps.Event{{ID: 1, Steps: []digitizer.IonizationStep{
		{Position: r3.Vec{Z: 10}, EnergyDeposit: math.NaN()},
		{Position: r3.Vec{Z: 10}, EnergyDeposit: 500},
	}}}
	res, err := Run(context.Background(), testOptions(t, 1), NewSliceSource(events))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Summary.RejectedSteps)
	assert.Equal(t, int64(1), res.Summary.Events)
}

func TestEventSeedSpreads(t *testing.T) {
	t.Parallel()

	seen := make(map[uint64]bool)
	for id := int64(0); id < 1000; id++ {
		s := EventSeed(42, id)
		assert.False(t, seen[s], "collision at event %d", id)
		seen[s] = true
	}
	assert.NotEqual(t, EventSeed(1, 5), EventSeed(2, 5))
}

func TestRunReportsElapsed(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	clock.SetStep(5 * time.Millisecond)
	opts := testOptions(t, 2)
	opts.Clock = clock

	res, err := Run(context.Background(), opts, NewSliceSource(randomEvents(2)))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, res.Elapsed)
}
