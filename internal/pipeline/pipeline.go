// Package pipeline runs a set of independent digitizer workers over a stream
// of events and reduces their histograms and summaries.
//
// Every worker owns a private accumulator, hit histogram and digitizer; only
// the pad plane is shared, read-only. The sampler is reseeded from the event
// id before each event, so results do not depend on the number of workers or
// on which worker picked an event up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/padplane/internal/accumulator"
	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/errs"
	"github.com/banshee-data/padplane/internal/integrate"
	"github.com/banshee-data/padplane/internal/monitoring"
	"github.com/banshee-data/padplane/internal/padplane"
	"github.com/banshee-data/padplane/internal/steps"
	"github.com/banshee-data/padplane/internal/timeutil"
)

// Source yields events until io.EOF. *steps.Reader is a Source.
type Source interface {
	Next() (steps.Event, error)
}

// Sink receives every read-out event. Calls are serialised by the pipeline.
type Sink interface {
	WriteEvent(ctx context.Context, eventID int64, r digitizer.Readout) error
}

// SliceSource serves events from memory.
type SliceSource struct {
	events []steps.Event
	pos    int
}

// NewSliceSource returns a Source over events.
func NewSliceSource(events []steps.Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next implements Source.
func (s *SliceSource) Next() (steps.Event, error) {
	if s.pos >= len(s.events) {
		return steps.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// Options configures a Run.
type Options struct {
	Workers    int // default 1
	Config     digitizer.Config
	Grid       *padplane.Grid
	Gas        digitizer.GasProperties
	Integrator integrate.Integrator // default closed form
	Sink       Sink                 // optional
	Clock      timeutil.Clock       // default real clock
}

// Result is the reduced output of a Run.
type Result struct {
	Histogram *accumulator.HitHistogram
	Summary   digitizer.Summary
	Workers   int
	Elapsed   time.Duration
}

type worker struct {
	id  int
	dig *digitizer.Digitizer
}

func newWorker(id int, opts Options) (*worker, error) {
	n := opts.Grid.NumPads()
	acc, err := accumulator.New(n)
	if err != nil {
		return nil, err
	}
	hist, err := accumulator.NewHitHistogram(n)
	if err != nil {
		return nil, err
	}
	d, err := digitizer.New(opts.Config, opts.Grid, opts.Gas, acc, hist)
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", id, err)
	}
	if opts.Integrator != nil {
		d.WithIntegrator(opts.Integrator)
	}
	return &worker{id: id, dig: d}, nil
}

// EventSeed derives the sampler seed of one event from the run seed.
func EventSeed(runSeed uint64, eventID int64) uint64 {
	// splitmix64 finaliser
	z := runSeed ^ (uint64(eventID) + 0x9e3779b97f4a7c15)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Run digitizes every event of src. The context is checked between events;
// a cancelled run returns the context error and no result.
func Run(ctx context.Context, opts Options, src Source) (Result, error) {
	if opts.Grid == nil {
		return Result{}, errs.Configf("pipeline needs a pad plane grid")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	logf := monitoring.Component("pipeline")
	start := clock.Now()

	workers := make([]*worker, opts.Workers)
	for i := range workers {
		w, err := newWorker(i, opts)
		if err != nil {
			return Result{}, err
		}
		workers[i] = w
	}

	g, ctx := errgroup.WithContext(ctx)
	events := make(chan steps.Event, opts.Workers)

	g.Go(func() error {
		defer close(events)
		for {
			ev, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read events: %w", err)
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var sinkMu sync.Mutex
	for _, w := range workers {
		g.Go(func() error {
			for ev := range events {
				if err := ctx.Err(); err != nil {
					return err
				}
				r, err := w.process(ev, opts.Config.Seed, logf)
				if err != nil {
					return err
				}
				if opts.Sink == nil {
					continue
				}
				sinkMu.Lock()
				err = opts.Sink.WriteEvent(ctx, ev.ID, r)
				sinkMu.Unlock()
				if err != nil {
					return fmt.Errorf("sink event %d: %w", ev.ID, err)
				}
			}
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	hists := make([]*accumulator.HitHistogram, len(workers))
	var res Result
	for i, w := range workers {
		hists[i] = w.dig.Histogram()
		res.Summary.Merge(w.dig.Summary())
	}
	merged, err := accumulator.MergeHistograms(hists...)
	if err != nil {
		return Result{}, err
	}
	res.Histogram = merged
	res.Workers = len(workers)
	res.Elapsed = clock.Since(start)

	logf("workers=%d events=%d steps=%d warnings=%d elapsed=%s",
		res.Workers, res.Summary.Events, res.Summary.Steps, res.Summary.NumericalWarnings, res.Elapsed)
	return res, nil
}

func (w *worker) process(ev steps.Event, runSeed uint64, logf func(string, ...interface{})) (digitizer.Readout, error) {
	w.dig.WithSampler(digitizer.NewGaussianSampler(EventSeed(runSeed, ev.ID)))
	if err := w.dig.ProcessTrack(ev.Steps); err != nil {
		if errors.Is(err, digitizer.ErrEventNotCleared) {
			return digitizer.Readout{}, err
		}
		logf("worker=%d event=%d rejected steps: %v", w.id, ev.ID, err)
	}
	r, err := w.dig.FinishEvent()
	if err != nil {
		return digitizer.Readout{}, err
	}
	r.Event = int(ev.ID)
	return r, nil
}
