// Package steps reads ionization steps produced by an external particle
// transport and groups them into events.
//
// The input is CSV with the columns event_id,x,y,z,edep and an optional
// tag. A header row and lines starting with '#' are skipped. Rows of one
// event must be contiguous.
package steps

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/units"
)

// Event is the ordered steps of one event.
type Event struct {
	ID    int64
	Steps []digitizer.IonizationStep
}

// Options selects the units of the input columns.
type Options struct {
	LengthUnit string // default mm
	EnergyUnit string // default eV
}

func (o Options) withDefaults() (Options, error) {
	if o.LengthUnit == "" {
		o.LengthUnit = units.MM
	}
	if o.EnergyUnit == "" {
		o.EnergyUnit = units.EV
	}
	if !units.IsValidLength(o.LengthUnit) {
		return o, fmt.Errorf("invalid length unit %q, must be one of: %s", o.LengthUnit, units.GetValidLengthUnitsString())
	}
	if !units.IsValidEnergy(o.EnergyUnit) {
		return o, fmt.Errorf("invalid energy unit %q, must be one of: %s", o.EnergyUnit, units.GetValidEnergyUnitsString())
	}
	return o, nil
}

// Reader streams events from CSV input.
type Reader struct {
	csv   *csv.Reader
	opts  Options
	seen  map[int64]bool
	next  *row // first row of the following event
	done  bool
	first bool
}

type row struct {
	event int64
	step  digitizer.IonizationStep
	line  int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr, opts: opts, seen: make(map[int64]bool), first: true}, nil
}

// Next returns the next event, or io.EOF after the last one.
func (r *Reader) Next() (Event, error) {
	if r.next == nil && !r.done {
		first, err := r.readRow()
		if err != nil {
			return Event{}, err
		}
		r.next = first
	}
	if r.next == nil {
		return Event{}, io.EOF
	}

	ev := Event{ID: r.next.event, Steps: []digitizer.IonizationStep{r.next.step}}
	if r.seen[ev.ID] {
		return Event{}, fmt.Errorf("line %d: event %d is not contiguous", r.next.line, ev.ID)
	}
	r.seen[ev.ID] = true
	r.next = nil

	for {
		rw, err := r.readRow()
		if err != nil {
			return Event{}, err
		}
		if rw == nil {
			return ev, nil
		}
		if rw.event != ev.ID {
			r.next = rw
			return ev, nil
		}
		ev.Steps = append(ev.Steps, rw.step)
	}
}

// readRow returns nil at end of input.
func (r *Reader) readRow() (*row, error) {
	for {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read step CSV: %w", err)
		}
		line, _ := r.csv.FieldPos(0)
		if r.first {
			r.first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "event_id") {
				continue
			}
		}
		rw, err := r.parse(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rw.line = line
		return rw, nil
	}
}

func (r *Reader) parse(rec []string) (*row, error) {
	if len(rec) != 5 && len(rec) != 6 {
		return nil, fmt.Errorf("expected 5 or 6 fields, got %d", len(rec))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid event_id: %v", err)
	}
	var v [4]float64
	for i, name := range []string{"x", "y", "z", "edep"} {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", name, err)
		}
	}
	tag := digitizer.TagUnknown
	if len(rec) == 6 {
		tag = digitizer.ParseParticleTag(rec[5])
	}
	return &row{
		event: id,
		step: digitizer.IonizationStep{
			Position: r3.Vec{
				X: units.ToMillimetres(v[0], r.opts.LengthUnit),
				Y: units.ToMillimetres(v[1], r.opts.LengthUnit),
				Z: units.ToMillimetres(v[2], r.opts.LengthUnit),
			},
			EnergyDeposit: units.ToElectronvolts(v[3], r.opts.EnergyUnit),
			ParticleTag:   tag,
		},
	}, nil
}

// ReadAll reads every event from r.
func ReadAll(r io.Reader, opts Options) ([]Event, error) {
	sr, err := NewReader(r, opts)
	if err != nil {
		return nil, err
	}
	var events []Event
	for {
		ev, err := sr.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}
