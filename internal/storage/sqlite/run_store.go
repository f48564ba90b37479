package sqlite

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/padplane/internal/accumulator"
	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/timeutil"
)

// ErrNotFound is returned when a run, event or histogram does not exist.
var ErrNotFound = errors.New("not found")

// Run is one digitization run.
type Run struct {
	RunID        string             `json:"run_id"`
	ConfigJSON   json.RawMessage    `json:"config_json"`
	Seed         uint64             `json:"seed"`
	Workers      int                `json:"workers"`
	NPadX        int                `json:"n_pad_x"`
	NPadY        int                `json:"n_pad_y"`
	CreatedAtNs  int64              `json:"created_at_ns"`
	FinishedAtNs *int64             `json:"finished_at_ns,omitempty"`
	Summary      *digitizer.Summary `json:"summary,omitempty"`
}

// EventRow is the indexed part of a stored event.
type EventRow struct {
	EventID     int64
	TotalCharge float64
	NHits       int
}

// RunStore provides persistence for runs, events and hit histograms.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db, clock: timeutil.RealClock{}}
}

// WithClock replaces the clock used for run timestamps.
func (s *RunStore) WithClock(c timeutil.Clock) *RunStore {
	s.clock = c
	return s
}

// CreateRun inserts a run. If run.RunID is empty, a new UUID is generated.
func (s *RunStore) CreateRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = s.clock.Now().UnixNano()
	}
	if len(run.ConfigJSON) == 0 {
		run.ConfigJSON = json.RawMessage("{}")
	}

	query := `
		INSERT INTO runs (
			run_id, config_json, seed, workers, n_pad_x, n_pad_y, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	// Seeds keep their bit pattern; SQLite integers are signed.
	_, err := s.db.Exec(query,
		run.RunID,
		string(run.ConfigJSON),
		int64(run.Seed),
		run.Workers,
		run.NPadX,
		run.NPadY,
		run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run as finished and stores its summary.
func (s *RunStore) FinishRun(runID string, summary digitizer.Summary) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	result, err := s.db.Exec(`UPDATE runs SET finished_at_ns = ?, summary_json = ? WHERE run_id = ?`,
		s.clock.Now().UnixNano(), string(blob), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check finish result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	query := `
		SELECT run_id, config_json, seed, workers, n_pad_x, n_pad_y,
		       created_at_ns, finished_at_ns, summary_json
		FROM runs
		WHERE run_id = ?
	`
	var run Run
	var config string
	var seed int64
	var finishedAtNs sql.NullInt64
	var summary sql.NullString

	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID,
		&config,
		&seed,
		&run.Workers,
		&run.NPadX,
		&run.NPadY,
		&run.CreatedAtNs,
		&finishedAtNs,
		&summary,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	run.ConfigJSON = json.RawMessage(config)
	run.Seed = uint64(seed)
	if finishedAtNs.Valid {
		v := finishedAtNs.Int64
		run.FinishedAtNs = &v
	}
	if summary.Valid && summary.String != "" {
		var sum digitizer.Summary
		if err := json.Unmarshal([]byte(summary.String), &sum); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		run.Summary = &sum
	}
	return &run, nil
}

// ListRuns returns the IDs of all runs, newest first.
func (s *RunStore) ListRuns() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY created_at_ns DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertEvent stores the readout of one event.
func (s *RunStore) InsertEvent(ctx context.Context, runID string, eventID int64, r digitizer.Readout) error {
	blob, err := encodeBlob(r)
	if err != nil {
		return fmt.Errorf("encode readout: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, event_id, total_charge, n_hits, readout_blob)
		VALUES (?, ?, ?, ?, ?)
	`, runID, eventID, r.TotalCharge, len(r.Hits), blob)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", eventID, err)
	}
	return nil
}

// GetEvent retrieves the full readout of one event.
func (s *RunStore) GetEvent(runID string, eventID int64) (*digitizer.Readout, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT readout_blob FROM events WHERE run_id = ? AND event_id = ?`,
		runID, eventID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d of run %s: %w", eventID, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	var r digitizer.Readout
	if err := decodeBlob(blob, &r); err != nil {
		return nil, fmt.Errorf("decode readout: %w", err)
	}
	return &r, nil
}

// ListEvents returns the indexed columns of every event of a run in event order.
func (s *RunStore) ListEvents(runID string) ([]EventRow, error) {
	rows, err := s.db.Query(`
		SELECT event_id, total_charge, n_hits FROM events
		WHERE run_id = ? ORDER BY event_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.TotalCharge, &e.NHits); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveHistogram stores (or replaces) the merged hit histogram of a run.
func (s *RunStore) SaveHistogram(runID string, h *accumulator.HitHistogram) error {
	blob, err := encodeBlob(h.Counts())
	if err != nil {
		return fmt.Errorf("encode histogram: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO hit_histograms (run_id, events, n_pads, counts_blob) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			events = excluded.events, n_pads = excluded.n_pads, counts_blob = excluded.counts_blob
	`, runID, h.Events(), h.Len(), blob)
	if err != nil {
		return fmt.Errorf("save histogram: %w", err)
	}
	return nil
}

// LoadHistogram retrieves the hit histogram of a run.
func (s *RunStore) LoadHistogram(runID string) (*accumulator.HitHistogram, error) {
	var events int64
	var nPads int
	var blob []byte
	err := s.db.QueryRow(`SELECT events, n_pads, counts_blob FROM hit_histograms WHERE run_id = ?`,
		runID).Scan(&events, &nPads, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("histogram of run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load histogram: %w", err)
	}

	var counts []int64
	if err := decodeBlob(blob, &counts); err != nil {
		return nil, fmt.Errorf("decode histogram: %w", err)
	}
	if len(counts) != nPads {
		return nil, fmt.Errorf("histogram of run %s has %d counts, expected %d", runID, len(counts), nPads)
	}
	return accumulator.FromCounts(counts, events)
}

// EventSink writes pipeline readouts into one run.
type EventSink struct {
	store *RunStore
	runID string
}

// Sink returns an EventSink for runID.
func (s *RunStore) Sink(runID string) *EventSink {
	return &EventSink{store: s, runID: runID}
}

// WriteEvent stores the readout of one event.
func (e *EventSink) WriteEvent(ctx context.Context, eventID int64, r digitizer.Readout) error {
	return e.store.InsertEvent(ctx, e.runID, eventID, r)
}

// encodeBlob gob-encodes and gzip-compresses v.
func encodeBlob(v any) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeBlob decompresses and decodes a gob+gzip blob into v.
func decodeBlob(blob []byte, v any) error {
	if len(blob) == 0 {
		return fmt.Errorf("empty blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	return gob.NewDecoder(gz).Decode(v)
}
