package accumulator

import (
	"github.com/banshee-data/padplane/internal/errs"
)

// HitHistogram counts, per pad, the events in which the pad was hit. It lives
// for a whole run. Per-worker histograms are combined with Merge, an
// elementwise sum, so no locking is needed while workers run.
type HitHistogram struct {
	counts []int64
	events int64
}

// NewHitHistogram returns a zeroed histogram for nPads pads.
func NewHitHistogram(nPads int) (*HitHistogram, error) {
	if nPads <= 0 {
		return nil, errs.Configf("hit histogram needs a positive pad count, got %d", nPads)
	}
	return &HitHistogram{counts: make([]int64, nPads)}, nil
}

// Len returns the number of pads.
func (h *HitHistogram) Len() int { return len(h.counts) }

// Increment adds one hit to a pad.
func (h *HitHistogram) Increment(index int) {
	errs.CheckIndex(index, len(h.counts))
	h.counts[index]++
}

// RecordEvent counts one read-out event.
func (h *HitHistogram) RecordEvent() { h.events++ }

// Events returns the number of read-out events recorded.
func (h *HitHistogram) Events() int64 { return h.events }

// Count returns the hit count of a pad.
func (h *HitHistogram) Count(index int) int64 {
	errs.CheckIndex(index, len(h.counts))
	return h.counts[index]
}

// Counts returns a row-major copy of the counts.
func (h *HitHistogram) Counts() []int64 {
	out := make([]int64, len(h.counts))
	copy(out, h.counts)
	return out
}

// Reset zeroes the histogram at run start.
func (h *HitHistogram) Reset() {
	clear(h.counts)
	h.events = 0
}

// Merge adds other into h elementwise.
func (h *HitHistogram) Merge(other *HitHistogram) error {
	if other == nil {
		return nil
	}
	if len(other.counts) != len(h.counts) {
		return errs.Configf("cannot merge hit histograms of %d and %d pads", len(h.counts), len(other.counts))
	}
	for i, c := range other.counts {
		h.counts[i] += c
	}
	h.events += other.events
	return nil
}

// FromCounts rebuilds a histogram from stored counts.
func FromCounts(counts []int64, events int64) (*HitHistogram, error) {
	h, err := NewHitHistogram(len(counts))
	if err != nil {
		return nil, err
	}
	copy(h.counts, counts)
	h.events = events
	return h, nil
}

// MergeHistograms returns a new histogram holding the sum of hs.
func MergeHistograms(hs ...*HitHistogram) (*HitHistogram, error) {
	if len(hs) == 0 {
		return nil, errs.Configf("no hit histograms to merge")
	}
	out, err := NewHitHistogram(hs[0].Len())
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		if err := out.Merge(h); err != nil {
			return nil, err
		}
	}
	return out, nil
}
