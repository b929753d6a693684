// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"errors"
	"fmt"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"math"
	"sync"
	"time"
)

// ResolveStatus is the outcome of a fragment lookup
type ResolveStatus uint8

const (
	Resolved ResolveStatus = iota
	Missing
	PartiallyMissing
)

func (s ResolveStatus) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Missing:
		return "missing"
	case PartiallyMissing:
		return "partially_missing"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// FragmentRepository holds the accepted fragments per descriptor. The first
// fragment of a descriptor wins over every later one whose calendar equals
// or overlaps it; those are kept for diagnostics only.
type FragmentRepository struct {
	MaxConnectDist float64

	mu        sync.RWMutex
	fragments map[schedule.Descriptor][]*schedule.Fragment
	ignored   map[schedule.Descriptor][]*schedule.Fragment
	sink      *diagnostics.Sink
}

// NewFragmentRepository returns an empty repository reporting to sink
func NewFragmentRepository(maxConnectDist float64, sink *diagnostics.Sink) *FragmentRepository {
	return &FragmentRepository{
		MaxConnectDist: maxConnectDist,
		fragments:      make(map[schedule.Descriptor][]*schedule.Fragment),
		ignored:        make(map[schedule.Descriptor][]*schedule.Fragment),
		sink:           sink,
	}
}

// Add inserts f. It returns false if f was ignored as a duplicate of an
// earlier fragment, and an error if f is structurally invalid.
func (r *FragmentRepository) Add(f *schedule.Fragment) (bool, error) {
	if !f.Descriptor.Valid() {
		return false, schedule.FragmentError(f, schedule.ErrMalformedDescriptor)
	}

	if len(f.Points) < 2 {
		return false, schedule.FragmentError(f, fmt.Errorf("%d points: %w", len(f.Points), schedule.ErrMalformedGeometry))
	}

	for _, p := range f.Points {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.Abs(p.Lat) > 90 || math.Abs(p.Lon) > 180 {
			return false, schedule.FragmentError(f, fmt.Errorf("invalid coordinate (%f, %f): %w", p.Lat, p.Lon, schedule.ErrMalformedGeometry))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, acc := range r.fragments[f.Descriptor] {
		if r.conflicting(acc, f) {
			r.ignored[f.Descriptor] = append(r.ignored[f.Descriptor], f)
			r.sink.Add(diagnostics.NewDuplicate(f.Descriptor.String(), f.Calendar.String()))
			return false, nil
		}
	}

	r.fragments[f.Descriptor] = append(r.fragments[f.Descriptor], f)
	return true, nil
}

// AddAll inserts all fragments and returns the joined errors of invalid ones
func (r *FragmentRepository) AddAll(fragments []*schedule.Fragment) error {
	var errs []error
	for _, f := range fragments {
		if _, err := r.Add(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Candidates returns the accepted fragments of d in insertion order
func (r *FragmentRepository) Candidates(d schedule.Descriptor) []*schedule.Fragment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*schedule.Fragment(nil), r.fragments[d]...)
}

// Ignored returns the duplicates of d that were dropped
func (r *FragmentRepository) Ignored(d schedule.Descriptor) []*schedule.Fragment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*schedule.Fragment(nil), r.ignored[d]...)
}

// Len returns the number of accepted fragments
func (r *FragmentRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, fs := range r.fragments {
		n += len(fs)
	}
	return n
}

// Resolve returns the fragment to use for d on the requested calendar.
//
// Resolved: the first accepted fragment valid on every requested day.
// Missing: no fragment exists, nil is returned and the caller has to fall
// back to a straight line.
// PartiallyMissing: fragments exist, but none is valid on every requested
// day. The nearest version is returned: the one active on the first
// requested day, else the one with the most common days, else the one whose
// first active day is closest to the first requested day. Remaining ties go
// to the earliest first active day, then to insertion order.
func (r *FragmentRepository) Resolve(d schedule.Descriptor, requested calendar.Bitmap, trip string) (*schedule.Fragment, ResolveStatus) {
	cands := r.Candidates(d)

	if len(cands) == 0 {
		r.sink.Add(diagnostics.NewMissing(d.String(), trip))
		return nil, Missing
	}

	for _, f := range cands {
		if validFor(f, requested) {
			return f, Resolved
		}
	}

	r.sink.Add(diagnostics.NewPartiallyMissing(d.String(), trip))
	return nearestVersion(cands, requested), PartiallyMissing
}

// Connect checks whether the end of the previous fragment and the start of
// the next one lie within MaxConnectDist meters. If not, an Unconnected
// record carrying the gap is reported.
func (r *FragmentRepository) Connect(prevEnd schedule.Coord, nextStart schedule.Coord, d schedule.Descriptor, trip string) bool {
	dist := distC(prevEnd, nextStart)
	if dist <= r.MaxConnectDist {
		return true
	}

	r.sink.Add(diagnostics.NewUnconnected(d.String(), dist, trip))
	return false
}

// Two fragments of the same descriptor conflict if their calendars share a
// day or are equal. A fragment without calendar applies to every day.
func (r *FragmentRepository) conflicting(a *schedule.Fragment, b *schedule.Fragment) bool {
	if a.Calendar.Len() == 0 || b.Calendar.Len() == 0 {
		return true
	}
	return a.Calendar.Equals(b.Calendar) || !calendar.IsDisjoint(a.Calendar, b.Calendar)
}

func validFor(f *schedule.Fragment, requested calendar.Bitmap) bool {
	return f.Calendar.Len() == 0 || f.Calendar.Covers(requested)
}

type versionScore struct {
	activeOnStart bool
	overlap       int
	startDist     int
	first         time.Time
}

// better reports whether a ranks before b
func (a versionScore) better(b versionScore) bool {
	if a.activeOnStart != b.activeOnStart {
		return a.activeOnStart
	}
	if a.overlap != b.overlap {
		return a.overlap > b.overlap
	}
	if a.startDist != b.startDist {
		return a.startDist < b.startDist
	}
	return a.first.Before(b.first)
}

func nearestVersion(cands []*schedule.Fragment, requested calendar.Bitmap) *schedule.Fragment {
	reqFirst, _ := requested.FirstActive()

	var best *schedule.Fragment
	var bestScore versionScore

	for _, f := range cands {
		first, ok := f.Calendar.FirstActive()
		if !ok {
			first = f.Calendar.Start()
		}

		s := versionScore{
			activeOnStart: f.Calendar.IsActiveOn(reqFirst),
			overlap:       calendar.Overlap(f.Calendar, requested),
			startDist:     iabs(calendar.DaysBetween(reqFirst, first)),
			first:         first,
		}

		// strict comparison keeps the earlier inserted one on full ties
		if best == nil || s.better(bestScore) {
			best = f
			bestScore = s
		}
	}

	return best
}
