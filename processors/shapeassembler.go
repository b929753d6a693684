// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"errors"
	"fmt"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"os"
)

// ShapeAssembler builds the path of every trip from the fragments of its
// stop-to-stop segments
type ShapeAssembler struct {
	MaxConnectDist float64
}

func (sa ShapeAssembler) Name() string { return "assemble_shapes" }

// Run this ShapeAssembler on some dataset
func (sa ShapeAssembler) Run(ds *schedule.Dataset, sink *diagnostics.Sink) error {
	fmt.Fprintf(os.Stdout, "Assembling trip paths... ")

	repo := NewFragmentRepository(sa.MaxConnectDist, sink)
	errs := []error{repo.AddAll(ds.Fragments)}

	chunks := chunk(ds.Trips, MaxParallelism())
	chunkerrs := make([][]error, len(chunks))
	chunkdegr := make([]int, len(chunks))

	sem := make(chan empty, len(chunks))
	for i, c := range chunks {
		go func(chunk []*schedule.Trip, a int) {
			for _, t := range chunk {
				if err := repo.Assemble(t); err != nil {
					chunkerrs[a] = append(chunkerrs[a], err)
				} else if t.Degraded {
					chunkdegr[a]++
				}
			}
			sem <- empty{}
		}(c, i)
	}

	// wait for goroutines to finish
	for i := 0; i < len(chunks); i++ {
		<-sem
	}

	failed := make(map[string]bool)
	degraded := 0
	for i := range chunks {
		degraded += chunkdegr[i]
		for _, err := range chunkerrs[i] {
			var uerr *schedule.UnitError
			if errors.As(err, &uerr) {
				failed[uerr.Id] = true
			}
			errs = append(errs, err)
		}
	}

	ds.Trips = dropTrips(ds.Trips, failed)

	fmt.Fprintf(os.Stdout, "done. (%d fragments, %d degraded paths, -%d trips)\n", repo.Len(), degraded, len(failed))

	return errors.Join(errs...)
}

// Assemble sets the path of t. Missing fragments are replaced by a straight
// line between the stops, partially missing ones by the nearest version.
// Consecutive fragments that do not connect are joined by a straight
// segment. Degraded paths are flagged on the trip.
func (r *FragmentRepository) Assemble(t *schedule.Trip) error {
	if len(t.StopTimes) == 0 {
		return schedule.TripError(t, schedule.ErrEmptyStopSequence)
	}

	for i, st := range t.StopTimes {
		if st.Stop == nil {
			return schedule.TripError(t, fmt.Errorf("stop time #%d: %w", i, schedule.ErrUnknownStop))
		}
	}

	t.Degraded = false
	path := []schedule.Coord{t.StopTimes[0].Stop.Coord}

	for i, d := range t.Descriptors() {
		var pts []schedule.Coord

		frag, status := r.Resolve(d, t.Calendar, t.Id)

		switch status {
		case Missing:
			pts = []schedule.Coord{t.StopTimes[i].Stop.Coord, t.StopTimes[i+1].Stop.Coord}
			t.Degraded = true
		case PartiallyMissing:
			pts = frag.Points
			t.Degraded = true
		default:
			pts = frag.Points
		}

		if i == 0 {
			// the first point of the first segment replaces the stop position
			path = path[:0]
		} else if !r.Connect(path[len(path)-1], pts[0], d, t.Id) {
			t.Degraded = true
		} else if path[len(path)-1] == pts[0] {
			pts = pts[1:]
		}

		path = append(path, pts...)
	}

	t.Path = path
	return nil
}

func dropTrips(trips []*schedule.Trip, ids map[string]bool) []*schedule.Trip {
	if len(ids) == 0 {
		return trips
	}

	ret := make([]*schedule.Trip, 0, len(trips))
	for _, t := range trips {
		if !ids[t.Id] {
			ret = append(ret, t)
		}
	}
	return ret
}
