// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"golang.org/x/exp/slices"
	"hash/fnv"
	"os"
	"strings"
)

// TripEquality classifies the relation of two trips
type TripEquality uint8

const (
	Different TripEquality = iota
	Identical
	IdenticalDifferentRun
	EqualOverlappingCalendar
	EqualDisjointCalendar
)

func (e TripEquality) String() string {
	switch e {
	case Identical:
		return "identical"
	case IdenticalDifferentRun:
		return "identical_different_run"
	case EqualOverlappingCalendar:
		return "equal_overlapping_calendar"
	case EqualDisjointCalendar:
		return "equal_disjoint_calendar"
	}
	return "different"
}

// ErrNotMergeable is returned when merging trips whose calendars are not disjoint
var ErrNotMergeable = errors.New("trips are not mergeable")

// ClassifyTrips compares two trips.
//
// Two trips are Different unless they run on the same route and are
// stop-time equal: they serve exactly the same stations (not stops, their
// parents are considered) at exactly the same times, excluding the arrival
// at the first and the departure at the last stop. Stop-time equal trips
// running on the same days are Identical if they also share the run
// identity, IdenticalDifferentRun otherwise. Trips on different days are
// EqualOverlappingCalendar if they share at least one day, else
// EqualDisjointCalendar.
func ClassifyTrips(a *schedule.Trip, b *schedule.Trip) TripEquality {
	if !routeEq(a, b) || !tripStEq(a, b) {
		return Different
	}

	if a.Calendar.SameDays(b.Calendar) {
		if a.Run == b.Run {
			return Identical
		}
		return IdenticalDifferentRun
	}

	if !calendar.IsDisjoint(a.Calendar, b.Calendar) {
		return EqualOverlappingCalendar
	}

	return EqualDisjointCalendar
}

// MergeTrips merges two EqualDisjointCalendar trips into a new trip running
// on the union of both calendars. The result keeps the identity of the trip
// with the lexicographically smaller id, so it does not depend on argument
// order. Neither input is modified.
func MergeTrips(a *schedule.Trip, b *schedule.Trip) (*schedule.Trip, error) {
	if eq := ClassifyTrips(a, b); eq != EqualDisjointCalendar {
		return nil, fmt.Errorf("'%s' and '%s' are %s: %w", a.Id, b.Id, eq, ErrNotMergeable)
	}

	ref, other := a, b
	if b.Id < a.Id {
		ref, other = b, a
	}

	ret := ref.Clone()
	ret.Calendar = calendar.Union(ref.Calendar, other.Calendar)

	if len(ret.Path) == 0 && len(other.Path) > 0 {
		ret.Path = append([]schedule.Coord(nil), other.Path...)
		ret.Degraded = other.Degraded
	}

	return ret, nil
}

// TripDuplicateRemover merges stop-time equal trips on disjoint calendars
// and reports suspicious trip pairs
type TripDuplicateRemover struct {
	DropIdentical bool
}

type bucketResult struct {
	replaced map[string]*schedule.Trip
	removed  []string
}

func (m TripDuplicateRemover) Name() string { return "merge_trips" }

// Run this TripDuplicateRemover on some dataset
func (m TripDuplicateRemover) Run(ds *schedule.Dataset, sink *diagnostics.Sink) error {
	fmt.Fprintf(os.Stdout, "Removing redundant trips... ")
	bef := len(ds.Trips)

	var errs []error
	cands := make([]*schedule.Trip, 0, len(ds.Trips))
	for _, t := range ds.Trips {
		if len(t.StopTimes) == 0 {
			errs = append(errs, schedule.TripError(t, schedule.ErrEmptyStopSequence))
			continue
		}
		cands = append(cands, t)
	}

	buckets := GroupBy(cands, m.tripHash)
	results := make([]bucketResult, len(buckets))

	chunks := chunk(buckets, MaxParallelism())
	sem := make(chan empty, len(chunks))
	offset := 0

	for _, c := range chunks {
		go func(chunk [][]*schedule.Trip, off int) {
			for i, b := range chunk {
				results[off+i] = m.reduceBucket(b, sink)
			}
			sem <- empty{}
		}(c, offset)
		offset += len(c)
	}

	// wait for goroutines to finish
	for i := 0; i < len(chunks); i++ {
		<-sem
	}

	replaced := make(map[string]*schedule.Trip)
	removed := make(map[string]bool)
	for _, r := range results {
		for id, t := range r.replaced {
			replaced[id] = t
		}
		for _, id := range r.removed {
			removed[id] = true
		}
	}

	trips := make([]*schedule.Trip, 0, len(ds.Trips))
	for _, t := range ds.Trips {
		if r, ok := replaced[t.Id]; ok {
			if r != nil {
				trips = append(trips, r)
				replaced[t.Id] = nil
			}
			continue
		}
		if removed[t.Id] {
			continue
		}
		trips = append(trips, t)
	}
	ds.Trips = trips

	fmt.Fprintf(os.Stdout, "done. (-%d trips [-%.2f%%])\n",
		(bef - len(ds.Trips)),
		100.0*float64(bef-len(ds.Trips))/(float64(bef)+0.001))

	return errors.Join(errs...)
}

// Merge all mergeable trips of a bucket, then report the suspicious pairs
// among the remaining ones
func (m *TripDuplicateRemover) reduceBucket(bucket []*schedule.Trip, sink *diagnostics.Sink) bucketResult {
	res := bucketResult{replaced: make(map[string]*schedule.Trip)}

	trips := append([]*schedule.Trip(nil), bucket...)
	slices.SortStableFunc(trips, func(a, b *schedule.Trip) int {
		return strings.Compare(a.Id, b.Id)
	})

	for i := 0; i < len(trips); i++ {
		for j := i + 1; j < len(trips); j++ {
			switch ClassifyTrips(trips[i], trips[j]) {
			case EqualDisjointCalendar:
				merged, err := MergeTrips(trips[i], trips[j])
				if err != nil {
					continue
				}
				sink.Add(diagnostics.NewMerged(merged.Id, trips[i].Id, trips[j].Id))
				res.removed = append(res.removed, trips[j].Id)
				res.replaced[merged.Id] = merged
				trips[i] = merged
			case Identical:
				if !m.DropIdentical {
					continue
				}
				sink.Add(diagnostics.NewSuspicious(trips[i].Id, trips[j].Id, Identical.String()))
				res.removed = append(res.removed, trips[j].Id)
			default:
				continue
			}

			trips = append(trips[:j], trips[j+1:]...)
			j--
		}
	}

	for i := 0; i < len(trips); i++ {
		for j := i + 1; j < len(trips); j++ {
			eq := ClassifyTrips(trips[i], trips[j])
			if eq == Identical || eq == EqualOverlappingCalendar {
				sink.Add(diagnostics.NewSuspicious(trips[i].Id, trips[j].Id, eq.String()))
			}
		}
	}

	return res
}

func getParent(stop *schedule.Stop) *schedule.Stop {
	for stop.Parent != nil && stop.Parent != stop {
		stop = stop.Parent
	}
	return stop
}

// Check if two stops are equal
func stopEq(a *schedule.Stop, b *schedule.Stop) bool {
	if a == nil || b == nil {
		return a == b
	}
	return getParent(a).Id == getParent(b).Id
}

func routeEq(a *schedule.Trip, b *schedule.Trip) bool {
	if a.Route == nil || b.Route == nil {
		return a.Route == b.Route
	}
	return a.Route.Id == b.Route.Id
}

// Check if two trips are stop-times equal
func tripStEq(a *schedule.Trip, b *schedule.Trip) bool {
	if len(a.StopTimes) != len(b.StopTimes) {
		return false
	}

	for i, aSt := range a.StopTimes {
		bSt := b.StopTimes[i]

		if !stopEq(aSt.Stop, bSt.Stop) {
			return false
		}

		if i == 0 && aSt.Departure == bSt.Departure {
			continue
		}

		if i == len(a.StopTimes)-1 && aSt.Arrival == bSt.Arrival {
			continue
		}

		if aSt.Arrival == bSt.Arrival && aSt.Departure == bSt.Departure {
			continue
		}

		return false
	}

	return true
}

func (m *TripDuplicateRemover) tripHash(t *schedule.Trip) uint32 {
	h := fnv.New32a()

	b := make([]byte, 8)

	if t.Route != nil {
		h.Write([]byte(t.Route.Id))
	}
	h.Write([]byte{0})

	if len(t.StopTimes) > 0 {
		start := t.StopTimes[0]
		end := t.StopTimes[len(t.StopTimes)-1]

		if start.Stop != nil {
			h.Write([]byte(getParent(start.Stop).Id))
		}
		h.Write([]byte{0})

		if end.Stop != nil {
			h.Write([]byte(getParent(end.Stop).Id))
		}
		h.Write([]byte{0})

		binary.LittleEndian.PutUint64(b, uint64(start.Departure))
		h.Write(b)

		binary.LittleEndian.PutUint64(b, uint64(end.Arrival))
		h.Write(b)

		binary.LittleEndian.PutUint64(b, uint64(len(t.StopTimes)))
		h.Write(b)
	}

	return h.Sum32()
}
