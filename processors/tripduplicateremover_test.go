// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"errors"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"testing"
	"time"
)

// 2024-01-01 is a Monday
var (
	monWedFri = calendar.FromRange(day(2024, 1, 1), day(2024, 1, 28), time.Monday, time.Wednesday, time.Friday)
	tueThu    = calendar.FromRange(day(2024, 1, 1), day(2024, 1, 28), time.Tuesday, time.Thursday)
	weekdays  = calendar.FromRange(day(2024, 1, 1), day(2024, 1, 28), time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
)

func TestClassifyTrips(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	a := trip("a", r, monWedFri, 3600, stops["A"], stops["B"], stops["C"])

	same := trip("b", r, monWedFri, 3600, stops["A"], stops["B"], stops["C"])
	if ClassifyTrips(a, same) != Identical {
		t.Error(ClassifyTrips(a, same))
	}

	otherRun := trip("c", r, monWedFri, 3600, stops["A"], stops["B"], stops["C"])
	otherRun.Run = "block 7"
	if ClassifyTrips(a, otherRun) != IdenticalDifferentRun {
		t.Error(ClassifyTrips(a, otherRun))
	}

	overlapping := trip("d", r, weekdays, 3600, stops["A"], stops["B"], stops["C"])
	if ClassifyTrips(a, overlapping) != EqualOverlappingCalendar {
		t.Error(ClassifyTrips(a, overlapping))
	}

	disjoint := trip("e", r, tueThu, 3600, stops["A"], stops["B"], stops["C"])
	if ClassifyTrips(a, disjoint) != EqualDisjointCalendar || ClassifyTrips(disjoint, a) != EqualDisjointCalendar {
		t.Error(ClassifyTrips(a, disjoint))
	}

	later := trip("f", r, tueThu, 3660, stops["A"], stops["B"], stops["C"])
	if ClassifyTrips(a, later) != Different {
		t.Error(ClassifyTrips(a, later))
	}

	otherRoute := trip("g", &schedule.Route{Id: "r2"}, tueThu, 3600, stops["A"], stops["B"], stops["C"])
	if ClassifyTrips(a, otherRoute) != Different {
		t.Error(ClassifyTrips(a, otherRoute))
	}

	shorter := trip("h", r, tueThu, 3600, stops["A"], stops["B"])
	if ClassifyTrips(a, shorter) != Different {
		t.Error(ClassifyTrips(a, shorter))
	}

	// same days expressed from a different start still count as the same calendar
	shifted := trip("i", r, calendar.FromDates(monWedFri.ActiveDates()...), 3600, stops["A"], stops["B"], stops["C"])
	if ClassifyTrips(a, shifted) != Identical {
		t.Error(ClassifyTrips(a, shifted))
	}
}

func TestClassifyTripsParentStations(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	a := trip("a", r, monWedFri, 3600, stops["S1"], stops["B"])
	b := trip("b", r, tueThu, 3600, stops["S2"], stops["B"])

	if ClassifyTrips(a, b) != EqualDisjointCalendar {
		t.Error(ClassifyTrips(a, b))
	}
}

func TestClassifyTripsIgnoresOuterTimes(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	a := trip("a", r, monWedFri, 3600, stops["A"], stops["B"], stops["C"])
	b := trip("b", r, tueThu, 3600, stops["A"], stops["B"], stops["C"])

	// arrival at the first and departure at the last stop do not matter
	b.StopTimes[0].Arrival -= 120
	b.StopTimes[2].Departure += 120

	if ClassifyTrips(a, b) != EqualDisjointCalendar {
		t.Error(ClassifyTrips(a, b))
	}

	b.StopTimes[1].Departure += 60
	if ClassifyTrips(a, b) != Different {
		t.Error(ClassifyTrips(a, b))
	}
}

func TestMergeTrips(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	a := trip("a", r, monWedFri, 3600, stops["A"], stops["B"])
	b := trip("b", r, tueThu, 3600, stops["A"], stops["B"])

	ab, err := MergeTrips(a, b)
	if err != nil {
		t.Fatal(err)
	}

	ba, err := MergeTrips(b, a)
	if err != nil {
		t.Fatal(err)
	}

	if ab.Id != "a" || ba.Id != "a" {
		t.Error(ab.Id, ba.Id)
	}

	if !ab.Calendar.Equals(ba.Calendar) {
		t.Error(ab.Calendar, ba.Calendar)
	}

	if !ab.Calendar.SameDays(weekdays) {
		t.Error(ab.Calendar)
	}

	// inputs are untouched
	if !a.Calendar.Equals(monWedFri) || !b.Calendar.Equals(tueThu) || ab == a {
		t.Error("merge must not modify its inputs")
	}

	// merging the union again with one of its parts is not allowed
	if _, err := MergeTrips(ab, b); !errors.Is(err, ErrNotMergeable) {
		t.Error(err)
	}
}

func TestMergeTripsKeepsPath(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	a := trip("a", r, monWedFri, 3600, stops["A"], stops["B"])
	b := trip("b", r, tueThu, 3600, stops["A"], stops["B"])
	b.Path = []schedule.Coord{stops["A"].Coord, stops["B"].Coord}

	m, err := MergeTrips(a, b)
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Path) != 2 {
		t.Error(m.Path)
	}
}

func TestTripDuplicateRemover(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	mon := calendar.FromRange(day(2024, 1, 1), day(2024, 1, 28), time.Monday)
	tue := calendar.FromRange(day(2024, 1, 1), day(2024, 1, 28), time.Tuesday)
	wed := calendar.FromRange(day(2024, 1, 1), day(2024, 1, 28), time.Wednesday)

	ds := schedule.NewDataset()
	ds.Trips = []*schedule.Trip{
		trip("x", r, weekdays, 7200, stops["A"], stops["C"]),
		trip("t3", r, wed, 3600, stops["A"], stops["B"]),
		trip("t1", r, mon, 3600, stops["A"], stops["B"]),
		trip("t2", r, tue, 3600, stops["A"], stops["B"]),
		trip("d1", r, weekdays, 7200, stops["A"], stops["C"]),
		{Id: "empty", Route: r},
	}

	sink := diagnostics.NewSink()
	err := TripDuplicateRemover{}.Run(ds, sink)

	if !errors.Is(err, schedule.ErrEmptyStopSequence) {
		t.Error(err)
	}

	// t1, t2 and t3 collapse into t1
	ids := []string{}
	for _, tr := range ds.Trips {
		ids = append(ids, tr.Id)
	}
	if len(ids) != 4 || ids[0] != "x" || ids[1] != "t1" || ids[2] != "d1" || ids[3] != "empty" {
		t.Fatal(ids)
	}

	merged := ds.Trips[1]
	if merged.Calendar.ActiveCount() != mon.ActiveCount()+tue.ActiveCount()+wed.ActiveCount() {
		t.Error(merged.Calendar)
	}

	if sink.Count(diagnostics.Merged) != 2 {
		t.Error(sink.Report())
	}

	sus := sink.Records(diagnostics.SuspiciousComparison)
	if len(sus) != 1 || sus[0].First != "d1" || sus[0].Second != "x" || sus[0].Classification != "identical" {
		t.Error(sus)
	}
}

func TestTripDuplicateRemoverDropIdentical(t *testing.T) {
	stops := testStops()
	r := &schedule.Route{Id: "r"}

	ds := schedule.NewDataset()
	ds.Trips = []*schedule.Trip{
		trip("b", r, weekdays, 7200, stops["A"], stops["C"]),
		trip("a", r, weekdays, 7200, stops["A"], stops["C"]),
		trip("c", r, monWedFri, 7200, stops["A"], stops["C"]),
	}

	sink := diagnostics.NewSink()
	if err := (TripDuplicateRemover{DropIdentical: true}).Run(ds, sink); err != nil {
		t.Fatal(err)
	}

	if len(ds.Trips) != 2 || ds.Trips[0].Id != "a" || ds.Trips[1].Id != "c" {
		t.Error(ds.Trips)
	}

	// a and c overlap on Mon, Wed and Fri
	recs := sink.Records(diagnostics.SuspiciousComparison)
	if len(recs) != 2 {
		t.Fatal(recs)
	}

	classes := map[string]bool{}
	for _, r := range recs {
		classes[r.Classification] = true
	}
	if !classes["identical"] || !classes["equal_overlapping_calendar"] {
		t.Error(recs)
	}
}

func TestTripEqualityString(t *testing.T) {
	names := map[TripEquality]string{
		Different:                "different",
		Identical:                "identical",
		IdenticalDifferentRun:    "identical_different_run",
		EqualOverlappingCalendar: "equal_overlapping_calendar",
		EqualDisjointCalendar:    "equal_disjoint_calendar",
	}

	for e, n := range names {
		if e.String() != n {
			t.Error(e, n)
		}
	}
}
