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
)

func TestShapeAssembler(t *testing.T) {
	stops := testStops()
	route := &schedule.Route{Id: "r"}
	cal := calendar.FromRange(day(2024, 1, 1), day(2024, 1, 31))

	mid := schedule.Coord{Lat: 48.004, Lon: 7.806}

	ds := schedule.NewDataset()
	ds.Fragments = []*schedule.Fragment{
		{Descriptor: schedule.Descriptor{From: "A", To: "B"}, Points: []schedule.Coord{stops["A"].Coord, mid, stops["B"].Coord}},
	}
	ds.Trips = []*schedule.Trip{
		trip("t1", route, cal, 3600, stops["A"], stops["B"], stops["C"]),
		trip("t2", route, cal, 3600, stops["A"], stops["B"]),
		{Id: "empty", Route: route},
	}

	sink := diagnostics.NewSink()
	err := ShapeAssembler{MaxConnectDist: 10}.Run(ds, sink)

	if !errors.Is(err, schedule.ErrEmptyStopSequence) {
		t.Error(err)
	}

	if len(ds.Trips) != 2 {
		t.Fatal(ds.Trips)
	}

	t1 := ds.Trips[0]
	if !coordsEqual(t1.Path, []schedule.Coord{stops["A"].Coord, mid, stops["B"].Coord, stops["C"].Coord}) {
		t.Error(t1.Path)
	}

	if !t1.Degraded {
		t.Error("straight line fallback must degrade the path")
	}

	t2 := ds.Trips[1]
	if !coordsEqual(t2.Path, ds.Fragments[0].Points) || t2.Degraded {
		t.Error(t2.Path, t2.Degraded)
	}

	// the assembled path must not share memory with the fragment
	t2.Path[1].Lat = 0
	if ds.Fragments[0].Points[1].Lat == 0 {
		t.Error("path aliases fragment points")
	}

	recs := sink.Records(diagnostics.Missing)
	if len(recs) != 1 || recs[0].Descriptor != "B>C" || recs[0].Trip != "t1" {
		t.Error(recs)
	}
}

func TestShapeAssemblerUnconnected(t *testing.T) {
	stops := testStops()
	route := &schedule.Route{Id: "r"}

	off := schedule.Coord{Lat: 48.011, Lon: 7.81}

	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)
	repo.AddAll([]*schedule.Fragment{
		{Descriptor: schedule.Descriptor{From: "A", To: "B"}, Points: []schedule.Coord{stops["A"].Coord, stops["B"].Coord}},
		{Descriptor: schedule.Descriptor{From: "B", To: "C"}, Points: []schedule.Coord{off, stops["C"].Coord}},
	})

	tr := trip("t1", route, calendar.Bitmap{}, 0, stops["A"], stops["B"], stops["C"])

	if err := repo.Assemble(tr); err != nil {
		t.Fatal(err)
	}

	// the gap is bridged by a straight segment
	if !coordsEqual(tr.Path, []schedule.Coord{stops["A"].Coord, stops["B"].Coord, off, stops["C"].Coord}) {
		t.Error(tr.Path)
	}

	if !tr.Degraded {
		t.Error("unconnected fragments must degrade the path")
	}

	recs := sink.Records(diagnostics.Unconnected)
	if len(recs) != 1 {
		t.Fatal(recs)
	}

	if !FloatEquals(recs[0].Distance, Haversine(stops["B"].Coord, off), EPS) || recs[0].Descriptor != "B>C" {
		t.Error(recs[0])
	}
}

func TestShapeAssemblerPartiallyMissing(t *testing.T) {
	stops := testStops()

	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)
	repo.Add(&schedule.Fragment{
		Descriptor: schedule.Descriptor{From: "A", To: "B", Variant: "v"},
		Points:     []schedule.Coord{stops["A"].Coord, stops["B"].Coord},
		Calendar:   calendar.FromRange(day(2024, 1, 1), day(2024, 1, 10)),
	})

	tr := trip("t1", nil, calendar.FromRange(day(2024, 1, 5), day(2024, 1, 20)), 0, stops["A"], stops["B"])
	tr.Trajectory = "v"

	if err := repo.Assemble(tr); err != nil {
		t.Fatal(err)
	}

	if !tr.Degraded || len(tr.Path) != 2 {
		t.Error(tr.Path, tr.Degraded)
	}

	if sink.Count(diagnostics.PartiallyMissing) != 1 {
		t.Error(sink.Report())
	}
}

func TestShapeAssemblerStructuralErrors(t *testing.T) {
	repo := NewFragmentRepository(10, nil)

	if err := repo.Assemble(&schedule.Trip{Id: "e"}); !errors.Is(err, schedule.ErrEmptyStopSequence) {
		t.Error(err)
	}

	tr := &schedule.Trip{Id: "u", StopTimes: []schedule.StopTime{{Stop: testStops()["A"]}, {}}}
	if err := repo.Assemble(tr); !errors.Is(err, schedule.ErrUnknownStop) {
		t.Error(err)
	}
}

func TestShapeAssemblerSingleStop(t *testing.T) {
	stops := testStops()
	repo := NewFragmentRepository(10, nil)

	tr := trip("t1", nil, calendar.Bitmap{}, 0, stops["A"])
	if err := repo.Assemble(tr); err != nil {
		t.Fatal(err)
	}

	if len(tr.Path) != 1 || tr.Degraded {
		t.Error(tr.Path)
	}
}
