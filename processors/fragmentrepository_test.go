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

var desc = schedule.Descriptor{From: "A", To: "B", Variant: "1"}

func fragment(cal calendar.Bitmap, src string) *schedule.Fragment {
	return &schedule.Fragment{
		Descriptor: desc,
		Points:     []schedule.Coord{{Lat: 48.0, Lon: 7.8}, {Lat: 48.005, Lon: 7.806}, {Lat: 48.01, Lon: 7.81}},
		Calendar:   cal,
		Source:     src,
	}
}

func TestFragmentFirstOccurrenceWins(t *testing.T) {
	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)

	cal := calendar.FromRange(day(2024, 1, 1), day(2024, 12, 31))
	f1 := fragment(cal, "f1")
	f2 := fragment(cal, "f2")
	f3 := fragment(calendar.FromRange(day(2024, 3, 1), day(2024, 3, 31)), "f3")

	for i, f := range []*schedule.Fragment{f1, f2, f3} {
		ok, err := repo.Add(f)
		if err != nil {
			t.Fatal(err)
		}
		if ok != (i == 0) {
			t.Error(f.Source, ok)
		}
	}

	got, status := repo.Resolve(desc, calendar.FromRange(day(2024, 5, 1), day(2024, 5, 3)), "t1")
	if got != f1 || status != Resolved {
		t.Error(got.Source, status)
	}

	dups := sink.Records(diagnostics.Duplicate)
	if len(dups) != 2 {
		t.Fatal(dups)
	}

	if sink.Report()[0].Key != desc.String() || sink.Report()[0].Count() != 2 {
		t.Error(sink.Report())
	}

	if len(repo.Ignored(desc)) != 2 || repo.Len() != 1 {
		t.Error(repo.Ignored(desc))
	}

	// ignored calendars are reported once each
	seen := map[string]int{}
	for _, d := range dups {
		for _, c := range d.Calendars {
			seen[c]++
		}
	}
	if seen[f2.Calendar.String()] != 1 || seen[f3.Calendar.String()] != 1 {
		t.Error(seen)
	}
}

func TestFragmentDisjointVersionsKept(t *testing.T) {
	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)

	h1 := fragment(calendar.FromRange(day(2024, 1, 1), day(2024, 6, 30)), "h1")
	h2 := fragment(calendar.FromRange(day(2024, 7, 1), day(2024, 12, 31)), "h2")

	if err := repo.AddAll([]*schedule.Fragment{h1, h2}); err != nil {
		t.Fatal(err)
	}

	if len(repo.Candidates(desc)) != 2 || sink.Len() != 0 {
		t.Error(repo.Candidates(desc), sink.Report())
	}

	got, status := repo.Resolve(desc, calendar.FromRange(day(2024, 8, 1), day(2024, 8, 31)), "t1")
	if got != h2 || status != Resolved {
		t.Error(got.Source, status)
	}
}

func TestFragmentMissing(t *testing.T) {
	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)

	got, status := repo.Resolve(desc, calendar.FromRange(day(2024, 1, 1), day(2024, 1, 2)), "t1")

	if got != nil || status != Missing {
		t.Error(got, status)
	}

	recs := sink.Records(diagnostics.Missing)
	if len(recs) != 1 || recs[0].Trip != "t1" || recs[0].Descriptor != desc.String() {
		t.Error(recs)
	}
}

func TestFragmentPartiallyMissing(t *testing.T) {
	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)

	h1 := fragment(calendar.FromRange(day(2024, 1, 1), day(2024, 6, 30)), "h1")
	h2 := fragment(calendar.FromRange(day(2024, 7, 1), day(2024, 12, 31)), "h2")
	repo.AddAll([]*schedule.Fragment{h2, h1})

	got, status := repo.Resolve(desc, calendar.FromRange(day(2024, 5, 1), day(2024, 8, 31)), "t1")

	if status != PartiallyMissing {
		t.Error(status)
	}

	if got != h1 {
		t.Error(got.Source)
	}

	recs := sink.Records(diagnostics.PartiallyMissing)
	if len(recs) != 1 || recs[0].Trip != "t1" {
		t.Error(recs)
	}
}

func TestFragmentNearestVersionTieBreak(t *testing.T) {
	repo := NewFragmentRepository(10, nil)

	// neither version runs on Jan 10, both share one day with the request
	// and start two days away from it
	later := fragment(calendar.FromDates(day(2024, 1, 12)), "later")
	earlier := fragment(calendar.FromDates(day(2024, 1, 8), day(2024, 1, 11)), "earlier")

	repo.Add(later)
	repo.Add(earlier)

	got, status := repo.Resolve(desc, calendar.FromRange(day(2024, 1, 10), day(2024, 1, 20)), "t1")

	if status != PartiallyMissing || got != earlier {
		t.Error(got.Source, status)
	}
}

func TestFragmentNearestVersionOverlap(t *testing.T) {
	repo := NewFragmentRepository(10, nil)

	small := fragment(calendar.FromRange(day(2024, 1, 12), day(2024, 1, 13)), "small")
	large := fragment(calendar.FromRange(day(2024, 1, 15), day(2024, 1, 25)), "large")

	repo.Add(small)
	repo.Add(large)

	got, _ := repo.Resolve(desc, calendar.FromRange(day(2024, 1, 10), day(2024, 1, 20)), "t1")

	if got != large {
		t.Error(got.Source)
	}
}

func TestFragmentWithoutCalendar(t *testing.T) {
	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(10, sink)

	always := fragment(calendar.Bitmap{}, "always")
	dated := fragment(calendar.FromRange(day(2024, 1, 1), day(2024, 1, 2)), "dated")

	repo.Add(always)
	if ok, _ := repo.Add(dated); ok {
		t.Error("fragment without calendar must conflict with every other")
	}

	got, status := repo.Resolve(desc, calendar.FromRange(day(2030, 1, 1), day(2030, 1, 2)), "t")
	if got != always || status != Resolved {
		t.Error(got.Source, status)
	}
}

func TestFragmentStructuralErrors(t *testing.T) {
	repo := NewFragmentRepository(10, nil)

	bad := fragment(calendar.Bitmap{}, "bad")
	bad.Descriptor = schedule.Descriptor{From: "A"}

	if _, err := repo.Add(bad); !errors.Is(err, schedule.ErrMalformedDescriptor) {
		t.Error(err)
	}

	short := fragment(calendar.Bitmap{}, "short")
	short.Points = short.Points[:1]

	if _, err := repo.Add(short); !errors.Is(err, schedule.ErrMalformedGeometry) {
		t.Error(err)
	}

	off := fragment(calendar.Bitmap{}, "off")
	off.Points = []schedule.Coord{{Lat: 91, Lon: 0}, {Lat: 0, Lon: 0}}

	err := repo.AddAll([]*schedule.Fragment{off, fragment(calendar.Bitmap{}, "good")})
	if !errors.Is(err, schedule.ErrMalformedGeometry) {
		t.Error(err)
	}

	var uerr *schedule.UnitError
	if !errors.As(err, &uerr) || uerr.Origin != "off" {
		t.Error(err)
	}

	if repo.Len() != 1 {
		t.Error(repo.Len())
	}
}

func TestFragmentConnectBoundary(t *testing.T) {
	a := schedule.Coord{Lat: 48.0, Lon: 7.8}
	b := schedule.Coord{Lat: 48.0001, Lon: 7.8001}
	d := Haversine(a, b)

	sink := diagnostics.NewSink()
	repo := NewFragmentRepository(d, sink)

	if !repo.Connect(a, b, desc, "t1") {
		t.Error("endpoints exactly at the tolerance must connect")
	}

	if sink.Len() != 0 {
		t.Error(sink.Report())
	}

	repo.MaxConnectDist = d - 1

	if repo.Connect(a, b, desc, "t1") {
		t.Error("endpoints beyond the tolerance must not connect")
	}

	recs := sink.Records(diagnostics.Unconnected)
	if len(recs) != 1 {
		t.Fatal(recs)
	}

	if !FloatEquals(recs[0].Distance, d, EPS) || recs[0].Trip != "t1" || recs[0].Descriptor != desc.String() {
		t.Error(recs[0])
	}
}

func TestResolveStatusString(t *testing.T) {
	if Resolved.String() != "resolved" || Missing.String() != "missing" || PartiallyMissing.String() != "partially_missing" {
		t.Error("unexpected status names")
	}
}
