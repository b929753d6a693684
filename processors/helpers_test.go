// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"math"
	"testing"
	"time"
)

var EPS float64 = 1.0 / 100000

func FloatEquals(a float64, b float64, e float64) bool {
	return math.Abs(a-b) < e
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustParse(t *testing.T, start string, days string) calendar.Bitmap {
	b, err := calendar.Parse(start, days)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func testStops() map[string]*schedule.Stop {
	station := &schedule.Stop{Id: "S", Name: "Station", Coord: schedule.Coord{Lat: 48.0, Lon: 7.8}}

	return map[string]*schedule.Stop{
		"A":  {Id: "A", Name: "A", Coord: schedule.Coord{Lat: 48.0, Lon: 7.8}},
		"B":  {Id: "B", Name: "B", Coord: schedule.Coord{Lat: 48.01, Lon: 7.81}},
		"C":  {Id: "C", Name: "C", Coord: schedule.Coord{Lat: 48.02, Lon: 7.83}},
		"S":  station,
		"S1": {Id: "S1", Name: "Station 1", Coord: schedule.Coord{Lat: 48.0001, Lon: 7.8}, Parent: station},
		"S2": {Id: "S2", Name: "Station 2", Coord: schedule.Coord{Lat: 48.0002, Lon: 7.8}, Parent: station},
	}
}

// trip builds a trip over stops, departing at dep (seconds since midnight)
// with 5 minutes between consecutive stops
func trip(id string, route *schedule.Route, cal calendar.Bitmap, dep int, stops ...*schedule.Stop) *schedule.Trip {
	t := &schedule.Trip{Id: id, Route: route, Calendar: cal}
	for i, s := range stops {
		at := dep + i*300
		t.StopTimes = append(t.StopTimes, schedule.StopTime{Stop: s, Arrival: at, Departure: at})
	}
	return t
}

func coordsEqual(a []schedule.Coord, b []schedule.Coord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !FloatEquals(a[i].Lat, b[i].Lat, EPS) || !FloatEquals(a[i].Lon, b[i].Lon, EPS) {
			return false
		}
	}
	return true
}
