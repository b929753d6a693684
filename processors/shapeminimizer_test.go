// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"github.com/patrickbr/gtfsreconcile/schedule"
	"testing"
)

func TestShapeMinimizer(t *testing.T) {
	straight := []schedule.Coord{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.0005}, {Lat: 0, Lon: 0.001}, {Lat: 0, Lon: 0.0015}}
	bent := []schedule.Coord{{Lat: 0, Lon: 0}, {Lat: 0.6, Lon: 0.5}, {Lat: 1, Lon: 1}, {Lat: 1.0000001, Lon: 2}, {Lat: 3.5, Lon: 1}}

	ds := schedule.NewDataset()
	ds.Trips = []*schedule.Trip{
		{Id: "straight", Path: straight},
		{Id: "bent", Path: bent},
		{Id: "short", Path: straight[:2]},
	}

	proc := ShapeMinimizer{Epsilon: 1.0}
	if err := proc.Run(ds, nil); err != nil {
		t.Fatal(err)
	}

	if !coordsEqual(ds.Trips[0].Path, []schedule.Coord{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.0015}}) {
		t.Error(ds.Trips[0].Path)
	}

	if !coordsEqual(ds.Trips[1].Path, bent) {
		t.Error(ds.Trips[1].Path)
	}

	if len(ds.Trips[2].Path) != 2 {
		t.Error(ds.Trips[2].Path)
	}
}

func TestMinimizeShapeKeepsEnds(t *testing.T) {
	sm := ShapeMinimizer{}
	pts := []schedule.Coord{{Lat: 48, Lon: 7}, {Lat: 48.00001, Lon: 7.5}, {Lat: 48, Lon: 8}}

	ret := sm.minimizeShape(pts, 5000)
	if len(ret) != 2 || ret[0] != pts[0] || ret[1] != pts[2] {
		t.Error(ret)
	}

	ret = sm.minimizeShape(pts, 0.01)
	if len(ret) != 3 {
		t.Error(ret)
	}
}
