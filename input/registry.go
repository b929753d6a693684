// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package input

import (
	"fmt"
	"os"

	"github.com/patrickbr/gtfsparser"
	"github.com/patrickbr/gtfsreconcile/schedule"
)

// ReadStopRegistry reads the stops of the GTFS feed at path (a directory
// or a zip file). Parent stations are linked.
func ReadStopRegistry(path string) (map[string]*schedule.Stop, error) {
	feed := gtfsparser.NewFeed()

	opts := gtfsparser.ParseOptions{UseDefValueOnError: true, DropErroneous: true, DryRun: false, CheckNullCoordinates: false, EmptyStringRepl: "", ZipFix: true}
	feed.SetParseOpts(opts)

	fmt.Fprintf(os.Stdout, "Parsing stop registry in '%s'... ", path)

	if err := feed.Parse(path); err != nil {
		fmt.Fprintf(os.Stdout, "failed.\n")
		return nil, fmt.Errorf("parse stop registry %s: %w", path, err)
	}

	ret := make(map[string]*schedule.Stop, len(feed.Stops))

	for id, s := range feed.Stops {
		ret[id] = &schedule.Stop{
			Id:    s.Id,
			Name:  s.Name,
			Coord: schedule.Coord{Lat: float64(s.Lat), Lon: float64(s.Lon)},
		}
	}

	for id, s := range feed.Stops {
		if s.Parent_station != nil {
			ret[id].Parent = ret[s.Parent_station.Id]
		}
	}

	fmt.Fprintf(os.Stdout, "done. (%d stops)\n", len(ret))

	return ret, nil
}
