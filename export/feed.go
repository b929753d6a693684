// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package export renders a reconciled dataset as GTFS services and shapes,
// a trip assignment table and GeoJSON trip paths.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patrickbr/gtfsparser"
	gtfs "github.com/patrickbr/gtfsparser/gtfs"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/processors"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"github.com/patrickbr/gtfswriter"
)

// Exporter builds the GTFS rendition of a dataset
type Exporter struct {
	// base of generated service and shape ids, 10 if smaller than 2
	IdBase int

	// trip paths within this distance in meters share a shape, paths
	// must be equal if <= 0
	MaxEqDist float64
}

// Assignment maps a trip to its service and shape. Service is empty for
// trips without active days, Shape is empty for trips without a path.
type Assignment struct {
	Trip    *schedule.Trip
	Service string
	Shape   string
}

// Result is a built GTFS feed together with the trip assignments
type Result struct {
	Feed        *gtfsparser.Feed
	Assignments []Assignment
}

// Build creates one service per distinct set of active days and one shape
// per distinct trip path
func (e Exporter) Build(ds *schedule.Dataset) *Result {
	base := e.IdBase
	if base < 2 || base > 36 {
		base = 10
	}

	fmt.Fprintf(os.Stdout, "Building GTFS services and shapes... ")

	res := &Result{
		Feed:        gtfsparser.NewFeed(),
		Assignments: make([]Assignment, len(ds.Trips)),
	}

	for i, t := range ds.Trips {
		res.Assignments[i].Trip = t
	}

	e.buildServices(res, base)
	e.buildShapes(res, base)

	fmt.Fprintf(os.Stdout, "done. (%d trips, %d services, %d shapes)\n", len(ds.Trips), len(res.Feed.Services), len(res.Feed.Shapes))

	return res
}

// Trips whose calendars resolve to exactly the same service dates share
// a single service
func (e Exporter) buildServices(res *Result, base int) {
	var idCount int64 = 1
	ids := make(map[string]string)

	for i, a := range res.Assignments {
		if a.Trip.Calendar.IsEmpty() {
			continue
		}

		key := daysKey(a.Trip.Calendar)
		if id, ok := ids[key]; ok {
			res.Assignments[i].Service = id
			continue
		}

		id := strconv.FormatInt(idCount, base)
		idCount = idCount + 1
		ids[key] = id

		res.Feed.Services[id] = toService(id, a.Trip.Calendar)
		res.Assignments[i].Service = id
	}
}

// Trip paths similar to a path already exported reuse its shape, the first
// path of a set of similar ones is the reference
func (e Exporter) buildShapes(res *Result, base int) {
	var idCount int64 = 1

	type candidate struct {
		id   string
		path []schedule.Coord
	}

	buckets := make(map[[2]string][]candidate)

	for i, a := range res.Assignments {
		if len(a.Trip.Path) == 0 {
			continue
		}

		key := endpoints(a.Trip)

		found := false
		for _, c := range buckets[key] {
			if processors.SimilarPaths(c.path, a.Trip.Path, e.MaxEqDist) {
				res.Assignments[i].Shape = c.id
				found = true
				break
			}
		}

		if found {
			continue
		}

		id := strconv.FormatInt(idCount, base)
		idCount = idCount + 1

		buckets[key] = append(buckets[key], candidate{id, a.Trip.Path})
		res.Feed.Shapes[id] = toShape(id, a.Trip.Path)
		res.Assignments[i].Shape = id
	}
}

// WriteGTFS writes the feed to path, either a folder or a ZIP file
func (r *Result) WriteGTFS(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if filepath.Ext(path) == ".zip" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			f.Close()
		} else if err := os.MkdirAll(path, os.ModePerm); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	w := gtfswriter.Writer{ZipCompressionLevel: 9, Sorted: true}
	if err := w.Write(r.Feed, path); err != nil {
		return fmt.Errorf("write GTFS feed to %s: %w", path, err)
	}

	return nil
}

func toService(id string, cal calendar.Bitmap) *gtfs.Service {
	s := gtfs.EmptyService()
	s.SetId(id)

	exceptions := make(map[gtfs.Date]bool, cal.ActiveCount())
	for _, d := range cal.ActiveDates() {
		exceptions[gtfs.GetGtfsDateFromTime(d)] = true
	}
	s.SetExceptions(exceptions)

	return s
}

func toShape(id string, path []schedule.Coord) *gtfs.Shape {
	shp := &gtfs.Shape{Id: id, Points: make(gtfs.ShapePoints, len(path))}

	for i, c := range path {
		shp.Points[i] = gtfs.ShapePoint{
			Lat:           float32(c.Lat),
			Lon:           float32(c.Lon),
			Sequence:      uint32(i),
			Dist_traveled: float32(math.NaN()),
		}
	}

	return shp
}

func daysKey(cal calendar.Bitmap) string {
	dates := cal.ActiveDates()
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format(calendar.DateLayout)
	}
	return strings.Join(parts, ",")
}

func endpoints(t *schedule.Trip) [2]string {
	if len(t.StopTimes) == 0 || t.StopTimes[0].Stop == nil || t.StopTimes[len(t.StopTimes)-1].Stop == nil {
		return [2]string{}
	}
	return [2]string{t.StopTimes[0].Stop.Id, t.StopTimes[len(t.StopTimes)-1].Stop.Id}
}
