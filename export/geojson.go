// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package export

import (
	"fmt"
	"io"

	geojson "github.com/paulmach/go.geojson"
)

// Paths returns a FeatureCollection with one LineString per trip path
func (r *Result) Paths() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, a := range r.Assignments {
		if len(a.Trip.Path) < 2 {
			continue
		}

		coords := make([][]float64, len(a.Trip.Path))
		for i, c := range a.Trip.Path {
			coords[i] = []float64{c.Lon, c.Lat}
		}

		f := geojson.NewLineStringFeature(coords)
		f.SetProperty("trip", a.Trip.Id)
		if a.Trip.Route != nil {
			f.SetProperty("route", a.Trip.Route.Id)
		}
		f.SetProperty("shape", a.Shape)
		f.SetProperty("service", a.Service)
		f.SetProperty("degraded", a.Trip.Degraded)

		fc.AddFeature(f)
	}

	return fc
}

// WritePaths writes the trip paths as GeoJSON to w
func (r *Result) WritePaths(w io.Writer) error {
	b, err := r.Paths().MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode paths: %w", err)
	}
	_, err = w.Write(b)
	return err
}
