// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package input

import (
	"errors"
	"fmt"
	"os"

	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/schedule"
	geojson "github.com/paulmach/go.geojson"
)

// LoadFragments reads shape fragments from a GeoJSON FeatureCollection of
// LineStrings. Each feature carries the properties from, to, variant,
// start, days and source. Without start and days, a fragment is valid on
// all days. Without source, the feature position is used.
//
// A nil slice is returned if the file cannot be read or decoded. Invalid
// features are skipped, their errors are returned joined.
func LoadFragments(path string) ([]*schedule.Fragment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fragments: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("decode fragments %s: %w", path, err)
	}

	ret := make([]*schedule.Fragment, 0, len(fc.Features))
	errs := make([]error, 0)

	for i, feat := range fc.Features {
		f, err := toFragment(feat, fmt.Sprintf("%s#%d", path, i))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ret = append(ret, f)
	}

	return ret, errors.Join(errs...)
}

func toFragment(feat *geojson.Feature, pos string) (*schedule.Fragment, error) {
	f := &schedule.Fragment{
		Descriptor: schedule.Descriptor{
			From:    prop(feat, "from"),
			To:      prop(feat, "to"),
			Variant: prop(feat, "variant"),
		},
		Source: prop(feat, "source"),
	}

	if len(f.Source) == 0 {
		f.Source = pos
	}

	if !f.Descriptor.Valid() {
		return nil, schedule.FragmentError(f, schedule.ErrMalformedDescriptor)
	}

	if feat.Geometry == nil || !feat.Geometry.IsLineString() {
		return nil, schedule.FragmentError(f, fmt.Errorf("expected LineString: %w", schedule.ErrMalformedGeometry))
	}

	for _, c := range feat.Geometry.LineString {
		if len(c) < 2 {
			return nil, schedule.FragmentError(f, fmt.Errorf("coordinate with %d values: %w", len(c), schedule.ErrMalformedGeometry))
		}
		f.Points = append(f.Points, schedule.Coord{Lat: c[1], Lon: c[0]})
	}

	cal, err := calendar.Parse(prop(feat, "start"), prop(feat, "days"))
	if err != nil {
		return nil, schedule.FragmentError(f, err)
	}
	f.Calendar = cal

	return f, nil
}

// prop returns the string property key of feat, or the empty string
func prop(feat *geojson.Feature, key string) string {
	s, err := feat.PropertyString(key)
	if err != nil {
		return ""
	}
	return s
}
