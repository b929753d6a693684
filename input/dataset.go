// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package input reads the source records of a reconciliation run: the
// dataset of stops, routes, variants and trips, the shape fragments and
// an optional GTFS stop registry.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/schedule"
)

var validate = validator.New()

type stopRecord struct {
	Id     string  `json:"id" validate:"required"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `json:"lon" validate:"gte=-180,lte=180"`
	Parent string  `json:"parent"`
}

type routeRecord struct {
	Id   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Type int16  `json:"type" validate:"gte=0"`
}

type variantRecord struct {
	Id           string `json:"id" validate:"required"`
	Carrier      string `json:"carrier" validate:"required"`
	Core         string `json:"core" validate:"required"`
	Year         int    `json:"year" validate:"gt=0"`
	Issued       string `json:"issued" validate:"required"`
	Start        string `json:"start" validate:"required"`
	Days         string `json:"days"`
	Cancellation bool   `json:"cancellation"`
}

type stopTimeRecord struct {
	Stop      string `json:"stop" validate:"required"`
	Arrival   string `json:"arrival"`
	Departure string `json:"departure"`
}

type tripRecord struct {
	Id         string           `json:"id" validate:"required"`
	Route      string           `json:"route"`
	Run        string           `json:"run"`
	Variant    string           `json:"variant"`
	Trajectory string           `json:"trajectory"`
	Start      string           `json:"start"`
	Days       string           `json:"days"`
	StopTimes  []stopTimeRecord `json:"stop_times" validate:"dive"`
}

type datasetFile struct {
	Stops    []stopRecord    `json:"stops"`
	Routes   []routeRecord   `json:"routes"`
	Variants []variantRecord `json:"variants"`
	Trips    []tripRecord    `json:"trips"`
}

// LoadDataset reads the JSON dataset at path. Stops of registry are added
// first, stops of the file replace registry stops with the same id.
//
// A nil dataset is returned if the file cannot be read or decoded. Invalid
// single records are skipped, their errors are returned joined alongside
// the dataset.
func LoadDataset(path string, registry map[string]*schedule.Stop) (*schedule.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var f datasetFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}

	ds := schedule.NewDataset()
	errs := make([]error, 0)

	for id, s := range registry {
		ds.Stops[id] = s
	}

	errs = append(errs, addStops(ds, f.Stops, path)...)

	for _, r := range f.Routes {
		if err := validate.Struct(r); err != nil {
			errs = append(errs, recordError("route", r.Id, path, err))
			continue
		}
		ds.Routes[r.Id] = &schedule.Route{Id: r.Id, Name: r.Name, Type: r.Type}
	}

	for _, r := range f.Variants {
		v, err := toVariant(r, path)
		if err != nil {
			errs = append(errs, recordError("variant", r.Id, path, err))
			continue
		}
		if err := ds.Group(v.Key).Add(v); err != nil {
			errs = append(errs, recordError("variant", r.Id, path, err))
		}
	}

	seen := make(map[string]bool, len(f.Trips))
	for _, r := range f.Trips {
		if seen[r.Id] {
			errs = append(errs, recordError("trip", r.Id, path, errors.New("duplicate id")))
			continue
		}
		t, err := toTrip(ds, r, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seen[r.Id] = true
		ds.Trips = append(ds.Trips, t)
	}

	return ds, errors.Join(errs...)
}

func addStops(ds *schedule.Dataset, recs []stopRecord, path string) []error {
	errs := make([]error, 0)
	parents := make(map[*schedule.Stop]string)

	for _, r := range recs {
		if err := validate.Struct(r); err != nil {
			errs = append(errs, recordError("stop", r.Id, path, err))
			continue
		}
		s := &schedule.Stop{Id: r.Id, Name: r.Name, Coord: schedule.Coord{Lat: r.Lat, Lon: r.Lon}}
		ds.Stops[r.Id] = s
		if len(r.Parent) > 0 {
			parents[s] = r.Parent
		}
	}

	// parents may be listed after their children
	for s, pid := range parents {
		p, ok := ds.Stops[pid]
		if !ok {
			errs = append(errs, recordError("stop", s.Id, path, fmt.Errorf("parent '%s': %w", pid, schedule.ErrUnknownStop)))
			continue
		}
		if isAncestor(s, p) {
			errs = append(errs, recordError("stop", s.Id, path, fmt.Errorf("parent '%s' forms a cycle", pid)))
			continue
		}
		s.Parent = p
	}

	return errs
}

// isAncestor checks whether s is p or one of its parents
func isAncestor(s *schedule.Stop, p *schedule.Stop) bool {
	for c := p; c != nil; c = c.Parent {
		if c == s {
			return true
		}
	}
	return false
}

func toVariant(r variantRecord, path string) (*schedule.Variant, error) {
	if err := validate.Struct(r); err != nil {
		return nil, err
	}

	issued, err := time.Parse(time.RFC3339, r.Issued)
	if err != nil {
		return nil, fmt.Errorf("issued: %w", err)
	}

	cal, err := calendar.Parse(r.Start, r.Days)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	return &schedule.Variant{
		Id:             r.Id,
		Key:            schedule.VariantKey{Carrier: r.Carrier, Core: r.Core, Year: r.Year},
		Issued:         issued,
		Calendar:       cal,
		IsCancellation: r.Cancellation,
		Origin:         path,
	}, nil
}

func toTrip(ds *schedule.Dataset, r tripRecord, path string) (*schedule.Trip, error) {
	t := &schedule.Trip{
		Id:         r.Id,
		Run:        r.Run,
		VariantId:  r.Variant,
		Trajectory: r.Trajectory,
		Origin:     path,
	}

	if err := validate.Struct(r); err != nil {
		return nil, schedule.TripError(t, err)
	}

	if len(r.StopTimes) == 0 {
		return nil, schedule.TripError(t, schedule.ErrEmptyStopSequence)
	}

	if len(r.Route) > 0 {
		route, ok := ds.Routes[r.Route]
		if !ok {
			return nil, schedule.TripError(t, fmt.Errorf("unknown route '%s'", r.Route))
		}
		t.Route = route
	}

	if len(r.Variant) == 0 {
		cal, err := calendar.Parse(r.Start, r.Days)
		if err != nil {
			return nil, schedule.TripError(t, err)
		}
		t.Calendar = cal
	}

	for i, st := range r.StopTimes {
		stop, ok := ds.Stops[st.Stop]
		if !ok {
			return nil, schedule.TripError(t, fmt.Errorf("stop time %d, stop '%s': %w", i, st.Stop, schedule.ErrUnknownStop))
		}

		arr, dep, err := parseStopTime(st)
		if err != nil {
			return nil, schedule.TripError(t, fmt.Errorf("stop time %d: %w", i, err))
		}

		t.StopTimes = append(t.StopTimes, schedule.StopTime{Stop: stop, Arrival: arr, Departure: dep})
	}

	return t, nil
}

func parseStopTime(st stopTimeRecord) (int, int, error) {
	if len(st.Arrival) == 0 && len(st.Departure) == 0 {
		return 0, 0, errors.New("neither arrival nor departure given")
	}

	arrival := st.Arrival
	if len(arrival) == 0 {
		arrival = st.Departure
	}
	departure := st.Departure
	if len(departure) == 0 {
		departure = st.Arrival
	}

	arr, err := ParseTime(arrival)
	if err != nil {
		return 0, 0, err
	}
	dep, err := ParseTime(departure)
	if err != nil {
		return 0, 0, err
	}
	if dep < arr {
		return 0, 0, fmt.Errorf("departure %s before arrival %s", departure, arrival)
	}

	return arr, dep, nil
}

// ParseTime parses a H:MM:SS time into seconds since midnight. Hours may
// exceed 23 for trips running past midnight.
func ParseTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS time, found '%s'", s)
	}

	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (i > 0 && (n > 59 || len(p) != 2)) {
			return 0, fmt.Errorf("expected HH:MM:SS time, found '%s'", s)
		}
		v[i] = n
	}

	return v[0]*3600 + v[1]*60 + v[2], nil
}

// FormatTime is the inverse of ParseTime
func FormatTime(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}

func recordError(unit string, id string, path string, err error) *schedule.UnitError {
	return &schedule.UnitError{Unit: unit, Id: id, Origin: path, Err: err}
}
