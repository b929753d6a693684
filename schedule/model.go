// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package schedule

import (
	"fmt"
	"github.com/patrickbr/gtfsreconcile/calendar"
)

// Coord is a WGS84 position
type Coord struct {
	Lat float64
	Lon float64
}

// Stop is a stop or station of the stop registry
type Stop struct {
	Id     string
	Name   string
	Coord  Coord
	Parent *Stop
}

// Route is an entry of the route registry
type Route struct {
	Id   string
	Name string
	Type int16
}

// StopTime is a single call of a trip, times in seconds since midnight
type StopTime struct {
	Stop      *Stop
	Arrival   int
	Departure int
}

// Trip is a scheduled run on a route
type Trip struct {
	Id         string
	Route      *Route
	Run        string
	VariantId  string
	Trajectory string
	StopTimes  []StopTime
	Calendar   calendar.Bitmap
	Origin     string

	// set during shape assembly
	Path     []Coord
	Degraded bool
}

// Descriptors returns the fragment descriptor of every stop-to-stop segment
func (t *Trip) Descriptors() []Descriptor {
	if len(t.StopTimes) < 2 {
		return nil
	}

	ret := make([]Descriptor, len(t.StopTimes)-1)
	for i := 1; i < len(t.StopTimes); i++ {
		ret[i-1] = Descriptor{From: t.StopTimes[i-1].Stop.Id, To: t.StopTimes[i].Stop.Id, Variant: t.Trajectory}
	}
	return ret
}

// Clone returns a copy of t that shares no slices with it
func (t *Trip) Clone() *Trip {
	c := *t
	c.StopTimes = append([]StopTime(nil), t.StopTimes...)
	if t.Path != nil {
		c.Path = append([]Coord(nil), t.Path...)
	}
	return &c
}

// Descriptor identifies the directed path between two stops for one
// trajectory variant
type Descriptor struct {
	From    string
	To      string
	Variant string
}

func (d Descriptor) String() string {
	if len(d.Variant) == 0 {
		return fmt.Sprintf("%s>%s", d.From, d.To)
	}
	return fmt.Sprintf("%s>%s#%s", d.From, d.To, d.Variant)
}

// Valid checks whether both ends of the descriptor are named
func (d Descriptor) Valid() bool {
	return len(d.From) > 0 && len(d.To) > 0
}

// Fragment is the geometry of one descriptor, valid on Calendar
type Fragment struct {
	Descriptor Descriptor
	Points     []Coord
	Calendar   calendar.Bitmap
	Source     string
}

// Dataset is the complete, in-memory input of a reconciliation run
type Dataset struct {
	Stops     map[string]*Stop
	Routes    map[string]*Route
	Groups    []*VariantGroup
	Trips     []*Trip
	Fragments []*Fragment
}

// NewDataset returns an empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		Stops:     make(map[string]*Stop),
		Routes:    make(map[string]*Route),
		Groups:    make([]*VariantGroup, 0),
		Trips:     make([]*Trip, 0),
		Fragments: make([]*Fragment, 0),
	}
}

// Variant returns the variant with id, searching all groups
func (ds *Dataset) Variant(id string) *Variant {
	for _, g := range ds.Groups {
		if v := g.Get(id); v != nil {
			return v
		}
	}
	return nil
}

// Group returns the group for key, creating it if necessary
func (ds *Dataset) Group(key VariantKey) *VariantGroup {
	for _, g := range ds.Groups {
		if g.Key() == key {
			return g
		}
	}
	g := NewVariantGroup(key)
	ds.Groups = append(ds.Groups, g)
	return g
}
