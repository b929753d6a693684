// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package schedule

import (
	"errors"
	"fmt"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"golang.org/x/exp/slices"
	"time"
)

// VariantKey is the identity key shared by all issued versions of one service
type VariantKey struct {
	Carrier string
	Core    string
	Year    int
}

func (k VariantKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Carrier, k.Core, k.Year)
}

// Variant is a single issued version of a service, either regular train
// data or a cancellation record. For a cancellation, an active day means the
// service is cancelled on that day.
type Variant struct {
	Id             string
	Key            VariantKey
	Issued         time.Time
	Calendar       calendar.Bitmap
	IsCancellation bool
	Origin         string

	// assigned by the owning group only
	statuses     []calendar.DayStatus
	supersededBy []string
	superseded   []string

	owner *VariantKey
	slot  int
}

// Resolved checks whether day statuses have been computed for v
func (v *Variant) Resolved() bool {
	return v.statuses != nil
}

// Statuses returns a copy of v's per-day statuses, aligned with v.Calendar
func (v *Variant) Statuses() []calendar.DayStatus {
	return append([]calendar.DayStatus(nil), v.statuses...)
}

// StatusOn returns the status of v on the day of t
func (v *Variant) StatusOn(t time.Time) calendar.DayStatus {
	i := calendar.DaysBetween(v.Calendar.Start(), t)
	if i < 0 || i >= len(v.statuses) {
		return calendar.Inactive
	}
	return v.statuses[i]
}

// SupersededBy returns the id of the variant that superseded v on the day
// of t, or the empty string
func (v *Variant) SupersededBy(t time.Time) string {
	i := calendar.DaysBetween(v.Calendar.Start(), t)
	if i < 0 || i >= len(v.supersededBy) {
		return ""
	}
	return v.supersededBy[i]
}

// Superseded returns the ids of all variants v directly superseded, in
// resolution order
func (v *Variant) Superseded() []string {
	return append([]string(nil), v.superseded...)
}

// EffectiveCalendar returns the days on which v is authoritative. Before
// resolution, this is v's own calendar.
func (v *Variant) EffectiveCalendar() calendar.Bitmap {
	if v.statuses == nil {
		return v.Calendar
	}
	return calendar.FromStatuses(v.Calendar.Start(), v.statuses, calendar.Active)
}

// Owner returns the key of the group v belongs to and v's slot in it
func (v *Variant) Owner() (VariantKey, int, bool) {
	if v.owner == nil {
		return VariantKey{}, -1, false
	}
	return *v.owner, v.slot, true
}

func (v *Variant) reset() {
	v.statuses = v.Calendar.Statuses()
	v.supersededBy = make([]string, len(v.statuses))
	v.superseded = nil
}

func (v *Variant) addSuperseded(id string) {
	for _, s := range v.superseded {
		if s == id {
			return
		}
	}
	v.superseded = append(v.superseded, id)
}

// VariantGroup owns all variants sharing one identity key
type VariantGroup struct {
	key     VariantKey
	members []*Variant
}

// NewVariantGroup returns an empty group for key
func NewVariantGroup(key VariantKey) *VariantGroup {
	return &VariantGroup{key: key, members: make([]*Variant, 0)}
}

// Key returns the group's identity key
func (g *VariantGroup) Key() VariantKey {
	return g.key
}

// Len returns the number of members
func (g *VariantGroup) Len() int {
	return len(g.members)
}

// Members returns the members in insertion order
func (g *VariantGroup) Members() []*Variant {
	return append([]*Variant(nil), g.members...)
}

// Get returns the member with the given id, or nil
func (g *VariantGroup) Get(id string) *Variant {
	for _, v := range g.members {
		if v.Id == id {
			return v
		}
	}
	return nil
}

// Add adds v to the group. v must carry the group's key and must not be
// owned by another group.
func (g *VariantGroup) Add(v *Variant) error {
	if v.Key != g.key {
		return GroupError(g.key, v.Origin, fmt.Errorf("variant '%s' has key %s: %w", v.Id, v.Key, ErrInconsistentKey))
	}

	if v.owner != nil {
		return GroupError(g.key, v.Origin, fmt.Errorf("variant '%s' already belongs to group %s", v.Id, *v.owner))
	}

	if g.Get(v.Id) != nil {
		return GroupError(g.key, v.Origin, fmt.Errorf("duplicate variant id '%s'", v.Id))
	}

	key := g.key
	v.owner = &key
	v.slot = len(g.members)
	g.members = append(g.members, v)
	return nil
}

// Remove removes the member with the given id. The statuses of the
// remaining members are stale until the next Resolve.
func (g *VariantGroup) Remove(id string) bool {
	for i, v := range g.members {
		if v.Id != id {
			continue
		}

		g.members = append(g.members[:i], g.members[i+1:]...)
		v.owner = nil
		v.slot = -1

		for j := i; j < len(g.members); j++ {
			g.members[j].slot = j
		}
		return true
	}
	return false
}

// Resolve computes the per-day status of every member from the current
// membership. Members are ordered by issue time (stable), and every
// nominally active day of a non-cancellation variant that is also active in
// a later-issued variant is marked superseded by it. If the same day is
// active in several later variants, the latest one is recorded.
func (g *VariantGroup) Resolve() error {
	var errs []error
	for _, v := range g.members {
		if v.Key != g.key {
			errs = append(errs, fmt.Errorf("variant '%s' has key %s: %w", v.Id, v.Key, ErrInconsistentKey))
		}
	}
	if len(errs) > 0 {
		return GroupError(g.key, "", errors.Join(errs...))
	}

	sorted := g.Members()
	slices.SortStableFunc(sorted, func(a, b *Variant) int {
		return a.Issued.Compare(b.Issued)
	})

	for _, v := range sorted {
		v.reset()
	}

	for i, a := range sorted {
		// cancellations are never superseded
		if a.IsCancellation {
			continue
		}
		for _, b := range sorted[i+1:] {
			marked := calendar.OverlayActive(a.Calendar, a.statuses, b.Calendar, calendar.Superseded)
			if len(marked) == 0 {
				continue
			}
			for _, d := range marked {
				a.supersededBy[d] = b.Id
			}
			b.addSuperseded(a.Id)
		}
	}

	return nil
}
