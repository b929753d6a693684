// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"errors"
	"fmt"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"os"
)

// CalendarAssigner sets the final calendar of every trip that references a
// variant to the days on which that variant is authoritative. Trips without
// a variant keep their own calendar. Trips that cannot be assigned are
// removed from the dataset.
type CalendarAssigner struct {
	DropEmpty bool
}

func (ca CalendarAssigner) Name() string { return "assign_calendars" }

// Run this CalendarAssigner on some dataset
func (ca CalendarAssigner) Run(ds *schedule.Dataset, sink *diagnostics.Sink) error {
	fmt.Fprintf(os.Stdout, "Assigning trip calendars... ")

	variants := make(map[string]*schedule.Variant)
	for _, g := range ds.Groups {
		for _, v := range g.Members() {
			variants[v.Id] = v
		}
	}

	var errs []error
	failed := make(map[string]bool)
	assigned := 0
	unserved := 0

	for _, t := range ds.Trips {
		if len(t.VariantId) == 0 {
			continue
		}

		v, ok := variants[t.VariantId]
		if !ok {
			errs = append(errs, schedule.TripError(t, fmt.Errorf("'%s': %w", t.VariantId, schedule.ErrUnknownVariant)))
			failed[t.Id] = true
			continue
		}

		if v.IsCancellation {
			errs = append(errs, schedule.TripError(t, fmt.Errorf("'%s': %w", v.Id, schedule.ErrCancellationVariant)))
			failed[t.Id] = true
			continue
		}

		if !v.Resolved() {
			errs = append(errs, schedule.TripError(t, fmt.Errorf("'%s': %w", v.Id, schedule.ErrUnresolvedVariant)))
			failed[t.Id] = true
			continue
		}

		t.Calendar = v.EffectiveCalendar()
		assigned++

		if t.Calendar.IsEmpty() {
			unserved++
			if ca.DropEmpty {
				failed[t.Id] = true
			}
		}
	}

	ds.Trips = dropTrips(ds.Trips, failed)

	fmt.Fprintf(os.Stdout, "done. (%d assigned, %d fully superseded, -%d trips)\n", assigned, unserved, len(failed))

	return errors.Join(errs...)
}
