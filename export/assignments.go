// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package export

import (
	"io"
	"strconv"

	"github.com/patrickbr/gtfsreconcile/tabular"
)

var assignmentSchema = tabular.MustSchema(
	tabular.Column[Assignment]{Name: "trip_id", Order: 0, Format: func(a Assignment) string { return a.Trip.Id }},
	tabular.Column[Assignment]{Name: "route_id", Order: 1, Format: func(a Assignment) string {
		if a.Trip.Route == nil {
			return ""
		}
		return a.Trip.Route.Id
	}},
	tabular.Column[Assignment]{Name: "run", Order: 2, Format: func(a Assignment) string { return a.Trip.Run }},
	tabular.Column[Assignment]{Name: "service_id", Order: 3, Format: func(a Assignment) string { return a.Service }},
	tabular.Column[Assignment]{Name: "shape_id", Order: 4, Format: func(a Assignment) string { return a.Shape }},
	tabular.Column[Assignment]{Name: "active_days", Order: 5, Format: func(a Assignment) string { return strconv.Itoa(a.Trip.Calendar.ActiveCount()) }},
	tabular.Column[Assignment]{Name: "degraded", Order: 6, Format: func(a Assignment) string { return tabular.Bool(a.Trip.Degraded) }},
)

// WriteAssignments writes the trip assignment table as CSV to w
func (r *Result) WriteAssignments(w io.Writer) error {
	return assignmentSchema.Write(w, r.Assignments)
}
