// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package diagnostics

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/patrickbr/gtfsreconcile/logging"
	"github.com/patrickbr/gtfsreconcile/tabular"
)

// Row is one line of the diagnostics report
type Row struct {
	Group  Group
	Record Record
}

var reportSchema = tabular.MustSchema(
	tabular.Column[Row]{Name: "kind", Order: 0, Format: func(r Row) string { return r.Record.Kind.String() }},
	tabular.Column[Row]{Name: "key", Order: 1, Format: func(r Row) string { return r.Group.Key }},
	tabular.Column[Row]{Name: "count", Order: 2, Format: func(r Row) string { return strconv.Itoa(r.Group.Count()) }},
	tabular.Column[Row]{Name: "descriptor", Order: 3, Format: func(r Row) string { return r.Record.Descriptor }},
	tabular.Column[Row]{Name: "trip", Order: 4, Format: func(r Row) string { return r.Record.Trip }},
	tabular.Column[Row]{Name: "distance_m", Order: 5, Format: func(r Row) string {
		if r.Record.Kind != Unconnected {
			return ""
		}
		return tabular.Float(r.Record.Distance, 2)
	}},
	tabular.Column[Row]{Name: "calendars_ignored", Order: 6, Format: func(r Row) string { return strings.Join(r.Record.Calendars, " ") }},
	tabular.Column[Row]{Name: "first", Order: 7, Format: func(r Row) string { return r.Record.First }},
	tabular.Column[Row]{Name: "second", Order: 8, Format: func(r Row) string { return r.Record.Second }},
	tabular.Column[Row]{Name: "classification", Order: 9, Format: func(r Row) string { return r.Record.Classification }},
)

// Rows flattens the report into one row per record
func (s *Sink) Rows() []Row {
	ret := make([]Row, 0)
	for _, g := range s.Report() {
		for _, r := range g.Records {
			ret = append(ret, Row{Group: g, Record: r})
		}
	}
	return ret
}

// WriteCSV writes the grouped report as CSV to w
func (s *Sink) WriteCSV(w io.Writer) error {
	return reportSchema.Write(w, s.Rows())
}

// LogSummary logs the number of records per kind and the top groups of the
// report
func (s *Sink) LogSummary(logger *slog.Logger, top int) {
	attrs := make([]slog.Attr, 0, len(Kinds))
	for _, k := range Kinds {
		attrs = append(attrs, slog.Int(k.String(), s.Count(k)))
	}
	logging.LogOperation(logger, "diagnostics summary", attrs...)

	for i, g := range s.Report() {
		if i >= top {
			break
		}
		logging.LogOperation(logger, "diagnostics group",
			slog.String("kind", g.Kind.String()),
			slog.String("key", g.Key),
			slog.Int("count", g.Count()),
			slog.String("example", g.Records[0].String()))
	}
}
