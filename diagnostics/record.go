// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package diagnostics collects every resolved data conflict of a
// reconciliation run and renders them as a grouped report.
package diagnostics

import (
	"fmt"
	"strings"
)

// Kind is the type of a resolved conflict
type Kind uint8

const (
	Duplicate Kind = iota
	Missing
	PartiallyMissing
	Unconnected
	Merged
	SuspiciousComparison

	numKinds = iota
)

// Kinds lists all record kinds in report order
var Kinds = []Kind{Duplicate, Missing, PartiallyMissing, Unconnected, Merged, SuspiciousComparison}

func (k Kind) String() string {
	switch k {
	case Duplicate:
		return "duplicate"
	case Missing:
		return "missing"
	case PartiallyMissing:
		return "partially_missing"
	case Unconnected:
		return "unconnected"
	case Merged:
		return "merged"
	case SuspiciousComparison:
		return "suspicious_comparison"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Record is a single diagnostic event
type Record struct {
	Kind       Kind
	Descriptor string

	// the referring trip, or the resulting trip of a merge
	Trip string

	// connection gap in meters
	Distance float64

	// calendars of ignored duplicate fragments
	Calendars []string

	First          string
	Second         string
	Classification string
}

// NewDuplicate reports fragments of descriptor that were ignored in favor of
// the first occurrence
func NewDuplicate(descriptor string, calendarsIgnored ...string) Record {
	return Record{Kind: Duplicate, Descriptor: descriptor, Calendars: calendarsIgnored}
}

// NewMissing reports a descriptor without any fragment
func NewMissing(descriptor string, trip string) Record {
	return Record{Kind: Missing, Descriptor: descriptor, Trip: trip}
}

// NewPartiallyMissing reports a descriptor without a fragment matching the
// requested calendar
func NewPartiallyMissing(descriptor string, trip string) Record {
	return Record{Kind: PartiallyMissing, Descriptor: descriptor, Trip: trip}
}

// NewUnconnected reports a gap of dist meters before the fragment of descriptor
func NewUnconnected(descriptor string, dist float64, trip string) Record {
	return Record{Kind: Unconnected, Descriptor: descriptor, Distance: dist, Trip: trip}
}

// NewMerged reports that first and second were merged into result
func NewMerged(result string, first string, second string) Record {
	return Record{Kind: Merged, Trip: result, First: first, Second: second}
}

// NewSuspicious reports a trip pair whose classification hints at an input error
func NewSuspicious(first string, second string, classification string) Record {
	return Record{Kind: SuspiciousComparison, First: first, Second: second, Classification: classification}
}

// Key returns the grouping key of r
func (r Record) Key() string {
	switch r.Kind {
	case Merged:
		return r.Trip
	case SuspiciousComparison:
		return r.First + "|" + r.Second
	default:
		return r.Descriptor
	}
}

// sortKey orders records inside a group
func (r Record) sortKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%020.3f\x00%s", r.Trip, r.First, r.Second, r.Distance, strings.Join(r.Calendars, " "))
}

func (r Record) String() string {
	switch r.Kind {
	case Duplicate:
		return fmt.Sprintf("duplicate fragment %s, ignored calendars [%s]", r.Descriptor, strings.Join(r.Calendars, ", "))
	case Missing:
		return fmt.Sprintf("missing fragment %s for trip %s", r.Descriptor, r.Trip)
	case PartiallyMissing:
		return fmt.Sprintf("partially missing fragment %s for trip %s", r.Descriptor, r.Trip)
	case Unconnected:
		return fmt.Sprintf("unconnected fragment %s for trip %s (%.2f m)", r.Descriptor, r.Trip, r.Distance)
	case Merged:
		return fmt.Sprintf("merged trips %s and %s into %s", r.First, r.Second, r.Trip)
	case SuspiciousComparison:
		return fmt.Sprintf("suspicious trips %s and %s: %s", r.First, r.Second, r.Classification)
	}
	return r.Kind.String()
}
