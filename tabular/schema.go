// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package tabular maps records to CSV rows through explicit column tables.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/exp/slices"
)

// Column describes one output column of a record type T
type Column[T any] struct {
	Name    string
	Order   int
	Format  func(T) string
	Default string
}

// Schema is an ordered, immutable set of columns
type Schema[T any] struct {
	cols []Column[T]
}

// NewSchema orders cols by their Order field (stable for equal orders) and
// checks that column names are unique and every column has a formatter
func NewSchema[T any](cols ...Column[T]) (*Schema[T], error) {
	sorted := append([]Column[T](nil), cols...)
	slices.SortStableFunc(sorted, func(a, b Column[T]) int {
		return a.Order - b.Order
	})

	seen := make(map[string]bool, len(sorted))
	for _, c := range sorted {
		if len(c.Name) == 0 {
			return nil, fmt.Errorf("column without name")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column '%s'", c.Name)
		}
		if c.Format == nil {
			return nil, fmt.Errorf("column '%s' has no formatter", c.Name)
		}
		seen[c.Name] = true
	}

	return &Schema[T]{cols: sorted}, nil
}

// MustSchema is like NewSchema but panics on an invalid column table
func MustSchema[T any](cols ...Column[T]) *Schema[T] {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Header returns the column names in output order
func (s *Schema[T]) Header() []string {
	ret := make([]string, len(s.cols))
	for i, c := range s.cols {
		ret[i] = c.Name
	}
	return ret
}

// Row formats v, using the column default for empty values
func (s *Schema[T]) Row(v T) []string {
	ret := make([]string, len(s.cols))
	for i, c := range s.cols {
		ret[i] = c.Format(v)
		if len(ret[i]) == 0 {
			ret[i] = c.Default
		}
	}
	return ret
}

// Write writes a header line and one line per record to w
func (s *Schema[T]) Write(w io.Writer, records []T) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(s.Header()); err != nil {
		return err
	}

	for _, r := range records {
		if err := cw.Write(s.Row(r)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Float formats f with the given number of decimals
func Float(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// Bool formats b as 1 or 0
func Bool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
