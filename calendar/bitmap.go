// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout used for calendar start dates
const DateLayout = "20060102"

// Bitmap is an immutable, day-indexed validity calendar covering the
// closed-open date range [start, start+len).
type Bitmap struct {
	start time.Time
	bits  []bool
}

// Date truncates t to its calendar day in UTC
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of whole days from a to b
func DaysBetween(a time.Time, b time.Time) int {
	return int((Date(b).Unix() - Date(a).Unix()) / 86400)
}

// New returns a bitmap starting at start with a copy of bits
func New(start time.Time, bits []bool) Bitmap {
	cp := make([]bool, len(bits))
	copy(cp, bits)
	return Bitmap{start: Date(start), bits: cp}
}

// FromRange returns a bitmap spanning [first, last] (inclusive). If weekdays
// are given, only those weekdays are active, otherwise every day is.
func FromRange(first time.Time, last time.Time, weekdays ...time.Weekday) Bitmap {
	first = Date(first)
	n := DaysBetween(first, last) + 1
	if n < 0 {
		n = 0
	}

	wd := make(map[time.Weekday]bool, len(weekdays))
	for _, w := range weekdays {
		wd[w] = true
	}

	bits := make([]bool, n)
	for i := range bits {
		bits[i] = len(wd) == 0 || wd[first.AddDate(0, 0, i).Weekday()]
	}

	return Bitmap{start: first, bits: bits}
}

// FromDates returns the smallest bitmap on which exactly dates are active
func FromDates(dates ...time.Time) Bitmap {
	if len(dates) == 0 {
		return Bitmap{}
	}

	first := Date(dates[0])
	last := first
	for _, d := range dates[1:] {
		d = Date(d)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	bits := make([]bool, DaysBetween(first, last)+1)
	for _, d := range dates {
		bits[DaysBetween(first, d)] = true
	}

	return Bitmap{start: first, bits: bits}
}

// FromStatuses returns a bitmap starting at start that is active exactly
// on the days whose status equals want
func FromStatuses(start time.Time, statuses []DayStatus, want DayStatus) Bitmap {
	bits := make([]bool, len(statuses))
	for i, s := range statuses {
		bits[i] = s == want
	}
	return Bitmap{start: Date(start), bits: bits}
}

// Parse reads a bitmap from a YYYYMMDD start date and a string of '0'/'1' day flags
func Parse(start string, days string) (Bitmap, error) {
	if len(start) == 0 {
		if len(days) > 0 {
			return Bitmap{}, errors.New("day flags without start date")
		}
		return Bitmap{}, nil
	}

	t, err := time.Parse(DateLayout, start)
	if err != nil {
		return Bitmap{}, fmt.Errorf("expected YYYYMMDD date, found '%s': %w", start, err)
	}

	bits := make([]bool, len(days))
	for i, c := range days {
		switch c {
		case '1':
			bits[i] = true
		case '0':
		default:
			return Bitmap{}, fmt.Errorf("invalid day flag '%c' at position %d", c, i)
		}
	}

	return Bitmap{start: Date(t), bits: bits}, nil
}

// Start returns the first day of the covered range
func (b Bitmap) Start() time.Time { return b.start }

// End returns the first day after the covered range
func (b Bitmap) End() time.Time { return b.start.AddDate(0, 0, len(b.bits)) }

// Len returns the number of days covered
func (b Bitmap) Len() int { return len(b.bits) }

// At returns the flag of day i relative to the start. Days outside the
// range are inactive.
func (b Bitmap) At(i int) bool {
	if i < 0 || i >= len(b.bits) {
		return false
	}
	return b.bits[i]
}

// IsActiveOn checks whether the bitmap is active on the day of t
func (b Bitmap) IsActiveOn(t time.Time) bool {
	return b.At(DaysBetween(b.start, t))
}

// ActiveCount returns the number of active days
func (b Bitmap) ActiveCount() int {
	n := 0
	for _, v := range b.bits {
		if v {
			n++
		}
	}
	return n
}

// IsEmpty is true if no day is active
func (b Bitmap) IsEmpty() bool {
	return b.ActiveCount() == 0
}

// FirstActive returns the first active day
func (b Bitmap) FirstActive() (time.Time, bool) {
	for i, v := range b.bits {
		if v {
			return b.start.AddDate(0, 0, i), true
		}
	}
	return time.Time{}, false
}

// LastActive returns the last active day
func (b Bitmap) LastActive() (time.Time, bool) {
	for i := len(b.bits) - 1; i >= 0; i-- {
		if b.bits[i] {
			return b.start.AddDate(0, 0, i), true
		}
	}
	return time.Time{}, false
}

// ActiveDates returns all active days in ascending order
func (b Bitmap) ActiveDates() []time.Time {
	ret := make([]time.Time, 0)
	for i, v := range b.bits {
		if v {
			ret = append(ret, b.start.AddDate(0, 0, i))
		}
	}
	return ret
}

// Statuses returns a per-day status slice aligned with the bitmap
func (b Bitmap) Statuses() []DayStatus {
	ret := make([]DayStatus, len(b.bits))
	for i, v := range b.bits {
		if v {
			ret[i] = Active
		}
	}
	return ret
}

// Equals compares by exact content: same start and same flags. Two bitmaps
// describing the same active days from different starts are not equal.
func (b Bitmap) Equals(o Bitmap) bool {
	if len(b.bits) != len(o.bits) {
		return false
	}
	if len(b.bits) > 0 && !b.start.Equal(o.start) {
		return false
	}
	for i := range b.bits {
		if b.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}

// SameDays checks whether both bitmaps are active on exactly the same days
func (b Bitmap) SameDays(o Bitmap) bool {
	if b.ActiveCount() != o.ActiveCount() {
		return false
	}
	return b.Covers(o)
}

// Covers is true if b is active on every day o is active on
func (b Bitmap) Covers(o Bitmap) bool {
	off := AlignOffset(b, o)
	for i, v := range o.bits {
		if v && !b.At(i+off) {
			return false
		}
	}
	return true
}

// String returns "YYYYMMDD:<flags>", or "-" for an empty range
func (b Bitmap) String() string {
	if len(b.bits) == 0 {
		return "-"
	}

	var sb strings.Builder
	sb.Grow(len(DateLayout) + 1 + len(b.bits))
	sb.WriteString(b.start.Format(DateLayout))
	sb.WriteByte(':')
	for _, v := range b.bits {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
