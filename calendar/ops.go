// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package calendar

// DayStatus classifies a single day of a schedule variant
type DayStatus uint8

const (
	Inactive DayStatus = iota
	Active
	Superseded
)

func (s DayStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Superseded:
		return "superseded"
	default:
		return "inactive"
	}
}

// AlignOffset returns the signed day difference between b's start and a's
// start. Day i of a is day i-AlignOffset(a, b) of b.
func AlignOffset(a Bitmap, b Bitmap) int {
	return DaysBetween(a.start, b.start)
}

// OverlayActive marks every day of a that is nominally active in a and
// active on the aligned day of b with mark. statuses must be aligned with a.
// Days outside b's range never affect a. Returns the marked day indices.
func OverlayActive(a Bitmap, statuses []DayStatus, b Bitmap, mark DayStatus) []int {
	var ret []int
	off := AlignOffset(a, b)

	// only the common range can match
	from := imax(0, off)
	to := imin(imin(len(a.bits), len(statuses)), off+len(b.bits))

	for i := from; i < to; i++ {
		if statuses[i] == Inactive || !a.bits[i] {
			continue
		}
		if b.bits[i-off] {
			statuses[i] = mark
			ret = append(ret, i)
		}
	}

	return ret
}

// Union returns a bitmap spanning both ranges that is active where a or b is
func Union(a Bitmap, b Bitmap) Bitmap {
	if len(a.bits) == 0 {
		return New(b.start, b.bits)
	}
	if len(b.bits) == 0 {
		return New(a.start, a.bits)
	}

	start := a.start
	if b.start.Before(start) {
		start = b.start
	}
	end := a.End()
	if b.End().After(end) {
		end = b.End()
	}

	bits := make([]bool, DaysBetween(start, end))
	offA := DaysBetween(start, a.start)
	offB := DaysBetween(start, b.start)

	for i, v := range a.bits {
		bits[i+offA] = v
	}
	for i, v := range b.bits {
		if v {
			bits[i+offB] = true
		}
	}

	return Bitmap{start: start, bits: bits}
}

// Overlap returns the number of days active in both a and b
func Overlap(a Bitmap, b Bitmap) int {
	off := AlignOffset(a, b)
	n := 0
	for i := imax(0, off); i < len(a.bits) && i-off < len(b.bits); i++ {
		if a.bits[i] && b.bits[i-off] {
			n++
		}
	}
	return n
}

// IsDisjoint is true iff no day is active in both a and b
func IsDisjoint(a Bitmap, b Bitmap) bool {
	return Overlap(a, b) == 0
}

func imax(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func imin(x, y int) int {
	if x < y {
		return x
	}
	return y
}
