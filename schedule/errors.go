// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrInconsistentKey     = errors.New("inconsistent identity key")
	ErrEmptyStopSequence   = errors.New("empty stop sequence")
	ErrMalformedDescriptor = errors.New("malformed fragment descriptor")
	ErrMalformedGeometry   = errors.New("malformed fragment geometry")
	ErrUnknownStop         = errors.New("unknown stop")
	ErrUnknownVariant      = errors.New("unknown variant")
	ErrUnresolvedVariant   = errors.New("unresolved variant")
	ErrCancellationVariant = errors.New("cancellation variant referenced by trip")
)

// UnitError is a structural input error that aborts the processing of a
// single unit (a variant group, a trip or a fragment)
type UnitError struct {
	Unit   string
	Id     string
	Origin string
	Err    error
}

func (e *UnitError) Error() string {
	if len(e.Origin) > 0 {
		return fmt.Sprintf("%s '%s' (from %s): %s", e.Unit, e.Id, e.Origin, e.Err.Error())
	}
	return fmt.Sprintf("%s '%s': %s", e.Unit, e.Id, e.Err.Error())
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// GroupError returns a UnitError for a variant group
func GroupError(key VariantKey, origin string, err error) *UnitError {
	return &UnitError{Unit: "variant group", Id: key.String(), Origin: origin, Err: err}
}

// TripError returns a UnitError for a trip
func TripError(t *Trip, err error) *UnitError {
	return &UnitError{Unit: "trip", Id: t.Id, Origin: t.Origin, Err: err}
}

// FragmentError returns a UnitError for a shape fragment
func FragmentError(f *Fragment, err error) *UnitError {
	return &UnitError{Unit: "fragment", Id: f.Descriptor.String(), Origin: f.Source, Err: err}
}
