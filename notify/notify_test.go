// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanNotifier(t *testing.T) {
	n := NewChanNotifier(1)

	n.Notify(Progress{Stage: "a", Done: 1, Total: 2})

	// full buffer, dropped without blocking
	n.Notify(Progress{Stage: "b", Done: 2, Total: 2})

	require.Len(t, n.C, 1)
	p := <-n.C
	assert.Equal(t, "a", p.Stage)
}

func TestMulti(t *testing.T) {
	a := NewChanNotifier(4)
	b := NewChanNotifier(4)

	m := Multi{a, nil, Nop{}, b}
	m.Notify(Progress{Stage: "x"})

	assert.Len(t, a.C, 1)
	assert.Len(t, b.C, 1)
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name     string
		progress Progress
		expected string
	}{
		{"plain", Progress{Run: "r1", Stage: "merge_trips"}, "reconcile.r1.merge_trips"},
		{"wildcards", Progress{Run: "a.b", Stage: "x > y*"}, "reconcile.a_b.x___y_"},
		{"empty", Progress{}, "reconcile._._"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Subject("reconcile", tt.progress))
		})
	}
}
