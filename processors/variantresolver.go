// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"errors"
	"fmt"
	"github.com/patrickbr/gtfsreconcile/calendar"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"os"
)

// VariantResolver computes the day statuses of all variant groups. Groups
// are independent and resolved in parallel chunks, a failing group does
// not affect the others.
type VariantResolver struct {
	Sequential bool
}

func (vr VariantResolver) Name() string { return "resolve_variants" }

// Run this VariantResolver on some dataset
func (vr VariantResolver) Run(ds *schedule.Dataset, sink *diagnostics.Sink) error {
	fmt.Fprintf(os.Stdout, "Resolving variant calendars... ")

	numchunks := MaxParallelism()
	if vr.Sequential {
		numchunks = 1
	}

	chunks := chunk(ds.Groups, numchunks)
	chunkerrs := make([][]error, len(chunks))
	chunksup := make([]int, len(chunks))

	sem := make(chan empty, len(chunks))
	for i, c := range chunks {
		go func(chunk []*schedule.VariantGroup, a int) {
			for _, g := range chunk {
				if err := g.Resolve(); err != nil {
					chunkerrs[a] = append(chunkerrs[a], err)
					continue
				}
				for _, v := range g.Members() {
					chunksup[a] += calendar.FromStatuses(v.Calendar.Start(), v.Statuses(), calendar.Superseded).ActiveCount()
				}
			}
			sem <- empty{}
		}(c, i)
	}

	// wait for goroutines to finish
	for i := 0; i < len(chunks); i++ {
		<-sem
	}

	var errs []error
	superseded := 0
	for i := range chunks {
		errs = append(errs, chunkerrs[i]...)
		superseded += chunksup[i]
	}

	fmt.Fprintf(os.Stdout, "done. (%d groups, %d superseded variant days, %d failed)\n", len(ds.Groups), superseded, len(errs))

	return errors.Join(errs...)
}
