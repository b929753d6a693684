// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"runtime"
)

// Processor is a single reconciliation stage. Resolved conflicts go to the
// sink, structural errors of single units are returned joined after all
// other units have been processed.
type Processor interface {
	Run(*schedule.Dataset, *diagnostics.Sink) error
}

// Named is implemented by processors that report a stage name
type Named interface {
	Name() string
}

type empty struct{}

func MaxParallelism() int {
	maxProcs := runtime.GOMAXPROCS(0)
	numCPU := runtime.NumCPU()
	if maxProcs < numCPU {
		return maxProcs
	}
	return numCPU
}

// chunk splits items into at most n consecutive chunks of nearly equal size
func chunk[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}

	chunksize := (len(items) + n - 1) / n
	ret := make([][]T, 0, n)

	for i := 0; i < len(items); i += chunksize {
		ret = append(ret, items[i:imin(i+chunksize, len(items))])
	}

	return ret
}
