// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"fmt"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"os"
)

// ShapeMinimizer minimizes assembled trip paths. Epsilon is in meters.
type ShapeMinimizer struct {
	Epsilon float64
}

func (sm ShapeMinimizer) Name() string { return "minimize_shapes" }

// Run this ShapeMinimizer on some dataset
func (sm ShapeMinimizer) Run(ds *schedule.Dataset, sink *diagnostics.Sink) error {
	fmt.Fprintf(os.Stdout, "Minimizing shapes... ")

	chunks := chunk(ds.Trips, MaxParallelism())
	chunkgain := make([]int, len(chunks))
	chunknum := make([]int, len(chunks))

	sem := make(chan empty, len(chunks))
	for i, c := range chunks {
		go func(chunk []*schedule.Trip, a int) {
			for _, t := range chunk {
				if len(t.Path) < 3 {
					continue
				}
				bef := len(t.Path)
				chunknum[a] += len(t.Path)
				t.Path = sm.minimizeShape(t.Path, sm.Epsilon)
				chunkgain[a] += bef - len(t.Path)
			}
			sem <- empty{}
		}(c, i)
	}

	// wait for goroutines to finish
	for i := 0; i < len(chunks); i++ {
		<-sem
	}

	n := 0
	orign := 0
	for _, g := range chunkgain {
		n = n + g
	}
	for _, g := range chunknum {
		orign = orign + g
	}
	fmt.Fprintf(os.Stdout, "done. (-%d shape points [-%.2f%%])\n",
		n,
		100.0*float64(n)/(float64(orign)+0.001))

	return nil
}

// Minimize a single path using the Douglas-Peucker algorithm
func (sm *ShapeMinimizer) minimizeShape(points []schedule.Coord, e float64) []schedule.Coord {
	if len(points) < 3 {
		return append([]schedule.Coord(nil), points...)
	}

	var maxD float64
	var maxI int

	// reproject to web mercator to be on euclidean plane
	lax, lay := latLngToWebMerc(points[0].Lat, points[0].Lon)
	lbx, lby := latLngToWebMerc(points[len(points)-1].Lat, points[len(points)-1].Lon)

	for i := 1; i < len(points)-1; i++ {
		px, py := latLngToWebMerc(points[i].Lat, points[i].Lon)

		d := perpendicularDist(px, py, lax, lay, lbx, lby)
		if d > maxD {
			maxI = i
			maxD = d
		}
	}

	if maxD > e {
		retA := sm.minimizeShape(points[:maxI+1], e)
		retB := sm.minimizeShape(points[maxI:], e)

		return append(retA[:len(retA)-1], retB...)
	}

	return []schedule.Coord{points[0], points[len(points)-1]}
}
