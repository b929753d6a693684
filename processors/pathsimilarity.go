// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

import (
	"github.com/patrickbr/gtfsreconcile/schedule"
	"math"
)

// SimilarPaths checks whether paths a and b are within maxD meters of each
// other in both directions. With maxD <= 0, the paths must be equal.
func SimilarPaths(a []schedule.Coord, b []schedule.Coord, maxD float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}

	if maxD <= 0 {
		return pathsEqual(a, b)
	}

	am := toMerc(a)
	bm := toMerc(b)

	return inDistanceToPath(maxD, am, bm) && inDistanceToPath(maxD, bm, am)
}

type mercPoint struct {
	x, y float64
}

func toMerc(path []schedule.Coord) []mercPoint {
	ret := make([]mercPoint, len(path))
	for i, c := range path {
		ret[i].x, ret[i].y = latLngToWebMerc(c.Lat, c.Lon)
	}
	return ret
}

func pathsEqual(a []schedule.Coord, b []schedule.Coord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// True if path a is in distance maxD to path b
func inDistanceToPath(maxD float64, a []mercPoint, b []mercPoint) bool {
	step := 10.0
	lastI := 0

	if dist(a[0].x, a[0].y, b[0].x, b[0].y) > maxD {
		return false
	}

	if dist(a[len(a)-1].x, a[len(a)-1].y, b[len(b)-1].x, b[len(b)-1].y) > maxD {
		return false
	}

	if len(b) == 1 {
		for _, p := range a {
			if dist(p.x, p.y, b[0].x, b[0].y) > maxD {
				return false
			}
		}
		return true
	}

	for i := 1; i < len(a); i++ {
		d := dist(a[i-1].x, a[i-1].y, a[i].x, a[i].y)

		for curD := 0.0; curD < d; curD = curD + step {
			p := interpolateMerc(curD, a[i-1], a[i], d)
			var curDistance float64
			lastI, curDistance = distPointToPath(p, b, lastI-1)
			if curDistance > maxD {
				return false
			}
		}
	}

	_, last := distPointToPath(a[len(a)-1], b, lastI-1)

	return last <= maxD
}

// Heuristic distance from point p to a path. Starts checking at anchor point s in path. Because we are only
// looking at surrounding segments, this check underestimates the real distance but should work fine for
// distances in nearly equal paths.
func distPointToPath(p mercPoint, path []mercPoint, s int) (int, float64) {
	minDist := math.Inf(1)
	if s < 0 {
		s = 0
	}

	minInd := s
	maxSearchRad := 20

	for i := imax(0, s-maxSearchRad) + 1; i < s+maxSearchRad && i < len(path); i++ {
		dist := perpendicularDist(p.x, p.y, path[i-1].x, path[i-1].y, path[i].x, path[i].y)
		if dist < minDist {
			minInd = i - 1
			minDist = dist
		}
	}

	return minInd, minDist
}

// Interpolate between a and b at distance d, where l is the length of [a, b]
func interpolateMerc(d float64, a mercPoint, b mercPoint, l float64) mercPoint {
	if l == 0 {
		return a
	}
	return mercPoint{a.x + ((b.x-a.x)/l)*d, a.y + ((b.y-a.y)/l)*d}
}
