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

var DEG_TO_RAD float64 = 0.017453292519943295769236907684886127134428718885417254560

// Convert latitude/longitude to web mercator coordinates
func latLngToWebMerc(lat float64, lng float64) (float64, float64) {
	x := 6378137.0 * lng * DEG_TO_RAD
	a := lat * DEG_TO_RAD

	return x, 3189068.5 * math.Log((1.0+math.Sin(a))/(1.0-math.Sin(a)))
}

// Calculate the perpendicular distance from points p to line segment [a, b]
func perpendicularDist(px, py, lax, lay, lbx, lby float64) float64 {
	d := dist(lax, lay, lbx, lby) * dist(lax, lay, lbx, lby)

	if d == 0 {
		return dist(px, py, lax, lay)
	}
	t := float64((px-lax)*(lbx-lax)+(py-lay)*(lby-lay)) / d
	if t < 0 {
		return dist(px, py, lax, lay)
	} else if t > 1 {
		return dist(px, py, lbx, lby)
	}

	return dist(px, py, lax+t*(lbx-lax), lay+t*(lby-lay))
}

// Calculate the distance between two points (x1, y1) and (x2, y2)
func dist(x1 float64, y1 float64, x2 float64, y2 float64) float64 {
	return math.Sqrt(float64((x2-x1)*(x2-x1) + (y2-y1)*(y2-y1)))
}

// Distance in meters between two coordinates
func distC(a schedule.Coord, b schedule.Coord) float64 {
	return haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Calculate the distance in meter between two lat,lng pairs
func haversine(latA float64, lonA float64, latB float64, lonB float64) float64 {
	latA = latA * DEG_TO_RAD
	lonA = lonA * DEG_TO_RAD
	latB = latB * DEG_TO_RAD
	lonB = lonB * DEG_TO_RAD

	dlat := latB - latA
	dlon := lonB - lonA

	sindlat := math.Sin(dlat / 2)
	sindlon := math.Sin(dlon / 2)

	a := sindlat*sindlat + math.Cos(latA)*math.Cos(latB)*sindlon*sindlon

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return c * 6378137.0
}

// Haversine is the great-circle distance in meters between a and b
func Haversine(a schedule.Coord, b schedule.Coord) float64 {
	return distC(a, b)
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

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
