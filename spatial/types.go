// Copyright 2025 The Painel Multas Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
)

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RioDeJaneiro is the map centre used when there is nothing to average.
var RioDeJaneiro = Point{Lat: -22.9068, Lng: -43.1729}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Centroid returns the arithmetic mean of the points, or fallback when
// points is empty. Good enough to centre a city-scale map.
func Centroid(points []Point, fallback Point) Point {
	if len(points) == 0 {
		return fallback
	}

	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}

	n := float64(len(points))

	return Point{Lat: lat / n, Lng: lng / n}
}
