// SPDX-License-Identifier: GPL-2.0-or-later

// Package gps decodes the GPS tracks that dashcam firmwares embed in MP4 files.
package gps

import (
	"math"
	"time"
)

// Sample is a single GPS fix.
type Sample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"timestamp"`
	Speed     float64   `json:"speed"`   // km/h.
	Bearing   float64   `json:"bearing"` // Degrees.
}

// Track samples in the order they were found in the file.
type Track []Sample

// Start returns the time of the first sample.
func (t Track) Start() (time.Time, bool) {
	if len(t) == 0 {
		return time.Time{}, false
	}
	return t[0].Time, true
}

// FileTrack is the decoded track of a single file.
type FileTrack struct {
	Name  string `json:"filename"`
	Track Track  `json:"samples"`
}

// KnotsToKmh converts knots to kilometers per hour.
func KnotsToKmh(knots float64) float64 {
	return knots * 1.852
}

// FixCoordinate converts a DDDmm.mmmm value into decimal degrees.
// Southern and western hemispheres are negative.
func FixCoordinate(hemisphere string, coord float64) float64 {
	minutes := math.Mod(coord, 100)
	degrees := (coord - minutes) / 100
	result := degrees + minutes/60

	if hemisphere == "S" || hemisphere == "W" {
		return -result
	}
	return result
}
