// SPDX-License-Identifier: GPL-2.0-or-later

// Package pair matches front and rear camera tracks of the same event.
package pair

import (
	"time"

	"dashgps/pkg/gps"
)

// Window is the default maximum start time difference of a pair.
const Window = 15 * time.Second

// Recording is a front camera track with its optional rear track.
type Recording struct {
	Front gps.FileTrack  `json:"front"`
	Rear  *gps.FileTrack `json:"rear,omitempty"`

	// Time of the first front sample, zero if the track is empty.
	Time time.Time `json:"timestamp"`
}

// Has returns true if name is the front or rear file.
func (r Recording) Has(name string) bool {
	return r.Front.Name == name || (r.Rear != nil && r.Rear.Name == name)
}

// Pair returns one recording per front track in input order.
//
// The rear track whose first sample is closest to the first front sample,
// and strictly less than window away, is attached. Ties go to the earlier
// rear track. A rear track may be attached to more than one front track.
func Pair(front, rear []gps.FileTrack, window time.Duration) []Recording {
	recordings := make([]Recording, 0, len(front))
	for _, f := range front {
		start, ok := f.Track.Start()
		if !ok {
			recordings = append(recordings, Recording{Front: f})
			continue
		}
		recordings = append(recordings, Recording{
			Front: f,
			Rear:  closest(start, rear, window),
			Time:  start,
		})
	}
	return recordings
}

func closest(start time.Time, rear []gps.FileTrack, window time.Duration) *gps.FileTrack {
	var match *gps.FileTrack
	var best time.Duration
	for i := range rear {
		rearStart, ok := rear[i].Track.Start()
		if !ok {
			continue
		}
		delta := abs(start.Sub(rearStart))
		if delta >= window {
			continue
		}
		if match == nil || delta < best {
			r := rear[i]
			match = &r
			best = delta
		}
	}
	return match
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
