// SPDX-License-Identifier: GPL-2.0-or-later

// Package playback maps video playback position to GPS samples.
package playback

import (
	"math"
	"sync"
	"time"

	"dashgps/pkg/gps"
	"dashgps/pkg/pair"
)

// Sample returns the sample at the same relative position in the track as
// current is in the video. The track is assumed to span the whole video.
// False is returned for an empty track or unknown duration.
func Sample(track gps.Track, current, duration time.Duration) (gps.Sample, bool) {
	if len(track) == 0 || duration <= 0 {
		return gps.Sample{}, false
	}

	progress := float64(current) / float64(duration)
	index := int(math.Floor(progress * float64(len(track))))
	switch {
	case index < 0:
		index = 0
	case index > len(track)-1:
		index = len(track) - 1
	}
	return track[index], true
}

// State is a snapshot of a session.
type State struct {
	Extracting bool        `json:"extracting"`
	Progress   int         `json:"progress"`
	Total      int         `json:"total"`
	Recordings int         `json:"recordings"`
	Active     int         `json:"active"`
	Position   *gps.Sample `json:"position"`
}

// Session holds the recordings of a batch and the
// track that follows the video being played.
type Session struct {
	mu sync.Mutex

	recordings []pair.Recording
	active     int
	position   *gps.Sample

	extracting bool
	progress   int
	total      int
}

// NewSession returns a empty session.
func NewSession() *Session {
	return &Session{active: -1}
}

// Start marks the start of an extraction of total files.
func (s *Session) Start(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracting = true
	s.progress = 0
	s.total = total
}

// Progress counts one processed file.
func (s *Session) Progress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress++
}

// Complete replaces the recordings and activates the first one.
func (s *Session) Complete(recordings []pair.Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings = recordings
	s.extracting = false
	s.active = -1
	if len(recordings) > 0 {
		s.active = 0
	}
}

// Recordings returns a copy of the recordings.
func (s *Session) Recordings() []pair.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pair.Recording, len(s.recordings))
	copy(out, s.recordings)
	return out
}

// Select activates the front track of the recording that owns the file
// and moves the position to its first sample. The front track is used
// for both the front and the rear video.
func (s *Session) Select(fileName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(fileName)
	if i == -1 {
		return false
	}
	s.active = i
	track := s.recordings[i].Front.Track
	if len(track) > 0 {
		first := track[0]
		s.position = &first
	}
	return true
}

func (s *Session) find(fileName string) int {
	for i, r := range s.recordings {
		if r.Has(fileName) {
			return i
		}
	}
	return -1
}

// Position updates and returns the position on the active track.
func (s *Session) Position(current, duration time.Duration) (gps.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == -1 {
		return gps.Sample{}, false
	}
	sample, ok := Sample(s.recordings[s.active].Front.Track, current, duration)
	if !ok {
		return gps.Sample{}, false
	}
	s.position = &sample
	return sample, true
}

// Lookup returns the sample of the recording that owns the file
// without changing the session.
func (s *Session) Lookup(fileName string, current, duration time.Duration) (gps.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(fileName)
	if i == -1 {
		return gps.Sample{}, false
	}
	return Sample(s.recordings[i].Front.Track, current, duration)
}

// Remove removes the recording with the front file and keeps the
// active recording pointing at the same track where possible.
func (s *Session) Remove(frontName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := -1
	for i, r := range s.recordings {
		if r.Front.Name == frontName {
			removed = i
			break
		}
	}
	if removed == -1 {
		return false
	}

	recordings := make([]pair.Recording, 0, len(s.recordings)-1)
	recordings = append(recordings, s.recordings[:removed]...)
	s.recordings = append(recordings, s.recordings[removed+1:]...)

	switch {
	case len(s.recordings) == 0:
		s.active = -1
		s.position = nil
	case removed < s.active:
		s.active--
	case removed == s.active && s.active > len(s.recordings)-1:
		s.active = len(s.recordings) - 1
	}
	return true
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Extracting: s.extracting,
		Progress:   s.progress,
		Total:      s.total,
		Recordings: len(s.recordings),
		Active:     s.active,
	}
	if s.position != nil {
		p := *s.position
		state.Position = &p
	}
	return state
}
