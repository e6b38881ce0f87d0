// SPDX-License-Identifier: GPL-2.0-or-later

package playback

import (
	"testing"
	"time"

	"dashgps/pkg/gps"
	"dashgps/pkg/pair"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func evenTrack(n int) gps.Track {
	track := make(gps.Track, n)
	for i := range track {
		track[i] = gps.Sample{Time: base.Add(time.Duration(i) * time.Second), Speed: float64(i)}
	}
	return track
}

func TestSample(t *testing.T) {
	track := evenTrack(100)
	testCases := map[string]struct {
		current  time.Duration
		duration time.Duration
		index    int
	}{
		"start":    {0, 100 * time.Second, 0},
		"middle":   {50 * time.Second, 100 * time.Second, 50},
		"floor":    {50*time.Second + 999*time.Millisecond, 100 * time.Second, 50},
		"end":      {100 * time.Second, 100 * time.Second, 99},
		"pastEnd":  {200 * time.Second, 100 * time.Second, 99},
		"negative": {-time.Second, 100 * time.Second, 0},
		"shorter":  {30 * time.Second, 60 * time.Second, 50},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			sample, ok := Sample(track, tc.current, tc.duration)
			require.True(t, ok)
			require.Equal(t, track[tc.index], sample)
		})
	}

	t.Run("emptyTrack", func(t *testing.T) {
		_, ok := Sample(nil, time.Second, time.Minute)
		require.False(t, ok)
	})
	t.Run("noDuration", func(t *testing.T) {
		_, ok := Sample(track, time.Second, 0)
		require.False(t, ok)
		_, ok = Sample(track, time.Second, -time.Second)
		require.False(t, ok)
	})
}

func recording(front, rear string, n int) pair.Recording {
	r := pair.Recording{Front: gps.FileTrack{Name: front, Track: evenTrack(n)}}
	if rear != "" {
		r.Rear = &gps.FileTrack{Name: rear, Track: evenTrack(n)}
	}
	return r
}

func newTestSession() *Session {
	s := NewSession()
	s.Complete([]pair.Recording{
		recording("1F.mp4", "1R.mp4", 10),
		recording("2F.mp4", "", 20),
		recording("3F.mp4", "3R.mp4", 0),
	})
	return s
}

func TestSessionProgress(t *testing.T) {
	s := NewSession()
	require.Equal(t, State{Active: -1}, s.State())

	s.Start(3)
	s.Progress()
	s.Progress()
	require.Equal(t, State{Extracting: true, Progress: 2, Total: 3, Active: -1}, s.State())

	s.Complete([]pair.Recording{recording("1F.mp4", "", 1)})
	state := s.State()
	require.False(t, state.Extracting)
	require.Equal(t, 1, state.Recordings)
	require.Equal(t, 0, state.Active)

	s.Complete(nil)
	require.Equal(t, -1, s.State().Active)
}

func TestSessionSelect(t *testing.T) {
	s := newTestSession()
	require.Equal(t, 0, s.State().Active)

	require.True(t, s.Select("2F.mp4"))
	state := s.State()
	require.Equal(t, 1, state.Active)
	require.Equal(t, base, state.Position.Time)

	// Rear video follows the front track.
	require.True(t, s.Select("1R.mp4"))
	require.Equal(t, 0, s.State().Active)

	require.False(t, s.Select("9F.mp4"))
	require.Equal(t, 0, s.State().Active)

	sample, ok := s.Position(5*time.Second, 10*time.Second)
	require.True(t, ok)
	require.Equal(t, float64(5), sample.Speed)
	require.Equal(t, float64(5), s.State().Position.Speed)

	// Empty track keeps the last position.
	require.True(t, s.Select("3F.mp4"))
	_, ok = s.Position(time.Second, 10*time.Second)
	require.False(t, ok)
	require.Equal(t, float64(5), s.State().Position.Speed)
}

func TestSessionLookup(t *testing.T) {
	s := newTestSession()

	sample, ok := s.Lookup("2F.mp4", 10*time.Second, 20*time.Second)
	require.True(t, ok)
	require.Equal(t, float64(10), sample.Speed)
	require.Equal(t, 0, s.State().Active)
	require.Nil(t, s.State().Position)

	_, ok = s.Lookup("9F.mp4", 0, time.Second)
	require.False(t, ok)

	_, ok = NewSession().Position(0, time.Second)
	require.False(t, ok)
}

func TestSessionRemove(t *testing.T) {
	testCases := map[string]struct {
		active   string
		remove   string
		expected int
	}{
		"before":     {"2F.mp4", "1F.mp4", 0},
		"after":      {"1F.mp4", "2F.mp4", 0},
		"activeMid":  {"2F.mp4", "2F.mp4", 1},
		"activeLast": {"3F.mp4", "3F.mp4", 1},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s := newTestSession()
			require.True(t, s.Select(tc.active))
			require.True(t, s.Remove(tc.remove))
			require.Equal(t, tc.expected, s.State().Active)
			require.Len(t, s.Recordings(), 2)
		})
	}

	t.Run("rearName", func(t *testing.T) {
		s := newTestSession()
		require.False(t, s.Remove("1R.mp4"))
		require.Len(t, s.Recordings(), 3)
	})
	t.Run("all", func(t *testing.T) {
		s := newTestSession()
		require.True(t, s.Remove("1F.mp4"))
		require.True(t, s.Remove("2F.mp4"))
		require.True(t, s.Remove("3F.mp4"))
		state := s.State()
		require.Equal(t, -1, state.Active)
		require.Nil(t, state.Position)
	})
}
