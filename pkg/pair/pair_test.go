// SPDX-License-Identifier: GPL-2.0-or-later

package pair

import (
	"testing"
	"time"

	"dashgps/pkg/gps"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func track(name string, offsets ...time.Duration) gps.FileTrack {
	ft := gps.FileTrack{Name: name, Track: gps.Track{}}
	for _, o := range offsets {
		ft.Track = append(ft.Track, gps.Sample{Time: base.Add(o)})
	}
	return ft
}

func rearName(r Recording) string {
	if r.Rear == nil {
		return ""
	}
	return r.Rear.Name
}

func TestPair(t *testing.T) {
	testCases := map[string]struct {
		front    []gps.FileTrack
		rear     []gps.FileTrack
		expected []string
	}{
		"within": {
			front:    []gps.FileTrack{track("1F", 0)},
			rear:     []gps.FileTrack{track("1R", 10*time.Second)},
			expected: []string{"1R"},
		},
		"outside": {
			front:    []gps.FileTrack{track("1F", 0)},
			rear:     []gps.FileTrack{track("1R", 20*time.Second)},
			expected: []string{""},
		},
		"exactWindow": {
			front:    []gps.FileTrack{track("1F", 0)},
			rear:     []gps.FileTrack{track("1R", 15*time.Second)},
			expected: []string{""},
		},
		"rearBefore": {
			front:    []gps.FileTrack{track("1F", 10*time.Second)},
			rear:     []gps.FileTrack{track("1R", 0)},
			expected: []string{"1R"},
		},
		"closest": {
			front: []gps.FileTrack{track("1F", 0)},
			rear: []gps.FileTrack{
				track("1R", 12*time.Second),
				track("2R", -3*time.Second),
				track("3R", 5*time.Second),
			},
			expected: []string{"2R"},
		},
		"tie": {
			front: []gps.FileTrack{track("1F", 0)},
			rear: []gps.FileTrack{
				track("1R", 4*time.Second),
				track("2R", -4*time.Second),
			},
			expected: []string{"1R"},
		},
		"emptyFront": {
			front:    []gps.FileTrack{track("1F")},
			rear:     []gps.FileTrack{track("1R", 0)},
			expected: []string{""},
		},
		"emptyRear": {
			front:    []gps.FileTrack{track("1F", 0)},
			rear:     []gps.FileTrack{track("1R"), track("2R", time.Second)},
			expected: []string{"2R"},
		},
		"sharedRear": {
			front:    []gps.FileTrack{track("1F", 0), track("2F", 2*time.Second)},
			rear:     []gps.FileTrack{track("1R", time.Second)},
			expected: []string{"1R", "1R"},
		},
		"order": {
			front: []gps.FileTrack{
				track("2F", time.Minute),
				track("1F", 0),
				track("3F", 2*time.Minute),
			},
			rear: []gps.FileTrack{
				track("1R", 0),
				track("2R", time.Minute),
			},
			expected: []string{"2R", "1R", ""},
		},
		"noRear": {
			front:    []gps.FileTrack{track("1F", 0)},
			expected: []string{""},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			recordings := Pair(tc.front, tc.rear, Window)
			require.Len(t, recordings, len(tc.front))

			var rears []string
			for i, r := range recordings {
				require.Equal(t, tc.front[i].Name, r.Front.Name)
				rears = append(rears, rearName(r))
			}
			require.Equal(t, tc.expected, rears)
		})
	}
}

func TestPairTime(t *testing.T) {
	recordings := Pair(
		[]gps.FileTrack{track("1F", 3*time.Second, 4*time.Second), track("2F")},
		nil,
		Window,
	)
	require.Equal(t, base.Add(3*time.Second), recordings[0].Time)
	require.True(t, recordings[1].Time.IsZero())
}

func TestPairEmpty(t *testing.T) {
	require.Empty(t, Pair(nil, []gps.FileTrack{track("1R", 0)}, Window))
}

func TestRecordingHas(t *testing.T) {
	rear := track("1R", 0)
	r := Recording{Front: track("1F", 0), Rear: &rear}
	require.True(t, r.Has("1F"))
	require.True(t, r.Has("1R"))
	require.False(t, r.Has("2F"))

	r.Rear = nil
	require.False(t, r.Has("1R"))
}
