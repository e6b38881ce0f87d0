// SPDX-License-Identifier: GPL-2.0-or-later

package mp4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func box(typ BoxType, payload []byte, children ...Boxes) Boxes {
	return Boxes{Box: &RawBox{Typ: typ, Payload: payload}, Children: children}
}

func marshal(t *testing.T, boxes ...Boxes) []byte {
	t.Helper()
	var out []byte
	for _, b := range boxes {
		buf, err := b.Bytes()
		require.NoError(t, err)
		out = append(out, buf...)
	}
	return out
}

func TestLocate(t *testing.T) {
	file := marshal(t,
		box(TypeFtyp, []byte("isom")),
		box(TypeFree, nil),
		box(TypeMoov, nil,
			box(BoxType{'m', 'v', 'h', 'd'}, []byte{1, 2}),
			box(TypeGPS, []byte{9, 8, 7}),
		),
		box(TypeMdat, []byte{0, 0, 0}),
	)

	t.Run("topLevel", func(t *testing.T) {
		require.Equal(t, []byte("isom"), Locate(file, TypeFtyp))
		require.Equal(t, []byte{0, 0, 0}, Locate(file, TypeMdat))
	})
	t.Run("nested", func(t *testing.T) {
		moov := Locate(file, TypeMoov)
		require.Len(t, moov, 10+11)
		require.Equal(t, []byte{9, 8, 7}, Locate(moov, TypeGPS))
	})
	t.Run("noRecursion", func(t *testing.T) {
		require.Empty(t, Locate(file, TypeGPS))
	})
	t.Run("emptyPayload", func(t *testing.T) {
		require.Empty(t, Locate(file, TypeFree))
	})
	t.Run("firstMatch", func(t *testing.T) {
		buf := marshal(t, box(TypeFree, []byte{1}), box(TypeFree, []byte{2}))
		require.Equal(t, []byte{1}, Locate(buf, TypeFree))
	})
}

func TestLocateCorrupt(t *testing.T) {
	testCases := map[string][]byte{
		"empty":     nil,
		"short":     {0, 0, 0, 8, 'm', 'o', 'o'},
		"zeroSize":  {0, 0, 0, 0, 'f', 'r', 'e', 'e', 0, 0, 0, 8, 'm', 'o', 'o', 'v'},
		"sizeSeven": {0, 0, 0, 7, 'f', 'r', 'e', 'e', 0, 0, 0, 8, 'm', 'o', 'o', 'v'},
	}
	for name, buf := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Empty(t, Locate(buf, TypeMoov))
		})
	}
}

func TestLocateTruncated(t *testing.T) {
	buf := []byte{0, 0, 0, 100, 'm', 'o', 'o', 'v', 1, 2, 3}
	payload := Locate(buf, TypeMoov)
	require.Equal(t, []byte{1, 2, 3}, payload)
	require.Equal(t, 3, cap(payload))
}

func TestBoxesSize(t *testing.T) {
	b := box(TypeMoov, []byte{1}, box(TypeGPS, []byte{1, 2}))
	require.Equal(t, 8+1+8+2, b.Size())

	buf, err := b.Bytes()
	require.NoError(t, err)
	require.Len(t, buf, b.Size())
	require.Equal(t, []byte{0, 0, 0, 19, 'm', 'o', 'o', 'v', 1}, buf[:9])
}
