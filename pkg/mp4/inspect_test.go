// SPDX-License-Identifier: GPL-2.0-or-later

package mp4

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	ftyp := []byte{
		'i', 's', 'o', 'm', // Major brand.
		0, 0, 2, 0, // Minor version.
		'i', 's', 'o', 'm', // Compatible brand.
	}
	gps := []byte{
		0, 0, 0, 0, 0, 0, 0, 0, // Index header.
		0, 0, 0, 1, 0, 0, 0, 2,
		0, 0, 0, 3, 0, 0, 0, 4,
	}
	file := marshal(t,
		box(TypeFtyp, ftyp),
		box(TypeMoov, nil, box(TypeGPS, gps)),
	)

	var out bytes.Buffer
	require.NoError(t, Inspect(bytes.NewReader(file), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"[ftyp] offset=0 size=20",
		"[moov] offset=20 size=40",
		"  [gps ] offset=28 size=32 entries=2",
	}, lines)
}
