// SPDX-License-Identifier: GPL-2.0-or-later

package gps

import (
	"strconv"
	"strings"
	"time"
)

const sentenceMarker = "$GNRMC"

// Fields of a $GNRMC sentence.
const (
	rmcTime      = 1
	rmcLatitude  = 3
	rmcLatHemi   = 4
	rmcLongitude = 5
	rmcLonHemi   = 6
	rmcKnots     = 7
	rmcDate      = 9
	rmcMinFields = 11
)

// DecodeEmbeddedSentence decodes a file with $GNRMC sentences.
// The sentence carries no bearing, it is always zero.
func DecodeEmbeddedSentence(file []byte) Track {
	var track Track
	for _, entry := range readIndex(file) {
		record, ok := region(file, int64(entry.address), entry.size)
		if !ok {
			continue
		}
		sample, ok := parseSentence(string(record))
		if !ok {
			continue
		}
		track = append(track, sample)
	}
	return track
}

// parseSentence parses the text between "$GNRMC" and the following '*'.
//
// $GNRMC,232018.000,A,3342.1299,N,08406.2615,W,52.078,78.91,251124,,,A*59
func parseSentence(text string) (Sample, bool) {
	start := strings.Index(text, sentenceMarker)
	if start == -1 {
		return Sample{}, false
	}
	text = text[start:]
	if end := strings.IndexByte(text, '*'); end != -1 {
		text = text[:end]
	}

	fields := strings.Split(text, ",")
	if len(fields) < rmcMinFields {
		return Sample{}, false
	}

	hour, minute, second, ok := parseDigitPairs(fields[rmcTime])
	if !ok {
		return Sample{}, false
	}
	day, month, year, ok := parseDigitPairs(fields[rmcDate])
	if !ok {
		return Sample{}, false
	}

	latitude, err := strconv.ParseFloat(fields[rmcLatitude], 64)
	if err != nil {
		return Sample{}, false
	}
	longitude, err := strconv.ParseFloat(fields[rmcLongitude], 64)
	if err != nil {
		return Sample{}, false
	}
	knots, err := strconv.ParseFloat(fields[rmcKnots], 64)
	if err != nil {
		return Sample{}, false
	}

	return Sample{
		Latitude:  FixCoordinate(fields[rmcLatHemi], latitude),
		Longitude: FixCoordinate(fields[rmcLonHemi], longitude),
		Time: time.Date(
			2000+year, time.Month(month), day,
			hour, minute, second, 0, time.UTC,
		),
		Speed: KnotsToKmh(knots),
	}, true
}

// parseDigitPairs parses the first three digit pairs of "hhmmss" or "ddmmyy".
func parseDigitPairs(s string) (int, int, int, bool) {
	if len(s) < 6 {
		return 0, 0, 0, false
	}
	var out [3]int
	for i := range out {
		v, err := strconv.Atoi(s[i*2 : i*2+2])
		if err != nil {
			return 0, 0, 0, false
		}
		out[i] = v
	}
	return out[0], out[1], out[2], true
}
