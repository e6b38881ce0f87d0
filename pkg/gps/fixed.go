// SPDX-License-Identifier: GPL-2.0-or-later

package gps

import (
	"encoding/binary"
	"math"
	"time"
)

// Fixed record layout, all values little-endian.
const (
	fixedHeaderSize = 16 // Skipped "GPS " vendor header.

	fixedHour       = 0
	fixedMinute     = 4
	fixedSecond     = 8
	fixedYear       = 12
	fixedMonth      = 16
	fixedDay        = 20
	fixedLatHemi    = 25
	fixedLonHemi    = 26
	fixedLatitude   = 28
	fixedLongitude  = 32
	fixedKnots      = 36
	fixedBearing    = 40
	fixedRecordSize = 44
)

// DecodeFixedRecord decodes a file with binary GPS records.
// Records outside the file or shorter than the layout are skipped.
func DecodeFixedRecord(file []byte) Track {
	var track Track
	for _, entry := range readIndex(file) {
		record, ok := region(file, int64(entry.address)+fixedHeaderSize, entry.size)
		if !ok || len(record) < fixedRecordSize {
			continue
		}
		track = append(track, parseFixedRecord(record))
	}
	return track
}

func parseFixedRecord(b []byte) Sample {
	i32 := func(offset int) int {
		return int(int32(binary.LittleEndian.Uint32(b[offset:])))
	}
	f32 := func(offset int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[offset:])))
	}

	latHemi := string(b[fixedLatHemi : fixedLatHemi+1])
	lonHemi := string(b[fixedLonHemi : fixedLonHemi+1])

	return Sample{
		Latitude:  FixCoordinate(latHemi, f32(fixedLatitude)),
		Longitude: FixCoordinate(lonHemi, f32(fixedLongitude)),
		Time: time.Date(
			2000+i32(fixedYear),
			time.Month(i32(fixedMonth)),
			i32(fixedDay),
			i32(fixedHour),
			i32(fixedMinute),
			i32(fixedSecond),
			0,
			time.UTC,
		),
		Speed:   KnotsToKmh(f32(fixedKnots)),
		Bearing: f32(fixedBearing),
	}
}
