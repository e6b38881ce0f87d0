// SPDX-License-Identifier: GPL-2.0-or-later

// Package gpsmock builds dashcam MP4 files for tests.
package gpsmock

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"dashgps/pkg/mp4"
	"dashgps/pkg/mp4/bitio"
)

// Fix is a GPS fix as the camera stores it.
// Coordinates are DDDmm.mmmm values.
type Fix struct {
	Time      time.Time
	Latitude  float64
	LatHemi   byte
	Longitude float64
	LonHemi   byte
	Knots     float64
	Bearing   float64
}

// Region is a chunk of data referenced by the gps index.
type Region struct {
	Data []byte

	// Offset and length of the referenced bytes within Data.
	Skip int
	Size int
}

var ftyp = []byte{
	'i', 's', 'o', 'm',
	0, 0, 2, 0,
	'i', 's', 'o', 'm',
}

// File builds a MP4 file where the regions are stored
// in the mdat box and indexed by the gps box in moov.
func File(regions ...Region) []byte {
	const mdatPayloadStart = 8 + 12 + 8

	var mdat []byte
	index := make([]byte, 8)
	copy(index, "GPSDATA\x00")
	for _, r := range regions {
		address := mdatPayloadStart + len(mdat) + r.Skip
		index = binary.BigEndian.AppendUint32(index, uint32(address))
		index = binary.BigEndian.AppendUint32(index, uint32(r.Size))
		mdat = append(mdat, r.Data...)
	}

	boxes := []mp4.Boxes{
		{Box: &mp4.RawBox{Typ: mp4.TypeFtyp, Payload: ftyp}},
		{Box: &mp4.RawBox{Typ: mp4.TypeMdat, Payload: mdat}},
		{
			Box: &mp4.RawBox{Typ: mp4.TypeMoov},
			Children: []mp4.Boxes{
				{Box: &mp4.RawBox{Typ: mp4.TypeGPS, Payload: index}},
			},
		},
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, b := range boxes {
		if err := b.Marshal(w); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// FixedRecord returns the region of a binary fix record.
func FixedRecord(fix Fix) Region {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	// Vendor header.
	w.TryWriteUint32(0x4c)
	w.TryWrite([]byte("freeGPS "))
	w.TryWriteUint32(0)

	t := fix.Time.UTC()
	w.TryWriteUint32LE(uint32(t.Hour()))
	w.TryWriteUint32LE(uint32(t.Minute()))
	w.TryWriteUint32LE(uint32(t.Second()))
	w.TryWriteUint32LE(uint32(t.Year() - 2000))
	w.TryWriteUint32LE(uint32(t.Month()))
	w.TryWriteUint32LE(uint32(t.Day()))
	w.TryWriteByte('A')
	w.TryWriteByte(fix.LatHemi)
	w.TryWriteByte(fix.LonHemi)
	w.TryWriteByte(0)
	w.TryWriteFloat32LE(float32(fix.Latitude))
	w.TryWriteFloat32LE(float32(fix.Longitude))
	w.TryWriteFloat32LE(float32(fix.Knots))
	w.TryWriteFloat32LE(float32(fix.Bearing))
	if w.TryError != nil {
		panic(w.TryError)
	}

	return Region{Data: buf.Bytes(), Skip: 0, Size: buf.Len() - 16}
}

// FixedRecordFile builds a file with binary fix records.
func FixedRecordFile(fixes ...Fix) []byte {
	regions := make([]Region, len(fixes))
	for i, fix := range fixes {
		regions[i] = FixedRecord(fix)
	}
	return File(regions...)
}

// Sentence formats the fix as a $GNRMC sentence.
func Sentence(fix Fix) string {
	t := fix.Time.UTC()
	body := fmt.Sprintf(
		"GNRMC,%02d%02d%02d.000,A,%09.4f,%c,%010.4f,%c,%.3f,%.2f,%02d%02d%02d,,,A",
		t.Hour(), t.Minute(), t.Second(),
		fix.Latitude, fix.LatHemi,
		fix.Longitude, fix.LonHemi,
		fix.Knots, fix.Bearing,
		t.Day(), t.Month(), t.Year()%100,
	)
	var checksum byte
	for i := 0; i < len(body); i++ {
		checksum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, checksum)
}

// SentenceRegion returns the region of a text record.
func SentenceRegion(sentence string) Region {
	data := append([]byte("freeGPS \x00\x01\x02\x03"), sentence...)
	data = append(data, 0, 0, 0, 0)
	return Region{Data: data, Skip: 0, Size: len(data)}
}

// SentenceFile builds a file with $GNRMC text records.
func SentenceFile(fixes ...Fix) []byte {
	regions := make([]Region, len(fixes))
	for i, fix := range fixes {
		regions[i] = SentenceRegion(Sentence(fix))
	}
	return File(regions...)
}
