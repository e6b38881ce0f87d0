// SPDX-License-Identifier: GPL-2.0-or-later

package gps

import (
	"bytes"

	"dashgps/pkg/mp4"

	"github.com/icza/bitio"
)

// Vendor preamble at the start of the gps box.
const indexOffset = 8

type indexEntry struct {
	address int32
	size    int32
}

// readIndex returns the record index stored in the "gps " box of
// the moov box. A missing box returns nothing, a partial trailing
// entry is dropped.
func readIndex(file []byte) []indexEntry {
	moov := mp4.Locate(file, mp4.TypeMoov)
	box := mp4.Locate(moov, mp4.TypeGPS)
	if len(box) <= indexOffset {
		return nil
	}

	r := bitio.NewReader(bytes.NewReader(box[indexOffset:]))
	var entries []indexEntry
	for {
		address, err := r.ReadBits(32)
		if err != nil {
			return entries
		}
		size, err := r.ReadBits(32)
		if err != nil {
			return entries
		}
		entries = append(entries, indexEntry{
			address: int32(uint32(address)),
			size:    int32(uint32(size)),
		})
	}
}

// region returns size bytes at address, cut at the end of file.
func region(file []byte, address int64, size int32) ([]byte, bool) {
	if address < 0 || size <= 0 || address >= int64(len(file)) {
		return nil, false
	}
	end := address + int64(size)
	if end > int64(len(file)) {
		end = int64(len(file))
	}
	return file[address:end], true
}
