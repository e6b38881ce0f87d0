// SPDX-License-Identifier: GPL-2.0-or-later

package mp4

import "encoding/binary"

// Box header: 4 byte big-endian size followed by 4 byte type.
const headerSize = 8

// Locate returns the payload of the first top-level box of type typ in buf.
// Call it again on the returned payload to descend into nested boxes.
//
// Nothing is returned if the box is missing or a box declares a size smaller
// than its header, corrupt containers are never an error. A box that claims
// more bytes than buf holds is cut at the end of buf.
func Locate(buf []byte, typ BoxType) []byte {
	offset := uint64(0)
	end := uint64(len(buf))

	for offset+headerSize <= end {
		size := uint64(binary.BigEndian.Uint32(buf[offset:]))
		if size < headerSize {
			return nil
		}

		if BoxType(buf[offset+4:offset+8]) == typ {
			boxEnd := offset + size
			if boxEnd > end {
				boxEnd = end
			}
			return buf[offset+headerSize : boxEnd : boxEnd]
		}

		offset += size
	}
	return nil
}
