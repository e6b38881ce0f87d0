// SPDX-License-Identifier: GPL-2.0-or-later

package mp4

import (
	"fmt"
	"io"
	"strings"

	gomp4 "github.com/abema/go-mp4"
)

// Inspect prints the box tree of r to w. Boxes unknown to the
// parser, like the firmware "gps " box, are listed but not expanded.
func Inspect(r io.ReadSeeker, w io.Writer) error {
	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		indent := strings.Repeat("  ", len(h.Path)-1)
		info := h.BoxInfo

		line := fmt.Sprintf("%s[%s] offset=%d size=%d", indent, info.Type, info.Offset, info.Size)
		if info.Type == gomp4.BoxType(TypeGPS) && info.Size >= 2*headerSize {
			line += fmt.Sprintf(" entries=%d", (info.Size-2*headerSize)/8)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return nil, err
		}

		if info.IsSupportedType() {
			return h.Expand()
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("read box structure: %w", err)
	}
	return nil
}
