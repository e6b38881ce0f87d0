// SPDX-License-Identifier: GPL-2.0-or-later

package mp4

import (
	"bytes"

	"dashgps/pkg/mp4/bitio"
)

// BoxType is mpeg box type.
type BoxType [4]byte

// String returns the box type as text.
func (t BoxType) String() string {
	return string(t[:])
}

// Box types used by the dashcam firmwares.
var (
	TypeMoov = BoxType{'m', 'o', 'o', 'v'}
	TypeGPS  = BoxType{'g', 'p', 's', ' '}
	TypeFree = BoxType{'f', 'r', 'e', 'e'}
	TypeMdat = BoxType{'m', 'd', 'a', 't'}
	TypeFtyp = BoxType{'f', 't', 'y', 'p'}
)

// ImmutableBox is common interface of box.
type ImmutableBox interface {
	// Type returns the BoxType.
	Type() BoxType

	// Size returns the marshaled size in bytes.
	// The size must be known before marshaling
	// since the box header contains the size.
	Size() int

	// Marshal box to writer.
	Marshal(w *bitio.Writer) error
}

// Boxes is a structure of boxes that can be marshaled together.
type Boxes struct {
	Box      ImmutableBox
	Children []Boxes
}

// Size returns the total size of the box including children.
func (b *Boxes) Size() int {
	total := b.Box.Size() + headerSize
	for _, child := range b.Children {
		total += child.Size()
	}
	return total
}

// Marshal box including children.
func (b *Boxes) Marshal(w *bitio.Writer) error {
	size := b.Size()

	w.TryWriteUint32(uint32(size))
	typ := b.Box.Type()
	w.TryWrite(typ[:])
	if w.TryError != nil {
		return w.TryError
	}

	if b.Box.Size() != 0 {
		if err := b.Box.Marshal(w); err != nil {
			return err
		}
	}

	for _, child := range b.Children {
		if err := child.Marshal(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes marshals the boxes into a new buffer.
func (b *Boxes) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Marshal(bitio.NewWriter(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RawBox is a box with an opaque payload.
type RawBox struct {
	Typ     BoxType
	Payload []byte
}

// Type returns the BoxType.
func (b *RawBox) Type() BoxType {
	return b.Typ
}

// Size returns the marshaled size in bytes.
func (b *RawBox) Size() int {
	return len(b.Payload)
}

// Marshal box to writer.
func (b *RawBox) Marshal(w *bitio.Writer) error {
	w.TryWrite(b.Payload)
	return w.TryError
}
