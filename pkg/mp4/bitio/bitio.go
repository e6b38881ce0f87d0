// SPDX-License-Identifier: GPL-2.0-or-later

// Package bitio writes fixed-width integers for the box marshaller.
package bitio

import (
	"encoding/binary"
	"io"
	"math"
)

// WriterAndByteWriter io.Writer and io.ByteWriter at the same time.
type WriterAndByteWriter interface {
	io.Writer
	io.ByteWriter
}

// Writer writes big-endian box fields and the
// little-endian fields used inside firmware records.
type Writer struct {
	out WriterAndByteWriter

	// TryError holds the first error occurred in TryXXX() methods.
	TryError error
}

// NewWriter returns a new Writer using the specified io.Writer as the output.
func NewWriter(out WriterAndByteWriter) *Writer {
	return &Writer{out: out}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	return w.out.WriteByte(b)
}

// TryWrite tries to write len(p) bytes.
func (w *Writer) TryWrite(p []byte) {
	if w.TryError == nil {
		_, w.TryError = w.Write(p)
	}
}

// TryWriteByte tries to write 1 byte.
func (w *Writer) TryWriteByte(b byte) {
	if w.TryError == nil {
		w.TryError = w.WriteByte(b)
	}
}

// TryWriteUint32 tries to write 32 bits big-endian.
func (w *Writer) TryWriteUint32(r uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], r)
	w.TryWrite(buf[:])
}

// TryWriteUint32LE tries to write 32 bits little-endian.
func (w *Writer) TryWriteUint32LE(r uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], r)
	w.TryWrite(buf[:])
}

// TryWriteFloat32LE tries to write an IEEE-754 float little-endian.
func (w *Writer) TryWriteFloat32LE(f float32) {
	w.TryWriteUint32LE(math.Float32bits(f))
}

// ByteWriter is a helper for io.Writers without io.ByteWriter.
type ByteWriter struct {
	out io.Writer
}

// NewByteWriter returns a new ByteWriter using the specified io.Writer as the output.
func NewByteWriter(out io.Writer) *ByteWriter {
	return &ByteWriter{out: out}
}

// Write implements io.Writer.
func (w *ByteWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

// WriteByte implements io.ByteWriter.
func (w *ByteWriter) WriteByte(b byte) error {
	_, err := w.out.Write([]byte{b})
	return err
}
