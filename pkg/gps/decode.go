// SPDX-License-Identifier: GPL-2.0-or-later

package gps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CameraFormat is the GPS storage format of a dashcam firmware.
type CameraFormat uint8

// Camera formats.
const (
	// FixedRecord binary little-endian records.
	FixedRecord CameraFormat = iota + 1

	// EmbeddedSentence ASCII $GNRMC sentences.
	EmbeddedSentence
)

// ErrUnknownFormat unknown camera format.
var ErrUnknownFormat = errors.New("unknown camera format")

func (f CameraFormat) String() string {
	switch f {
	case FixedRecord:
		return "fixedRecord"
	case EmbeddedSentence:
		return "embeddedSentence"
	}
	return fmt.Sprintf("CameraFormat(%d)", uint8(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f CameraFormat) MarshalText() ([]byte, error) {
	switch f {
	case FixedRecord, EmbeddedSentence:
		return []byte(f.String()), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint8(f))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *CameraFormat) UnmarshalText(text []byte) error {
	switch string(text) {
	case FixedRecord.String():
		*f = FixedRecord
	case EmbeddedSentence.String():
		*f = EmbeddedSentence
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, text)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *CameraFormat) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return f.UnmarshalText([]byte(s))
}

// Decode decodes the GPS track of a whole MP4 file.
// Malformed data never returns an error, only an unknown format does.
func Decode(format CameraFormat, file []byte) (Track, error) {
	switch format {
	case FixedRecord:
		return DecodeFixedRecord(file), nil
	case EmbeddedSentence:
		return DecodeEmbeddedSentence(file), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint8(format))
}

// File is a video file that can be read whole.
type File interface {
	Name() string
	Bytes() ([]byte, error)
}

// DiskFile is a file on the local file system.
type DiskFile struct {
	Path string
}

// Name returns the base name of the file.
func (f *DiskFile) Name() string {
	return filepath.Base(f.Path)
}

// Bytes reads the file.
func (f *DiskFile) Bytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// MemFile is a file held in memory.
type MemFile struct {
	FileName string
	Data     []byte
}

// Name returns the file name.
func (f *MemFile) Name() string {
	return f.FileName
}

// Bytes returns the file content.
func (f *MemFile) Bytes() ([]byte, error) {
	return f.Data, nil
}

// DecodeFile reads and decodes a file. Only reading can fail.
func DecodeFile(format CameraFormat, f File) (FileTrack, error) {
	data, err := f.Bytes()
	if err != nil {
		return FileTrack{}, fmt.Errorf("read %v: %w", f.Name(), err)
	}
	track, err := Decode(format, data)
	if err != nil {
		return FileTrack{}, err
	}
	return FileTrack{Name: f.Name(), Track: track}, nil
}
