// SPDX-License-Identifier: GPL-2.0-or-later

package pool

import (
	"os"

	"dashgps/pkg/gps"
)

// FileRef is a file as sent to a worker.
// Path is read by the worker, otherwise Data is used.
type FileRef struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Request asks a worker to decode a file.
type Request struct {
	File   FileRef          `json:"file"`
	Format gps.CameraFormat `json:"format"`
	ID     string           `json:"id"`
}

// Response is the result of a request.
type Response struct {
	ID      string         `json:"id"`
	Success bool           `json:"success"`
	Data    *gps.FileTrack `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Handle decodes the requested file.
func Handle(req Request) Response {
	data := req.File.Data
	if req.File.Path != "" {
		var err error
		data, err = os.ReadFile(req.File.Path)
		if err != nil {
			return Response{ID: req.ID, Error: err.Error()}
		}
	}

	track, err := gps.Decode(req.Format, data)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{
		ID:      req.ID,
		Success: true,
		Data:    &gps.FileTrack{Name: req.File.Name, Track: track},
	}
}

func fileRef(f gps.File) (FileRef, error) {
	if df, ok := f.(*gps.DiskFile); ok {
		return FileRef{Name: df.Name(), Path: df.Path}, nil
	}
	data, err := f.Bytes()
	if err != nil {
		return FileRef{}, err
	}
	return FileRef{Name: f.Name(), Data: data}, nil
}
