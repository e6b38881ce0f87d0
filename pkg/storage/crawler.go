// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dashgps/pkg/gps"
)

// Crawler finds recordings in a directory tree.
type Crawler struct {
	root string
	fs   fs.FS
}

// NewCrawler creates a new crawler rooted at dir.
func NewCrawler(dir string) *Crawler {
	return &Crawler{
		root: dir,
		fs:   os.DirFS(dir),
	}
}

// IsVideo returns true if name has a ".mp4" extension, any case.
func IsVideo(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".mp4")
}

// Files returns every mp4 file below the root sorted by path.
// Hidden directories are skipped.
func (c *Crawler) Files() ([]gps.File, error) {
	var paths []string
	err := fs.WalkDir(c.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if IsVideo(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %v: %w", c.root, err)
	}

	sort.Strings(paths)

	files := make([]gps.File, 0, len(paths))
	for _, path := range paths {
		files = append(files, &gps.DiskFile{
			Path: filepath.Join(c.root, filepath.FromSlash(path)),
		})
	}
	return files, nil
}

// Lookup returns the file with the given base name.
func (c *Crawler) Lookup(name string) (gps.File, error) {
	files, err := c.Files()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", fs.ErrNotExist, name)
}
