// seehuhn.de/go/sliprule - stamp slip rule amendments onto PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package assets provides access to the files the stamper needs at run
// time: the sample document and the font used for the stamp.
package assets

import (
	"bytes"
	"embed"
	"io"
	"io/fs"

	"golang.org/x/image/font/gofont/goregular"
)

// Names of the bundled assets.
const (
	// SampleName is the document which is stamped if no input file is
	// given.
	SampleName = "dummy.pdf"

	// FontName is the TrueType font used for the stamp text.
	FontName = "fonts/GoRegular.ttf"
)

// A Loader opens named assets.  The returned io.ReadCloser must be
// closed by the caller.  If an asset does not exist, the returned
// error wraps [fs.ErrNotExist].
type Loader interface {
	Open(name string) (io.ReadCloser, error)
}

// Bundled serves the assets which are compiled into the program.
var Bundled Loader = bundled{}

//go:embed dummy.pdf
var builtin embed.FS

type bundled struct{}

func (bundled) Open(name string) (io.ReadCloser, error) {
	if name == FontName {
		return io.NopCloser(bytes.NewReader(goregular.TTF)), nil
	}
	fd, err := builtin.Open(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return fd, nil
}

// Map is a Loader which serves assets from memory.
// The map keys are the asset names.
type Map map[string][]byte

// Open implements the [Loader] interface.
func (m Map) Open(name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
