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

package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"seehuhn.de/go/sliprule/assets"
)

var errTooManyArgs = errors.New("too many arguments")

// resolveInput opens the document to be stamped and chooses the name of
// the output file.  With no arguments, the bundled sample document is
// used.  Otherwise the single argument is the path of the input file,
// and the output is written to the current directory under the same
// base name.
func resolveInput(args []string, loader assets.Loader) (io.ReadCloser, string, error) {
	switch len(args) {
	case 0:
		fd, err := loader.Open(assets.SampleName)
		if err != nil {
			return nil, "", err
		}
		return fd, assets.SampleName, nil
	case 1:
		fd, err := os.Open(args[0])
		if err != nil {
			return nil, "", err
		}
		return fd, filepath.Base(args[0]), nil
	default:
		return nil, "", errTooManyArgs
	}
}
