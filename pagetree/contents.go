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

package pagetree

import (
	"fmt"
	"io"
	"strings"

	"seehuhn.de/go/sliprule/pdf"
)

// AppendContents returns a new /Contents array for the page dictionary.
// The existing content streams are placed between before and after.
// An existing /Contents entry can be a single stream, an array of streams,
// or a reference to an array.
func AppendContents(r pdf.Getter, pageDict pdf.Dict, before, after pdf.Reference) (pdf.Array, error) {
	old, err := contentsArray(r, pageDict)
	if err != nil {
		return nil, err
	}

	res := make(pdf.Array, 0, len(old)+2)
	res = append(res, before)
	res = append(res, old...)
	res = append(res, after)
	return res, nil
}

func contentsArray(r pdf.Getter, pageDict pdf.Dict) (pdf.Array, error) {
	contents := pageDict["Contents"]
	if ref, ok := contents.(pdf.Reference); ok {
		// A reference can point to a stream or to an array of streams.
		obj, err := pdf.Resolve(r, ref)
		if err != nil {
			return nil, err
		}
		switch obj.(type) {
		case pdf.Array:
			contents = obj
		case nil:
			contents = nil
		}
	}

	switch x := contents.(type) {
	case nil:
		return nil, nil
	case pdf.Array:
		var res pdf.Array
		for _, obj := range x {
			if obj != nil {
				res = append(res, obj)
			}
		}
		return res, nil
	default:
		return pdf.Array{x}, nil
	}
}

// ContentStream returns a reader for the content stream(s) of a page.
// Multiple streams are concatenated, separated by newline characters.
func ContentStream(r pdf.Getter, pageDict pdf.Dict) (io.Reader, error) {
	a, err := contentsArray(r, pageDict)
	if err != nil {
		return nil, err
	}

	var parts []io.Reader
	for i, obj := range a {
		stm, err := pdf.GetStream(r, obj)
		if err != nil {
			return nil, fmt.Errorf("content stream %d: %w", i, err)
		}
		if stm == nil {
			continue
		}
		body, err := pdf.DecodeStream(r, stm)
		if err != nil {
			return nil, fmt.Errorf("content stream %d: %w", i, err)
		}
		if len(parts) > 0 {
			parts = append(parts, strings.NewReader("\n"))
		}
		parts = append(parts, body)
	}
	return io.MultiReader(parts...), nil
}
