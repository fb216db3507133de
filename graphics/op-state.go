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

package graphics

import (
	"errors"
	"fmt"
)

// PushGraphicsState saves the current graphics state.
//
// This implements the PDF graphics operator "q".
func (w *Writer) PushGraphicsState() {
	if !w.isValid("PushGraphicsState", objPage) {
		return
	}

	w.nesting = append(w.nesting, pairTypeQ)

	_, w.Err = fmt.Fprintln(w.Content, "q")
}

// PopGraphicsState restores the previous graphics state.
//
// This implements the PDF graphics operator "Q".
func (w *Writer) PopGraphicsState() {
	if !w.isValid("PopGraphicsState", objPage) {
		return
	}

	if len(w.nesting) == 0 || w.nesting[len(w.nesting)-1] != pairTypeQ {
		w.Err = errors.New("PopGraphicsState: no matching PushGraphicsState")
		return
	}
	w.nesting = w.nesting[:len(w.nesting)-1]
	w.fontSet = false

	_, w.Err = fmt.Fprintln(w.Content, "Q")
}

// ResetContext restores the graphics state which was saved by a "q"
// operator in an earlier content stream of the same page.  This is used
// when content is appended to a page: a "q" stream is placed before the
// existing contents, and ResetContext at the start of the new stream
// undoes all changes the existing contents made to the graphics state.
//
// This writes the PDF graphics operator "Q".
func (w *Writer) ResetContext() {
	if !w.isValid("ResetContext", objPage) {
		return
	}
	if len(w.nesting) > 0 {
		w.Err = errors.New("ResetContext: must be used at the start of a content stream")
		return
	}
	w.fontSet = false

	_, w.Err = fmt.Fprintln(w.Content, "Q")
}
