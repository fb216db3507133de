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

package stamp

import (
	"seehuhn.de/go/geom/rect"
)

// Metrics gives the font measurements needed to place the notice.
// All values are in PDF glyph space units, where 1000 units correspond
// to the font size.
type Metrics interface {
	// Width returns the advance width of the text.
	Width(text string) float64

	// Height returns the height of the font bounding box.
	Height() float64
}

// Geometry describes the area covered by the notice, in PDF default user
// space units.  (X, Y) is the lower left corner.
type Geometry struct {
	X, Y          float64
	Width, Height float64
}

// Rect returns the area as a rectangle.
func (g Geometry) Rect() rect.Rect {
	return rect.Rect{
		LLx: g.X,
		LLy: g.Y,
		URx: g.X + g.Width,
		URy: g.Y + g.Height,
	}
}

// Measure computes the placement of text on a page with the given media
// box.  The text is centred horizontally, and its baseline is placed two
// font heights below the top of the page.
//
// Only the width and height of the media box are used; the origin of the
// box is ignored.  If the text is wider than the page, X is negative.
func Measure(m Metrics, text string, size float64, page rect.Rect) (Geometry, error) {
	height := m.Height() * size / 1000
	if !(height > 0) {
		return Geometry{}, ErrFontMetrics
	}
	width := m.Width(text) * size / 1000

	pageWidth := page.URx - page.LLx
	pageHeight := page.URy - page.LLy
	g := Geometry{
		X:      (pageWidth - width) / 2,
		Y:      pageHeight - 2*height,
		Width:  width,
		Height: height,
	}
	return g, nil
}
