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
	"fmt"
	"image/color"
	"math"
)

// SetFillColor sets the color used for filling paths and for text.
// Gray colors use the DeviceGray color space, all other colors use
// DeviceRGB.
//
// This implements the PDF graphics operators "g" and "rg".
func (w *Writer) SetFillColor(c color.Color) {
	if !w.isValid("SetFillColor", objPage|objText) {
		return
	}

	switch c := c.(type) {
	case color.Gray:
		_, w.Err = fmt.Fprintln(w.Content, component(uint32(c.Y)*0x101), "g")
	default:
		r, g, b, _ := c.RGBA()
		_, w.Err = fmt.Fprintln(w.Content, component(r), component(g), component(b), "rg")
	}
}

// component converts a 16-bit color component to a number in the
// range [0, 1], with three significant decimal digits.
func component(x uint32) string {
	return format(math.Round(float64(x)/0xffff*1000) / 1000)
}
