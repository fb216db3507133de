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

// Package font implements TrueType fonts for use in the stamp.
//
// A [Font] is loaded once and can then be embedded into any number of
// documents.  Text is encoded using two-byte character codes, where the
// CID equals the glyph ID in the original font.  When a document is
// written, only the glyphs which were actually used are included.
package font

import (
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/unicode/norm"

	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/glyph"
)

var (
	errNoOutlines = errors.New("font has no TrueType outlines")
	errNoCMap     = errors.New("font has no usable cmap table")
)

// Font is a TrueType font which has been loaded into memory.
// A Font is not modified after loading and can be shared.
type Font struct {
	sfnt *sfnt.Font
	cmap interface{ Lookup(rune) glyph.ID }
}

// Load reads a TrueType font.  The font must contain glyf outlines
// and a cmap table which maps Unicode code points to glyphs.
func Load(r io.Reader) (*Font, error) {
	info, err := sfnt.Read(r)
	if err != nil {
		return nil, fmt.Errorf("font: %w", err)
	}
	if !info.IsGlyf() {
		return nil, errNoOutlines
	}
	if info.CMapTable == nil {
		return nil, errNoCMap
	}
	cmap, err := info.CMapTable.GetBest()
	if err != nil {
		return nil, fmt.Errorf("font: %w", errNoCMap)
	}

	f := &Font{
		sfnt: info,
		cmap: cmap,
	}
	return f, nil
}

// PostScriptName returns the PostScript name of the font.
func (f *Font) PostScriptName() string {
	return f.sfnt.PostScriptName()
}

// GID returns the glyph used to show r.
// If the font has no glyph for r, the ".notdef" glyph (GID 0) is returned.
func (f *Font) GID(r rune) glyph.ID {
	return f.cmap.Lookup(r)
}

// glyphWidth returns the advance width of a glyph, in PDF glyph space
// units.  The value is rounded in the same way as the entries of the /W
// array of the embedded font.
func (f *Font) glyphWidth(gid glyph.ID) float64 {
	return math.Round(f.sfnt.GlyphWidthPDF(gid))
}

// Width returns the width of text, in PDF glyph space units (1000 units
// correspond to the font size).  Kerning is not applied.
func (f *Font) Width(text string) float64 {
	var w float64
	for _, r := range norm.NFC.String(text) {
		w += f.glyphWidth(f.GID(r))
	}
	return w
}

// Height returns the height of the font bounding box, in PDF glyph space
// units.
func (f *Font) Height() float64 {
	bbox := f.sfnt.FontBBoxPDF().Rounded()
	return bbox.URy - bbox.LLy
}
