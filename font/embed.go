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

package font

import (
	"bytes"
	"maps"
	"math"
	"slices"

	"golang.org/x/text/unicode/norm"

	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/sliprule/pdf"
)

// Embedded represents a font which is embedded in a PDF file.
// The font data is written when the enclosing [pdf.Update] is written.
type Embedded struct {
	// Ref is the reference of the Type 0 font dictionary.
	Ref pdf.Reference

	font *Font
	text map[glyph.ID][]rune
}

// Embed adds the font to the update u.  The returned value is used to
// encode text; it is only valid for the given update.
//
// Composite fonts require PDF version 1.3, so the version of the updated
// file is raised if needed.
func (f *Font) Embed(u *pdf.Update) *Embedded {
	e := &Embedded{
		Ref:  u.Alloc(),
		font: f,
		text: make(map[glyph.ID][]rune),
	}
	u.EnsureVersion(pdf.V1_3)
	u.Defer(e.write)
	return e
}

// Encode converts text into character codes for use with the "Tj"
// operator.  Each glyph is represented by two bytes.  The glyphs are
// recorded for inclusion in the font subset.
func (e *Embedded) Encode(text string) pdf.String {
	var res pdf.String
	for _, r := range norm.NFC.String(text) {
		gid := e.font.GID(r)
		if _, seen := e.text[gid]; !seen && gid != 0 {
			e.text[gid] = []rune{r}
		}
		res = append(res, byte(gid>>8), byte(gid))
	}
	return res
}

// write adds the font dictionaries and the font subset to u.
func (e *Embedded) write(u *pdf.Update) error {
	f := e.font

	origFont := f.sfnt.Clone()
	origFont.CMapTable = nil
	origFont.Gdef = nil
	origFont.Gsub = nil
	origFont.Gpos = nil

	// The subset contains the used glyphs in order of increasing CID,
	// preceded by .notdef.
	used := slices.Sorted(maps.Keys(e.text))
	glyphs := append([]glyph.ID{0}, used...)
	tag := subsetTag(glyphs, origFont.NumGlyphs())
	subsetFont := origFont.Subset(glyphs)
	fontName := pdf.Name(tag + "+" + f.PostScriptName())

	maxCID := glyphs[len(glyphs)-1]
	cidToGID := make([]byte, 2*(int(maxCID)+1))
	for subsetGID, cid := range glyphs {
		cidToGID[2*int(cid)] = byte(subsetGID >> 8)
		cidToGID[2*int(cid)+1] = byte(subsetGID)
	}

	dw := f.glyphWidth(0)
	ww := make(map[glyph.ID]float64)
	for _, cid := range used {
		ww[cid] = f.glyphWidth(cid)
	}

	isSymbolic := false
	for _, text := range e.text {
		for _, r := range text {
			if r >= 0x7f {
				isSymbolic = true
			}
		}
	}

	descRef := u.Alloc()
	cidFontRef := u.Alloc()
	fontFileRef := u.Alloc()
	cidToGIDRef := u.Alloc()
	toUnicodeRef := u.Alloc()

	qv := 1000 * subsetFont.FontMatrix[3]
	bbox := subsetFont.FontBBoxPDF().Rounded()
	fd := pdf.Dict{
		"Type":        pdf.Name("FontDescriptor"),
		"FontName":    fontName,
		"Flags":       descriptorFlags(subsetFont.IsFixedPitch(), subsetFont.IsSerif, isSymbolic, subsetFont.IsScript, subsetFont.IsItalic),
		"FontBBox":    pdf.Array{number(bbox.LLx), number(bbox.LLy), number(bbox.URx), number(bbox.URy)},
		"ItalicAngle": number(math.Round(subsetFont.ItalicAngle*10) / 10),
		"Ascent":      number(math.Round(float64(subsetFont.Ascent) * qv)),
		"Descent":     number(math.Round(float64(subsetFont.Descent) * qv)),
		"CapHeight":   number(math.Round(float64(subsetFont.CapHeight) * qv)),
		"StemV":       pdf.Integer(0),
		"FontFile2":   fontFileRef,
	}
	if subsetFont.XHeight != 0 {
		fd["XHeight"] = number(math.Round(float64(subsetFont.XHeight) * qv))
	}
	if subsetFont.LineGap != 0 {
		leading := subsetFont.Ascent - subsetFont.Descent + subsetFont.LineGap
		fd["Leading"] = number(math.Round(float64(leading) * qv))
	}

	cidFont := pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("CIDFontType2"),
		"BaseFont": fontName,
		"CIDSystemInfo": pdf.Dict{
			"Registry":   pdf.String("Adobe"),
			"Ordering":   pdf.String("Identity"),
			"Supplement": pdf.Integer(0),
		},
		"FontDescriptor": descRef,
		"DW":             number(dw),
		"CIDToGIDMap":    cidToGIDRef,
	}
	if w := encodeWidths(ww, dw); len(w) > 0 {
		cidFont["W"] = w
	}

	fontDict := pdf.Dict{
		"Type":            pdf.Name("Font"),
		"Subtype":         pdf.Name("Type0"),
		"BaseFont":        fontName,
		"Encoding":        pdf.Name("Identity-H"),
		"DescendantFonts": pdf.Array{cidFontRef},
		"ToUnicode":       toUnicodeRef,
	}

	buf := &bytes.Buffer{}
	length1, err := subsetFont.WriteTrueTypePDF(buf)
	if err != nil {
		return err
	}
	fontFile, err := pdf.FlateStream(pdf.Dict{"Length1": pdf.Integer(length1)}, buf.Bytes())
	if err != nil {
		return err
	}

	cidToGIDStream, err := pdf.FlateStream(nil, cidToGID)
	if err != nil {
		return err
	}

	cmap, err := toUnicode(e.text)
	if err != nil {
		return err
	}
	toUnicodeStream, err := pdf.FlateStream(nil, cmap)
	if err != nil {
		return err
	}

	u.Put(e.Ref, fontDict)
	u.Put(cidFontRef, cidFont)
	u.Put(descRef, fd)
	u.Put(fontFileRef, fontFile)
	u.Put(cidToGIDRef, cidToGIDStream)
	u.Put(toUnicodeRef, toUnicodeStream)
	return nil
}

// Possible values for PDF Font Descriptor Flags.
const (
	flagFixedPitch  pdf.Integer = 1 << 0
	flagSerif       pdf.Integer = 1 << 1
	flagSymbolic    pdf.Integer = 1 << 2
	flagScript      pdf.Integer = 1 << 3
	flagNonsymbolic pdf.Integer = 1 << 5
	flagItalic      pdf.Integer = 1 << 6
)

// descriptorFlags computes the /Flags entry of a font descriptor.
// Exactly one of the Symbolic and Nonsymbolic flags is set.
func descriptorFlags(fixedPitch, serif, symbolic, script, italic bool) pdf.Integer {
	var flags pdf.Integer
	if fixedPitch {
		flags |= flagFixedPitch
	}
	if serif {
		flags |= flagSerif
	}
	if symbolic {
		flags |= flagSymbolic
	} else {
		flags |= flagNonsymbolic
	}
	if script {
		flags |= flagScript
	}
	if italic {
		flags |= flagItalic
	}
	return flags
}

// encodeWidths converts glyph widths into the format of the /W entry of a
// CIDFont dictionary.  Glyphs with the default width are omitted, and
// consecutive CIDs are combined into a single range.
func encodeWidths(ww map[glyph.ID]float64, dw float64) pdf.Array {
	var cids []glyph.ID
	for cid, w := range ww {
		if w != dw {
			cids = append(cids, cid)
		}
	}
	slices.Sort(cids)

	var res pdf.Array
	for i := 0; i < len(cids); {
		start := i
		var widths pdf.Array
		for i < len(cids) && cids[i] == cids[start]+glyph.ID(i-start) {
			widths = append(widths, number(ww[cids[i]]))
			i++
		}
		res = append(res, pdf.Integer(cids[start]), widths)
	}
	return res
}

// number returns x as an integer object if it has no fractional part.
func number(x float64) pdf.Object {
	if x == math.Trunc(x) && math.Abs(x) < 1<<31 {
		return pdf.Integer(x)
	}
	return pdf.Real(x)
}
