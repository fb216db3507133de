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
	"fmt"
	"maps"
	"slices"

	"golang.org/x/text/encoding/unicode"

	"seehuhn.de/go/sfnt/glyph"
)

// maxBFChar is the maximal number of entries in a bfchar block.
const maxBFChar = 100

var utf16 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// toUnicode returns the body of a ToUnicode CMap stream which maps the
// two-byte codes of the used glyphs to their text.
func toUnicode(text map[glyph.ID][]rune) ([]byte, error) {
	enc := utf16.NewEncoder()

	buf := &bytes.Buffer{}
	buf.WriteString(toUnicodeHeader)

	codes := slices.Sorted(maps.Keys(text))
	for len(codes) > 0 {
		n := min(len(codes), maxBFChar)
		fmt.Fprintf(buf, "%d beginbfchar\n", n)
		for _, code := range codes[:n] {
			dst, err := enc.String(string(text[code]))
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(buf, "<%04x> <%x>\n", uint16(code), dst)
		}
		buf.WriteString("endbfchar\n")
		codes = codes[n:]
	}

	buf.WriteString(toUnicodeFooter)
	return buf.Bytes(), nil
}

const toUnicodeHeader = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo <<
/Registry (Adobe)
/Ordering (UCS)
/Supplement 0
>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <ffff>
endcodespacerange
`

const toUnicodeFooter = `endcmap
CMapName currentdict /CMap defineresource pop
end
end
`
