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

package memfile

import (
	"fmt"
	"strings"
)

// Options control the structure of the documents made by [Document].
type Options struct {
	// Version is the header version.  The default is "1.7".
	Version string

	// MediaBox is the text of the media box array, placed on the root
	// of the page tree.  The default is "[0 0 612 792]".  Use "-" to
	// omit the media box.
	MediaBox string

	XRefStream bool
	Compress   bool

	// Packed stores the page objects in an object stream.
	// This requires XRefStream.
	Packed bool

	// Security, if set, encrypts the document.
	Security *Security
}

// Document returns a PDF file with numPages pages.  Each page shows
// one line of text using the font resource /F1.
func Document(numPages int, opt *Options) []byte {
	if opt == nil {
		opt = &Options{}
	}
	version := opt.Version
	if version == "" {
		version = "1.7"
	}
	mediaBox := opt.MediaBox
	if mediaBox == "" {
		mediaBox = "[0 0 612 792]"
	}

	b := New(version)
	b.XRefStream = opt.XRefStream
	b.Compress = opt.Compress
	b.Security = opt.Security
	b.ID = [2]string{"0123456789abcdef", "fedcba9876543210"}

	catalog := b.Reserve()
	pages := b.Reserve()
	font := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for i := 0; i < numPages; i++ {
		text := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1)
		contents := b.AddStream("", []byte(text))
		page := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>",
			pages, contents, font)
		var num int
		if opt.Packed {
			num = b.AddCompressed(page)
		} else {
			num = b.Add(page)
		}
		kids = append(kids, fmt.Sprintf("%d 0 R", num))
	}

	pagesDict := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), numPages)
	if mediaBox != "-" {
		pagesDict += " /MediaBox " + mediaBox
	}
	b.Set(pages, pagesDict+" >>")
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))

	b.Info = b.Reserve()
	b.Set(b.Info, "<< /Producer "+b.String(b.Info, "memfile")+" >>")
	b.Root = catalog
	return b.Bytes()
}
