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
	"bufio"
	"bytes"
	"errors"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/sliprule/font"
	"seehuhn.de/go/sliprule/graphics"
	"seehuhn.de/go/sliprule/pagetree"
	"seehuhn.de/go/sliprule/pdf"
)

// Document is a PDF document which is being stamped.
// A Document can be saved only once.
type Document struct {
	r *pdf.Reader
	u *pdf.Update

	font     *font.Font
	embedded *font.Embedded

	saved bool
}

// Open reads a PDF document from r.
func Open(r io.Reader) (*Document, error) {
	pr, err := pdf.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d := &Document{
		r: pr,
		u: pdf.NewUpdate(pr),
	}
	return d, nil
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() (int, error) {
	return pagetree.NumPages(d.u)
}

// AddFont sets the font used for the notice.  The glyphs used are
// embedded into the document when it is saved.
func (d *Document) AddFont(f *font.Font) {
	d.font = f
	d.embedded = f.Embed(d.u)
}

// Stamped describes a notice which has been added to a page.
type Stamped struct {
	Page     int
	Geometry Geometry
	FontName pdf.Name
}

// Stamp adds the notice text to page n.  The area of the notice is first
// painted white, then the text is drawn in red.
func (d *Document) Stamp(n int, text string, size float64) (*Stamped, error) {
	if d.saved {
		return nil, errSaved
	}
	if d.embedded == nil {
		return nil, errors.New("no font set")
	}

	numPages, err := d.NumPages()
	if err != nil {
		return nil, err
	}
	if numPages == 0 {
		return nil, ErrNoPages
	}
	page, err := pagetree.FindPage(d.u, n)
	if err != nil {
		return nil, err
	}

	g, err := Measure(d.font, text, size, page.MediaBox)
	if err != nil {
		return nil, err
	}

	pageDict, err := pdf.GetDict(d.u, page.Ref)
	if err != nil {
		return nil, err
	}
	pageDict = pageDict.Clone()

	// Add the font to a copy of the page resources, since the resource
	// dictionaries may be shared with other pages.
	resources := page.Resources.Clone()
	if resources == nil {
		resources = pdf.Dict{}
	}
	fonts, err := pdf.GetDict(d.u, resources["Font"])
	if err != nil {
		return nil, err
	}
	fonts = fonts.Clone()
	if fonts == nil {
		fonts = pdf.Dict{}
	}
	fontName := graphics.ResourceName(fonts, "F")
	fonts[fontName] = d.embedded.Ref
	resources["Font"] = fonts

	buf := &bytes.Buffer{}
	w := graphics.NewWriter(buf)
	w.ResetContext()
	w.PushGraphicsState()
	overpaint(w, g)
	draw(w, g, fontName, size, d.embedded.Encode(text))
	w.PopGraphicsState()
	err = w.Close()
	if err != nil {
		return nil, err
	}

	saveRef := d.u.Alloc()
	d.u.Put(saveRef, pdf.PlainStream(nil, []byte("q\n")))
	stampRef := d.u.Alloc()
	stm, err := pdf.FlateStream(nil, buf.Bytes())
	if err != nil {
		return nil, err
	}
	d.u.Put(stampRef, stm)

	contents, err := pagetree.AppendContents(d.u, pageDict, saveRef, stampRef)
	if err != nil {
		return nil, err
	}
	pageDict["Contents"] = contents
	pageDict["Resources"] = resources
	d.u.Put(page.Ref, pageDict)

	res := &Stamped{
		Page:     n,
		Geometry: g,
		FontName: fontName,
	}
	return res, nil
}

// red is the colour of the notice text.
var red = color.RGBA{R: 255, A: 255}

// overpaint hides an earlier notice by filling the notice area with white.
func overpaint(w *graphics.Writer, g Geometry) {
	w.SetFillColor(color.White)
	w.Rectangle(g.X, g.Y, g.Width, g.Height)
	w.Fill()
}

// draw shows the encoded notice text at the origin of the notice area.
func draw(w *graphics.Writer, g Geometry, fontName pdf.Name, size float64, codes pdf.String) {
	w.TextStart()
	w.SetFillColor(red)
	w.TextSetFont(fontName, size)
	w.TextSetMatrix(matrix.Translate(g.X, g.Y))
	w.TextShowRaw(codes)
	w.TextEnd()
}

// WriteTo writes the stamped document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d.saved {
		return 0, errSaved
	}
	d.saved = true
	return d.u.WriteTo(w)
}

// Save writes the stamped document to the file with the given name.
// An existing file is replaced and its permission bits are kept; new
// files are created with mode 0644.  The file is written under a
// temporary name first, so that no partial output is left behind if an
// error occurs.
func (d *Document) Save(name string) error {
	if d.saved {
		return errSaved
	}

	perm := os.FileMode(0o644)
	if fi, err := os.Stat(name); err == nil && fi.Mode().IsRegular() {
		perm = fi.Mode().Perm()
	}

	fd, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	tmpName := fd.Name()
	success := false
	defer func() {
		if !success {
			fd.Close()
			os.Remove(tmpName)
		}
	}()

	out := bufio.NewWriter(fd)
	_, err = d.WriteTo(out)
	if err != nil {
		return err
	}
	err = out.Flush()
	if err != nil {
		return err
	}
	err = fd.Chmod(perm)
	if err != nil {
		return err
	}
	err = fd.Close()
	if err != nil {
		return err
	}
	err = os.Rename(tmpName, name)
	if err != nil {
		return err
	}
	success = true
	return nil
}
