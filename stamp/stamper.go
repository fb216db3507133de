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
	"io"
	"time"

	"seehuhn.de/go/sliprule/assets"
	"seehuhn.de/go/sliprule/font"
)

// Stamper adds the amendment notice to a document and saves the result.
// The zero value uses the bundled assets and the default settings.
type Stamper struct {
	// Assets is used to load the font.  If this is nil, [assets.Bundled]
	// is used.
	Assets assets.Loader

	// FontSize is the font size of the notice.  If this is zero,
	// [DefaultFontSize] is used.
	FontSize float64

	// Page is the index of the page which receives the notice,
	// starting at 0.
	Page int
}

// Result describes a successful run of the stamper.
type Result struct {
	Message  string
	Page     int
	Geometry Geometry
	FontName string
	Output   string
}

// Run reads a PDF document from in, stamps it with the notice for the
// given date, and writes the result to the file output.
func (s *Stamper) Run(in io.Reader, output string, date time.Time) (*Result, error) {
	loader := s.Assets
	if loader == nil {
		loader = assets.Bundled
	}
	size := s.FontSize
	if size == 0 {
		size = DefaultFontSize
	}

	doc, err := Open(in)
	if err != nil {
		return nil, &Error{Stage: StageOpen, Err: err}
	}

	f, err := loadFont(loader)
	if err != nil {
		return nil, &Error{Stage: StageFont, Err: err}
	}
	doc.AddFont(f)

	msg := Message(date)
	info, err := doc.Stamp(s.Page, msg, size)
	if err != nil {
		return nil, &Error{Stage: StageStamp, Err: err}
	}

	err = doc.Save(output)
	if err != nil {
		return nil, &Error{Stage: StageSave, Err: err}
	}

	res := &Result{
		Message:  msg,
		Page:     info.Page,
		Geometry: info.Geometry,
		FontName: string(info.FontName),
		Output:   output,
	}
	return res, nil
}

func loadFont(loader assets.Loader) (*font.Font, error) {
	fd, err := loader.Open(assets.FontName)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return font.Load(fd)
}
