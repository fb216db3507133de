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
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"seehuhn.de/go/sliprule/assets"
	"seehuhn.de/go/sliprule/internal/memfile"
	"seehuhn.de/go/sliprule/pagetree"
	"seehuhn.de/go/sliprule/pdf"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.pdf")

	// an existing file is replaced
	err := os.WriteFile(output, []byte("old contents"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	s := &Stamper{}
	data := memfile.Document(3, nil)
	res, err := s.Run(bytes.NewReader(data), output, testDate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Amended under the slip rule - 19/10/2026" {
		t.Errorf("wrong message %q", res.Message)
	}
	if res.Output != output || res.Page != 0 || res.FontName != "F2" {
		t.Errorf("unexpected result %+v", res)
	}

	out, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, data) {
		t.Error("output does not start with the input")
	}
	r, err := pdf.NewReader(out)
	if err != nil {
		t.Fatal(err)
	}
	n, err := pagetree.NumPages(r)
	if err != nil || n != 3 {
		t.Errorf("got %d pages (%v)", n, err)
	}

	checkNoTempFiles(t, dir, "out.pdf")
}

// TestRunSamePath stamps the output of a first run again, writing to
// the same file.  Only the second notice must be shown on top.
func TestRunSamePath(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "order.pdf")
	err := os.WriteFile(output, memfile.Document(1, nil), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	dates := []time.Time{
		time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC),
	}
	var results []*Result
	for _, date := range dates {
		in, err := os.ReadFile(output)
		if err != nil {
			t.Fatal(err)
		}
		res, err := (&Stamper{}).Run(bytes.NewReader(in), output, date)
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, res)
	}
	if results[0].Geometry != results[1].Geometry {
		t.Errorf("geometry changed: %+v != %+v", results[0].Geometry, results[1].Geometry)
	}

	out, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	r, err := pdf.NewReader(out)
	if err != nil {
		t.Fatal(err)
	}
	page, err := pagetree.FindPage(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	contents, err := pdf.GetArray(r, page.Dict["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	fonts, err := pdf.GetDict(r, page.Resources["Font"])
	if err != nil {
		t.Fatal(err)
	}
	last := readStream(t, r, contents[len(contents)-1])
	got := shownText(t, r, fonts[pdf.Name(results[1].FontName)], last)
	if got != "Amended under the slip rule - 30/07/2024" {
		t.Errorf("last notice reads %q", got)
	}

	checkNoTempFiles(t, dir, "order.pdf")
}

func TestRunOptions(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.pdf")
	s := &Stamper{
		Assets:   assets.Map{assets.FontName: goregular.TTF},
		FontSize: 24,
		Page:     1,
	}
	res, err := s.Run(bytes.NewReader(memfile.Document(2, nil)), output, testDate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Page != 1 {
		t.Errorf("stamped page %d", res.Page)
	}

	def := &Stamper{}
	res0, err := def.Run(bytes.NewReader(memfile.Document(2, nil)), output, testDate)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := res.Geometry.Height, 2*res0.Geometry.Height; got != want {
		t.Errorf("height %g, want %g", got, want)
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name   string
		s      *Stamper
		input  []byte
		output string
		stage  Stage
		cause  func(error) bool
	}{
		{
			name:   "malformed",
			s:      &Stamper{},
			input:  []byte("%PDF-1.7\ngarbage"),
			output: "out.pdf",
			stage:  StageOpen,
			cause:  pdf.IsMalformed,
		},
		{
			name:   "missing font",
			s:      &Stamper{Assets: assets.Map{}},
			input:  memfile.Document(1, nil),
			output: "out.pdf",
			stage:  StageFont,
			cause:  func(err error) bool { return errors.Is(err, fs.ErrNotExist) },
		},
		{
			name:   "corrupt font",
			s:      &Stamper{Assets: assets.Map{assets.FontName: []byte("not a font")}},
			input:  memfile.Document(1, nil),
			output: "out.pdf",
			stage:  StageFont,
			cause:  func(err error) bool { return err != nil },
		},
		{
			name:   "no pages",
			s:      &Stamper{},
			input:  memfile.Document(0, nil),
			output: "out.pdf",
			stage:  StageStamp,
			cause:  func(err error) bool { return errors.Is(err, ErrNoPages) },
		},
		{
			name:   "no such page",
			s:      &Stamper{Page: 7},
			input:  memfile.Document(1, nil),
			output: "out.pdf",
			stage:  StageStamp,
			cause:  func(err error) bool { return errors.Is(err, pagetree.ErrPageNotFound) },
		},
		{
			name:   "missing directory",
			s:      &Stamper{},
			input:  memfile.Document(1, nil),
			output: filepath.Join("missing", "out.pdf"),
			stage:  StageSave,
			cause:  func(err error) bool { return errors.Is(err, fs.ErrNotExist) },
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			output := filepath.Join(dir, test.output)
			_, err := test.s.Run(bytes.NewReader(test.input), output, testDate)

			var stampErr *Error
			if !errors.As(err, &stampErr) {
				t.Fatalf("got error %v", err)
			}
			if stampErr.Stage != test.stage {
				t.Errorf("stage %q, want %q", stampErr.Stage, test.stage)
			}
			if !test.cause(err) {
				t.Errorf("unexpected cause %v", err)
			}
			if !strings.HasPrefix(err.Error(), test.stage.String()+": ") {
				t.Errorf("unexpected message %q", err)
			}

			_, statErr := os.Stat(output)
			if !errors.Is(statErr, fs.ErrNotExist) {
				t.Error("output file created")
			}
			checkNoTempFiles(t, dir)
		})
	}
}

// checkNoTempFiles makes sure that dir contains exactly the given files.
func checkNoTempFiles(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("directory contains %v, want %v", got, want)
	}
}
