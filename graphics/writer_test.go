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
	"bytes"
	"image/color"
	"io"
	"testing"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/sliprule/pdf"
)

func TestStampSequence(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)

	w.ResetContext()
	w.PushGraphicsState()
	w.SetFillColor(color.White)
	w.Rectangle(10, 20.5, 100, 12)
	w.Fill()
	w.TextStart()
	w.SetFillColor(color.RGBA{R: 255, A: 255})
	w.TextSetFont("F1", 12)
	w.TextSetMatrix(matrix.Translate(10, 20.5))
	w.TextShowRaw(pdf.String{0, 1})
	w.TextEnd()
	w.PopGraphicsState()

	err := w.Close()
	if err != nil {
		t.Fatal(err)
	}

	want := "Q\nq\n1 1 1 rg\n10 20.5 100 12 re\nf\nBT\n1 0 0 rg\n/F1 12 Tf\n1 0 0 1 10 20.5 Tm\n<0001> Tj\nET\nQ\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSetFillColor(t *testing.T) {
	cases := []struct {
		c    color.Color
		want string
	}{
		{color.Black, "0 0 0 rg\n"},
		{color.Gray{Y: 0}, "0 g\n"},
		{color.Gray{Y: 255}, "1 g\n"},
		{color.Gray{Y: 128}, "0.502 g\n"},
		{color.RGBA{R: 0, G: 0, B: 255, A: 255}, "0 0 1 rg\n"},
	}
	for _, test := range cases {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)
		w.SetFillColor(test.c)
		if w.Err != nil {
			t.Fatal(w.Err)
		}
		if got := buf.String(); got != test.want {
			t.Errorf("%v: got %q, want %q", test.c, got, test.want)
		}
	}
}

func TestInvalidSequences(t *testing.T) {
	cases := []struct {
		name string
		ops  func(w *Writer)
	}{
		{"Fill without path", func(w *Writer) { w.Fill() }},
		{"ET without BT", func(w *Writer) { w.TextEnd() }},
		{"Q without q", func(w *Writer) { w.PopGraphicsState() }},
		{"Tm outside text", func(w *Writer) { w.TextSetMatrix(matrix.Identity) }},
		{"Tj without font", func(w *Writer) {
			w.TextStart()
			w.TextShowRaw(pdf.String("x"))
		}},
		{"q inside text", func(w *Writer) {
			w.TextStart()
			w.PushGraphicsState()
		}},
		{"reset after q", func(w *Writer) {
			w.PushGraphicsState()
			w.ResetContext()
		}},
		{"unclosed BT", func(w *Writer) { w.TextStart() }},
		{"empty font name", func(w *Writer) { w.TextSetFont("", 12) }},
	}
	for _, test := range cases {
		w := NewWriter(io.Discard)
		test.ops(w)
		if w.Close() == nil {
			t.Errorf("%s: missing error", test.name)
		}
	}
}

// TestStickyError checks that operators after an error are ignored.
func TestStickyError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	w.Fill()
	first := w.Err
	w.PushGraphicsState()
	if w.Err != first {
		t.Error("error was replaced")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestResourceName(t *testing.T) {
	cases := []struct {
		dict pdf.Dict
		want pdf.Name
	}{
		{nil, "F1"},
		{pdf.Dict{"F1": nil}, "F2"},
		{pdf.Dict{"F2": nil}, "F1"},
		{pdf.Dict{"F1": nil, "F2": nil, "F3": nil}, "F4"},
		{pdf.Dict{"F1": nil, "F3": nil, "Helv": nil}, "F4"},
		{pdf.Dict{"F3": nil, "F4": nil, "F2": nil}, "F1"},
	}
	for _, test := range cases {
		got := ResourceName(test.dict, "F")
		if got != test.want {
			t.Errorf("%v: got %s, want %s", test.dict, got, test.want)
		}
		if _, used := test.dict[got]; used {
			t.Errorf("%v: name %s is already used", test.dict, got)
		}
	}
}
