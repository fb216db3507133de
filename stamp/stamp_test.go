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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/sliprule/pagetree"
)

func TestMessage(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC), "Amended under the slip rule - 19/10/2026"},
		{time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC), "Amended under the slip rule - 07/03/2024"},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "Amended under the slip rule - 29/02/2024"},
		{time.Date(999, 1, 2, 0, 0, 0, 0, time.UTC), "Amended under the slip rule - 02/01/0999"},
	}
	for _, test := range cases {
		got := Message(test.date)
		if got != test.want {
			t.Errorf("%s: got %q, want %q", test.date, got, test.want)
		}
	}
}

// fixedMetrics gives every character the same width.
type fixedMetrics struct {
	charWidth float64
	height    float64
}

func (m fixedMetrics) Width(text string) float64 {
	return m.charWidth * float64(len([]rune(text)))
}

func (m fixedMetrics) Height() float64 {
	return m.height
}

func TestMeasure(t *testing.T) {
	cases := []struct {
		name string
		m    Metrics
		text string
		size float64
		page rect.Rect
		want Geometry
	}{
		{
			name: "letter",
			m:    fixedMetrics{charWidth: 500, height: 1000},
			text: "abcdefghijklmnopqrst",
			size: 12,
			page: pagetree.Letter,
			want: Geometry{X: 246, Y: 768, Width: 120, Height: 12},
		},
		{
			name: "origin ignored",
			m:    fixedMetrics{charWidth: 500, height: 1000},
			text: "abcdefghijklmnopqrst",
			size: 12,
			page: rect.Rect{LLx: 100, LLy: 50, URx: 712, URy: 842},
			want: Geometry{X: 246, Y: 768, Width: 120, Height: 12},
		},
		{
			name: "A4",
			m:    fixedMetrics{charWidth: 250, height: 1200},
			text: "xxxx",
			size: 10,
			page: rect.Rect{URx: 595, URy: 842},
			want: Geometry{X: 292.5, Y: 818, Width: 10, Height: 12},
		},
		{
			name: "wider than page",
			m:    fixedMetrics{charWidth: 1000, height: 1000},
			text: "0123456789",
			size: 100,
			page: rect.Rect{URx: 200, URy: 200},
			want: Geometry{X: -400, Y: 0, Width: 1000, Height: 100},
		},
		{
			name: "empty text",
			m:    fixedMetrics{charWidth: 500, height: 1000},
			text: "",
			size: 12,
			page: pagetree.Letter,
			want: Geometry{X: 306, Y: 768, Width: 0, Height: 12},
		},
	}
	for _, test := range cases {
		got, err := Measure(test.m, test.text, test.size, test.page)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if d := cmp.Diff(test.want, got); d != "" {
			t.Errorf("%s: %s", test.name, d)
		}
	}
}

func TestMeasureBadFont(t *testing.T) {
	for _, h := range []float64{0, -10, math.NaN()} {
		_, err := Measure(fixedMetrics{charWidth: 500, height: h}, "x", 12, pagetree.Letter)
		if !errors.Is(err, ErrFontMetrics) {
			t.Errorf("height %g: got error %v", h, err)
		}
	}
	if msg := ErrFontMetrics.Error(); msg != "font bounding box has no positive height" {
		t.Errorf("wrong message %q", msg)
	}
}

func TestGeometryRect(t *testing.T) {
	g := Geometry{X: 10, Y: 20, Width: 100, Height: 12}
	want := rect.Rect{LLx: 10, LLy: 20, URx: 110, URy: 32}
	if d := cmp.Diff(want, g.Rect()); d != "" {
		t.Error(d)
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	err := error(&Error{Stage: StageSave, Err: cause})
	if got := err.Error(); got != "writing output: boom" {
		t.Errorf("wrong message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not found")
	}

	for s := StageInput; s <= StageSave; s++ {
		if s.String() == "unknown stage" {
			t.Errorf("stage %d has no name", s)
		}
	}
}
