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

package pdf

import (
	"testing"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in  Object
		out string
	}{
		{nil, "null"},
		{Bool(true), "true"},
		{Integer(-12), "-12"},
		{Real(2.5), "2.5"},
		{Real(1), "1."},
		{String("hello"), "(hello)"},
		{String(""), "<>"},
		{String{0, 1, 2}, "<000102>"},
		{String("a(b"), `(a\(b)`},
		{String("(ok)"), "(ok)"},
		{String(`a\b`), `(a\\b)`},
		{Name("Type"), "/Type"},
		{Name("A B"), "/A#20B"},
		{Name("a#b"), "/a#23b"},
		{Array{Integer(1), Real(2.5), nil}, "[1 2.5 null]"},
		{Dict{"Type": Name("Page"), "Empty": nil}, "<<\n/Type /Page\n>>"},
		{Dict{"B": Integer(2), "A": Integer(1)}, "<<\n/A 1\n/B 2\n>>"},
		{NewReference(12, 0), "12 0 R"},
		{PlainStream(nil, []byte("abc")), "<<\n/Length 3\n>> stream"},
	}
	for _, test := range cases {
		out := Format(test.in)
		if out != test.out {
			t.Errorf("Format(%#v) = %q, want %q", test.in, out, test.out)
		}
	}
}

func TestRectangle(t *testing.T) {
	llx, lly, urx, ury, err := Rectangle(Array{Integer(612), Real(792), Integer(0), Integer(0)})
	if err != nil {
		t.Fatal(err)
	}
	if llx != 0 || lly != 0 || urx != 612 || ury != 792 {
		t.Errorf("got [%g %g %g %g]", llx, lly, urx, ury)
	}

	_, _, _, _, err = Rectangle(Array{Integer(0), Integer(0), Name("x"), Integer(1)})
	if err == nil {
		t.Error("invalid rectangle accepted")
	}
	_, _, _, _, err = Rectangle(Array{Integer(0), Integer(0)})
	if err == nil {
		t.Error("short rectangle accepted")
	}
}

func TestVersion(t *testing.T) {
	for v := V1_0; v < tooHighVersion; v++ {
		s, err := v.ToString()
		if err != nil {
			t.Fatal(err)
		}
		w, err := ParseVersion(s)
		if err != nil {
			t.Fatal(err)
		}
		if w != v {
			t.Errorf("%s: got %d, want %d", s, w, v)
		}
	}
	if V1_7.String() != "1.7" || V2_0.String() != "2.0" {
		t.Error("wrong version strings")
	}
	if _, err := ParseVersion("1.8"); err == nil {
		t.Error("version 1.8 accepted")
	}
}
