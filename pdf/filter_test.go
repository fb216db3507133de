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
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlateRoundTrip(t *testing.T) {
	data := []byte("BT /F1 12 Tf (Hello) Tj ET")
	stm, err := FlateStream(Dict{"Type": Name("Test")}, data)
	if err != nil {
		t.Fatal(err)
	}
	if stm.Dict["Filter"] != Name("FlateDecode") {
		t.Errorf("wrong filter %s", Format(stm.Dict["Filter"]))
	}
	if stm.Dict["Type"] != Name("Test") {
		t.Error("dictionary entries not copied")
	}

	r, err := DecodeStream(nil, stm)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("got %q, want %q", out, data)
	}
}

func TestPNGPredictors(t *testing.T) {
	rows := []byte{
		2, 1, 2, 3, // Up, previous row is zero
		2, 1, 1, 1, // Up
		1, 1, 1, 1, // Sub
		0, 9, 8, 7, // None
		3, 2, 2, 2, // Average
		4, 1, 1, 1, // Paeth
	}
	want := []byte{
		1, 2, 3,
		2, 3, 4,
		1, 2, 3,
		9, 8, 7,
		6, 9, 10, // 2+(0+9)/2, 2+(6+8)/2, 2+(9+7)/2
		7, 10, 11,
	}

	buf := &bytes.Buffer{}
	zw := zlib.NewWriter(buf)
	zw.Write(rows)
	zw.Close()

	stm := &Stream{
		Dict: Dict{
			"Filter":      Name("FlateDecode"),
			"DecodeParms": Dict{"Predictor": Integer(12), "Columns": Integer(3)},
		},
		R: bytes.NewReader(buf.Bytes()),
	}
	r, err := DecodeStream(nil, stm)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(want, out); d != "" {
		t.Error(d)
	}
}

func TestUnsupportedFilter(t *testing.T) {
	stm := &Stream{
		Dict: Dict{"Filter": Name("DCTDecode")},
		R:    bytes.NewReader(nil),
	}
	_, err := DecodeStream(nil, stm)
	if err == nil {
		t.Error("unsupported filter accepted")
	}
}

func decodeString(t *testing.T, filter Object, data string) ([]byte, error) {
	t.Helper()
	stm := &Stream{
		Dict: Dict{"Filter": filter},
		R:    strings.NewReader(data),
	}
	r, err := DecodeStream(nil, stm)
	if err != nil {
		t.Fatal(err)
	}
	return io.ReadAll(r)
}

func TestASCII85(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := range 12 {
		in := make([]byte, n*7)
		rng.Read(in)
		if n == 3 {
			clear(in[4:12]) // exercise the "z" abbreviation
		}
		enc := make([]byte, ascii85.MaxEncodedLen(len(in)))
		enc = enc[:ascii85.Encode(enc, in)]

		// insert some white space
		text := string(enc)
		if len(text) > 10 {
			text = text[:5] + "\n" + text[5:10] + " \t" + text[10:]
		}

		out, err := decodeString(t, Name("ASCII85Decode"), text+"~>")
		if err != nil {
			t.Errorf("%d: %v", n, err)
			continue
		}
		if !bytes.Equal(in, out) {
			t.Errorf("%d: got %x, want %x", n, out, in)
		}
	}
}

func TestASCIIHex(t *testing.T) {
	cases := []struct {
		in  string
		out []byte
	}{
		{">", []byte{}},
		{"414243>", []byte("ABC")},
		{"41 42\n4 3>", []byte("ABC")},
		{"000fF0ff>", []byte{0x00, 0x0F, 0xF0, 0xFF}},
		{"7>", []byte{0x70}},
	}
	for _, test := range cases {
		out, err := decodeString(t, Name("AHx"), test.in)
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if !bytes.Equal(out, test.out) {
			t.Errorf("%q: got %x, want %x", test.in, out, test.out)
		}
	}
}

func TestASCIIErrors(t *testing.T) {
	cases := []struct {
		desc   string
		filter Name
		in     string
	}{
		{"missing end marker", "ASCII85Decode", "abc"},
		{"invalid character", "ASCII85Decode", "ab{cd~>"},
		{"single digit group", "ASCII85Decode", "a~>"},
		{"broken end marker", "ASCII85Decode", "abcde~x"},
		{"missing end marker", "ASCIIHexDecode", "4142"},
		{"invalid character", "ASCIIHexDecode", "41g2>"},
	}
	for _, test := range cases {
		_, err := decodeString(t, test.filter, test.in)
		if err == nil || err == io.EOF {
			t.Errorf("%s, %s: missing error", test.filter, test.desc)
		}
	}
}

func TestFilterChain(t *testing.T) {
	buf := &bytes.Buffer{}
	zw := zlib.NewWriter(buf)
	zw.Write([]byte("q 1 0 0 1 0 0 cm Q"))
	zw.Close()
	hex := fmt.Sprintf("%x>", buf.Bytes())

	out, err := decodeString(t, Array{Name("ASCIIHexDecode"), Name("FlateDecode")}, hex)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "q 1 0 0 1 0 0 cm Q" {
		t.Errorf("got %q", out)
	}
}
