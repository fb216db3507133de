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
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/sliprule/internal/memfile"
)

func TestUpdate(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			data := memfile.Document(2, layout.opt)
			r, err := NewReader(data)
			if err != nil {
				t.Fatal(err)
			}

			u := NewUpdate(r)
			ref := u.Alloc()
			u.Put(ref, Dict{"Test": Integer(42)})
			stmRef := u.Alloc()
			stm, err := FlateStream(nil, []byte("0 0 m 10 10 l S"))
			if err != nil {
				t.Fatal(err)
			}
			u.Put(stmRef, stm)

			buf := &bytes.Buffer{}
			n, err := u.WriteTo(buf)
			if err != nil {
				t.Fatal(err)
			}
			if n != int64(buf.Len()) {
				t.Errorf("WriteTo returned %d, wrote %d bytes", n, buf.Len())
			}
			out := buf.Bytes()
			if !bytes.HasPrefix(out, data) {
				t.Fatal("original bytes not preserved")
			}

			r2, err := NewReader(out)
			if err != nil {
				t.Fatal(err)
			}
			if r2.xRefIsStream != layout.opt.XRefStream {
				t.Errorf("xRefIsStream = %t", r2.xRefIsStream)
			}

			// all original objects are unchanged
			for num := uint32(1); num < r.Size(); num++ {
				ref := NewReference(num, 0)
				a, err := r.Get(ref)
				if err != nil {
					t.Fatal(err)
				}
				b, err := r2.Get(ref)
				if err != nil {
					t.Fatal(err)
				}
				if Format(a) != Format(b) {
					t.Errorf("object %d changed: %s != %s", num, Format(a), Format(b))
				}
			}

			obj, err := r2.Get(ref)
			if err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(Dict{"Test": Integer(42)}, obj); d != "" {
				t.Error(d)
			}

			stm2, err := GetStream(r2, stmRef)
			if err != nil {
				t.Fatal(err)
			}
			decoded, err := DecodeStream(r2, stm2)
			if err != nil {
				t.Fatal(err)
			}
			body, err := io.ReadAll(decoded)
			if err != nil {
				t.Fatal(err)
			}
			if string(body) != "0 0 m 10 10 l S" {
				t.Errorf("wrong stream data %q", body)
			}

			// the new section points back to the old one
			_, dict, _, err := r2.readXRefSection(r2.lastXRef)
			if err != nil {
				t.Fatal(err)
			}
			if dict["Prev"] != Integer(r.lastXRef) {
				t.Errorf("wrong /Prev %s", Format(dict["Prev"]))
			}
			if dict["Root"] != r.Trailer()["Root"] {
				t.Errorf("wrong /Root %s", Format(dict["Root"]))
			}

			oldID := r.Trailer()["ID"].(Array)
			newID, ok := r2.Trailer()["ID"].(Array)
			if !ok || len(newID) != 2 {
				t.Fatalf("wrong /ID %s", Format(r2.Trailer()["ID"]))
			}
			if Format(newID[0]) != Format(oldID[0]) {
				t.Error("permanent identifier changed")
			}
			if Format(newID[1]) == Format(oldID[1]) {
				t.Error("changing identifier not updated")
			}
		})
	}
}

func TestUpdateTwice(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			data := memfile.Document(1, layout.opt)
			for i := 0; i < 2; i++ {
				r, err := NewReader(data)
				if err != nil {
					t.Fatal(err)
				}
				u := NewUpdate(r)
				u.Put(u.Alloc(), Integer(i))
				buf := &bytes.Buffer{}
				_, err = u.WriteTo(buf)
				if err != nil {
					t.Fatal(err)
				}
				data = buf.Bytes()
			}

			r, err := NewReader(data)
			if err != nil {
				t.Fatal(err)
			}
			sections := 0
			pos := r.lastXRef
			for {
				sections++
				_, dict, _, err := r.readXRefSection(pos)
				if err != nil {
					t.Fatal(err)
				}
				prev, ok := dict["Prev"].(Integer)
				if !ok {
					break
				}
				pos = int64(prev)
			}
			if sections != 3 {
				t.Errorf("found %d sections, want 3", sections)
			}
		})
	}
}

func TestUpdateVersion(t *testing.T) {
	data := memfile.Document(1, &memfile.Options{Version: "1.2"})
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Version() != V1_2 {
		t.Fatalf("wrong input version %s", r.Version())
	}

	u := NewUpdate(r)
	u.EnsureVersion(V1_1)
	if u.Version() != V1_2 {
		t.Errorf("version lowered to %s", u.Version())
	}
	u.EnsureVersion(V1_3)

	buf := &bytes.Buffer{}
	_, err = u.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewReader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if r2.Version() != V1_3 {
		t.Errorf("wrong output version %s", r2.Version())
	}
	catalog, err := r2.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if catalog["Version"] != Name("1.3") {
		t.Errorf("wrong catalog version %s", Format(catalog["Version"]))
	}
	if catalog["Pages"] == nil {
		t.Error("catalog lost its page tree")
	}
}

func TestUpdateNoVersionChange(t *testing.T) {
	data := memfile.Document(1, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	u := NewUpdate(r)
	u.EnsureVersion(V1_3)
	buf := &bytes.Buffer{}
	_, err = u.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewReader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := r2.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if catalog["Version"] != nil {
		t.Errorf("unexpected catalog version %s", Format(catalog["Version"]))
	}
}

func TestDefer(t *testing.T) {
	data := memfile.Document(1, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	u := NewUpdate(r)

	var late Reference
	u.Defer(func(u *Update) error {
		late = u.Alloc()
		u.Put(late, Integer(7))
		return nil
	})

	buf := &bytes.Buffer{}
	_, err = u.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewReader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	obj, err := r2.Get(late)
	if err != nil {
		t.Fatal(err)
	}
	if obj != Integer(7) {
		t.Errorf("got %s", Format(obj))
	}

	_, err = u.WriteTo(&bytes.Buffer{})
	if err == nil {
		t.Error("second WriteTo succeeded")
	}
}

func TestDeferError(t *testing.T) {
	data := memfile.Document(1, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	u := NewUpdate(r)
	errTest := errors.New("test error")
	u.Defer(func(*Update) error { return errTest })

	buf := &bytes.Buffer{}
	_, err = u.WriteTo(buf)
	if !errors.Is(err, errTest) {
		t.Errorf("wrong error %v", err)
	}
	if buf.Len() != 0 {
		t.Error("output written despite error")
	}
}

func TestUpdateGet(t *testing.T) {
	data := memfile.Document(1, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	u := NewUpdate(r)
	root := r.Trailer()["Root"].(Reference)
	u.Put(root, Dict{"Type": Name("Catalog"), "Changed": Bool(true)})

	catalog, err := GetDict(u, root)
	if err != nil {
		t.Fatal(err)
	}
	if catalog["Changed"] != Bool(true) {
		t.Error("overlay not used")
	}
	old, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if old["Changed"] != nil {
		t.Error("original modified")
	}
}

func TestSubsections(t *testing.T) {
	got := subsections([]uint32{1, 2, 3, 7, 9, 10})
	want := [][]uint32{{1, 2, 3}, {7}, {9, 10}}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
	if subsections(nil) != nil {
		t.Error("expected no subsections")
	}
}
