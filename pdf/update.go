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
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Update collects changes to an existing PDF file.  The changes are
// written as an incremental update: the original file is reproduced
// byte for byte, followed by the new and changed objects and a new
// cross-reference section.
//
// If the original file is encrypted, the new objects are encrypted with
// the file's keys and the /Encrypt entry is kept in the new trailer.
type Update struct {
	r *Reader

	next     uint32
	objects  map[uint32]Object
	gens     map[uint32]uint16
	deferred []func(*Update) error
	version  Version

	written bool
}

// NewUpdate starts a new incremental update of the file read by r.
func NewUpdate(r *Reader) *Update {
	return &Update{
		r:       r,
		next:    r.Size(),
		objects: make(map[uint32]Object),
		gens:    make(map[uint32]uint16),
		version: r.Version(),
	}
}

// Alloc allocates a new object number.
func (u *Update) Alloc() Reference {
	if u.next == 0 {
		u.next = 1
	}
	ref := NewReference(u.next, 0)
	u.next++
	return ref
}

// Put stores obj as the new value of the indirect object ref.
// This can be used both for new objects and to replace existing ones.
func (u *Update) Put(ref Reference, obj Object) {
	u.objects[ref.Number] = obj
	u.gens[ref.Number] = ref.Generation
	if ref.Number >= u.next {
		u.next = ref.Number + 1
	}
}

// Get implements the [Getter] interface.  Objects stored using Put take
// precedence over the objects of the original file.
func (u *Update) Get(ref Reference) (Object, error) {
	if obj, ok := u.objects[ref.Number]; ok {
		if u.gens[ref.Number] != ref.Generation {
			return nil, nil
		}
		return obj, nil
	}
	return u.r.Get(ref)
}

// Catalog returns the document catalog, taking changes into account.
func (u *Update) Catalog() (Dict, error) {
	catalog, err := GetDict(u, u.r.trailer["Root"])
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, &MalformedFileError{Err: errors.New("document catalog not found")}
	}
	return catalog, nil
}

// Defer registers a function which is run when the update is written.
// This is used for objects, like font subsets, which can only be
// constructed once all other changes are known.
func (u *Update) Defer(fn func(*Update) error) {
	u.deferred = append(u.deferred, fn)
}

// EnsureVersion makes sure that the updated file declares at least the
// given PDF version.  Since the file header cannot be changed by an
// incremental update, the /Version entry of the document catalog is used.
func (u *Update) EnsureVersion(v Version) {
	if v > u.version {
		u.version = v
	}
}

// Version returns the PDF version the updated file will declare.
func (u *Update) Version() Version {
	return u.version
}

// WriteTo writes the original file followed by the update to w.
// WriteTo can only be called once.
func (u *Update) WriteTo(w io.Writer) (int64, error) {
	if u.written {
		return 0, errors.New("update already written")
	}
	u.written = true

	for len(u.deferred) > 0 {
		fn := u.deferred[0]
		u.deferred = u.deferred[1:]
		err := fn(u)
		if err != nil {
			return 0, err
		}
	}

	err := u.updateCatalogVersion()
	if err != nil {
		return 0, err
	}

	pw := &posWriter{w: w}
	data := u.r.data
	_, err = pw.Write(data)
	if err != nil {
		return pw.pos, err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' && data[len(data)-1] != '\r' {
		_, err = io.WriteString(pw, "\n")
		if err != nil {
			return pw.pos, err
		}
	}

	numbers := make([]uint32, 0, len(u.objects))
	for num := range u.objects {
		numbers = append(numbers, num)
	}
	slices.Sort(numbers)

	offsets := make(map[uint32]int64, len(numbers)+1)
	for _, num := range numbers {
		offsets[num] = pw.pos
		_, err = fmt.Fprintf(pw, "%d %d obj\n", num, u.gens[num])
		if err != nil {
			return pw.pos, err
		}
		obj := u.objects[num]
		if enc := u.r.enc; enc != nil {
			obj, err = enc.encrypt(NewReference(num, u.gens[num]), obj)
			if err != nil {
				return pw.pos, err
			}
		}
		if obj == nil {
			_, err = io.WriteString(pw, "null")
		} else {
			err = obj.PDF(pw)
		}
		if err != nil {
			return pw.pos, err
		}
		_, err = io.WriteString(pw, "\nendobj\n")
		if err != nil {
			return pw.pos, err
		}
	}

	trailer, err := u.newTrailer()
	if err != nil {
		return pw.pos, err
	}
	if u.r.xRefIsStream {
		err = u.writeXRefStream(pw, numbers, offsets, trailer)
	} else {
		err = u.writeXRefTable(pw, numbers, offsets, trailer)
	}
	return pw.pos, err
}

func (u *Update) updateCatalogVersion() error {
	if u.version <= u.r.Version() {
		return nil
	}
	rootRef, ok := u.r.trailer["Root"].(Reference)
	if !ok {
		return errors.New("document catalog not found")
	}
	catalog, err := GetDict(u, rootRef)
	if err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("document catalog not found")
	}
	versionString, err := u.version.ToString()
	if err != nil {
		return err
	}
	catalog = catalog.Clone()
	catalog["Version"] = Name(versionString)
	u.Put(rootRef, catalog)
	return nil
}

func (u *Update) newTrailer() (Dict, error) {
	old := u.r.trailer
	trailer := Dict{
		"Root": old["Root"],
		"Prev": Integer(u.r.lastXRef),
	}
	if old["Info"] != nil {
		trailer["Info"] = old["Info"]
	}
	if old["Encrypt"] != nil {
		trailer["Encrypt"] = old["Encrypt"]
	}

	id, err := updateID(u, old["ID"])
	if err != nil {
		return nil, err
	}
	trailer["ID"] = id
	return trailer, nil
}

// updateID keeps the permanent part of the file identifier and
// generates a new changing part.
func updateID(r Getter, obj Object) (Array, error) {
	fresh := make([]byte, 16)
	_, err := rand.Read(fresh)
	if err != nil {
		return nil, err
	}

	old, _ := Resolve(r, obj)
	if oldID, ok := old.(Array); ok && len(oldID) == 2 {
		if permanent, ok := oldID[0].(String); ok && len(permanent) > 0 {
			return Array{permanent, String(fresh)}, nil
		}
	}

	permanent := make([]byte, 16)
	_, err = rand.Read(permanent)
	if err != nil {
		return nil, err
	}
	return Array{String(permanent), String(fresh)}, nil
}

func (u *Update) writeXRefTable(pw *posWriter, numbers []uint32, offsets map[uint32]int64, trailer Dict) error {
	xrefPos := pw.pos
	_, err := io.WriteString(pw, "xref\n")
	if err != nil {
		return err
	}
	for _, sub := range subsections(numbers) {
		_, err = io.WriteString(pw, formatSubsection(sub[0], len(sub)))
		if err != nil {
			return err
		}
		for _, num := range sub {
			_, err = io.WriteString(pw, formatXRefEntry(offsets[num], u.gens[num]))
			if err != nil {
				return err
			}
		}
	}

	trailer["Size"] = Integer(max(u.next, u.r.Size()))
	_, err = io.WriteString(pw, "trailer\n")
	if err != nil {
		return err
	}
	err = trailer.PDF(pw)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(pw, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return err
}

func (u *Update) writeXRefStream(pw *posWriter, numbers []uint32, offsets map[uint32]int64, trailer Dict) error {
	self := u.Alloc()
	xrefPos := pw.pos
	offsets[self.Number] = xrefPos
	u.gens[self.Number] = 0
	numbers = append(numbers, self.Number)

	var maxGen uint16
	for _, num := range numbers {
		maxGen = max(maxGen, u.gens[num])
	}
	w1 := fieldWidth(xrefPos)
	w2 := fieldWidth(int64(maxGen))

	var index Array
	data := &bytes.Buffer{}
	entry := make([]byte, 1+w1+w2)
	for _, sub := range subsections(numbers) {
		index = append(index, Integer(sub[0]), Integer(len(sub)))
		for _, num := range sub {
			entry[0] = 1
			encodeInt(entry[1:1+w1], offsets[num])
			encodeInt(entry[1+w1:], int64(u.gens[num]))
			data.Write(entry)
		}
	}

	dict := trailer.Clone()
	dict["Type"] = Name("XRef")
	dict["Size"] = Integer(max(u.next, u.r.Size()))
	dict["W"] = Array{Integer(1), Integer(w1), Integer(w2)}
	dict["Index"] = index
	stream, err := FlateStream(dict, data.Bytes())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(pw, "%d 0 obj\n", self.Number)
	if err != nil {
		return err
	}
	err = stream.PDF(pw)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(pw, "\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return err
}

// subsections splits a sorted list of object numbers into runs of
// consecutive numbers.
func subsections(numbers []uint32) [][]uint32 {
	var res [][]uint32
	start := 0
	for i := 1; i <= len(numbers); i++ {
		if i == len(numbers) || numbers[i] != numbers[i-1]+1 {
			res = append(res, numbers[start:i])
			start = i
		}
	}
	return res
}

type posWriter struct {
	w   io.Writer
	pos int64
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}
