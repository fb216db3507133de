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
	"errors"
	"fmt"
	"io"
)

// Getter gives access to the objects of a PDF file.
type Getter interface {
	// Get returns the object with the given reference.
	// Missing and free objects are returned as nil (the PDF null object).
	Get(ref Reference) (Object, error)
}

// Reader gives access to the objects of an existing PDF file, which is
// held in memory.
type Reader struct {
	data []byte

	header  Version
	xref    map[uint32]*xRefEntry
	trailer Dict

	// lastXRef is the offset of the newest cross-reference section.
	lastXRef int64

	// xRefIsStream is true if the newest cross-reference section is a
	// cross-reference stream.
	xRefIsStream bool

	objStm map[uint32]*objStm

	enc *encryption
}

// NewReader parses the cross-reference information of a PDF file.
// Objects are only read when they are requested.
//
// Encrypted files are decrypted transparently if they can be opened with
// the empty user password.  Otherwise [ErrEncrypted] is returned.
func NewReader(data []byte) (*Reader, error) {
	r := &Reader{
		data:   data,
		objStm: make(map[uint32]*objStm),
	}

	s := newScanner(data, 0, nil)
	version, err := s.readHeaderVersion()
	if err != nil {
		return nil, err
	}
	r.header = version

	err = r.readXRef()
	if err != nil {
		return nil, err
	}

	if encObj := r.trailer["Encrypt"]; encObj != nil {
		r.enc, err = r.openEncryption(encObj)
		if err != nil {
			return nil, err
		}
	}
	if _, ok := r.trailer["Root"].(Reference); !ok {
		return nil, &MalformedFileError{
			Pos: r.lastXRef,
			Err: errors.New("document catalog not found"),
		}
	}

	return r, nil
}

// ReadAll reads a complete PDF file from r.
func ReadAll(in io.Reader) (*Reader, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	return NewReader(data)
}

// IsEncrypted reports whether the file uses encryption.  Objects added
// by an [Update] are encrypted with the same keys.
func (r *Reader) IsEncrypted() bool {
	return r.enc != nil
}

// Data returns the original file contents.
func (r *Reader) Data() []byte {
	return r.data
}

// Trailer returns the merged trailer dictionary of the file.  Only the
// entries /Root, /Info, /ID, /Encrypt and /Size are included.
func (r *Reader) Trailer() Dict {
	return r.trailer
}

// Size returns one more than the highest object number used in the file.
func (r *Reader) Size() uint32 {
	size := uint32(0)
	if s, ok := r.trailer["Size"].(Integer); ok && s > 0 && s <= 0xFFFFFFFF {
		size = uint32(s)
	}
	for num := range r.xref {
		if num >= size {
			size = num + 1
		}
	}
	return size
}

// Catalog returns the document catalog.
func (r *Reader) Catalog() (Dict, error) {
	catalog, err := GetDict(r, r.trailer["Root"])
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, &MalformedFileError{Err: errors.New("document catalog not found")}
	}
	return catalog, nil
}

// Version returns the PDF version of the file.  The /Version entry in
// the document catalog overrides the file header, if it is newer.
func (r *Reader) Version() Version {
	version := r.header
	catalog, err := r.Catalog()
	if err != nil {
		return version
	}
	if name, ok := catalog["Version"].(Name); ok {
		v, err := ParseVersion(string(name))
		if err == nil && v > version {
			version = v
		}
	}
	return version
}

// Get implements the [Getter] interface.
func (r *Reader) Get(ref Reference) (Object, error) {
	entry := r.xref[ref.Number]
	if entry.IsFree() || entry.Generation != ref.Generation {
		return nil, nil
	}

	if entry.InStream != nil {
		return r.getFromObjectStream(ref.Number, entry)
	}

	s := newScanner(r.data, entry.Pos, r.getLength)
	obj, fileRef, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	if fileRef != ref {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: fmt.Errorf("expected object %s but found %s", ref, fileRef),
		}
	}
	if r.enc != nil && ref.Number != r.enc.dictNum {
		return r.enc.decrypt(ref, obj)
	}
	return obj, nil
}

// getLength resolves the /Length entry of a stream.  Indirect lengths
// must not point into object streams, so that streams are never read
// while another stream is being decoded.
func (r *Reader) getLength(obj Object) (Integer, error) {
	if ref, ok := obj.(Reference); ok {
		entry := r.xref[ref.Number]
		if entry.IsFree() || entry.InStream != nil {
			return 0, errors.New("invalid stream length")
		}
		s := newScanner(r.data, entry.Pos, nil)
		val, _, err := s.ReadIndirectObject()
		if err != nil {
			return 0, err
		}
		obj = val
	}
	length, ok := obj.(Integer)
	if !ok {
		return 0, fmt.Errorf("invalid stream length %s", Format(obj))
	}
	return length, nil
}

type objStm struct {
	data    []byte
	offsets map[uint32]int
}

func (r *Reader) getFromObjectStream(number uint32, entry *xRefEntry) (Object, error) {
	stm, err := r.loadObjectStream(entry.InStream.Number)
	if err != nil {
		return nil, err
	}
	pos, ok := stm.offsets[number]
	if !ok {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("object %d not found in object stream %d", number, entry.InStream.Number),
		}
	}
	s := newScanner(stm.data, int64(pos), nil)
	s.SkipWhiteSpace()
	return s.ReadObject()
}

func (r *Reader) loadObjectStream(number uint32) (*objStm, error) {
	if stm, ok := r.objStm[number]; ok {
		return stm, nil
	}

	entry := r.xref[number]
	if entry.IsFree() || entry.InStream != nil {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("object stream %d not found", number),
		}
	}
	obj, err := r.Get(NewReference(number, entry.Generation))
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: fmt.Errorf("object %d is not an object stream", number),
		}
	}

	n, err := GetInt(r, stream.Dict["N"])
	if err != nil {
		return nil, err
	}
	first, err := GetInt(r, stream.Dict["First"])
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeStream(r, stream)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, &MalformedFileError{Pos: entry.Pos, Err: err}
	}
	if n < 0 || first < 0 || int(first) > len(data) {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("malformed object stream"),
		}
	}

	stm := &objStm{
		data:    data,
		offsets: make(map[uint32]int, n),
	}
	s := newScanner(data[:first], 0, nil)
	for i := 0; i < int(n); i++ {
		s.SkipWhiteSpace()
		num, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		s.SkipWhiteSpace()
		off, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		if num < 0 || off < 0 || int(first)+int(off) > len(data) {
			return nil, &MalformedFileError{
				Pos: entry.Pos,
				Err: errors.New("malformed object stream"),
			}
		}
		stm.offsets[uint32(num)] = int(first) + int(off)
	}

	r.objStm[number] = stm
	return stm, nil
}

// maxRefChain limits how many references Resolve follows, so that loops
// of references cannot hang the program.
const maxRefChain = 16

// Resolve follows references until a direct object is found.
func Resolve(r Getter, obj Object) (Object, error) {
	for i := 0; i < maxRefChain; i++ {
		ref, isRef := obj.(Reference)
		if !isRef {
			return obj, nil
		}
		var err error
		obj, err = r.Get(ref)
		if err != nil {
			return nil, err
		}
	}
	return nil, &MalformedFileError{Err: errors.New("too many levels of indirection")}
}

// GetDict resolves references to indirect objects and makes sure the
// resulting object is a dictionary.  Null is returned as a nil Dict.
func GetDict(r Getter, obj Object) (Dict, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch x := obj.(type) {
	case nil:
		return nil, nil
	case Dict:
		return x, nil
	case *Stream:
		return x.Dict, nil
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected Dict but got %T", obj),
		}
	}
}

// GetArray resolves references and makes sure the result is an array.
func GetArray(r Getter, obj Object) (Array, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch x := obj.(type) {
	case nil:
		return nil, nil
	case Array:
		return x, nil
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected Array but got %T", obj),
		}
	}
}

// GetName resolves references and makes sure the result is a name.
func GetName(r Getter, obj Object) (Name, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return "", err
	}
	switch x := obj.(type) {
	case nil:
		return "", nil
	case Name:
		return x, nil
	default:
		return "", &MalformedFileError{
			Err: fmt.Errorf("expected Name but got %T", obj),
		}
	}
}

// GetInt resolves references and makes sure the result is an integer.
func GetInt(r Getter, obj Object) (Integer, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case Integer:
		return x, nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected Integer but got %T", obj),
		}
	}
}

// GetNumber resolves references and makes sure the result is a number.
func GetNumber(r Getter, obj Object) (float64, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	x, ok := asNumber(obj)
	if !ok {
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected number but got %T", obj),
		}
	}
	return x, nil
}

// GetStream resolves references and makes sure the result is a stream.
func GetStream(r Getter, obj Object) (*Stream, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch x := obj.(type) {
	case nil:
		return nil, nil
	case *Stream:
		return x, nil
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected Stream but got %T", obj),
		}
	}
}
