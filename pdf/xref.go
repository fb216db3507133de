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
	"fmt"
	"io"
	"strconv"
)

type xRefEntry struct {
	Pos        int64
	Generation uint16
	InStream   *Reference
	Free       bool
}

// IsFree reports whether the entry describes a free (or missing) object.
func (entry *xRefEntry) IsFree() bool {
	return entry == nil || entry.Free
}

// trailerKeys lists the trailer entries which are kept when the
// cross-reference sections are merged.
var trailerKeys = []Name{"Root", "Info", "ID", "Encrypt", "Size"}

// readXRef reads all cross-reference sections of the file, starting with
// the newest one.  Entries in newer sections take precedence.
func (r *Reader) readXRef() error {
	start, err := r.findXRef()
	if err != nil {
		return err
	}
	r.lastXRef = start
	r.xref = make(map[uint32]*xRefEntry)
	r.trailer = Dict{}

	seen := make(map[int64]bool)
	pos := start
	first := true
	for {
		if seen[pos] {
			return &MalformedFileError{
				Pos: pos,
				Err: errors.New("xref loop detected"),
			}
		}
		seen[pos] = true

		section, dict, isStream, err := r.readXRefSection(pos)
		if err != nil {
			return err
		}
		if first {
			r.xRefIsStream = isStream
			first = false
		}

		// In hybrid files the table is complemented by a cross-reference
		// stream, which is searched before the /Prev chain.
		if stmPos, ok := dict["XRefStm"].(Integer); ok && !isStream && !seen[int64(stmPos)] {
			seen[int64(stmPos)] = true
			extra, _, err := r.readXRefStream(int64(stmPos))
			if err != nil {
				return err
			}
			for num, entry := range extra {
				if section[num].IsFree() {
					section[num] = entry
				}
			}
		}

		for num, entry := range section {
			if _, exists := r.xref[num]; !exists {
				r.xref[num] = entry
			}
		}
		for _, key := range trailerKeys {
			if _, exists := r.trailer[key]; !exists && dict[key] != nil {
				r.trailer[key] = dict[key]
			}
		}

		prev, ok := dict["Prev"].(Integer)
		if !ok {
			break
		}
		pos = int64(prev)
	}

	return nil
}

// findXRef locates the "startxref" keyword near the end of the file and
// returns the offset it gives.
func (r *Reader) findXRef() (int64, error) {
	idx := bytes.LastIndex(r.data, []byte("startxref"))
	if idx < 0 {
		return 0, &MalformedFileError{
			Err: errors.New("startxref not found"),
		}
	}

	s := newScanner(r.data, int64(idx+len("startxref")), nil)
	s.SkipWhiteSpace()
	pos, err := s.ReadInteger()
	if err != nil {
		return 0, err
	}
	if pos <= 0 || int64(pos) >= int64(len(r.data)) {
		return 0, &MalformedFileError{
			Pos: int64(idx),
			Err: fmt.Errorf("invalid startxref offset %d", pos),
		}
	}
	return int64(pos), nil
}

func (r *Reader) readXRefSection(pos int64) (map[uint32]*xRefEntry, Dict, bool, error) {
	s := newScanner(r.data, pos, nil)
	s.SkipWhiteSpace()
	if s.hasKeyword("xref") {
		section, dict, err := r.readXRefTable(s)
		return section, dict, false, err
	}
	section, dict, err := r.readXRefStream(pos)
	return section, dict, true, err
}

func (r *Reader) readXRefTable(s *scanner) (map[uint32]*xRefEntry, Dict, error) {
	err := s.SkipString("xref")
	if err != nil {
		return nil, nil, err
	}

	section := make(map[uint32]*xRefEntry)
	for {
		s.SkipWhiteSpace()
		if s.hasKeyword("trailer") {
			break
		}

		start, err := s.ReadInteger()
		if err != nil {
			return nil, nil, err
		}
		s.SkipWhiteSpace()
		count, err := s.ReadInteger()
		if err != nil {
			return nil, nil, err
		}
		// every entry takes at least six bytes
		if start < 0 || count < 0 || start+count > 0xFFFFFFFF ||
			count > Integer(len(s.data)-s.pos)/6 {
			return nil, nil, s.errorf("invalid xref subsection %d %d", start, count)
		}

		for i := Integer(0); i < count; i++ {
			s.SkipWhiteSpace()
			offset, err := s.ReadInteger()
			if err != nil {
				return nil, nil, err
			}
			s.SkipWhiteSpace()
			generation, err := s.ReadInteger()
			if err != nil {
				return nil, nil, err
			}
			s.SkipWhiteSpace()
			buf := s.Peek(1)
			if len(buf) == 0 || (buf[0] != 'n' && buf[0] != 'f') {
				return nil, nil, s.errorf("malformed xref entry")
			}
			s.pos++

			num := uint32(start + i)
			if _, exists := section[num]; exists {
				continue
			}
			if generation < 0 || generation > 0xFFFF || offset < 0 {
				return nil, nil, s.errorf("malformed xref entry")
			}
			if buf[0] == 'f' {
				section[num] = &xRefEntry{Free: true, Generation: uint16(generation)}
			} else {
				section[num] = &xRefEntry{Pos: int64(offset), Generation: uint16(generation)}
			}
		}
	}

	err = s.SkipString("trailer")
	if err != nil {
		return nil, nil, err
	}
	s.SkipWhiteSpace()
	dict, err := s.ReadDict()
	if err != nil {
		return nil, nil, err
	}
	return section, dict, nil
}

func (r *Reader) readXRefStream(pos int64) (map[uint32]*xRefEntry, Dict, error) {
	s := newScanner(r.data, pos, nil)
	obj, _, err := s.ReadIndirectObject()
	if err != nil {
		return nil, nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, nil, &MalformedFileError{
			Pos: pos,
			Err: errors.New("xref section not found"),
		}
	}
	dict := stream.Dict
	if tp, _ := dict["Type"].(Name); tp != "XRef" {
		return nil, nil, &MalformedFileError{
			Pos: pos,
			Err: fmt.Errorf("expected /Type /XRef but found %s", Format(dict["Type"])),
		}
	}

	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 || size > 0xFFFFFFFF {
		return nil, nil, &MalformedFileError{
			Pos: pos,
			Err: errors.New("invalid /Size in xref stream"),
		}
	}

	wArray, _ := dict["W"].(Array)
	var w [3]int
	if len(wArray) != 3 {
		return nil, nil, &MalformedFileError{Pos: pos, Err: errors.New("invalid /W in xref stream")}
	}
	for i, obj := range wArray {
		x, ok := obj.(Integer)
		if !ok || x < 0 || x > 8 {
			return nil, nil, &MalformedFileError{Pos: pos, Err: errors.New("invalid /W in xref stream")}
		}
		w[i] = int(x)
	}

	index := Array{Integer(0), size}
	if idx, ok := dict["Index"].(Array); ok {
		if len(idx)%2 != 0 {
			return nil, nil, &MalformedFileError{Pos: pos, Err: errors.New("invalid /Index in xref stream")}
		}
		index = idx
	}

	decoded, err := DecodeStream(r, stream)
	if err != nil {
		return nil, nil, &MalformedFileError{Pos: pos, Err: err}
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, nil, &MalformedFileError{Pos: pos, Err: err}
	}

	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, nil, &MalformedFileError{Pos: pos, Err: errors.New("invalid /W in xref stream")}
	}
	section := make(map[uint32]*xRefEntry)
	for i := 0; i < len(index); i += 2 {
		start, ok1 := index[i].(Integer)
		count, ok2 := index[i+1].(Integer)
		if !ok1 || !ok2 || start < 0 || count < 0 || start+count > 0xFFFFFFFF {
			return nil, nil, &MalformedFileError{Pos: pos, Err: errors.New("invalid /Index in xref stream")}
		}
		for j := Integer(0); j < count; j++ {
			if len(data) < entrySize {
				return nil, nil, &MalformedFileError{Pos: pos, Err: errors.New("xref stream too short")}
			}
			tp := decodeInt(data[:w[0]], 1)
			a := decodeInt(data[w[0]:w[0]+w[1]], 0)
			b := decodeInt(data[w[0]+w[1]:entrySize], 0)
			data = data[entrySize:]

			num := uint32(start + j)
			if _, exists := section[num]; exists {
				continue
			}
			switch tp {
			case 0:
				section[num] = &xRefEntry{Free: true}
			case 1:
				section[num] = &xRefEntry{Pos: a, Generation: uint16(b)}
			case 2:
				if a < 0 || a > 0xFFFFFFFF {
					continue
				}
				section[num] = &xRefEntry{
					InStream: &Reference{Number: uint32(a)},
				}
			default:
				// Unknown types are treated as references to the null object.
				section[num] = &xRefEntry{Free: true}
			}
		}
	}

	return section, dict, nil
}

// decodeInt decodes a big-endian field of an xref stream.
// Empty fields take the default value.
func decodeInt(buf []byte, dflt int64) int64 {
	if len(buf) == 0 {
		return dflt
	}
	var res int64
	for _, c := range buf {
		res = res<<8 | int64(c)
	}
	return res
}

// encodeInt writes x as a big-endian integer of the given width.
func encodeInt(buf []byte, x int64) {
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte(x)
		x >>= 8
	}
}

// fieldWidth returns the number of bytes needed to store x.
func fieldWidth(x int64) int {
	w := 1
	for x > 255 {
		w++
		x >>= 8
	}
	return w
}

func formatXRefEntry(pos int64, generation uint16) string {
	return fmt.Sprintf("%010d %05d n\r\n", pos, generation)
}

func formatSubsection(start uint32, count int) string {
	return strconv.FormatUint(uint64(start), 10) + " " + strconv.Itoa(count) + "\n"
}
