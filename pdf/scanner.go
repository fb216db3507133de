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

// maxNesting limits the depth of nested arrays and dictionaries.
const maxNesting = 256

// scanner parses PDF objects from an in-memory copy of a file.
// Positions are byte offsets into data, so that error messages can
// point to the location of a problem.
type scanner struct {
	data []byte
	pos  int

	// getInt is used to resolve indirect /Length entries of streams.
	// If getInt is nil, only direct lengths are supported.
	getInt func(Object) (Integer, error)

	depth int
}

func newScanner(data []byte, pos int64, getInt func(Object) (Integer, error)) *scanner {
	return &scanner{
		data:   data,
		pos:    int(pos),
		getInt: getInt,
	}
}

func (s *scanner) filePos() int64 {
	return int64(s.pos)
}

func (s *scanner) errorf(format string, args ...any) error {
	return &MalformedFileError{
		Pos: s.filePos(),
		Err: fmt.Errorf(format, args...),
	}
}

// ReadIndirectObject reads an object of the form "n g obj ... endobj".
// Streams are only recognised here, since they can only occur as indirect
// objects.
func (s *scanner) ReadIndirectObject() (Object, Reference, error) {
	// Some files point the xref entries at the end of the previous line.
	// Try to fix this up by skipping any leading white space.
	s.SkipWhiteSpace()

	number, err := s.ReadInteger()
	if err != nil {
		return nil, Reference{}, err
	}
	s.SkipWhiteSpace()
	generation, err := s.ReadInteger()
	if err != nil {
		return nil, Reference{}, err
	}
	if number < 0 || number > 0xFFFFFFFF || generation < 0 || generation > 0xFFFF {
		return nil, Reference{}, s.errorf("invalid object id %d %d", number, generation)
	}
	ref := NewReference(uint32(number), uint16(generation))

	s.SkipWhiteSpace()
	err = s.SkipString("obj")
	if err != nil {
		return nil, ref, err
	}
	s.SkipWhiteSpace()

	obj, err := s.ReadObject()
	if err != nil {
		return nil, ref, err
	}
	s.SkipWhiteSpace()

	if dict, ok := obj.(Dict); ok && bytes.HasPrefix(s.data[s.pos:], []byte("stream")) {
		obj, err = s.ReadStreamData(dict)
		if err != nil {
			return nil, ref, err
		}
		s.SkipWhiteSpace()
	}

	// A missing "endobj" is a common defect and does not affect the
	// object just read.
	if bytes.HasPrefix(s.data[s.pos:], []byte("endobj")) {
		s.pos += 6
	}

	return obj, ref, nil
}

// ReadObject reads a direct object, or a reference to an indirect object.
func (s *scanner) ReadObject() (Object, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > maxNesting {
		return nil, s.errorf("objects nested too deeply")
	}

	buf := s.Peek(5) // len("false") == 5
	switch {
	case len(buf) == 0:
		return nil, &MalformedFileError{Pos: s.filePos(), Err: io.ErrUnexpectedEOF}
	case s.hasKeyword("null"):
		s.pos += 4
		return nil, nil
	case s.hasKeyword("true"):
		s.pos += 4
		return Bool(true), nil
	case s.hasKeyword("false"):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		obj, err := s.ReadNumber()
		if err != nil {
			return nil, err
		}
		if a, isInt := obj.(Integer); isInt {
			if ref, ok := s.tryReference(a); ok {
				return ref, nil
			}
		}
		return obj, nil
	case bytes.HasPrefix(buf, []byte("<<")):
		return s.ReadDict()
	case buf[0] == '(':
		s.pos++
		return s.ReadQuotedString()
	case buf[0] == '<':
		s.pos++
		return s.ReadHexString()
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, s.errorf("unexpected %q", string(buf))
}

// tryReference checks whether the integer a just read starts a reference
// "a b R".  If not, the scanner position is left unchanged.
func (s *scanner) tryReference(a Integer) (Reference, bool) {
	if a < 0 || a > 0xFFFFFFFF {
		return Reference{}, false
	}
	start := s.pos

	s.SkipWhiteSpace()
	if s.pos == start || s.pos >= len(s.data) || s.data[s.pos] < '0' || s.data[s.pos] > '9' {
		s.pos = start
		return Reference{}, false
	}
	b, err := s.ReadInteger()
	if err != nil || b > 0xFFFF {
		s.pos = start
		return Reference{}, false
	}
	s.SkipWhiteSpace()
	if !s.hasKeyword("R") {
		s.pos = start
		return Reference{}, false
	}
	s.pos++
	return NewReference(uint32(a), uint16(b)), true
}

// hasKeyword checks whether the input at the current position starts with
// the given keyword, followed by a delimiter, white space or the end of
// the data.
func (s *scanner) hasKeyword(kw string) bool {
	rest := s.data[s.pos:]
	if !bytes.HasPrefix(rest, []byte(kw)) {
		return false
	}
	if len(rest) == len(kw) {
		return true
	}
	c := rest[len(kw)]
	return isSpace[c] || isDelimiter[c]
}

// ReadInteger reads an integer without sign handling beyond a single
// leading '+' or '-'.
func (s *scanner) ReadInteger() (Integer, error) {
	start := s.pos
	if s.pos < len(s.data) && (s.data[s.pos] == '+' || s.data[s.pos] == '-') {
		s.pos++
	}
	for s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '9' {
		s.pos++
	}

	x, err := strconv.ParseInt(string(s.data[start:s.pos]), 10, 64)
	if err != nil {
		s.pos = start
		return 0, &MalformedFileError{
			Pos: int64(start),
			Err: fmt.Errorf("expected integer, found %q", string(s.Peek(10))),
		}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or a real number.
func (s *scanner) ReadNumber() (Object, error) {
	start := s.pos
	hasDot := false
	if s.pos < len(s.data) && (s.data[s.pos] == '+' || s.data[s.pos] == '-') {
		s.pos++
	}
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '.' && !hasDot {
			hasDot = true
		} else if c < '0' || c > '9' {
			break
		}
		s.pos++
	}
	text := string(s.data[start:s.pos])

	if hasDot {
		if text == "." || text == "-." || text == "+." {
			return Real(0), nil
		}
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &MalformedFileError{Pos: int64(start), Err: err}
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, &MalformedFileError{Pos: int64(start), Err: err}
	}
	return Integer(x), nil
}

// ReadQuotedString reads a literal string.  The opening "(" must already
// have been consumed.
func (s *scanner) ReadQuotedString() (String, error) {
	var res []byte
	parenCount := 0
	for {
		if s.pos >= len(s.data) {
			return nil, &MalformedFileError{Pos: s.filePos(), Err: io.ErrUnexpectedEOF}
		}
		c := s.data[s.pos]
		s.pos++

		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				continue
			}
			c = s.data[s.pos]
			s.pos++
			switch c {
			case '\n':
				continue
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			}
			if c >= '0' && c <= '7' {
				val := c - '0'
				for k := 0; k < 2 && s.pos < len(s.data); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + (d - '0')
					s.pos++
				}
				c = val
			}
		case '(':
			parenCount++
		case ')':
			if parenCount == 0 {
				return String(res), nil
			}
			parenCount--
		case '\r':
			// end-of-line markers inside strings are normalised to "\n"
			if s.pos < len(s.data) && s.data[s.pos] == '\n' {
				s.pos++
			}
			c = '\n'
		}
		res = append(res, c)
	}
}

// ReadHexString reads a hexadecimal string.  The opening "<" must already
// have been consumed.
func (s *scanner) ReadHexString() (String, error) {
	var res []byte
	var hexVal byte
	first := true
	for {
		if s.pos >= len(s.data) {
			// If we reach the end of the file, the trailing ">" is missing.
			break
		}
		c := s.data[s.pos]
		s.pos++

		var d byte
		if c >= '0' && c <= '9' {
			d = c - '0'
		} else if c >= 'A' && c <= 'F' {
			d = c - 'A' + 10
		} else if c >= 'a' && c <= 'f' {
			d = c - 'a' + 10
		} else if c == '>' {
			break
		} else if isSpace[c] {
			continue
		} else {
			return nil, &MalformedFileError{
				Pos: s.filePos() - 1,
				Err: fmt.Errorf("invalid character %q in hex string", c),
			}
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
	}
	if !first {
		res = append(res, 16*hexVal)
	}
	return String(res), nil
}

// ReadName reads a name object, including the leading "/".
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	var res []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		s.pos++
		if c == '#' && s.pos+2 <= len(s.data) {
			val, err := strconv.ParseUint(string(s.data[s.pos:s.pos+2]), 16, 8)
			if err == nil {
				c = byte(val)
				s.pos += 2
			}
		}
		res = append(res, c)
	}
	return Name(res), nil
}

// ReadArray reads an array.  The opening "[" must already have been
// consumed.
func (s *scanner) ReadArray() (Array, error) {
	array := Array{}
	for {
		s.SkipWhiteSpace()

		buf := s.Peek(1)
		if len(buf) == 0 {
			return nil, &MalformedFileError{Pos: s.filePos(), Err: io.ErrUnexpectedEOF}
		}
		if buf[0] == ']' {
			s.pos++
			break
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		array = append(array, obj)
	}
	return array, nil
}

// ReadDict reads a dictionary, including the delimiters "<<" and ">>".
// Entries with a null value are omitted.
func (s *scanner) ReadDict() (Dict, error) {
	err := s.SkipString("<<")
	if err != nil {
		return nil, err
	}

	dict := Dict{}
	for {
		s.SkipWhiteSpace()
		buf := s.Peek(2)
		if len(buf) == 0 {
			return nil, &MalformedFileError{Pos: s.filePos(), Err: io.ErrUnexpectedEOF}
		}
		if bytes.Equal(buf, []byte(">>")) {
			s.pos += 2
			break
		}

		key, err := s.ReadName()
		if err != nil {
			return nil, err
		}
		s.SkipWhiteSpace()

		val, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		if val != nil {
			dict[key] = val
		}
	}
	return dict, nil
}

// ReadStreamData reads the data of a stream.  The scanner must be
// positioned at the keyword "stream".
func (s *scanner) ReadStreamData(dict Dict) (*Stream, error) {
	err := s.SkipString("stream")
	if err != nil {
		return nil, err
	}

	// The keyword is followed by CRLF or LF.  Some writers use a lone CR.
	if bytes.HasPrefix(s.data[s.pos:], []byte("\r\n")) {
		s.pos += 2
	} else if s.pos < len(s.data) && (s.data[s.pos] == '\n' || s.data[s.pos] == '\r') {
		s.pos++
	}
	start := s.pos

	length := -1
	if s.getInt != nil {
		l, err := s.getInt(dict["Length"])
		if err == nil && l >= 0 && int64(start)+int64(l) <= int64(len(s.data)) {
			length = int(l)
		}
	} else if l, ok := dict["Length"].(Integer); ok && l >= 0 && int64(start)+int64(l) <= int64(len(s.data)) {
		length = int(l)
	}
	if length >= 0 {
		s.pos = start + length
		s.SkipWhiteSpace()
		if !bytes.HasPrefix(s.data[s.pos:], []byte("endstream")) {
			length = -1
		}
	}
	if length < 0 {
		// The /Length entry is missing or wrong.  Find the end of the
		// stream data by searching for the "endstream" keyword.
		idx := bytes.Index(s.data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, &MalformedFileError{
				Pos: int64(start),
				Err: errors.New("endstream not found"),
			}
		}
		end := start + idx
		if end > start && s.data[end-1] == '\n' {
			end--
		}
		if end > start && s.data[end-1] == '\r' {
			end--
		}
		length = end - start
		s.pos = start + idx
	}
	s.pos += len("endstream")

	streamDict := dict.Clone()
	streamDict["Length"] = Integer(length)
	return &Stream{
		Dict: streamDict,
		R:    bytes.NewReader(s.data[start : start+length]),
	}, nil
}

// readHeaderVersion reads the version from the "%PDF-x.y" file header.
func (s *scanner) readHeaderVersion() (Version, error) {
	buf := s.Peek(8)
	if !bytes.HasPrefix(buf, []byte("%PDF-")) || len(buf) < 8 {
		return 0, &MalformedFileError{
			Err: errors.New("PDF header not found"),
		}
	}
	version, err := ParseVersion(string(buf[5:8]))
	if err != nil {
		return 0, &MalformedFileError{Pos: 5, Err: err}
	}
	return version, nil
}

// Peek returns the next n bytes without advancing the scanner.
// Fewer bytes are returned at the end of the data.
func (s *scanner) Peek(n int) []byte {
	end := s.pos + n
	if end > len(s.data) {
		end = len(s.data)
	}
	if s.pos >= end {
		return nil
	}
	return s.data[s.pos:end]
}

// SkipWhiteSpace skips white space and comments.
func (s *scanner) SkipWhiteSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\r' && s.data[s.pos] != '\n' {
				s.pos++
			}
			continue
		}
		if !isSpace[c] {
			return
		}
		s.pos++
	}
}

// SkipString consumes pat, which must occur at the current position.
func (s *scanner) SkipString(pat string) error {
	if !bytes.HasPrefix(s.data[s.pos:], []byte(pat)) {
		return &MalformedFileError{
			Pos: s.filePos(),
			Err: fmt.Errorf("expected %q but found %q", pat, string(s.Peek(len(pat)))),
		}
	}
	s.pos += len(pat)
	return nil
}

var (
	isSpace = map[byte]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = map[byte]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
