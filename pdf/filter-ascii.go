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
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ascii85Reader decodes data which uses the ASCII85Decode filter.
// The data ends at the marker "~>".
type ascii85Reader struct {
	r   *bufio.Reader
	err error

	v    uint32 // accumulated value of the current group
	k    int    // number of digits in the current group
	out  [4]byte
	pend []byte
}

func newASCII85Reader(r io.Reader) *ascii85Reader {
	return &ascii85Reader{r: bufio.NewReader(r)}
}

func (r *ascii85Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.pend) > 0 {
			l := copy(p[n:], r.pend)
			r.pend = r.pend[l:]
			n += l
			continue
		}
		if r.err != nil {
			return n, r.err
		}

		c, err := r.r.ReadByte()
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			r.err = err
			continue
		}

		switch {
		case isSpace[c]:
			// ignored
		case c >= '!' && c < '!'+85:
			r.v = r.v*85 + uint32(c-'!')
			r.k++
			if r.k == 5 {
				r.emit(4)
			}
		case c == 'z' && r.k == 0:
			r.emit(4)
		case c == '~':
			r.err = r.finish()
		default:
			r.err = fmt.Errorf("invalid character %q in ASCII85 stream", c)
		}
	}
	return n, nil
}

// emit stores the first n bytes of the current group as pending output.
func (r *ascii85Reader) emit(n int) {
	r.out[0] = byte(r.v >> 24)
	r.out[1] = byte(r.v >> 16)
	r.out[2] = byte(r.v >> 8)
	r.out[3] = byte(r.v)
	r.pend = r.out[:n]
	r.v = 0
	r.k = 0
}

// finish handles the end-of-data marker.  A partial group of k digits
// is padded with the digit 'u' and gives k-1 bytes.
func (r *ascii85Reader) finish() error {
	c, err := r.r.ReadByte()
	if err != nil || c != '>' {
		return errors.New("invalid end marker in ASCII85 stream")
	}
	switch r.k {
	case 0:
		// pass
	case 1:
		return errors.New("unexpected end marker in ASCII85 stream")
	default:
		k := r.k
		for i := k; i < 5; i++ {
			r.v = r.v*85 + 84
		}
		r.emit(k - 1)
	}
	return io.EOF
}

// asciiHexReader decodes data which uses the ASCIIHexDecode filter.
// The data ends at the marker ">".  If the number of hex digits is odd,
// the last digit is completed with a zero.
type asciiHexReader struct {
	r   *bufio.Reader
	err error

	high    byte
	hasHigh bool
}

func newASCIIHexReader(r io.Reader) *asciiHexReader {
	return &asciiHexReader{r: bufio.NewReader(r)}
}

func (r *asciiHexReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && r.err == nil {
		c, err := r.r.ReadByte()
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			r.err = err
			break
		}

		var b byte
		switch {
		case c >= '0' && c <= '9':
			b = c - '0'
		case c >= 'A' && c <= 'F':
			b = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			b = c - 'a' + 10
		case isSpace[c]:
			continue
		case c == '>':
			if r.hasHigh {
				p[n] = r.high << 4
				n++
				r.hasHigh = false
			}
			r.err = io.EOF
			continue
		default:
			r.err = fmt.Errorf("invalid character %q in ASCIIHex stream", c)
			continue
		}

		if r.hasHigh {
			p[n] = r.high<<4 | b
			n++
			r.hasHigh = false
		} else {
			r.high = b
			r.hasHigh = true
		}
	}
	if n > 0 {
		return n, nil
	}
	return 0, r.err
}
