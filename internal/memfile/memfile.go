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

package memfile

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strconv"
)

// Builder assembles a PDF file from the text of its objects.
// Object numbers are assigned in the order the objects are added,
// starting at 1.
type Builder struct {
	// Version is the version given in the file header, e.g. "1.7".
	Version string

	// XRefStream selects a cross-reference stream instead of a classic
	// cross-reference table.
	XRefStream bool

	// Compress applies the FlateDecode filter to the cross-reference
	// stream and the object stream.
	Compress bool

	// Root and Info are the object numbers for the trailer entries.
	// Zero values are omitted.
	Root, Info int

	// ID, if set, is written as the /ID entry of the trailer.
	ID [2]string

	// Encrypt, if set, is written verbatim as the /Encrypt entry of the
	// trailer.
	Encrypt string

	// Security, if set, encrypts the file using the standard security
	// handler.  ID must be set before strings are encrypted using
	// [Builder.String].
	Security *Security

	objects []object
	crypt   *encrypter
}

type object struct {
	body       string
	compressed bool

	// For stream objects, body holds the dictionary entries.
	isStream bool
	data     []byte
}

// New returns a builder for a file with the given header version.
func New(version string) *Builder {
	return &Builder{Version: version}
}

// Add appends an object and returns its object number.
func (b *Builder) Add(body string) int {
	b.objects = append(b.objects, object{body: body})
	return len(b.objects)
}

// AddCompressed appends an object which is stored inside an object
// stream.  This requires XRefStream to be set when the file is built.
func (b *Builder) AddCompressed(body string) int {
	b.objects = append(b.objects, object{body: body, compressed: true})
	return len(b.objects)
}

// AddStream appends a stream object with the given dictionary entries
// and data.  If the file is encrypted, the data is encrypted when the
// file is built.
func (b *Builder) AddStream(dictEntries string, data []byte) int {
	b.objects = append(b.objects, object{body: dictEntries, isStream: true, data: data})
	return len(b.objects)
}

// String returns the text of a string object, to be used in the body
// of object num.  If the file is encrypted, the string is encrypted.
func (b *Builder) String(num int, s string) string {
	data := []byte(s)
	if b.Security != nil {
		data = b.encrypter().encrypt(num, data)
	}
	return fmt.Sprintf("<%x>", data)
}

func (b *Builder) encrypter() *encrypter {
	if b.crypt == nil {
		b.crypt = newEncrypter(b.Security, []byte(b.ID[0]))
	}
	return b.crypt
}

// Reserve allocates an object number whose body is filled in later
// using Set.  This allows forward references.
func (b *Builder) Reserve() int {
	return b.Add("null")
}

// Set replaces the body of object num.
func (b *Builder) Set(num int, body string) {
	b.objects[num-1].body = body
}

// Stream returns the text of a stream object with the given dictionary
// entries and data.  The /Length entry is added automatically.
func Stream(dictEntries string, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dictEntries, len(data), data)
}

// Bytes returns the complete file.
func (b *Builder) Bytes() []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.Version)

	n := len(b.objects)
	offsets := make([]int, n+1)
	inStream := make(map[int]int) // object number -> index in the object stream

	var packed []int
	for i, obj := range b.objects {
		num := i + 1
		if obj.compressed && b.XRefStream {
			inStream[num] = len(packed)
			packed = append(packed, num)
			continue
		}
		offsets[num] = buf.Len()
		if obj.isStream {
			fmt.Fprintf(buf, "%d 0 obj\n", num)
			data := obj.data
			if b.Security != nil {
				data = b.encrypter().encrypt(num, data)
			}
			writeRawStream(buf, obj.body, data)
			buf.WriteString("\nendobj\n")
			continue
		}
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", num, obj.body)
	}

	size := n + 1
	objStmNum := 0
	if len(packed) > 0 {
		objStmNum = size
		size++

		header := &bytes.Buffer{}
		body := &bytes.Buffer{}
		for _, num := range packed {
			fmt.Fprintf(header, "%d %d ", num, body.Len())
			body.WriteString(b.objects[num-1].body)
			body.WriteString("\n")
		}
		data := header.Bytes()
		first := len(data)
		data = append(data, body.Bytes()...)
		entries := fmt.Sprintf("/Type /ObjStm /N %d /First %d", len(packed), first)

		offsets = append(offsets, buf.Len())
		fmt.Fprintf(buf, "%d 0 obj\n", objStmNum)
		b.writeStream(buf, objStmNum, entries, data)
		buf.WriteString("\nendobj\n")
	}

	trailer := fmt.Sprintf("/Root %d 0 R", b.Root)
	if b.Info != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", b.Info)
	}
	if b.ID[0] != "" {
		trailer += fmt.Sprintf(" /ID [<%x> <%x>]", b.ID[0], b.ID[1])
	}
	if b.Security != nil {
		trailer += " /Encrypt " + b.encrypter().dict
	} else if b.Encrypt != "" {
		trailer += " /Encrypt " + b.Encrypt
	}

	xrefPos := buf.Len()
	if b.XRefStream {
		xrefNum := size
		size++

		data := &bytes.Buffer{}
		writeEntry(data, 0, 0, 65535)
		for num := 1; num <= n; num++ {
			if idx, ok := inStream[num]; ok {
				writeEntry(data, 2, objStmNum, idx)
			} else {
				writeEntry(data, 1, offsets[num], 0)
			}
		}
		if objStmNum != 0 {
			writeEntry(data, 1, offsets[objStmNum], 0)
		}
		writeEntry(data, 1, xrefPos, 0)

		entries := fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] %s", size, trailer)
		fmt.Fprintf(buf, "%d 0 obj\n", xrefNum)
		b.writeStream(buf, 0, entries, data.Bytes())
		buf.WriteString("\nendobj\n")
	} else {
		fmt.Fprintf(buf, "xref\n0 %d\n", size)
		buf.WriteString("0000000000 65535 f\r\n")
		for num := 1; num <= n; num++ {
			fmt.Fprintf(buf, "%010d 00000 n\r\n", offsets[num])
		}
		fmt.Fprintf(buf, "trailer\n<< /Size %d %s >>\n", size, trailer)
	}
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefPos)

	return buf.Bytes()
}

// writeStream writes a stream which is compressed if b.Compress is set.
// If num is non-zero and the file is encrypted, the data is encrypted
// for object num.
func (b *Builder) writeStream(buf *bytes.Buffer, num int, entries string, data []byte) {
	if b.Compress {
		z := &bytes.Buffer{}
		zw := zlib.NewWriter(z)
		zw.Write(data)
		zw.Close()
		data = z.Bytes()
		entries += " /Filter /FlateDecode"
	}
	if num != 0 && b.Security != nil {
		data = b.encrypter().encrypt(num, data)
	}
	writeRawStream(buf, entries, data)
}

func writeRawStream(buf *bytes.Buffer, entries string, data []byte) {
	buf.WriteString("<< " + entries + " /Length " + strconv.Itoa(len(data)) + " >>\nstream\n")
	buf.Write(data)
	buf.WriteString("\nendstream")
}

func writeEntry(buf *bytes.Buffer, tp byte, a int, b int) {
	buf.Write([]byte{
		tp,
		byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a),
		byte(b >> 8), byte(b),
	})
}
