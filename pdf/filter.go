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
	"errors"
	"fmt"
	"io"
)

// DecodeStream returns a reader for the decoded data of a stream.
// The filters FlateDecode (with PNG predictors), ASCII85Decode and
// ASCIIHexDecode are supported.
func DecodeStream(r Getter, x *Stream) (io.Reader, error) {
	filterObj, err := Resolve(r, x.Dict["Filter"])
	if err != nil {
		return nil, err
	}
	parmsObj, err := Resolve(r, x.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}

	var filters, parms Array
	switch f := filterObj.(type) {
	case nil:
		// pass
	case Name:
		filters = Array{f}
		parms = Array{parmsObj}
	case Array:
		filters = f
		if p, ok := parmsObj.(Array); ok {
			parms = p
		}
	default:
		return nil, fmt.Errorf("invalid filter description %s", Format(filterObj))
	}

	var res io.Reader = x.R
	for i, name := range filters {
		var param Object
		if i < len(parms) {
			param, err = Resolve(r, parms[i])
			if err != nil {
				return nil, err
			}
		}
		res, err = applyFilter(res, name, param)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func applyFilter(r io.Reader, name Object, param Object) (io.Reader, error) {
	n, ok := name.(Name)
	if !ok {
		return nil, fmt.Errorf("invalid filter description %s", Format(name))
	}
	switch n {
	case "FlateDecode", "Fl":
		params := map[Name]int{
			"Predictor":        1,
			"Colors":           1,
			"BitsPerComponent": 8,
			"Columns":          1,
		}
		if pDict, ok := param.(Dict); ok {
			for key := range params {
				if val, ok := pDict[key].(Integer); ok {
					params[key] = int(val)
				}
			}
		}
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		predictor := params["Predictor"]
		switch {
		case predictor == 1:
			return zr, nil
		case predictor >= 10 && predictor <= 15:
			bpp := (params["Colors"]*params["BitsPerComponent"] + 7) / 8
			rowBytes := (params["Colors"]*params["BitsPerComponent"]*params["Columns"] + 7) / 8
			if bpp < 1 || rowBytes < 1 {
				return nil, errors.New("invalid PNG predictor parameters")
			}
			return &pngReader{
				r:    zr,
				bpp:  bpp,
				prev: make([]byte, rowBytes),
				cur:  make([]byte, rowBytes+1),
			}, nil
		default:
			return nil, fmt.Errorf("unsupported predictor %d", predictor)
		}
	case "ASCII85Decode", "A85":
		return newASCII85Reader(r), nil
	case "ASCIIHexDecode", "AHx":
		return newASCIIHexReader(r), nil
	default:
		return nil, fmt.Errorf("unsupported filter %q", string(n))
	}
}

// pngReader removes the PNG predictors from the decompressed data.
// Every row starts with a byte which gives the PNG filter type used for
// this row.
type pngReader struct {
	r    io.Reader
	bpp  int
	prev []byte
	cur  []byte
	pend []byte
}

func (r *pngReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}

		_, err := io.ReadFull(r.r, r.cur)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil {
			return n, err
		}

		row := r.cur[1:]
		bpp := r.bpp
		switch r.cur[0] {
		case 0: // None
			// pass
		case 1: // Sub
			for i := bpp; i < len(row); i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := range row {
				row[i] += r.prev[i]
			}
		case 3: // Average
			for i := range row {
				var left byte
				if i >= bpp {
					left = row[i-bpp]
				}
				row[i] += byte((int(left) + int(r.prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range row {
				var left, upLeft byte
				if i >= bpp {
					left = row[i-bpp]
					upLeft = r.prev[i-bpp]
				}
				row[i] += paeth(left, r.prev[i], upLeft)
			}
		default:
			return n, fmt.Errorf("malformed PNG predictor %d", r.cur[0])
		}

		copy(r.prev, row)
		r.pend = r.prev
	}
	return n, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// FlateStream returns a new stream which holds the Flate-compressed data.
// The entries of dict are copied; /Filter and /Length are set.
func FlateStream(dict Dict, data []byte) (*Stream, error) {
	buf := &bytes.Buffer{}
	zw := zlib.NewWriter(buf)
	_, err := zw.Write(data)
	if err != nil {
		return nil, err
	}
	err = zw.Close()
	if err != nil {
		return nil, err
	}

	streamDict := dict.Clone()
	if streamDict == nil {
		streamDict = Dict{}
	}
	streamDict["Filter"] = Name("FlateDecode")
	streamDict["Length"] = Integer(buf.Len())
	return &Stream{
		Dict: streamDict,
		R:    bytes.NewReader(buf.Bytes()),
	}, nil
}

// PlainStream returns a new, uncompressed stream with the given data.
func PlainStream(dict Dict, data []byte) *Stream {
	streamDict := dict.Clone()
	if streamDict == nil {
		streamDict = Dict{}
	}
	streamDict["Length"] = Integer(len(data))
	return &Stream{
		Dict: streamDict,
		R:    bytes.NewReader(data),
	}
}
