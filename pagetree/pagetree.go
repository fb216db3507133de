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

// Package pagetree locates pages in the page tree of a PDF file.
package pagetree

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/sliprule/pdf"
)

// Getter gives access to the objects and the document catalog of a PDF
// file.  Both [*pdf.Reader] and [*pdf.Update] implement this interface.
type Getter interface {
	pdf.Getter
	Catalog() (pdf.Dict, error)
}

// Letter is the media box used for pages which do not specify one.
var Letter = rect.Rect{LLx: 0, LLy: 0, URx: 612, URy: 792}

var (
	// ErrPageNotFound is returned when the requested page does not exist.
	ErrPageNotFound = errors.New("page not found")

	errInvalidPageTree = errors.New("invalid page tree")
	errDirectPage      = errors.New("page is not an indirect object")
)

// inheritable lists the page attributes which can be set on intermediate
// nodes of the page tree.
var inheritable = []pdf.Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// Page is a page of a PDF document, together with the attributes it
// inherits from the page tree.
type Page struct {
	// Ref is the reference of the page object.
	Ref pdf.Reference

	// Dict is a copy of the page dictionary.  Inherited attributes are
	// filled in.
	Dict pdf.Dict

	// MediaBox is the media box of the page.  If the page tree does not
	// specify a media box, [Letter] is used.
	MediaBox rect.Rect

	// CropBox is the crop box of the page, or the zero rectangle if none
	// is given.
	CropBox rect.Rect

	// Resources is the resource dictionary of the page.
	// This is nil if the page has no resources.
	Resources pdf.Dict

	// Rotate is the rotation of the page in degrees, normalised to the
	// range 0, 90, 180, 270.
	Rotate int
}

// NumPages returns the number of pages in the document.
func NumPages(r Getter) (int, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return 0, err
	}
	root, err := pdf.GetDict(r, catalog["Pages"])
	if err != nil {
		return 0, err
	}
	if root == nil {
		return 0, nil
	}

	count, err := pdf.GetInt(r, root["Count"])
	if err != nil {
		return 0, err
	}
	if count < 0 || count > math.MaxInt32 {
		return 0, errInvalidPageTree
	}
	return int(count), nil
}

// FindPage returns page n (starting at 0) of the document.
// Subtrees which do not contain the page are skipped using their /Count
// entries.
func FindPage(r Getter, n int) (*Page, error) {
	if n < 0 {
		return nil, ErrPageNotFound
	}
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}

	inherited := pdf.Dict{}
	skip := pdf.Integer(n)
	kids := pdf.Array{catalog["Pages"]}

	seen := map[pdf.Reference]bool{}
	for len(kids) > 0 {
		obj := kids[0]
		kids = kids[1:]

		ref, isRef := obj.(pdf.Reference)
		if isRef {
			if seen[ref] {
				return nil, errInvalidPageTree
			}
			seen[ref] = true
		}
		node, err := pdf.GetDict(r, obj)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}

		tp, err := pdf.GetName(r, node["Type"])
		if err != nil {
			return nil, err
		}
		if tp == "" {
			// Some writers omit the type.  Nodes with kids are
			// intermediate nodes, all others are pages.
			if node["Kids"] != nil {
				tp = "Pages"
			} else {
				tp = "Page"
			}
		}

		switch tp {
		case "Page":
			if skip > 0 {
				skip--
				continue
			}
			if !isRef {
				return nil, errDirectPage
			}

			dict := node.Clone()
			for _, name := range inheritable {
				if _, ok := dict[name]; !ok {
					if val, ok := inherited[name]; ok {
						dict[name] = val
					}
				}
			}
			return newPage(r, ref, dict)

		case "Pages":
			count, err := pdf.GetInt(r, node["Count"])
			if err != nil {
				return nil, err
			}
			if count < 0 {
				return nil, errInvalidPageTree
			} else if skip < count {
				for _, name := range inheritable {
					if val, ok := node[name]; ok {
						inherited[name] = val
					}
				}
				kids, err = pdf.GetArray(r, node["Kids"])
				if err != nil {
					return nil, err
				}
			} else {
				skip -= count
			}

		default:
			return nil, errInvalidPageTree
		}
	}

	return nil, ErrPageNotFound
}

func newPage(r pdf.Getter, ref pdf.Reference, dict pdf.Dict) (*Page, error) {
	page := &Page{
		Ref:      ref,
		Dict:     dict,
		MediaBox: Letter,
	}

	mediaBox, err := getRect(r, dict["MediaBox"])
	if err != nil {
		return nil, fmt.Errorf("MediaBox: %w", err)
	}
	if !mediaBox.IsZero() {
		page.MediaBox = mediaBox
	}

	page.CropBox, err = getRect(r, dict["CropBox"])
	if err != nil {
		return nil, fmt.Errorf("CropBox: %w", err)
	}

	page.Resources, err = pdf.GetDict(r, dict["Resources"])
	if err != nil {
		return nil, fmt.Errorf("Resources: %w", err)
	}

	if dict["Rotate"] != nil {
		rot, err := pdf.GetInt(r, dict["Rotate"])
		if err != nil {
			return nil, fmt.Errorf("Rotate: %w", err)
		}
		page.Rotate = int((rot%360 + 360) % 360 / 90 * 90)
	}

	return page, nil
}

func getRect(r pdf.Getter, obj pdf.Object) (rect.Rect, error) {
	a, err := pdf.GetArray(r, obj)
	if err != nil || a == nil {
		return rect.Rect{}, err
	}
	resolved := make(pdf.Array, len(a))
	for i, x := range a {
		resolved[i], err = pdf.Resolve(r, x)
		if err != nil {
			return rect.Rect{}, err
		}
	}
	llx, lly, urx, ury, err := pdf.Rectangle(resolved)
	if err != nil {
		return rect.Rect{}, err
	}
	return rect.Rect{LLx: llx, LLy: lly, URx: urx, URy: ury}, nil
}
