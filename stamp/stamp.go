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

// Package stamp adds a dated "slip rule" amendment notice to a PDF file.
//
// The notice is placed centred near the top of the first page.  Before the
// new notice is drawn, the area it occupies is painted white, so that a
// notice from an earlier run of the program is hidden.  The document is
// changed using an incremental update: the original bytes are kept
// unchanged, and the new objects are appended at the end of the file.
package stamp

import (
	"errors"
	"time"
)

// Default values for the stamp.
const (
	// Prefix is the fixed part of the amendment notice.
	Prefix = "Amended under the slip rule - "

	// DateLayout is the format of the date in the notice, as used by
	// [time.Time.Format].  The date is written as DD/MM/YYYY.
	DateLayout = "02/01/2006"

	// DefaultFontSize is the font size of the notice, in PDF units.
	DefaultFontSize = 12

	// DefaultPage is the page which receives the notice.
	// Pages are numbered starting at 0.
	DefaultPage = 0
)

var (
	// ErrNoPages is returned when the document has no pages.
	ErrNoPages = errors.New("document has no pages")

	// ErrFontMetrics is returned when the font bounding box has no
	// positive height.
	ErrFontMetrics = errors.New("font bounding box has no positive height")

	errSaved = errors.New("document already saved")
)

// Message returns the amendment notice for the given date.
func Message(date time.Time) string {
	return Prefix + date.Format(DateLayout)
}

// Stage identifies the part of the stamping process where an error
// occurred.
type Stage int

// These are the stages of the stamping process.
const (
	StageInput Stage = iota + 1
	StageOpen
	StageFont
	StageStamp
	StageSave
)

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "reading input"
	case StageOpen:
		return "opening document"
	case StageFont:
		return "loading font"
	case StageStamp:
		return "stamping page"
	case StageSave:
		return "writing output"
	default:
		return "unknown stage"
	}
}

// Error is returned by [Stamper.Run].  It records the stage at which
// the process failed.
type Error struct {
	Stage Stage
	Err   error
}

func (err *Error) Error() string {
	return err.Stage.String() + ": " + err.Err.Error()
}

func (err *Error) Unwrap() error {
	return err.Err
}
