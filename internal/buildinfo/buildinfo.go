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

// Package buildinfo reports which version of a program is running.
package buildinfo

import (
	"runtime/debug"
)

// Info describes the build of the running program.
type Info struct {
	// Path is the module path of the main module.
	Path string

	// Version is the module version, or "" for development builds.
	Version string

	// Revision is the VCS revision the program was built from, if known.
	Revision string

	// Dirty is set if the working tree had local modifications.
	Dirty bool
}

// Read returns the build information embedded in the running binary.
func Read() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{}
	}

	res := Info{Path: info.Main.Path}
	if v := info.Main.Version; v != "(devel)" {
		res.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			res.Revision = s.Value
		case "vcs.modified":
			res.Dirty = s.Value == "true"
		}
	}
	return res
}

// Describe returns a one line description of the program, e.g.
// "sliprule (seehuhn.de/go/sliprule v0.1.0)".  If no version is known,
// the VCS revision is shown instead.
func (info Info) Describe(toolName string) string {
	if info.Version != "" {
		return toolName + " (" + info.Path + " " + info.Version + ")"
	}

	rev := info.Revision
	if rev == "" {
		return toolName
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if info.Dirty {
		rev += "+dirty"
	}
	return toolName + " (" + info.Path + " " + rev + ")"
}
