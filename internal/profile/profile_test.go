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

package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDisabled(t *testing.T) {
	stop, err := Files{}.Start()
	if err != nil {
		t.Fatal(err)
	}
	err = stop()
	if err != nil {
		t.Error(err)
	}
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	p := Files{
		CPU:    filepath.Join(dir, "cpu.prof"),
		Memory: filepath.Join(dir, "mem.prof"),
	}
	stop, err := p.Start()
	if err != nil {
		t.Fatal(err)
	}
	err = stop()
	if err != nil {
		t.Fatal(err)
	}

	for _, fname := range []string{p.CPU, p.Memory} {
		fi, err := os.Stat(fname)
		if err != nil {
			t.Error(err)
		} else if fi.Size() == 0 {
			t.Errorf("%s is empty", fname)
		}
	}
}

func TestBadPath(t *testing.T) {
	p := Files{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")}
	_, err := p.Start()
	if err == nil {
		t.Error("missing directory not detected")
	}
}
