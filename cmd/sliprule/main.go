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

// Sliprule marks a PDF document as amended under the slip rule.
//
// The program adds the notice "Amended under the slip rule - DD/MM/YYYY",
// with the current date, centred near the top of the first page.  The
// area of the notice is painted white first, so that a notice from an
// earlier run is hidden.  The result is written to the current directory,
// using the base name of the input file.  If no input file is given, a
// bundled sample document is stamped and written to "dummy.pdf".
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"seehuhn.de/go/sliprule/assets"
	"seehuhn.de/go/sliprule/internal/buildinfo"
	"seehuhn.de/go/sliprule/internal/profile"
	"seehuhn.de/go/sliprule/stamp"
)

type config struct {
	verbose bool
	profile profile.Files
}

func main() {
	cfg := &config{}
	flag.BoolVar(&cfg.verbose, "v", false, "show the notice, its position and the output file")
	showVersion := flag.Bool("version", false, "show version information and exit")
	flag.StringVar(&cfg.profile.CPU, "cpuprofile", "", "write cpu profile to `file`")
	flag.StringVar(&cfg.profile.Memory, "memprofile", "", "write memory profile to `file`")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sliprule - stamp a slip rule amendment notice onto a PDF file\n")
		fmt.Fprintf(os.Stderr, "%s\n\n", buildinfo.Read().Describe("sliprule"))
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  sliprule [options] [file.pdf]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  sliprule ../judgments/order.pdf   (writes ./order.pdf)\n")
		fmt.Fprintf(os.Stderr, "  sliprule                          (writes ./dummy.pdf)\n")
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Read().Describe("sliprule"))
		return
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetFlags(0)
	log.SetPrefix("sliprule: ")

	err := run(cfg, flag.Args(), assets.Bundled, time.Now())
	if err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config, args []string, loader assets.Loader, date time.Time) (err error) {
	stop, err := cfg.profile.Start()
	if err != nil {
		return err
	}
	defer func() {
		stopErr := stop()
		if err == nil {
			err = stopErr
		}
	}()

	in, output, err := resolveInput(args, loader)
	if err != nil {
		return &stamp.Error{Stage: stamp.StageInput, Err: err}
	}
	defer in.Close()

	s := &stamp.Stamper{Assets: loader}
	res, err := s.Run(in, output, date)
	if err != nil {
		return err
	}

	if cfg.verbose {
		g := res.Geometry
		log.Printf("notice %q", res.Message)
		log.Printf("page %d, font /%s, x=%.2f y=%.2f width=%.2f height=%.2f",
			res.Page+1, res.FontName, g.X, g.Y, g.Width, g.Height)
		log.Printf("written to %s", res.Output)
	}
	return nil
}
