// Command digipin encodes and decodes DIGIPIN codes from the command line.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

const usage = `usage: digipin <command> [flags] args

commands:
  encode    [-p precision] LAT LON
  decode    CODE
  bounds    CODE
  parent    [-level n] CODE
  neighbors [-dir direction] CODE
  disk      [-r radius] CODE
  ring      [-r radius] CODE
  validate  [-strict] CODE
`

var errUsage = errors.New("bad usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var out any
	var err error
	switch cmd {
	case "encode":
		p := fs.Int("p", digipin.MaxPrecision, "code length")
		if err = parse(fs, rest, 2); err == nil {
			var lat, lon float64
			if lat, lon, err = latLon(fs.Arg(0), fs.Arg(1)); err == nil {
				out, err = digipin.EncodeWithBounds(lat, lon, *p)
			}
		}
	case "decode":
		if err = parse(fs, rest, 1); err == nil {
			out, err = digipin.DecodeWithBounds(fs.Arg(0))
		}
	case "bounds":
		if err = parse(fs, rest, 1); err == nil {
			out, err = digipin.Bounds(fs.Arg(0))
		}
	case "parent":
		level := fs.Int("level", 0, "parent level, default one above the code")
		if err = parse(fs, rest, 1); err == nil {
			code := fs.Arg(0)
			l := *level
			if l == 0 {
				l = max(len(code)-1, digipin.MinPrecision)
			}
			var p string
			if p, err = digipin.Parent(code, l); err == nil {
				out = map[string]any{"code": code, "level": l, "parent": p}
			}
		}
	case "neighbors":
		dir := fs.String("dir", string(digipin.DirectionAll), "all, cardinal or a compass direction")
		if err = parse(fs, rest, 1); err == nil {
			var d digipin.Direction
			if d, err = digipin.ParseDirection(*dir); err == nil {
				out, err = digipin.Neighbors(fs.Arg(0), d)
			}
		}
	case "disk", "ring":
		radius := fs.Int("r", 1, "radius in cells")
		if err = parse(fs, rest, 1); err == nil {
			if cmd == "disk" {
				out, err = digipin.Disk(fs.Arg(0), *radius)
			} else {
				out, err = digipin.Ring(fs.Arg(0), *radius)
			}
		}
	case "validate":
		strict := fs.Bool("strict", false, "accept only full-length codes")
		if err = parse(fs, rest, 1); err == nil {
			out = map[string]any{"code": fs.Arg(0), "valid": digipin.IsValid(fs.Arg(0), *strict)}
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return 2
	}

	switch {
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprint(stderr, usage)
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "digipin %s: %v\n", cmd, err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "digipin: write output: %v\n", err)
		return 1
	}
	return 0
}

func parse(fs *flag.FlagSet, args []string, nargs int) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != nargs {
		return errUsage
	}
	return nil
}

func latLon(a, b string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lon, nil
}
