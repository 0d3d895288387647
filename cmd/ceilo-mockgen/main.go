// ceilo-mockgen writes a synthetic ceilometer hit CSV with a known layer
// structure, for exercising the ceilo pipeline without instrument data.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/skewt/ceilo/internal/chunk"
	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/internal/mocker"
)

func main() {
	out := flag.String("out", "-", "Output CSV path, or '-' for stdout")
	window := flag.Float64("window", 900, "Window length in seconds, ending at dt=0")
	seed := flag.Uint64("seed", 42, "Random seed")
	ceilosArg := flag.String("ceilos", "CL31-1:30", "Instruments as id:cadence_sec, comma separated")
	layersArg := flag.String("layers", "1200:50:1", "Layers as height:std:skycov[:period:amplitude], comma separated")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug, ""); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ceilos, err := parseCeilos(*ceilosArg)
	if err != nil {
		log.Errorf("Parsing -ceilos: %v", err)
		os.Exit(1)
	}
	layers, err := parseLayers(*layersArg)
	if err != nil {
		log.Errorf("Parsing -layers: %v", err)
		os.Exit(1)
	}

	hits, err := mocker.Generate(ceilos, layers, *window, *seed)
	if err != nil {
		log.Errorf("Generating hits: %v", err)
		os.Exit(1)
	}

	w := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Errorf("Creating %s: %v", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := writeCSV(w, hits); err != nil {
		log.Errorf("Writing CSV: %v", err)
		os.Exit(1)
	}
	log.Infof("wrote %d hits", len(hits))
}

func parseCeilos(arg string) ([]mocker.CeiloSpec, error) {
	var out []mocker.CeiloSpec
	for _, part := range strings.Split(arg, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%q: want id:cadence_sec", part)
		}
		rate, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%q: bad cadence: %w", part, err)
		}
		out = append(out, mocker.CeiloSpec{ID: fields[0], RateSec: rate})
	}
	return out, nil
}

func parseLayers(arg string) ([]mocker.LayerSpec, error) {
	var out []mocker.LayerSpec
	for _, part := range strings.Split(arg, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 && len(fields) != 5 {
			return nil, fmt.Errorf("%q: want height:std:skycov[:period:amplitude]", part)
		}
		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%q: bad number %q: %w", part, f, err)
			}
			vals[i] = v
		}
		spec := mocker.LayerSpec{Height: vals[0], HeightStd: vals[1], SkyCovFrac: vals[2]}
		if len(vals) == 5 {
			spec.Period, spec.Amplitude = vals[3], vals[4]
		}
		out = append(out, spec)
	}
	return out, nil
}

func writeCSV(w *os.File, hits []chunk.Hit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ceilo", "dt", "height", "type"}); err != nil {
		return err
	}
	for _, h := range hits {
		height := ""
		if !math.IsNaN(h.Height) {
			height = strconv.FormatFloat(h.Height, 'f', 1, 64)
		}
		rec := []string{
			h.Ceilo,
			strconv.FormatFloat(h.Dt, 'f', -1, 64),
			height,
			strconv.Itoa(h.Type),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
