// Package ingest reads ceilometer hit tables from CSV. Validation is
// fail-fast: a malformed row aborts the whole read with an error naming the
// offending line, so bad data never reaches the clustering pipeline.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/skewt/ceilo/internal/chunk"
	"github.com/skewt/ceilo/internal/log"
)

// CSV columns: ceilo,dt,height,type. The height field may be empty (or
// "NaN") only on type-0 rows, which record a measurement cycle that saw no
// cloud; those rows still matter, they feed the okta denominator.

// ReadFile loads hits from a CSV file.
func ReadFile(path string) ([]chunk.Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hit file: %w", err)
	}
	defer f.Close()
	hits, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return hits, nil
}

// Read parses hits from CSV data. A header row starting with "ceilo" is
// skipped when present.
func Read(r io.Reader) ([]chunk.Hit, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var hits []chunk.Hit
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "ceilo") {
			continue
		}
		if len(rec) < 3 || len(rec) > 4 {
			return nil, fmt.Errorf("line %d: want 3 or 4 fields (ceilo,dt,height[,type]), got %d", line, len(rec))
		}

		hit, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		hits = append(hits, hit)
	}

	log.Debugf("ingested %d hits", len(hits))
	return hits, nil
}

func parseRow(rec []string) (chunk.Hit, error) {
	ceilo := strings.TrimSpace(rec[0])
	if ceilo == "" {
		return chunk.Hit{}, fmt.Errorf("empty ceilo field")
	}

	dt, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return chunk.Hit{}, fmt.Errorf("bad dt %q: %w", rec[1], err)
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return chunk.Hit{}, fmt.Errorf("non-finite dt %q", rec[1])
	}

	hitType := 1
	if len(rec) == 4 {
		hitType, err = strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return chunk.Hit{}, fmt.Errorf("bad type %q: %w", rec[3], err)
		}
		if hitType < chunk.HitTypeVV || hitType > 3 {
			return chunk.Hit{}, fmt.Errorf("type %d out of range [-1, 3]", hitType)
		}
	}

	heightField := strings.TrimSpace(rec[2])
	var height float64
	switch {
	case heightField == "" || strings.EqualFold(heightField, "nan"):
		if hitType != chunk.HitTypeClear {
			return chunk.Hit{}, fmt.Errorf("missing height on a type %d row", hitType)
		}
		height = math.NaN()
	default:
		height, err = strconv.ParseFloat(heightField, 64)
		if err != nil {
			return chunk.Hit{}, fmt.Errorf("bad height %q: %w", rec[2], err)
		}
		if math.IsInf(height, 0) {
			return chunk.Hit{}, fmt.Errorf("non-finite height %q", rec[2])
		}
		if hitType == chunk.HitTypeClear {
			return chunk.Hit{}, fmt.Errorf("type 0 row carries a height value %q", rec[2])
		}
	}

	return chunk.Hit{Ceilo: ceilo, Dt: dt, Height: height, Type: hitType}, nil
}
