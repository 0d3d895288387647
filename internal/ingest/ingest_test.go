package ingest

import (
	"math"
	"strings"
	"testing"
)

func TestReadValidCSV(t *testing.T) {
	doc := `ceilo,dt,height,type
CL31-1,-600,1200,1
CL31-1,-570,,0
CL31-2,-600,1250.5,1
CL31-2,-600,4800,2
`
	hits, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("got %d hits, want 4", len(hits))
	}
	if hits[0].Ceilo != "CL31-1" || hits[0].Dt != -600 || hits[0].Height != 1200 {
		t.Errorf("hit 0 = %+v", hits[0])
	}
	if !math.IsNaN(hits[1].Height) || hits[1].Type != 0 {
		t.Errorf("clear hit parsed as %+v", hits[1])
	}
	if hits[3].Type != 2 {
		t.Errorf("hit 3 type = %d, want 2", hits[3].Type)
	}
}

func TestReadNoHeader(t *testing.T) {
	hits, err := Read(strings.NewReader("CL31-1,-60,900\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(hits) != 1 || hits[0].Type != 1 {
		t.Fatalf("got %+v, want one type-1 hit", hits)
	}
}

func TestReadEmptyInput(t *testing.T) {
	hits, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits, want 0", len(hits))
	}
}

func TestReadFailsFast(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty ceilo", ",-60,900\n", "empty ceilo"},
		{"bad dt", "CL31-1,soon,900\n", "bad dt"},
		{"nan dt", "CL31-1,NaN,900\n", "non-finite dt"},
		{"bad height", "CL31-1,-60,high\n", "bad height"},
		{"inf height", "CL31-1,-60,+Inf\n", "non-finite height"},
		{"missing height on detection", "CL31-1,-60,,1\n", "missing height"},
		{"height on clear row", "CL31-1,-60,900,0\n", "type 0 row carries a height"},
		{"type out of range", "CL31-1,-60,900,4\n", "out of range"},
		{"too few fields", "CL31-1,-60\n", "want 3 or 4 fields"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.doc))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
			if !strings.Contains(err.Error(), "line 1") {
				t.Errorf("error %q does not name the offending line", err)
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile("/does/not/exist.csv"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
