package wmo

import "testing"

func TestPercToOkta(t *testing.T) {
	tests := []struct {
		name       string
		perc       float64
		lim0, lim8 float64
		want       int
	}{
		{"exact zero", 0, 0, 100, 0},
		{"within widened zero bin", 1.5, 2, 98, 0},
		{"just above zero bin", 2.1, 2, 98, 1},
		{"half sky", 50, 2, 98, 4},
		{"three eighths", 37.5, 2, 98, 3},
		{"just below widened eight bin", 97.9, 2, 98, 7},
		{"widened eight bin", 98, 2, 98, 8},
		{"full sky", 100, 0, 100, 8},
		{"seven okta bin is wide", 94, 0, 100, 7},
		{"one okta bin is wide", 12, 0, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PercToOkta(tt.perc, tt.lim0, tt.lim8)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PercToOkta(%v) = %d, want %d", tt.perc, got, tt.want)
			}
		})
	}
}

func TestPercToOktaMonotonic(t *testing.T) {
	prev := 0
	for perc := 0.0; perc <= 100; perc += 0.5 {
		okta, err := PercToOkta(perc, 2, 98)
		if err != nil {
			t.Fatalf("unexpected error at %v: %v", perc, err)
		}
		if okta < prev {
			t.Fatalf("okta not monotonic at %v%%: %d after %d", perc, okta, prev)
		}
		prev = okta
	}
}

func TestPercToOktaOutOfRange(t *testing.T) {
	if _, err := PercToOkta(-1, 0, 100); err == nil {
		t.Error("expected error for negative percentage")
	}
	if _, err := PercToOkta(101, 0, 100); err == nil {
		t.Error("expected error for percentage above 100")
	}
}

func TestOktaToCode(t *testing.T) {
	tests := []struct {
		okta int
		want string
	}{
		{0, "NCD"},
		{1, "FEW"}, {2, "FEW"},
		{3, "SCT"}, {4, "SCT"},
		{5, "BKN"}, {6, "BKN"}, {7, "BKN"},
		{8, "OVC"},
	}
	for _, tt := range tests {
		got, err := OktaToCode(tt.okta)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("OktaToCode(%d) = %q, want %q", tt.okta, got, tt.want)
		}
	}
	if _, err := OktaToCode(9); err == nil {
		t.Error("expected error for okta out of range")
	}
}

func TestHeightToCode(t *testing.T) {
	tests := []struct {
		height float64
		want   string
	}{
		{500, "005"},
		{980, "009"},
		{5000, "050"},
		{9999, "099"},
		{10000, "100"},
		{12500, "120"},
		{25000, "250"},
	}
	for _, tt := range tests {
		if got := HeightToCode(tt.height); got != tt.want {
			t.Errorf("HeightToCode(%v) = %q, want %q", tt.height, got, tt.want)
		}
	}
}
