package layout

import (
	"math"
	"strings"
	"testing"

	"github.com/figtools/pgfkit/pkg/errors"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func intp(i int) *int { return &i }

func twoColGeom() Geometry {
	return Geometry{
		TextWidth:  8.0,
		TextHeight: 4.0,
		NumColumns: 2,
		ColumnSep:  1.0,
	}
}

func TestTwoColumns(t *testing.T) {
	geom := twoColGeom()

	tests := []struct {
		name  string
		req   Request
		wantW float64
		wantH float64
	}{
		{"no columns full width", Request{Width: 1.0, Height: 1.0}, 8, 4},
		{"one column", Request{Width: 1.0, Height: 1.0, Columns: intp(1)}, 3.5, 4},
		{"two columns", Request{Width: 1.0, Height: 1.0, Columns: intp(2)}, 8, 4},
		{"fractional no columns", Request{Width: 0.6, Height: 1.0}, 4.8, 4},
		{"fractional one column", Request{Width: 0.5, Height: 1.0, Columns: intp(1)}, 1.75, 4},
		{"fractional two columns", Request{Width: 0.85, Height: 1.0, Columns: intp(2)}, 6.8, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := Compute(geom, tt.req)
			if err != nil {
				t.Fatalf("Compute error: %v", err)
			}
			if !approx(size.W, tt.wantW) || !approx(size.H, tt.wantH) {
				t.Errorf("Compute = %+v, want (%v, %v)", size, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestThreeColumns(t *testing.T) {
	geom := Geometry{TextWidth: 8.0, TextHeight: 4.0, NumColumns: 3, ColumnSep: 1.0}

	tests := []struct {
		columns int
		width   float64
		wantW   float64
	}{
		{1, 1.0, 2},
		{2, 1.0, 5},
		{3, 1.0, 8},
		{1, 0.5, 1},
		{2, 0.85, 4.25},
		{3, 0.4, 3.2},
	}

	for _, tt := range tests {
		size, err := Compute(geom, Request{Width: tt.width, Height: 1.0, Columns: intp(tt.columns)})
		if err != nil {
			t.Fatalf("Compute error: %v", err)
		}
		if !approx(size.W, tt.wantW) {
			t.Errorf("columns=%d width=%v: W = %v, want %v", tt.columns, tt.width, size.W, tt.wantW)
		}
	}
}

func TestColumnErrors(t *testing.T) {
	geom := twoColGeom()

	for _, columns := range []int{-1, 0} {
		_, err := Compute(geom, Request{Width: 1.0, Height: 1.0, Columns: intp(columns)})
		if !errors.Is(err, errors.ErrCodeInvalidColumns) {
			t.Errorf("columns=%d: expected INVALID_COLUMNS, got %v", columns, err)
		}
		if err == nil || !strings.Contains(err.Error(), "must be at least one") {
			t.Errorf("columns=%d: error should mention minimum, got %v", columns, err)
		}
	}

	_, err := Compute(geom, Request{Width: 1.0, Height: 1.0, Columns: intp(3)})
	if !errors.Is(err, errors.ErrCodeInvalidColumns) {
		t.Fatalf("expected INVALID_COLUMNS, got %v", err)
	}
	// The error must identify both counts.
	if !strings.Contains(err.Error(), "2") || !strings.Contains(err.Error(), "3") {
		t.Errorf("over-span error should name both counts, got %v", err)
	}
}

func TestMonotonicInColumns(t *testing.T) {
	geom := Geometry{TextWidth: 9.0, TextHeight: 4.0, NumColumns: 4, ColumnSep: 0.5}

	prev := -1.0
	for columns := 1; columns <= 4; columns++ {
		size, err := Compute(geom, Request{Width: 1.0, Height: 1.0, Columns: intp(columns)})
		if err != nil {
			t.Fatalf("columns=%d: %v", columns, err)
		}
		if size.W <= prev {
			t.Errorf("width not strictly increasing: columns=%d gives %v after %v", columns, size.W, prev)
		}
		prev = size.W
	}

	// Spanning all columns equals the text width exactly.
	size, err := Compute(geom, Request{Width: 1.0, Height: 1.0, Columns: intp(4)})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(size.W, geom.TextWidth) {
		t.Errorf("full span W = %v, want %v", size.W, geom.TextWidth)
	}
}

func TestMargin(t *testing.T) {
	geom := Geometry{
		TextWidth: 4.79, TextHeight: 7.63,
		NumColumns: 1, MarginparWidth: 2.0, MarginparSep: 0.3,
	}

	for _, w := range []float64{1.0, 0.5, 1.2} {
		for _, h := range []float64{0.3, 0.25, 0.5} {
			size, err := Compute(geom, Request{Width: w, Height: h, Margin: true})
			if err != nil {
				t.Fatal(err)
			}
			if !approx(size.W, w*geom.MarginparWidth) || !approx(size.H, h*geom.TextHeight) {
				t.Errorf("margin w=%v h=%v: got %+v", w, h, size)
			}
		}
	}

	// Explicit dimensions bypass the available width entirely.
	size, err := Compute(geom, Request{Width: "1.8in", Height: "1.2in", Margin: true})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(size.W, 1.8) || !approx(size.H, 1.2) {
		t.Errorf("explicit dims: got %+v", size)
	}
}

func TestFullWidth(t *testing.T) {
	geom := Geometry{
		TextWidth: 4.79, TextHeight: 7.63,
		NumColumns: 1, MarginparWidth: 2.0, MarginparSep: 0.3,
	}
	full := geom.TextWidth + geom.MarginparSep + geom.MarginparWidth

	for _, w := range []float64{1.0, 0.75, 1.1} {
		size, err := Compute(geom, Request{Width: w, Height: 0.4, FullWidth: true})
		if err != nil {
			t.Fatal(err)
		}
		if !approx(size.W, w*full) {
			t.Errorf("full width w=%v: got %v, want %v", w, size.W, w*full)
		}
	}
}

func TestPlacementPriority(t *testing.T) {
	geom := Geometry{
		TextWidth: 4.79, TextHeight: 7.63,
		NumColumns: 2, ColumnSep: 0.2, MarginparWidth: 2.0, MarginparSep: 0.3,
	}
	full := geom.TextWidth + geom.MarginparSep + geom.MarginparWidth

	// All three set: full width wins, even over an invalid column count.
	size, err := Compute(geom, Request{Width: 1.0, Height: 0.4, Columns: intp(1), Margin: true, FullWidth: true})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(size.W, full) {
		t.Errorf("full_width priority: W = %v, want %v", size.W, full)
	}
	if !approx(size.H, 0.4*geom.TextHeight) {
		t.Errorf("height must ignore placement mode: H = %v", size.H)
	}

	// Margin beats columns.
	size, err = Compute(geom, Request{Width: 1.0, Height: 0.4, Columns: intp(1), Margin: true})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(size.W, geom.MarginparWidth) {
		t.Errorf("margin priority: W = %v, want %v", size.W, geom.MarginparWidth)
	}
}

func TestExplicitDimensionStrings(t *testing.T) {
	geom := twoColGeom()

	size, err := Compute(geom, Request{Width: "2.54cm", Height: "340pt"})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(size.W, 1) || !approx(size.H, 340/72.27) {
		t.Errorf("explicit dims: got %+v", size)
	}

	if _, err := Compute(geom, Request{Width: "1.2kg", Height: 1.0}); !errors.Is(err, errors.ErrCodeInvalidDimension) {
		t.Errorf("bad dimension should fail, got %v", err)
	}
}
