package units

import (
	"math"
	"testing"

	"github.com/figtools/pgfkit/pkg/errors"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		spec string
		want float64
	}{
		{"1", 1},
		{"3.2", 3.2},
		{"7", 7},
		{"2.7", 2.7},
		{"2.54cm", 1},
		{"2.54 cm", 1},
		{"2.54\tcm", 1},
		{"1 centimetre", 1 / 2.54},
		{"8 centimetres", 8 / 2.54},
		{"1.0 centimeter", 1 / 2.54},
		{"8.0 centimeters", 8 / 2.54},
		{"80mm", 80 / 25.4},
		{"200 millimetre", 200 / 25.4},
		{"123.4 millimetres", 123.4 / 25.4},
		{"200 millimeter", 200 / 25.4},
		{"123.4 millimeters", 123.4 / 25.4},
		{"1in", 1},
		{"2.5 inch", 2.5},
		{"3 inches", 3},
		{"340pt", 340 / 72.27},
		{"120point", 120 / 72.27},
		{"960 points", 960 / 72.27},
		{"2.54CM", 1},
		{"1IN", 1},
		{"1e-3", 1e-3},
		{"1e-3in", 1e-3},
		{"2.5E2 mm", 250 / 25.4},
		{"1e2pt", 100 / 72.27},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseDimension(tt.spec)
			if err != nil {
				t.Fatalf("ParseDimension(%q) error: %v", tt.spec, err)
			}
			if !approx(got, tt.want) {
				t.Errorf("ParseDimension(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParseDimensionRejects(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"whitespace only", "     "},
		{"unknown unit", "1.2kg"},
		{"unit first", "cm1.2"},
		{"double decimal", "1.2.2cm"},
		{"negative", "-1.2"},
		{"negative with unit", "-1.2cm"},
		{"bare exponent", "1e"},
		{"exponent into unit", "1.2em"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDimension(tt.spec)
			if err == nil {
				t.Fatalf("ParseDimension(%q) succeeded, want error", tt.spec)
			}
			if !errors.Is(err, errors.ErrCodeInvalidDimension) {
				t.Errorf("ParseDimension(%q) error code = %v, want INVALID_DIMENSION", tt.spec, errors.GetCode(err))
			}
		})
	}
}
