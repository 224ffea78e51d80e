// Package units converts textual physical dimensions into canonical inches.
//
// TeX documents specify lengths in a handful of units (centimetres,
// millimetres, inches and TeX points); figure sizes handed to the rendering
// backend must be plain inches. ParseDimension accepts a string of the form
// "<number><optional whitespace><optional unit>" and normalizes it:
//
//	w, err := units.ParseDimension("2.54cm") // 1.0
//	w, err := units.ParseDimension("340pt")  // 340/72.27
//	w, err := units.ParseDimension("3.2")    // 3.2 (inches assumed)
//
// Note that TeX points are 72.27 to the inch, not the PostScript 72.
package units

import (
	"strconv"
	"strings"

	"github.com/figtools/pgfkit/pkg/errors"
)

// divisors maps a recognized unit spelling to the factor dividing the value
// into inches. Several spellings are accepted for each unit; matching is
// case-insensitive.
var divisors = map[string]float64{
	"cm":          2.54,
	"centimetre":  2.54,
	"centimetres": 2.54,
	"centimeter":  2.54,
	"centimeters": 2.54,

	"mm":          25.4,
	"millimetre":  25.4,
	"millimetres": 25.4,
	"millimeter":  25.4,
	"millimeters": 25.4,

	"in":     1,
	"inch":   1,
	"inches": 1,

	// TeX points, not the 72-per-inch PostScript convention.
	"pt":     72.27,
	"point":  72.27,
	"points": 72.27,
}

// ParseDimension converts a dimension specification into inches.
//
// The accepted form is "<number><optional whitespace><optional unit>", e.g.
// "2.54cm", "2.54 cm" or "3.2". A missing unit means the value is already in
// inches. Empty input, malformed numbers, negative values and unknown units
// are rejected with an INVALID_DIMENSION error naming the offending spec.
func ParseDimension(spec string) (float64, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return 0, errors.New(errors.ErrCodeInvalidDimension, "empty dimension %q", spec)
	}

	// Split the numeric portion from the trailing unit. An exponent marker
	// stays with the number when a signed digit follows, so "1e-3in" splits
	// like the plain forms.
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	split := len(trimmed)
	seenDigit := false
	for i := 0; i < len(trimmed); i++ {
		b := trimmed[i]
		if isDigit(b) {
			seenDigit = true
			continue
		}
		if b == '.' || b == '-' || b == '+' {
			continue
		}
		if (b == 'e' || b == 'E') && seenDigit {
			j := i + 1
			if j < len(trimmed) && (trimmed[j] == '+' || trimmed[j] == '-') {
				j++
			}
			if j < len(trimmed) && isDigit(trimmed[j]) {
				i = j
				continue
			}
		}
		split = i
		break
	}
	number := strings.TrimSpace(trimmed[:split])
	unit := strings.ToLower(strings.TrimSpace(trimmed[split:]))

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidDimension, "could not parse dimension %q", spec)
	}
	if value < 0 {
		return 0, errors.New(errors.ErrCodeInvalidDimension, "dimension %q must not be negative", spec)
	}

	if unit == "" {
		return value, nil
	}

	divisor, ok := divisors[unit]
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidDimension, "unknown unit %q in dimension %q", unit, spec)
	}
	return value / divisor, nil
}
