// Package layout derives a target canvas size from document geometry.
//
// A figure request gives its width and height either as a fraction of an
// available dimension or as an explicit dimension string ("3in", "2.5 cm").
// The available width baseline depends on the placement mode: the full text
// width by default, a span of columns, the margin, or the full width of text
// plus margin. Height is always relative to the text height.
package layout

import (
	"github.com/figtools/pgfkit/pkg/errors"
	"github.com/figtools/pgfkit/pkg/units"
)

// Geometry describes the document the figure will be typeset into. All
// lengths are in inches.
type Geometry struct {
	TextWidth      float64
	TextHeight     float64
	NumColumns     int
	ColumnSep      float64
	MarginparWidth float64
	MarginparSep   float64
}

// Request describes the figure placement. Width and Height are either a
// float64 fraction or a dimension string. Columns, Margin and FullWidth
// select the placement mode; FullWidth takes priority over Margin, which
// takes priority over Columns.
type Request struct {
	Width  any
	Height any

	// Columns is the number of columns the figure spans; nil means the
	// full text width.
	Columns *int

	// Margin places the figure in the margin.
	Margin bool

	// FullWidth spans the text and the margin.
	FullWidth bool
}

// Size is the computed figure size in inches.
type Size struct {
	W float64
	H float64
}

// Compute resolves a placement request against the document geometry.
func Compute(geom Geometry, req Request) (Size, error) {
	available, err := availableWidth(geom, req)
	if err != nil {
		return Size{}, err
	}

	w, err := resolve(req.Width, available)
	if err != nil {
		return Size{}, err
	}
	h, err := resolve(req.Height, geom.TextHeight)
	if err != nil {
		return Size{}, err
	}
	return Size{W: w, H: h}, nil
}

// availableWidth computes the width baseline a fractional request is scaled
// against. FullWidth > Margin > Columns in precedence.
func availableWidth(geom Geometry, req Request) (float64, error) {
	if req.FullWidth {
		return geom.TextWidth + geom.MarginparSep + geom.MarginparWidth, nil
	}
	if req.Margin {
		return geom.MarginparWidth, nil
	}
	if req.Columns == nil {
		return geom.TextWidth, nil
	}

	columns := *req.Columns
	total := geom.NumColumns
	if columns < 1 {
		return 0, errors.New(errors.ErrCodeInvalidColumns, "number of columns must be at least one, got %d", columns)
	}
	if columns > total {
		return 0, errors.New(errors.ErrCodeInvalidColumns,
			"document has %d columns, figure cannot span %d", total, columns)
	}
	if columns == total {
		return geom.TextWidth, nil
	}

	perColumn := (geom.TextWidth - geom.ColumnSep*float64(total-1)) / float64(total)
	return perColumn*float64(columns) + geom.ColumnSep*float64(columns-1), nil
}

// resolve interprets a width or height request against an available
// dimension: numbers are fractions of it, strings are explicit dimensions.
func resolve(v any, available float64) (float64, error) {
	switch value := v.(type) {
	case nil:
		return available, nil
	case float64:
		return value * available, nil
	case int:
		return float64(value) * available, nil
	case string:
		return units.ParseDimension(value)
	default:
		return 0, errors.New(errors.ErrCodeInvalidDimension, "size must be a number or a dimension string, got %T", v)
	}
}
