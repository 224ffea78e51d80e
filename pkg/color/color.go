// Package color parses and normalizes figure color specifications.
//
// A color can be given as a named color ("white", "tab:blue", "k"), a cycle
// token ("C0".."C9"), a grayscale fraction in [0, 1], an RGB or RGBA channel
// tuple, or one of the transparent markers ("none", "transparent", the empty
// string). Parse normalizes all of these into a Color value; parsing an
// already-parsed Color is the identity, so Parse is idempotent.
//
// Channel and grayscale values must lie in [0, 1]. Booleans are rejected
// outright even though they would coerce to 0 and 1.
package color

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/figtools/pgfkit/pkg/errors"
)

// Kind discriminates the normalized color representations.
type Kind int

const (
	// Transparent is the canonical "no color" value.
	Transparent Kind = iota
	// Gray is a grayscale fraction in [0, 1].
	Gray
	// Named is a recognized color or cycle token, kept verbatim.
	Named
	// RGBA is a four-channel tuple with each channel in [0, 1].
	RGBA
)

// Color is a normalized color specification.
type Color struct {
	Kind Kind
	// Name holds the verbatim token for Named colors and the canonical
	// string form for Gray ("0.5") and Transparent ("none").
	Name string
	// Channels holds the RGBA channels for Kind == RGBA.
	Channels [4]float64
}

// String returns the canonical textual form of the color.
func (c Color) String() string {
	switch c.Kind {
	case Transparent:
		return "none"
	case RGBA:
		return fmt.Sprintf("(%g, %g, %g, %g)",
			c.Channels[0], c.Channels[1], c.Channels[2], c.Channels[3])
	default:
		return c.Name
	}
}

// matplotlib-style single letter codes and qualitative palette names that are
// valid on top of the CSS named-color table.
var extraNames = map[string]bool{
	"b": true, "g": true, "r": true, "c": true,
	"m": true, "y": true, "k": true, "w": true,
	"tab:blue": true, "tab:orange": true, "tab:green": true,
	"tab:red": true, "tab:purple": true, "tab:brown": true,
	"tab:pink": true, "tab:gray": true, "tab:grey": true,
	"tab:olive": true, "tab:cyan": true,
}

// isNamed reports whether s is a recognized color or cycle token.
func isNamed(s string) bool {
	if extraNames[s] {
		return true
	}
	// Property cycle tokens C0..C9.
	if len(s) == 2 && s[0] == 'C' && s[1] >= '0' && s[1] <= '9' {
		return true
	}
	if _, ok := colornames.Map[strings.ToLower(s)]; ok {
		return true
	}
	return false
}

// Parse normalizes a color specification. The value can be a string (named
// color, cycle token, grayscale fraction, transparent marker, or a literal
// tuple such as "(0.1, 0.2, 0.3)"), a numeric grayscale fraction, a slice of
// 3 or 4 channel values, or an already-parsed Color.
func Parse(v any) (Color, error) {
	switch value := v.(type) {
	case Color:
		return value, nil
	case nil:
		return Color{Kind: Transparent, Name: "none"}, nil
	case string:
		return ParseString(value)
	case bool:
		return Color{}, errors.New(errors.ErrCodeInvalidColor, "%v could not be interpreted as a color: booleans are not valid channels", value)
	case float64:
		return grayscale(value, strconv.FormatFloat(value, 'g', -1, 64))
	case int:
		return grayscale(float64(value), strconv.Itoa(value))
	case int64:
		return grayscale(float64(value), strconv.FormatInt(value, 10))
	case []float64:
		channels := make([]any, len(value))
		for i, c := range value {
			channels[i] = c
		}
		return tuple(channels)
	case []any:
		return tuple(value)
	default:
		return Color{}, errors.New(errors.ErrCodeInvalidColor, "%v could not be interpreted as a color", v)
	}
}

// ParseString normalizes a textual color specification.
func ParseString(s string) (Color, error) {
	trimmed := strings.TrimSpace(s)

	// The transparent markers.
	if trimmed == "" || trimmed == "none" || trimmed == "transparent" {
		return Color{Kind: Transparent, Name: "none"}, nil
	}

	// A numeric string is a grayscale fraction. The original string form is
	// kept as the canonical representation.
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return grayscale(f, trimmed)
	}

	// Literal tuple syntax: "(r, g, b[, a])" or "[r, g, b[, a]]".
	if isTupleSyntax(trimmed) {
		inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		var channels []any
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return Color{}, errors.New(errors.ErrCodeInvalidColor, "invalid channel %q in color %q", part, s)
			}
			channels = append(channels, f)
		}
		return tuple(channels)
	}

	if isNamed(trimmed) {
		return Color{Kind: Named, Name: trimmed}, nil
	}

	return Color{}, errors.New(errors.ErrCodeInvalidColor, "could not interpret %q as a color", s)
}

func isTupleSyntax(s string) bool {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return true
	}
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

func grayscale(f float64, form string) (Color, error) {
	if f < 0 || f > 1 {
		return Color{}, errors.New(errors.ErrCodeInvalidColor, "grayscale value %v must be in [0, 1]", form)
	}
	return Color{Kind: Gray, Name: form}, nil
}

func tuple(channels []any) (Color, error) {
	if len(channels) != 3 && len(channels) != 4 {
		return Color{}, errors.New(errors.ErrCodeInvalidColor, "color tuples must have 3 or 4 channels, got %d", len(channels))
	}

	var c Color
	c.Kind = RGBA
	c.Channels[3] = 1
	for i, ch := range channels {
		var f float64
		switch value := ch.(type) {
		case bool:
			return Color{}, errors.New(errors.ErrCodeInvalidColor, "channel %d is a boolean, not a number", i)
		case float64:
			f = value
		case int:
			f = float64(value)
		case int64:
			f = float64(value)
		default:
			return Color{}, errors.New(errors.ErrCodeInvalidColor, "channel %d (%v) is not a number", i, ch)
		}
		if f < 0 || f > 1 {
			return Color{}, errors.New(errors.ErrCodeInvalidColor, "channel %d (%v) must be in [0, 1]", i, f)
		}
		c.Channels[i] = f
	}
	return c, nil
}
