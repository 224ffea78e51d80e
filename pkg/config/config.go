// Package config implements the layered pgfkit settings store.
//
// Configuration is a nested mapping of sections to typed keys. A fresh Config
// starts from hard-coded defaults, is optionally overlaid by a project-level
// pgfutils.toml file, and finally by call-site overrides. Every key has a
// fixed semantic type declared in an explicit schema table which both the
// loader and the accessors consult; the rcparams section is the single
// exception and is passed through verbatim without validation.
//
// Unknown keys and sections are warned about and ignored; known keys in the
// same section still apply. An incoming section is validated in full before
// any of it is committed, so a failed merge never leaves a section partially
// updated.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/figtools/pgfkit/pkg/color"
	"github.com/figtools/pgfkit/pkg/errors"
	"github.com/figtools/pgfkit/pkg/units"
)

// FileName is the project-relative configuration file name.
const FileName = "pgfutils.toml"

// Type tags the semantic type of a configuration value.
type Type int

const (
	// TypeString is a free string.
	TypeString Type = iota
	// TypeMultiline is a free string that commonly spans several lines
	// (preambles, environment assignments, path lists).
	TypeMultiline
	// TypeDimension is a physical length stored canonically in inches.
	TypeDimension
	// TypeColor is a color specification (see pkg/color).
	TypeColor
	// TypeFloat is a plain floating-point value.
	TypeFloat
	// TypeInt is a plain integer value.
	TypeInt
	// TypeBool is a boolean toggle.
	TypeBool
	// TypeEnum is a string restricted to a fixed set of values.
	TypeEnum
)

// Field describes one schema entry: its key, semantic type, default value
// and, for enums, the allowed values.
type Field struct {
	Key     string
	Type    Type
	Default any
	Enum    []string
}

// schema lists every known section and key in declaration order. The
// rcparams section is deliberately absent: it is an opaque pass-through.
var schema = map[string][]Field{
	"tex": {
		{Key: "engine", Type: TypeEnum, Default: "xelatex", Enum: []string{"xelatex", "pdflatex", "lualatex"}},
		{Key: "text_width", Type: TypeDimension, Default: "4.79in"},
		{Key: "text_height", Type: TypeDimension, Default: "7.63in"},
		{Key: "num_columns", Type: TypeInt, Default: int64(1)},
		{Key: "columnsep", Type: TypeDimension, Default: "10pt"},
		{Key: "marginpar_width", Type: TypeDimension, Default: "2in"},
		{Key: "marginpar_sep", Type: TypeDimension, Default: "10pt"},
	},
	"pgfutils": {
		{Key: "preamble", Type: TypeMultiline, Default: ""},
		{Key: "preamble_substitute", Type: TypeBool, Default: false},
		{Key: "font_family", Type: TypeEnum, Default: "serif", Enum: []string{"serif", "sans-serif", "monospace", "cursive"}},
		{Key: "font_name", Type: TypeString, Default: ""},
		{Key: "font_size", Type: TypeFloat, Default: 10.0},
		{Key: "legend_font_size", Type: TypeFloat, Default: 10.0},
		{Key: "legend_opacity", Type: TypeFloat, Default: 0.8},
		{Key: "line_width", Type: TypeFloat, Default: 1.0},
		{Key: "axes_line_width", Type: TypeFloat, Default: 0.6},
		{Key: "figure_background", Type: TypeColor, Default: "none"},
		{Key: "axes_background", Type: TypeColor, Default: "white"},
		{Key: "environment", Type: TypeMultiline, Default: ""},
		{Key: "extra_tracking", Type: TypeMultiline, Default: ""},
	},
	"paths": {
		{Key: "data", Type: TypeMultiline, Default: ""},
		{Key: "pythonpath", Type: TypeMultiline, Default: ""},
		{Key: "extra_imports", Type: TypeMultiline, Default: ""},
	},
	"postprocessing": {
		{Key: "tikzpicture", Type: TypeBool, Default: false},
		{Key: "fix_raster_paths", Type: TypeBool, Default: true},
	},
}

// Config is the layered settings store for one script run.
type Config struct {
	values   map[string]map[string]any
	rcparams map[string]any
	logger   *log.Logger
}

// New constructs a Config seeded with the hard-coded defaults. A nil logger
// falls back to log.Default(); the logger only emits unknown-key warnings.
func New(logger *log.Logger) *Config {
	if logger == nil {
		logger = log.Default()
	}
	c := &Config{logger: logger}
	c.Reset()
	return c
}

// Reset restores every section to its hard-coded defaults and clears any
// rcparams overrides.
func (c *Config) Reset() {
	c.values = make(map[string]map[string]any, len(schema))
	c.rcparams = make(map[string]any)
	for section, fields := range schema {
		vals := make(map[string]any, len(fields))
		for _, f := range fields {
			v, err := coerce(f, f.Default)
			if err != nil {
				// Defaults are static and validated by the package tests.
				panic(fmt.Sprintf("config: bad default for %s.%s: %v", section, f.Key, err))
			}
			vals[f.Key] = v
		}
		c.values[section] = vals
	}
}

// Load parses a TOML file from the host filesystem and merges it into the
// configuration.
func (c *Config) Load(path string) error {
	return c.LoadFS(afero.NewOsFs(), path)
}

// LoadFS parses a TOML file from fsys and merges it into the configuration.
// Passing the tracker's filesystem here makes the configuration file itself
// appear as a tracked read dependency.
func (c *Config) LoadFS(fsys afero.Fs, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "reading %s", path)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parsing %s", path)
	}

	sections := make(map[string]map[string]any, len(raw))
	for name, v := range raw {
		sec, ok := v.(map[string]any)
		if !ok {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: top-level key %q is not a section", path, name)
		}
		sections[name] = sec
	}

	return c.merge(sections, true)
}

// Update merges call-site overrides into the configuration. The overrides
// use the same section/key structure as the configuration file, except that
// rcparams cannot be set through this path.
func (c *Config) Update(overrides map[string]map[string]any) error {
	if _, ok := overrides["rcparams"]; ok {
		return errors.New(errors.ErrCodeInvalidConfig, "rcparams can only be set from the configuration file")
	}
	return c.merge(overrides, false)
}

// merge validates and applies a set of sections. Each known section is
// validated in full before being committed; unknown sections and keys are
// reported in a single warning and skipped.
func (c *Config) merge(sections map[string]map[string]any, allowRC bool) error {
	type commit struct {
		section string
		key     string
		value   any
	}
	var commits []commit
	var unknown []string

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		incoming := sections[name]

		if name == "rcparams" {
			if !allowRC {
				return errors.New(errors.ErrCodeInvalidConfig, "rcparams can only be set from the configuration file")
			}
			// Accepted verbatim, never validated.
			for k, v := range incoming {
				c.rcparams[k] = v
			}
			continue
		}

		fields, ok := schema[name]
		if !ok {
			for k := range incoming {
				unknown = append(unknown, name+"."+k)
			}
			continue
		}

		byKey := make(map[string]Field, len(fields))
		for _, f := range fields {
			byKey[f.Key] = f
		}

		for k, v := range incoming {
			f, ok := byKey[k]
			if !ok {
				unknown = append(unknown, name+"."+k)
				continue
			}
			coerced, err := coerce(f, v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s.%s", name, k)
			}
			commits = append(commits, commit{name, k, coerced})
		}
	}

	// Everything validated; commit.
	for _, cm := range commits {
		c.values[cm.section][cm.key] = cm.value
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		c.logger.Warnf("ignoring unknown settings: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// coerce converts an incoming value to the canonical representation for the
// field's semantic type.
func coerce(f Field, v any) (any, error) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil

	case TypeMultiline:
		switch value := v.(type) {
		case string:
			return value, nil
		case []any:
			// Lists of strings are joined into a multiline value.
			parts := make([]string, len(value))
			for i, p := range value {
				s, ok := p.(string)
				if !ok {
					return nil, fmt.Errorf("expected a list of strings, got %T", p)
				}
				parts[i] = s
			}
			return strings.Join(parts, "\n"), nil
		default:
			return nil, fmt.Errorf("expected a string, got %T", v)
		}

	case TypeDimension:
		switch value := v.(type) {
		case float64:
			if value < 0 {
				return nil, fmt.Errorf("dimension must not be negative")
			}
			return value, nil
		case int64:
			if value < 0 {
				return nil, fmt.Errorf("dimension must not be negative")
			}
			return float64(value), nil
		case string:
			return units.ParseDimension(value)
		default:
			return nil, fmt.Errorf("expected a dimension, got %T", v)
		}

	case TypeColor:
		return color.Parse(v)

	case TypeFloat:
		switch value := v.(type) {
		case float64:
			return value, nil
		case int64:
			return float64(value), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, fmt.Errorf("expected a number, got %q", value)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected a number, got %T", v)
		}

	case TypeInt:
		switch value := v.(type) {
		case int64:
			return int(value), nil
		case int:
			return value, nil
		case float64:
			if value != float64(int(value)) {
				return nil, fmt.Errorf("expected an integer, got %v", value)
			}
			return int(value), nil
		default:
			return nil, fmt.Errorf("expected an integer, got %T", v)
		}

	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil

	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(f.Enum, ", "))
	}
	return nil, fmt.Errorf("unhandled type %d", f.Type)
}

func (c *Config) lookup(section, key string) (any, error) {
	vals, ok := c.values[section]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownKey, "unknown configuration section %q", section)
	}
	v, ok := vals[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownKey, "unknown configuration key %s.%s", section, key)
	}
	return v, nil
}

// Str returns a string-valued key.
func (c *Config) Str(section, key string) (string, error) {
	v, err := c.lookup(section, key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidConfig, "%s.%s is not a string", section, key)
	}
	return s, nil
}

// Int returns an integer-valued key.
func (c *Config) Int(section, key string) (int, error) {
	v, err := c.lookup(section, key)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "%s.%s is not an integer", section, key)
	}
	return i, nil
}

// Float returns a float-valued key.
func (c *Config) Float(section, key string) (float64, error) {
	v, err := c.lookup(section, key)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "%s.%s is not a number", section, key)
	}
	return f, nil
}

// Bool returns a boolean-valued key.
func (c *Config) Bool(section, key string) (bool, error) {
	v, err := c.lookup(section, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.New(errors.ErrCodeInvalidConfig, "%s.%s is not a boolean", section, key)
	}
	return b, nil
}

// Dimension returns a dimension-valued key in inches.
func (c *Config) Dimension(section, key string) (float64, error) {
	v, err := c.lookup(section, key)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "%s.%s is not a dimension", section, key)
	}
	return f, nil
}

// Color returns a color-valued key.
func (c *Config) Color(section, key string) (color.Color, error) {
	v, err := c.lookup(section, key)
	if err != nil {
		return color.Color{}, err
	}
	col, ok := v.(color.Color)
	if !ok {
		return color.Color{}, errors.New(errors.ErrCodeInvalidConfig, "%s.%s is not a color", section, key)
	}
	return col, nil
}

// RCParams returns the opaque renderer override mapping. The returned map is
// the live store; callers must not retain it across a Reset.
func (c *Config) RCParams() map[string]any {
	return c.rcparams
}

// Lines splits a multiline-valued key into its non-empty trimmed lines.
func (c *Config) Lines(section, key string) ([]string, error) {
	s, err := c.Str(section, key)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Sections returns the known section names in sorted order, rcparams last.
func (c *Config) Sections() []string {
	names := make([]string, 0, len(schema)+1)
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, "rcparams")
}

// Section returns a sorted copy of one section's key/value pairs for
// display purposes.
func (c *Config) Section(name string) ([][2]string, error) {
	if name == "rcparams" {
		keys := make([]string, 0, len(c.rcparams))
		for k := range c.rcparams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([][2]string, len(keys))
		for i, k := range keys {
			out[i] = [2]string{k, fmt.Sprint(c.rcparams[k])}
		}
		return out, nil
	}

	fields, ok := schema[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownKey, "unknown configuration section %q", name)
	}
	out := make([][2]string, len(fields))
	for i, f := range fields {
		out[i] = [2]string{f.Key, fmt.Sprint(c.values[name][f.Key])}
	}
	return out, nil
}

// TrackingKind selects which set of trackable directories a path is checked
// against.
type TrackingKind string

const (
	// TrackData covers data files read by the script.
	TrackData TrackingKind = "data"
	// TrackImport covers modules resolved by the import system.
	TrackImport TrackingKind = "import"
)

// InTrackingDir reports whether path resolves to a descendant of one of the
// configured trackable directories for the given kind. For data tracking the
// working directory is implicitly trackable in addition to paths.data; import
// tracking uses paths.pythonpath and paths.extra_imports.
func (c *Config) InTrackingDir(kind TrackingKind, path string) (bool, error) {
	var dirs []string

	switch kind {
	case TrackData:
		cwd, err := os.Getwd()
		if err != nil {
			return false, err
		}
		dirs = append(dirs, cwd)
		extra, err := c.Lines("paths", "data")
		if err != nil {
			return false, err
		}
		dirs = append(dirs, extra...)

	case TrackImport:
		for _, key := range []string{"pythonpath", "extra_imports"} {
			extra, err := c.Lines("paths", key)
			if err != nil {
				return false, err
			}
			dirs = append(dirs, extra...)
		}

	default:
		return false, errors.New(errors.ErrCodeUnknownKind, "unknown tracking kind %q", kind)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	for _, dir := range dirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, abs)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..") {
			return true, nil
		}
	}
	return false, nil
}
