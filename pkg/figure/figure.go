// Package figure orchestrates one figure-producing script run.
//
// A Session ties the other packages together: it loads the project
// configuration, installs dependency tracking, computes the figure size,
// configures the rendering backend and finally drives rendering and
// post-processing. Each script run constructs its own Session; there is no
// process-global state, so concurrent runs in one process stay independent.
//
// The rendering backend and the figure object are external collaborators
// expressed as interfaces. The Session never draws anything itself; it only
// tells the renderer what style to use and where to write the output, and
// applies a handful of cosmetic fixups through the figure interface before
// saving.
package figure

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/figtools/pgfkit/pkg/buildinfo"
	"github.com/figtools/pgfkit/pkg/color"
	"github.com/figtools/pgfkit/pkg/config"
	"github.com/figtools/pgfkit/pkg/errors"
	"github.com/figtools/pgfkit/pkg/layout"
	"github.com/figtools/pgfkit/pkg/observability"
	"github.com/figtools/pgfkit/pkg/postprocess"
	"github.com/figtools/pgfkit/pkg/track"
)

// IntermediateExt is the extension of the rendered document before
// post-processing.
const IntermediateExt = ".pgf"

// FinalExt is the extension of the post-processed artifact.
const FinalExt = ".figpgf"

// Style carries the renderer configuration derived from the project
// settings.
type Style struct {
	Engine           string
	FontFamily       string
	FontName         string
	FontSize         float64
	LegendFontSize   float64
	LineWidth        float64
	AxesLineWidth    float64
	FigureBackground color.Color
	AxesBackground   color.Color
	Preamble         string
	RCParams         map[string]any
}

// Renderer is the drawing backend. Configure is called once during setup;
// Render writes the figure as a PGF document at path.
type Renderer interface {
	Configure(style Style) error
	Render(fig Figure, path string) error
}

// Figure is a drawable figure exposing its axes for pre-save fixups.
type Figure interface {
	Axes() []Axes
}

// Axes exposes the per-axes decorations the Session adjusts before saving.
type Axes interface {
	// Legend returns the axes legend, or nil when there is none.
	Legend() Legend
	Colorbars() []Colorbar
}

// Legend allows the frame styling fixups: the frame line width is matched
// to the axes line width and the background made slightly translucent.
type Legend interface {
	SetFrameLineWidth(w float64)
	SetFrameOpacity(alpha float64)
}

// Colorbar allows the solids fixup that removes hairline gaps between
// color segments in vector output.
type Colorbar interface {
	SetSolidsEdgeToFace()
}

// Options configure a Session setup.
type Options struct {
	// Width and Height accept a fraction of the available size (numeric)
	// or an explicit dimension string such as "57mm".
	Width  any
	Height any

	// Columns spans the figure over that many columns of a multi-column
	// document. Margin places it in the margin par; FullWidth spans text
	// plus margin. See pkg/layout for precedence.
	Columns   *int
	Margin    bool
	FullWidth bool

	// Name overrides the artifact base name, which otherwise derives from
	// the script file name. May contain a directory prefix.
	Name string

	// Script overrides the originating script path recorded in the
	// output. Defaults to the caller of Setup.
	Script string

	// Overrides are call-site configuration overrides, applied on top of
	// the project file.
	Overrides map[string]map[string]any
}

// Session owns the state of one figure-producing run.
type Session struct {
	renderer Renderer
	logger   *log.Logger

	cfg     *config.Config
	tracker *track.Tracker

	name   string
	script string
	size   layout.Size
}

// NewSession constructs a Session around the given renderer. A nil logger
// falls back to log.Default().
func NewSession(r Renderer, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		renderer: r,
		logger:   logger,
		tracker:  track.New(),
	}
	s.cfg = config.New(logger)
	return s
}

// Config exposes the effective configuration. Valid after Setup.
func (s *Session) Config() *config.Config { return s.cfg }

// Tracker exposes the dependency tracker.
func (s *Session) Tracker() *track.Tracker { return s.tracker }

// Fs returns the filesystem the script should route its file I/O through so
// that reads and writes are recorded as dependencies.
func (s *Session) Fs() afero.Fs { return s.tracker.Fs() }

// Size returns the computed figure size. Valid after Setup.
func (s *Session) Size() layout.Size { return s.size }

// AddDependencies manually records extra read dependencies for files whose
// access did not go through the tracked filesystem.
func (s *Session) AddDependencies(paths ...string) {
	s.tracker.AddDependencies(paths...)
}

// Setup prepares the run: configuration, tracking, layout and renderer
// style. It returns the figure size the script should draw at.
func (s *Session) Setup(opts Options) (layout.Size, error) {
	s.script = opts.Script
	if s.script == "" {
		s.script = callerScript()
	}
	if abs, err := filepath.Abs(s.script); err == nil {
		s.script = abs
	}

	s.name = opts.Name
	if s.name == "" {
		base := filepath.Base(s.script)
		s.name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	ctx := context.Background()
	observability.Pipeline().OnSetupStart(ctx, s.script)

	size, err := s.setup(opts)
	observability.Pipeline().OnSetupComplete(ctx, s.script, size.W, size.H, err)
	return size, err
}

func (s *Session) setup(opts Options) (layout.Size, error) {
	// The project file is read through the tracked filesystem so a
	// configuration change invalidates the figure like any other input.
	if ok, _ := afero.Exists(s.tracker.Fs(), config.FileName); ok {
		if err := s.cfg.LoadFS(s.tracker.Fs(), config.FileName); err != nil {
			return layout.Size{}, err
		}
	}
	if len(opts.Overrides) > 0 {
		if err := s.cfg.Update(opts.Overrides); err != nil {
			return layout.Size{}, err
		}
	}

	if err := s.applyEnvironment(); err != nil {
		return layout.Size{}, err
	}
	if err := s.installExtras(); err != nil {
		return layout.Size{}, err
	}
	s.tracker.SetFilters(
		func(path string) bool {
			ok, err := s.cfg.InTrackingDir(config.TrackData, path)
			return err == nil && ok
		},
		func(path string) bool {
			ok, err := s.cfg.InTrackingDir(config.TrackImport, path)
			return err == nil && ok
		},
	)

	geom, err := s.geometry()
	if err != nil {
		return layout.Size{}, err
	}
	s.size, err = layout.Compute(geom, layout.Request{
		Width:     opts.Width,
		Height:    opts.Height,
		Columns:   opts.Columns,
		Margin:    opts.Margin,
		FullWidth: opts.FullWidth,
	})
	if err != nil {
		return layout.Size{}, err
	}

	style, err := s.style()
	if err != nil {
		return layout.Size{}, err
	}
	if err := s.renderer.Configure(style); err != nil {
		return layout.Size{}, errors.Wrap(errors.ErrCodeRender, err, "configuring renderer")
	}

	s.logger.Debug("session ready", "name", s.name, "width", s.size.W, "height", s.size.H)
	return s.size, nil
}

// applyEnvironment exports the configured NAME=VALUE assignments into the
// process environment. Tracking of child processes is typically enabled this
// way.
func (s *Session) applyEnvironment() error {
	lines, err := s.cfg.Lines("pgfutils", "environment")
	if err != nil {
		return err
	}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, "=")
		if !ok || name == "" {
			return errors.New(errors.ErrCodeInvalidEnvironment,
				"Environment variables should be in the form NAME=VALUE, got %q", line)
		}
		if err := os.Setenv(name, value); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidEnvironment, err, "setting %s", name)
		}
	}
	return nil
}

func (s *Session) installExtras() error {
	names, err := s.cfg.Lines("pgfutils", "extra_tracking")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	return s.tracker.InstallExtras(names...)
}

func (s *Session) geometry() (layout.Geometry, error) {
	var geom layout.Geometry
	var err error
	if geom.TextWidth, err = s.cfg.Dimension("tex", "text_width"); err != nil {
		return geom, err
	}
	if geom.TextHeight, err = s.cfg.Dimension("tex", "text_height"); err != nil {
		return geom, err
	}
	if geom.NumColumns, err = s.cfg.Int("tex", "num_columns"); err != nil {
		return geom, err
	}
	if geom.ColumnSep, err = s.cfg.Dimension("tex", "columnsep"); err != nil {
		return geom, err
	}
	if geom.MarginparWidth, err = s.cfg.Dimension("tex", "marginpar_width"); err != nil {
		return geom, err
	}
	if geom.MarginparSep, err = s.cfg.Dimension("tex", "marginpar_sep"); err != nil {
		return geom, err
	}
	return geom, nil
}

func (s *Session) style() (Style, error) {
	st := Style{RCParams: s.cfg.RCParams()}
	var err error
	if st.Engine, err = s.cfg.Str("tex", "engine"); err != nil {
		return st, err
	}
	if st.FontFamily, err = s.cfg.Str("pgfutils", "font_family"); err != nil {
		return st, err
	}
	if st.FontName, err = s.cfg.Str("pgfutils", "font_name"); err != nil {
		return st, err
	}
	if st.FontSize, err = s.cfg.Float("pgfutils", "font_size"); err != nil {
		return st, err
	}
	if st.LegendFontSize, err = s.cfg.Float("pgfutils", "legend_font_size"); err != nil {
		return st, err
	}
	if st.LineWidth, err = s.cfg.Float("pgfutils", "line_width"); err != nil {
		return st, err
	}
	if st.AxesLineWidth, err = s.cfg.Float("pgfutils", "axes_line_width"); err != nil {
		return st, err
	}
	if st.FigureBackground, err = s.cfg.Color("pgfutils", "figure_background"); err != nil {
		return st, err
	}
	if st.AxesBackground, err = s.cfg.Color("pgfutils", "axes_background"); err != nil {
		return st, err
	}
	if st.Preamble, err = s.preamble(); err != nil {
		return st, err
	}
	return st, nil
}

// preamble returns the configured preamble, with ${basedir} expanded to the
// project directory when substitution is enabled.
func (s *Session) preamble() (string, error) {
	preamble, err := s.cfg.Str("pgfutils", "preamble")
	if err != nil {
		return "", err
	}
	substitute, err := s.cfg.Bool("pgfutils", "preamble_substitute")
	if err != nil {
		return "", err
	}
	if !substitute || preamble == "" {
		return preamble, nil
	}
	basedir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(preamble, "${basedir}", basedir), nil
}

// Save applies the pre-save fixups, renders the figure, emits the tracked
// dependency report and post-processes the output into its final form.
func (s *Session) Save(fig Figure) error {
	start := time.Now()
	ctx := context.Background()
	intermediate := s.name + IntermediateExt
	final := s.name + FinalExt
	observability.Pipeline().OnRenderStart(ctx, s.name)

	err := s.save(fig, intermediate, final)
	observability.Pipeline().OnRenderComplete(ctx, final, time.Since(start), err)
	return err
}

func (s *Session) save(fig Figure, intermediate, final string) error {
	if err := s.fixups(fig); err != nil {
		return err
	}

	if err := s.renderer.Render(fig, intermediate); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "rendering %s", intermediate)
	}

	if track.Enabled() {
		if err := s.tracker.Emit(); err != nil {
			return err
		}
	}

	tikz, err := s.cfg.Bool("postprocessing", "tikzpicture")
	if err != nil {
		return err
	}
	fixRasters, err := s.cfg.Bool("postprocessing", "fix_raster_paths")
	if err != nil {
		return err
	}
	return postprocess.Run(intermediate, final, postprocess.Options{
		Script:         s.script,
		Version:        buildinfo.Tag(),
		Tikzpicture:    tikz,
		FixRasterPaths: fixRasters,
	})
}

// fixups applies the cosmetic adjustments the renderer defaults get wrong
// for print output.
func (s *Session) fixups(fig Figure) error {
	lineWidth, err := s.cfg.Float("pgfutils", "axes_line_width")
	if err != nil {
		return err
	}
	opacity, err := s.cfg.Float("pgfutils", "legend_opacity")
	if err != nil {
		return err
	}
	for _, ax := range fig.Axes() {
		if legend := ax.Legend(); legend != nil {
			legend.SetFrameLineWidth(lineWidth)
			legend.SetFrameOpacity(opacity)
		}
		for _, cb := range ax.Colorbars() {
			cb.SetSolidsEdgeToFace()
		}
	}
	return nil
}

// callerScript walks up the stack to the first frame outside this package,
// which is the script that called Setup.
func callerScript() string {
	for skip := 2; skip < 10; skip++ {
		_, file, _, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if !strings.Contains(file, string(filepath.Separator)+"pkg"+string(filepath.Separator)+"figure"+string(filepath.Separator)) {
			return file
		}
	}
	return "unknown"
}
