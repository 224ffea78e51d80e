package figure

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/figtools/pgfkit/pkg/color"
	"github.com/figtools/pgfkit/pkg/track"
)

const renderedDoc = `%% Creator: Matplotlib, PGF backend
%%
%% To include the figure in your LaTeX document, write
%%   \input{<filename>.pgf}
%%
\begingroup%
\begin{pgfpicture}%
\end{pgfpicture}%
\endgroup%
`

type fakeRenderer struct {
	style    Style
	rendered string
}

func (r *fakeRenderer) Configure(style Style) error { r.style = style; return nil }

func (r *fakeRenderer) Render(fig Figure, path string) error {
	r.rendered = path
	return os.WriteFile(path, []byte(renderedDoc), 0o644)
}

type fakeLegend struct {
	lineWidth float64
	opacity   float64
}

func (l *fakeLegend) SetFrameLineWidth(w float64) { l.lineWidth = w }
func (l *fakeLegend) SetFrameOpacity(alpha float64) { l.opacity = alpha }

type fakeColorbar struct{ fixed bool }

func (c *fakeColorbar) SetSolidsEdgeToFace() { c.fixed = true }

type fakeAxes struct {
	legend    *fakeLegend
	colorbars []*fakeColorbar
}

func (a *fakeAxes) Legend() Legend {
	if a.legend == nil {
		return nil
	}
	return a.legend
}

func (a *fakeAxes) Colorbars() []Colorbar {
	out := make([]Colorbar, len(a.colorbars))
	for i, cb := range a.colorbars {
		out[i] = cb
	}
	return out
}

type fakeFigure struct{ axes []*fakeAxes }

func (f *fakeFigure) Axes() []Axes {
	out := make([]Axes, len(f.axes))
	for i, ax := range f.axes {
		out[i] = ax
	}
	return out
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "pgfutils.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSetupDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	r := &fakeRenderer{}
	s := NewSession(r, nil)

	size, err := s.Setup(Options{Script: "/work/figures/noise.go"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if size.W != 4.79 || size.H != 7.63 {
		t.Errorf("size = %+v, want 4.79x7.63", size)
	}
	if r.style.Engine != "xelatex" {
		t.Errorf("engine = %q, want xelatex", r.style.Engine)
	}
	if r.style.FigureBackground.Kind != color.Transparent {
		t.Errorf("figure background = %v, want transparent", r.style.FigureBackground)
	}
	if s.Size() != size {
		t.Errorf("Size() = %+v, want %+v", s.Size(), size)
	}
}

func TestSetupNameFromScript(t *testing.T) {
	chdir(t, t.TempDir())
	s := NewSession(&fakeRenderer{}, nil)
	if _, err := s.Setup(Options{Script: "/work/figures/noise.go"}); err != nil {
		t.Fatal(err)
	}
	if s.name != "noise" {
		t.Errorf("name = %q, want noise", s.name)
	}
}

func TestSetupReadsProjectFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[tex]\ntext_width = \"6in\"\n")

	r := &fakeRenderer{}
	s := NewSession(r, nil)
	size, err := s.Setup(Options{Script: "/work/noise.go", Width: 0.5})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if size.W != 3.0 {
		t.Errorf("width = %v, want 3.0", size.W)
	}
}

func TestSetupOverridesBeatProjectFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[pgfutils]\nfont_size = 9.0\n")

	r := &fakeRenderer{}
	s := NewSession(r, nil)
	_, err := s.Setup(Options{
		Script:    "/work/noise.go",
		Overrides: map[string]map[string]any{"pgfutils": {"font_size": 11.0}},
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if r.style.FontSize != 11.0 {
		t.Errorf("font size = %v, want 11.0", r.style.FontSize)
	}
}

func TestSetupAppliesEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[pgfutils]\nenvironment = \"PGFKIT_TEST_VAR=hello\"\n")
	t.Setenv("PGFKIT_TEST_VAR", "")

	s := NewSession(&fakeRenderer{}, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go"}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if got := os.Getenv("PGFKIT_TEST_VAR"); got != "hello" {
		t.Errorf("PGFKIT_TEST_VAR = %q, want hello", got)
	}
}

func TestSetupRejectsMalformedEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[pgfutils]\nenvironment = \"NOT_AN_ASSIGNMENT\"\n")

	s := NewSession(&fakeRenderer{}, nil)
	_, err := s.Setup(Options{Script: "/work/noise.go"})
	if err == nil {
		t.Fatal("expected error for malformed environment line")
	}
	if !strings.Contains(err.Error(), "Environment variables should be in the form NAME=VALUE") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetupUnknownExtraTracker(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[pgfutils]\nextra_tracking = \"nosuchlib\"\n")

	s := NewSession(&fakeRenderer{}, nil)
	_, err := s.Setup(Options{Script: "/work/noise.go"})
	if err == nil || !strings.Contains(err.Error(), "nosuchlib") {
		t.Errorf("expected error naming the tracker, got %v", err)
	}
}

func TestSetupPreambleSubstitution(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[pgfutils]\npreamble = \"\\\\graphicspath{{${basedir}/img}}\"\npreamble_substitute = true\n")

	r := &fakeRenderer{}
	s := NewSession(r, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go"}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	cwd, _ := os.Getwd()
	want := `\graphicspath{{` + cwd + `/img}}`
	if r.style.Preamble != want {
		t.Errorf("preamble = %q, want %q", r.style.Preamble, want)
	}
}

func TestSetupPreambleVerbatimByDefault(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[pgfutils]\npreamble = \"${basedir} stays\"\n")

	r := &fakeRenderer{}
	s := NewSession(r, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go"}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if r.style.Preamble != "${basedir} stays" {
		t.Errorf("preamble = %q, want untouched", r.style.Preamble)
	}
}

func TestSaveProducesFinalArtifact(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	r := &fakeRenderer{}
	s := NewSession(r, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go", Name: "noise"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(&fakeFigure{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if r.rendered != "noise"+IntermediateExt {
		t.Errorf("rendered to %q, want noise%s", r.rendered, IntermediateExt)
	}
	data, err := os.ReadFile("noise" + FinalExt)
	if err != nil {
		t.Fatalf("final artifact missing: %v", err)
	}
	if !strings.Contains(string(data), "%% Script: /work/noise.go") {
		t.Errorf("script comment missing:\n%s", data)
	}
	if _, err := os.Stat("noise" + IntermediateExt); !os.IsNotExist(err) {
		t.Errorf("intermediate still present (err=%v)", err)
	}
}

func TestSaveAppliesFixups(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	s := NewSession(&fakeRenderer{}, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go", Name: "noise"}); err != nil {
		t.Fatal(err)
	}

	legend := &fakeLegend{}
	cb := &fakeColorbar{}
	fig := &fakeFigure{axes: []*fakeAxes{
		{legend: legend, colorbars: []*fakeColorbar{cb}},
		{},
	}}
	if err := s.Save(fig); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if legend.lineWidth != 0.6 {
		t.Errorf("legend frame line width = %v, want 0.6", legend.lineWidth)
	}
	if legend.opacity != 0.8 {
		t.Errorf("legend opacity = %v, want 0.8", legend.opacity)
	}
	if !cb.fixed {
		t.Error("colorbar solids fixup not applied")
	}
}

func TestSaveEmitsReport(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	report := filepath.Join(dir, "noise.deps")
	t.Setenv(track.EnvVar, report)

	r := &fakeRenderer{}
	s := NewSession(r, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go", Name: "noise"}); err != nil {
		t.Fatal(err)
	}
	s.AddDependencies(filepath.Join(dir, "scatter.csv"))

	if err := s.Save(&fakeFigure{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if !strings.Contains(string(data), "r:scatter.csv\n") {
		t.Errorf("dependency missing from report:\n%s", data)
	}
}

func TestTrackedConfigRead(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, "[tex]\nnum_columns = 2\n")
	report := filepath.Join(dir, "noise.deps")
	t.Setenv(track.EnvVar, report)

	s := NewSession(&fakeRenderer{}, nil)
	if _, err := s.Setup(Options{Script: "/work/noise.go", Name: "noise"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(&fakeFigure{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "r:pgfutils.toml\n") {
		t.Errorf("configuration file not reported as a dependency:\n%s", data)
	}
}
