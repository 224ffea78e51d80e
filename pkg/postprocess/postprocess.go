// Package postprocess rewrites a rendered PGF document into its final
// distributable form.
//
// The rendering backend emits a line-oriented text document with a fixed
// header structure: a creator comment, usage-instruction comments telling
// the reader how to \input the figure and which packages it needs, and then
// the drawing body. The post-processor streams the document through a small
// set of rewrites:
//
//   - the creator comment gains this tool's version tag, and a comment line
//     recording the absolute path of the originating script is inserted;
//   - the \input usage instruction is pointed at the final artifact name;
//   - optionally every pgfpicture environment is renamed to tikzpicture,
//     with the matching package instruction updated;
//   - optionally raster image macros are prefixed with the figure's
//     directory so the document can \input it from the project root, and
//     the now-moot instructions about the import package are dropped.
//
// Everything outside the rewritten regions is copied byte-for-byte. The
// final artifact is written to a scratch file and renamed into place, so a
// failure never leaves a partial output behind; the intermediate document is
// deleted on success.
package postprocess

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/figtools/pgfkit/pkg/errors"
	"github.com/figtools/pgfkit/pkg/observability"
)

// Options control the rewrite passes.
type Options struct {
	// Script is the absolute path of the originating script, recorded in
	// the output header. Empty omits the comment.
	Script string

	// Version is the tag appended to the creator comment, e.g.
	// "pgfkit v1.2.3".
	Version string

	// Tikzpicture replaces the pgfpicture environment with tikzpicture.
	Tikzpicture bool

	// FixRasterPaths prefixes raster image macros with the output
	// directory when it differs from the working directory.
	FixRasterPaths bool

	// KeepIntermediate leaves the input document in place. The pipeline
	// deletes it; the standalone CLI keeps it.
	KeepIntermediate bool
}

var (
	creatorRe = regexp.MustCompile(`^%% Creator: `)
	inputRe   = regexp.MustCompile(`^(%%\s*\\input\{)[^}]*(\}.*)$`)
	pgfPkgRe  = regexp.MustCompile(`^%%\s*\\usepackage\{pgf\}`)
	importRe  = regexp.MustCompile(`^%%\s*\\import\{`)
	rasterRe  = regexp.MustCompile(`(\\(?:pgfimage|includegraphics)(?:\[[^]]*\])?\{)([^}]*)\}`)
	pictureRe = regexp.MustCompile(`\\(begin|end)\{pgfpicture\}`)
)

// rasterBlockStart marks the first line of the usage-instruction block that
// explains how to import figures containing raster images.
const rasterBlockStart = "additional raster images"

// Run streams the document at in through the rewrites and writes the final
// artifact at out. Any I/O error is fatal; on failure the scratch output is
// removed and the input left untouched.
func Run(in, out string, opts Options) error {
	start := time.Now()
	ctx := context.Background()
	observability.Pipeline().OnPostProcessStart(ctx, in, out)

	err := run(in, out, opts)
	observability.Pipeline().OnPostProcessComplete(ctx, out, time.Since(start), err)
	return err
}

func run(in, out string, opts Options) error {
	src, err := os.Open(in)
	if err != nil {
		return errors.Wrap(errors.ErrCodePostprocess, err, "opening rendered figure %s", in)
	}
	defer src.Close()

	outDir := filepath.Dir(out)
	scratch := filepath.Join(outDir, fmt.Sprintf(".pgfkit-%s.tmp", uuid.NewString()))
	dst, err := os.Create(scratch)
	if err != nil {
		return errors.Wrap(errors.ErrCodePostprocess, err, "creating scratch file in %s", outDir)
	}

	rw := rewriter{opts: opts, out: inputTarget(out), prefix: rasterPrefix(outDir)}
	werr := rw.process(src, dst)

	if cerr := dst.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(scratch)
		return errors.Wrap(errors.ErrCodePostprocess, werr, "rewriting %s", in)
	}

	if err := os.Rename(scratch, out); err != nil {
		os.Remove(scratch)
		return errors.Wrap(errors.ErrCodePostprocess, err, "renaming %s", scratch)
	}

	if !opts.KeepIntermediate {
		if err := os.Remove(in); err != nil {
			return errors.Wrap(errors.ErrCodePostprocess, err, "removing intermediate %s", in)
		}
	}
	return nil
}

// inputTarget returns the name written into the \input usage instruction:
// the path relative to the working directory when the artifact lives under
// it, so the instruction pastes directly into the document.
func inputTarget(out string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return out
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return out
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return out
	}
	return filepath.ToSlash(rel)
}

// rasterPrefix returns the path to prefix raster macros with, or "" when the
// output directory is the working directory and no rewrite is needed.
func rasterPrefix(outDir string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	absDir, err := filepath.Abs(outDir)
	if err != nil || absDir == cwd {
		return ""
	}
	rel, err := filepath.Rel(cwd, absDir)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

type rewriter struct {
	opts   Options
	out    string // name written into the \input usage instruction
	prefix string

	inHeader      bool
	skippingBlock bool
	afterImport   bool
	creatorDone   bool
}

// process copies src to dst applying the rewrite passes. Lines keep their
// original terminators; only rewritten regions change.
func (rw *rewriter) process(src io.Reader, dst io.Writer) error {
	rw.inHeader = true
	r := bufio.NewReader(src)
	w := bufio.NewWriter(dst)

	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if werr := rw.writeLine(w, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

func (rw *rewriter) writeLine(w *bufio.Writer, line string) error {
	if rw.inHeader && !strings.HasPrefix(line, "%") {
		rw.inHeader = false
		rw.skippingBlock = false
	}

	if rw.inHeader {
		out, skip := rw.headerLine(line)
		if skip {
			return nil
		}
		_, err := w.WriteString(out)
		return err
	}

	_, err := w.WriteString(rw.bodyLine(line))
	return err
}

// headerLine applies the header rewrites to one comment line. The returned
// bool drops the line entirely.
func (rw *rewriter) headerLine(line string) (string, bool) {
	fixRasters := rw.opts.FixRasterPaths && rw.prefix != ""

	// Instruction block about importing figures with raster images: moot
	// once the paths are fixed up.
	if rw.skippingBlock {
		if importRe.MatchString(line) {
			// Last meaningful line of the block; also swallow it.
			rw.skippingBlock = false
			rw.afterImport = true
			return "", true
		}
		return "", true
	}
	if rw.afterImport {
		rw.afterImport = false
		// A bare "%%" separator closes the block.
		if strings.TrimRight(line, "\r\n") == "%%" {
			return "", true
		}
	}
	if fixRasters && strings.Contains(line, rasterBlockStart) {
		rw.skippingBlock = true
		return "", true
	}

	if !rw.creatorDone && creatorRe.MatchString(line) {
		rw.creatorDone = true
		eol := lineEnding(line)
		out := strings.TrimRight(line, "\r\n") + ", " + rw.opts.Version + eol
		if rw.opts.Script != "" {
			out += "%% Script: " + rw.opts.Script + eol
		}
		return out, false
	}

	// Match without the terminator: $ does not cross a trailing newline.
	if m := inputRe.FindStringSubmatch(strings.TrimRight(line, "\r\n")); m != nil {
		return m[1] + rw.out + m[2] + lineEnding(line), false
	}

	if rw.opts.Tikzpicture && pgfPkgRe.MatchString(line) {
		return "%%   \\usepackage{tikz}" + lineEnding(line), false
	}

	return line, false
}

// bodyLine applies the body rewrites to one line.
func (rw *rewriter) bodyLine(line string) string {
	if rw.opts.Tikzpicture {
		line = pictureRe.ReplaceAllString(line, `\$1{tikzpicture}`)
	}
	if rw.opts.FixRasterPaths && rw.prefix != "" {
		line = rasterRe.ReplaceAllString(line, "${1}"+rw.prefix+"/${2}}")
	}
	return line
}

// lineEnding returns the terminator of line, if any.
func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}
