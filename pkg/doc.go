// Package pkg provides the core libraries for pgfkit figure generation.
//
// # Overview
//
// pgfkit turns figure-producing scripts into self-contained build steps for
// a LaTeX document: each script renders exactly one figure as PGF, sized to
// fit the document geometry, and reports every file it depended on so the
// build system can rebuild only what changed. The pkg directory is organized
// into these areas:
//
//  1. [figure] - Orchestration of one script run (setup, save)
//  2. [config] - Layered project configuration (defaults, file, overrides)
//  3. [layout] - Figure size calculation against the document geometry
//  4. [track] - File dependency tracking and report emission
//  5. [postprocess] - Rewrites of the rendered PGF document
//  6. [units], [color] - Dimension and color parsing primitives
//  7. [errors], [buildinfo], [observability] - Cross-cutting support
//
// # Architecture
//
// The typical data flow through a figure script:
//
//	pgfutils.toml + call-site options
//	         ↓
//	    [figure] Session.Setup ([config] merge, [layout] size, renderer style)
//	         ↓
//	    script draws at the computed size, file I/O through [track]
//	         ↓
//	    [figure] Session.Save (render <name>.pgf, [postprocess] to <name>.figpgf)
//	         ↓
//	    dependency report (r:/w: lines) for the build system
//
// # Quick Start
//
// Set up a half-width figure and save it:
//
//	import (
//	    "github.com/figtools/pgfkit/pkg/figure"
//	)
//
//	// 1. Prepare the session around a rendering backend
//	s := figure.NewSession(renderer, nil)
//
//	// 2. Compute the size the script should draw at
//	size, _ := s.Setup(figure.Options{Width: 0.5, Height: 0.4})
//
//	// 3. Draw through the backend, reading data via s.Fs()
//	fig := draw(size)
//
//	// 4. Render, post-process and emit the dependency report
//	_ = s.Save(fig)
package pkg
