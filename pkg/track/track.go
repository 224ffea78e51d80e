// Package track records which files a figure script touches.
//
// # Overview
//
// A Tracker is the file-access capability for one script run: code that
// routes its reads and writes through the tracker's filesystem (see Fs) has
// every open recorded and classified by role. At save time the accumulated
// record is filtered and emitted as a dependency report that an external
// build tool (make, latexmk, ...) consumes to learn what the figure depends
// on.
//
// Classification rules:
//
//   - Handles opened for writing are recorded as written. Only writes whose
//     name matches the rasterised-image pattern "<base>-img<N>.png" survive
//     into the final report; other writes are by-products, not dependencies.
//   - Handles opened read-only are recorded as read, and survive into the
//     report only when they resolve to a descendant of a trackable data
//     directory.
//   - Imported module origins survive only under trackable import
//     directories.
//   - Manually declared dependencies (AddDependencies) bypass all filtering.
//
// # Coverage
//
// Go offers no way to transparently intercept file I/O performed by
// arbitrary third-party code; only accesses routed through the tracker's
// filesystem, ObserveFile, or an extra tracker's wrapped opener are seen.
// This is an inherent limitation of the capability design, not a defect of
// any particular run.
//
// # Report Format
//
// The report is newline-joined "<role>:<path>" entries with role "r" or "w".
// Paths under the working directory are written relative to it, others
// absolute. The report is deterministic: identical runs against identical
// filesystem state produce an identically sorted, deduplicated list.
package track

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/figtools/pgfkit/pkg/errors"
	"github.com/figtools/pgfkit/pkg/observability"
)

// EnvVar is the environment variable that enables dependency tracking and
// selects the report sink: "1" for stdout, "2" for stderr, any other value
// is a file path.
const EnvVar = "PGFKIT_TRACK_FILES"

// Role classifies a tracked path in the final report.
type Role string

const (
	// RoleRead marks a file the script depends on.
	RoleRead Role = "r"
	// RoleWrite marks a rasterised sub-image the script produced.
	RoleWrite Role = "w"
)

// Entry is one line of the dependency report.
type Entry struct {
	Role Role
	Path string
}

// rasterPattern matches the filenames the rendering backend gives rasterised
// sub-images of an otherwise-vector figure.
var rasterPattern = regexp.MustCompile(`-img\d+\.png$`)

// Tracker accumulates the file accesses of a single script run. It is safe
// for use from a single goroutine; a fresh Tracker must be constructed per
// run.
type Tracker struct {
	mu       sync.Mutex
	inner    afero.Fs
	reads    map[string]struct{}
	writes   map[string]struct{}
	explicit map[string]struct{}
	imports  map[string]struct{}

	// dataset suffixes contributed by installed extra trackers
	datasetSuffixes map[string]struct{}

	// report filters, both optional
	inDataDir   func(string) bool
	inImportDir func(string) bool
}

// New constructs a Tracker wrapping the host filesystem.
func New() *Tracker {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs constructs a Tracker wrapping the given filesystem. Tests use
// this with an in-memory filesystem.
func NewWithFs(inner afero.Fs) *Tracker {
	t := &Tracker{inner: inner}
	t.Reset()
	return t
}

// Reset clears the accumulated record. Installed filters and extra trackers
// are kept.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads = make(map[string]struct{})
	t.writes = make(map[string]struct{})
	t.explicit = make(map[string]struct{})
	t.imports = make(map[string]struct{})
	if t.datasetSuffixes == nil {
		t.datasetSuffixes = make(map[string]struct{})
	}
}

// SetFilters installs the trackable-directory predicates consulted when the
// report is produced. A nil data predicate keeps no reads; a nil import
// predicate keeps no imports.
func (t *Tracker) SetFilters(inDataDir, inImportDir func(string) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inDataDir = inDataDir
	t.inImportDir = inImportDir
}

// Fs returns the instrumented filesystem. All opens through it are recorded.
func (t *Tracker) Fs() afero.Fs {
	return &trackedFs{tracker: t, inner: t.inner}
}

// recordOpen classifies one successful open.
func (t *Tracker) recordOpen(name string, write bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	observability.Tracker().OnOpen(context.Background(), abs, write)

	t.mu.Lock()
	defer t.mu.Unlock()
	if write {
		t.writes[abs] = struct{}{}
	} else {
		t.reads[abs] = struct{}{}
	}
}

// ObserveFile records an already-open host file handle. Handles with no
// discoverable filename (for instance constructed from a raw descriptor) are
// ignored.
func (t *Tracker) ObserveFile(f *os.File, write bool) {
	if f == nil {
		return
	}
	name := f.Name()
	if name == "" || strings.HasPrefix(name, "/dev/fd/") || strings.HasPrefix(name, "/proc/self/fd/") {
		return
	}
	if _, err := os.Stat(name); err != nil {
		// No path on disk to resolve; not trackable.
		return
	}
	t.recordOpen(name, write)
}

// AddDependencies manually declares read dependencies. Declared paths bypass
// the trackable-directory filtering and always appear in the report.
func (t *Tracker) AddDependencies(paths ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		t.explicit[abs] = struct{}{}
	}
}

// RecordImport records the origin path of a successfully imported module.
func (t *Tracker) RecordImport(origin string) {
	abs, err := filepath.Abs(origin)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.imports[abs] = struct{}{}
}

// RecordDataset records a dataset access made by a library doing its own
// I/O. Only suffixes registered by an installed extra tracker are accepted.
func (t *Tracker) RecordDataset(path string, write bool) {
	t.mu.Lock()
	ok := false
	for suffix := range t.datasetSuffixes {
		if strings.HasSuffix(path, suffix) {
			ok = true
			break
		}
	}
	t.mu.Unlock()
	if ok {
		t.recordOpen(path, write)
	}
}

// List produces the filtered, deduplicated dependency report entries,
// sorted by (role, path).
func (t *Tracker) List() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	cwd, _ := os.Getwd()
	seen := make(map[Entry]struct{})

	add := func(role Role, abs string) {
		e := Entry{Role: role, Path: displayPath(cwd, abs)}
		seen[e] = struct{}{}
	}

	for p := range t.reads {
		if t.inDataDir != nil && t.inDataDir(p) {
			add(RoleRead, p)
		}
	}
	for p := range t.imports {
		if t.inImportDir != nil && t.inImportDir(p) {
			add(RoleRead, p)
		}
	}
	for p := range t.explicit {
		add(RoleRead, p)
	}
	for p := range t.writes {
		if rasterPattern.MatchString(p) {
			add(RoleWrite, p)
		}
	}

	entries := make([]Entry, 0, len(seen))
	for e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Role != entries[j].Role {
			return entries[i].Role < entries[j].Role
		}
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// displayPath writes paths under the working directory relative to it,
// everything else absolute.
func displayPath(cwd, abs string) string {
	if cwd == "" {
		return abs
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

// WriteReport writes the report as newline-joined "<role>:<path>" entries.
func (t *Tracker) WriteReport(w io.Writer) error {
	entries := t.List()
	observability.Tracker().OnReport(context.Background(), len(entries))
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s:%s\n", e.Role, e.Path); err != nil {
			return err
		}
	}
	return nil
}

// Enabled reports whether dependency tracking is requested through the
// environment.
func Enabled() bool {
	_, ok := os.LookupEnv(EnvVar)
	return ok
}

// Emit writes the report to the sink selected by the EnvVar value: "1" (or
// empty) for stdout, "2" for stderr, anything else names a file.
func (t *Tracker) Emit() error {
	dest := os.Getenv(EnvVar)
	switch dest {
	case "", "1":
		return t.WriteReport(os.Stdout)
	case "2":
		return t.WriteReport(os.Stderr)
	default:
		f, err := os.Create(dest)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "opening tracking report %s", dest)
		}
		defer f.Close()
		return t.WriteReport(f)
	}
}
