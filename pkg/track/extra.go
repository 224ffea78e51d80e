package track

import (
	"io"
	"sort"
	"sync"

	"github.com/figtools/pgfkit/pkg/errors"
)

// InstallFunc applies library-specific instrumentation to a tracker. Extra
// trackers exist for libraries whose I/O happens below the tracked
// filesystem (typically in compiled extensions) and therefore bypasses the
// generic open interception.
type InstallFunc func(*Tracker) error

var (
	extrasMu sync.RWMutex
	extras   = map[string]InstallFunc{}
)

// RegisterExtra adds a named extra tracker to the registry. Later
// registrations with the same name replace earlier ones.
func RegisterExtra(name string, fn InstallFunc) {
	extrasMu.Lock()
	defer extrasMu.Unlock()
	extras[name] = fn
}

// ExtraNames returns the registered extra tracker names, sorted.
func ExtraNames() []string {
	extrasMu.RLock()
	defer extrasMu.RUnlock()
	names := make([]string, 0, len(extras))
	for name := range extras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstallExtras applies the named extra trackers to t. An unknown name is a
// hard error naming the tracker; nothing is installed in that case.
func (t *Tracker) InstallExtras(names ...string) error {
	extrasMu.RLock()
	fns := make([]InstallFunc, 0, len(names))
	for _, name := range names {
		fn, ok := extras[name]
		if !ok {
			extrasMu.RUnlock()
			return errors.New(errors.ErrCodeUnknownTracker, "unknown extra tracker %q", name)
		}
		fns = append(fns, fn)
	}
	extrasMu.RUnlock()

	for _, fn := range fns {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// registerDatasetSuffixes is the common installer body for dataset-format
// trackers: accesses reported via RecordDataset are accepted for the given
// suffixes.
func registerDatasetSuffixes(t *Tracker, suffixes ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range suffixes {
		t.datasetSuffixes[s] = struct{}{}
	}
}

func init() {
	// Scientific dataset formats whose libraries read and write through
	// compiled extensions.
	RegisterExtra("netcdf", func(t *Tracker) error {
		registerDatasetSuffixes(t, ".nc", ".nc4", ".cdf")
		return nil
	})
	RegisterExtra("hdf5", func(t *Tracker) error {
		registerDatasetSuffixes(t, ".h5", ".hdf5", ".he5")
		return nil
	})
}

// OpenerFunc opens a dataset resource by path.
type OpenerFunc func(path string) (io.ReadCloser, error)

// WrapOpener instruments a library-specific opener so each successful open
// is recorded as a dataset access. Bindings for libraries with their own
// open entry points use this from an extra tracker.
func (t *Tracker) WrapOpener(open OpenerFunc) OpenerFunc {
	return func(path string) (io.ReadCloser, error) {
		rc, err := open(path)
		if err != nil {
			return nil, err
		}
		t.RecordDataset(path, false)
		return rc, nil
	}
}
