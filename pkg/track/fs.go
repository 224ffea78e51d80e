package track

import (
	"os"
	"time"

	"github.com/spf13/afero"
)

// trackedFs is the instrumented filesystem handed to scripts. Every
// successful open is classified and recorded on the owning Tracker; all
// operations otherwise behave exactly as the wrapped filesystem.
type trackedFs struct {
	tracker *Tracker
	inner   afero.Fs
}

var _ afero.Fs = (*trackedFs)(nil)

// writeFlags are the open flags that mark a handle as writable.
const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

func (f *trackedFs) Open(name string) (afero.File, error) {
	file, err := f.inner.Open(name)
	if err != nil {
		return nil, err
	}
	f.tracker.recordOpen(name, false)
	return file, nil
}

func (f *trackedFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.inner.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	f.tracker.recordOpen(name, flag&writeFlags != 0)
	return file, nil
}

func (f *trackedFs) Create(name string) (afero.File, error) {
	file, err := f.inner.Create(name)
	if err != nil {
		return nil, err
	}
	f.tracker.recordOpen(name, true)
	return file, nil
}

func (f *trackedFs) Mkdir(name string, perm os.FileMode) error {
	return f.inner.Mkdir(name, perm)
}

func (f *trackedFs) MkdirAll(path string, perm os.FileMode) error {
	return f.inner.MkdirAll(path, perm)
}

func (f *trackedFs) Remove(name string) error {
	return f.inner.Remove(name)
}

func (f *trackedFs) RemoveAll(path string) error {
	return f.inner.RemoveAll(path)
}

func (f *trackedFs) Rename(oldname, newname string) error {
	return f.inner.Rename(oldname, newname)
}

func (f *trackedFs) Stat(name string) (os.FileInfo, error) {
	return f.inner.Stat(name)
}

func (f *trackedFs) Name() string {
	return "trackedFs(" + f.inner.Name() + ")"
}

func (f *trackedFs) Chmod(name string, mode os.FileMode) error {
	return f.inner.Chmod(name, mode)
}

func (f *trackedFs) Chown(name string, uid, gid int) error {
	return f.inner.Chown(name, uid, gid)
}

func (f *trackedFs) Chtimes(name string, atime, mtime time.Time) error {
	return f.inner.Chtimes(name, atime, mtime)
}
