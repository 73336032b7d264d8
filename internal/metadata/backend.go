package metadata

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend is one on-disk metadata format bound to a folder root.
type Backend interface {
	// Name labels the format in logs and metrics.
	Name() string

	// Exists reports whether the format is present under the root.
	Exists() bool

	// ReadFile returns the entry for a file, found=false when the format
	// holds nothing for it. rel is the root-relative path, base the file name.
	ReadFile(rel, base string) (entry Entry, found bool, err error)

	// WriteFile stores entry for a file.
	WriteFile(rel, base string, entry Entry) error

	// ReadAll returns the whole stored document.
	ReadAll() (interface{}, error)
}

var (
	_ Backend = (*DumpBackend)(nil)
	_ Backend = (*IniBackend)(nil)
)

// writeFileAtomic replaces path with data through a temp file and rename so
// readers never observe a partial document. An existing file keeps its mode.
func writeFileAtomic(path string, data []byte) (err error) {
	perm := os.FileMode(0644)
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing %s: %v", ErrIO, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrIO, path, err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrIO, path, err)
	}
	return nil
}
