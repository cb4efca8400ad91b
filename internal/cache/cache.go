// Package cache persists resolved dependencies between jobs, keyed by
// lockfile contents and toolchain identity.
package cache

import (
	"context"
	"fmt"
	"os"

	"extci/internal/fs"
)

type Cache struct {
	Dir   string
	Index Index
}

// New returns a cache storing archives under dir. A nil index falls back to
// the directory itself.
func New(dir string, index Index) *Cache {
	if index == nil {
		index = DirIndex{Dir: dir}
	}
	return &Cache{Dir: dir, Index: index}
}

// Restore unpacks the archive for key into workdir. A miss returns false
// with a nil error.
func (c *Cache) Restore(ctx context.Context, key, workdir string) (bool, error) {
	path, ok, err := c.Index.Lookup(ctx, key)
	if err != nil {
		return false, fmt.Errorf("looking up cache %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening cache %s: %w", key, err)
	}
	defer f.Close()

	if err := Unpack(f, workdir); err != nil {
		return false, fmt.Errorf("restoring cache %s: %w", key, err)
	}
	return true, nil
}

// Save archives paths from workdir under key. It reports whether anything
// was written; a workspace with none of the paths saves nothing.
func (c *Cache) Save(ctx context.Context, key, workdir string, paths []string) (bool, error) {
	if err := fs.EnsureDir(c.Dir, 0o755); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(c.Dir, key+".*.tmp")
	if err != nil {
		return false, err
	}
	defer fs.Remove(tmp.Name())

	packed, err := Pack(tmp, workdir, paths)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return false, fmt.Errorf("saving cache %s: %w", key, err)
	}
	if packed == 0 {
		return false, nil
	}

	dest := ArchivePath(c.Dir, key)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return false, err
	}

	if err := c.Index.Record(ctx, key, dest); err != nil {
		return true, fmt.Errorf("indexing cache %s: %w", key, err)
	}
	return true, nil
}
