package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Key derives the cache key from the toolchain identity and the contents of
// every lockfile matching patterns. Relative patterns are globbed inside dir;
// lockfiles that do not exist are left out of the hash.
func Key(prefix, identity, dir string, patterns []string) (string, error) {
	files, err := resolveLockfiles(dir, patterns)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "identity\x00%s\x00", identity)

	for _, file := range files {
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			rel = file
		}
		fmt.Fprintf(h, "file\x00%s\x00", filepath.ToSlash(rel))

		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}

	if prefix == "" {
		prefix = "deps"
	}
	return prefix + "-" + hex.EncodeToString(h.Sum(nil)), nil
}

// BuildKey names the build-output archive paired with a dependency key.
func BuildKey(key string) string {
	return key + "-build"
}

func resolveLockfiles(dir string, patterns []string) ([]string, error) {
	seen := map[string]struct{}{}
	var files []string

	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad lockfile pattern %q: %w", pattern, err)
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}
