package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveIgnoresMissing(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Remove(filepath.Join(dir, "nope")))
	require.NoError(t, RemoveAll(filepath.Join(dir, "nope", "deeper")))
}

func TestEnsureDirAndRemoveAll(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0o600))

	require.NoError(t, RemoveAll(filepath.Dir(root)))
	_, err := os.Stat(root)
	require.ErrorIs(t, err, os.ErrNotExist)
}
