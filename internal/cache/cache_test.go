package cache

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func putFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestKeyTracksLockfilesAndIdentity(t *testing.T) {
	dir := t.TempDir()
	putFile(t, filepath.Join(dir, "Gemfile.lock"), "GEM\n  rake (13.2.1)\n")
	putFile(t, filepath.Join(dir, "ext/rucaptcha/Cargo.lock"), "[[package]]\nname = \"magnus\"\n")

	patterns := []string{filepath.Join(dir, "Gemfile.lock"), "Cargo.lock", "ext/*/Cargo.lock"}

	k1, err := Key("extci", "ruby-3.3.5/rustc-1.80.1/linux-amd64", dir, patterns)
	require.NoError(t, err)
	require.Regexp(t, `^extci-[0-9a-f]{64}$`, k1)

	again, err := Key("extci", "ruby-3.3.5/rustc-1.80.1/linux-amd64", dir, patterns)
	require.NoError(t, err)
	require.Equal(t, k1, again)

	otherToolchain, err := Key("extci", "ruby-3.3.6/rustc-1.80.1/linux-amd64", dir, patterns)
	require.NoError(t, err)
	require.NotEqual(t, k1, otherToolchain)

	putFile(t, filepath.Join(dir, "ext/rucaptcha/Cargo.lock"), "[[package]]\nname = \"magnus\"\nversion = \"0.7.1\"\n")
	changedLock, err := Key("extci", "ruby-3.3.5/rustc-1.80.1/linux-amd64", dir, patterns)
	require.NoError(t, err)
	require.NotEqual(t, k1, changedLock)
}

func TestSaveThenRestore(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	putFile(t, filepath.Join(src, "vendor/bundle/ruby/3.3.0/gems/rake-13.2.1/lib/rake.rb"), "module Rake; end\n")
	putFile(t, filepath.Join(src, "target/release/.fingerprint/magnus"), "fp")
	require.NoError(t, os.Symlink("rake.rb", filepath.Join(src, "vendor/bundle/ruby/3.3.0/gems/rake-13.2.1/lib/alias.rb")))

	c := New(t.TempDir(), nil)

	hit, err := c.Restore(ctx, "deps-1", src)
	require.NoError(t, err)
	require.False(t, hit)

	saved, err := c.Save(ctx, "deps-1", src, []string{"vendor/bundle", "target", "missing"})
	require.NoError(t, err)
	require.True(t, saved)

	dst := t.TempDir()
	hit, err = c.Restore(ctx, "deps-1", dst)
	require.NoError(t, err)
	require.True(t, hit)

	data, err := os.ReadFile(filepath.Join(dst, "vendor/bundle/ruby/3.3.0/gems/rake-13.2.1/lib/rake.rb"))
	require.NoError(t, err)
	require.Equal(t, "module Rake; end\n", string(data))

	link, err := os.Readlink(filepath.Join(dst, "vendor/bundle/ruby/3.3.0/gems/rake-13.2.1/lib/alias.rb"))
	require.NoError(t, err)
	require.Equal(t, "rake.rb", link)

	_, err = os.Stat(filepath.Join(dst, "target/release/.fingerprint/magnus"))
	require.NoError(t, err)
}

func TestSaveWithNothingToPack(t *testing.T) {
	c := New(t.TempDir(), nil)

	saved, err := c.Save(context.Background(), "deps-empty", t.TempDir(), []string{"vendor/bundle"})
	require.NoError(t, err)
	require.False(t, saved)

	_, ok, err := c.Index.Lookup(context.Background(), "deps-empty")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestoreRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	tw := tar.NewWriter(enc)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../evil", Mode: 0o644, Size: 1, Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, enc.Close())

	dir := t.TempDir()
	putFile(t, ArchivePath(dir, "deps-bad"), buf.String())

	_, err = New(dir, nil).Restore(context.Background(), "deps-bad", t.TempDir())
	require.ErrorIs(t, err, ErrUnsafePath)
}

func TestRestoreFailsOnCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	putFile(t, ArchivePath(dir, "deps-corrupt"), "not a zstd stream")

	_, err := New(dir, nil).Restore(context.Background(), "deps-corrupt", t.TempDir())
	require.Error(t, err)
}
