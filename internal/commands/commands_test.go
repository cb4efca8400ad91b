package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"extci/internal/workflow"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := Root()
	root.Writer = &out
	root.ErrWriter = &out
	root.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := root.Run(ctx, append([]string{"extci"}, args...))
	return out.String(), err
}

func TestRunSkipsMarkedCommit(t *testing.T) {
	out, err := run(t, "run", "--dir", t.TempDir(), "--message", "docs update [skip ci]", "--no-cache")
	require.NoError(t, err)
	require.Contains(t, out, "skipping")
}

func TestRunSkipsFromEventFile(t *testing.T) {
	event := filepath.Join(t.TempDir(), "event.json")
	payload := `{"ref":"refs/heads/main","after":"abc","head_commit":{"id":"abc","message":"chore [skip ci]"}}`
	require.NoError(t, os.WriteFile(event, []byte(payload), 0o644))

	out, err := run(t, "run", "--dir", t.TempDir(), "--event", event)
	require.NoError(t, err)
	require.Contains(t, out, "[skip ci]")
}

func TestRunRejectsBadEventFile(t *testing.T) {
	event := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(event, []byte(`not json`), 0o644))

	_, err := run(t, "run", "--dir", t.TempDir(), "--event", event)
	require.Error(t, err)
}

func TestRunWithoutRepositoryNeedsMessage(t *testing.T) {
	_, err := run(t, "run", "--dir", t.TempDir())
	require.Error(t, err)
}

func TestCacheKeyWithExplicitIdentity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Gemfile.lock"), []byte("GEM\n"), 0o644))

	out, err := run(t, "cache-key", "--dir", dir, "--identity", "ruby-3.3.5/rustc-1.80.1/linux-amd64")
	require.NoError(t, err)

	key := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(key, "extci-"), key)

	again, err := run(t, "cache-key", "--dir", dir, "--identity", "ruby-3.3.5/rustc-1.80.1/linux-amd64")
	require.NoError(t, err)
	require.Equal(t, out, again)

	other, err := run(t, "cache-key", "--dir", dir, "--identity", "ruby-3.4.1/rustc-1.80.1/linux-amd64")
	require.NoError(t, err)
	require.NotEqual(t, out, other)
}

func TestCheckRejectsInvalidWorkflow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".extci.yml"), []byte("cache:\n  paths: [\"../outside\"]\n"), 0o644))

	_, err := run(t, "check", "--dir", dir)

	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	require.Equal(t, ExitProvisioning, exit.ExitCode())
}

func TestVersionWithoutHost(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "client v")
}

func TestRunInterruptedReportsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := runContext(t, ctx, "run", "--dir", t.TempDir(), "--message", "fix bug", "--no-cache")
	require.Error(t, err)

	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	require.Equal(t, ExitCanceled, exit.ExitCode())
	require.Contains(t, out, "JOB CANCELED")
}

func TestCacheKeyHashesCargoLockfiles(t *testing.T) {
	dir := t.TempDir()
	identity := "ruby-3.3.5/rustc-1.80.1/linux-amd64"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Gemfile.lock"), []byte("GEM\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ext", "rucaptcha"), 0o755))
	cargoLock := filepath.Join(dir, "ext", "rucaptcha", "Cargo.lock")
	require.NoError(t, os.WriteFile(cargoLock, []byte("version = 3\n"), 0o644))

	out, err := run(t, "cache-key", "--dir", dir, "--identity", identity)
	require.NoError(t, err)

	want, err := workflow.Default().CacheKey(dir, identity)
	require.NoError(t, err)
	require.Equal(t, want, strings.TrimSpace(out))

	require.NoError(t, os.WriteFile(cargoLock, []byte("version = 4\n"), 0o644))
	changed, err := run(t, "cache-key", "--dir", dir, "--identity", identity)
	require.NoError(t, err)
	require.NotEqual(t, out, changed)
}
