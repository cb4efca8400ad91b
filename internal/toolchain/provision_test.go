package toolchain

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"extci/internal/shell/shelltest"

	"github.com/stretchr/testify/require"
)

func TestProvisionResolvesIdentity(t *testing.T) {
	fake := shelltest.Toolchain(&shelltest.Fake{}, "3.3.5", "1.80.1")
	p := NewProvisioner(fake)
	p.LookPath = shelltest.FoundAll

	id, err := p.Provision(context.Background(), t.TempDir(), Pins{Ruby: "3.3", Rust: "stable"})
	require.NoError(t, err)

	require.Equal(t, "3.3.5", id.Ruby)
	require.Equal(t, "1.80.1", id.Rust)
	require.Equal(t, "ruby-3.3.5/rustc-1.80.1/"+runtime.GOOS+"-"+runtime.GOARCH, id.String())
}

func TestProvisionRejectsWrongRuby(t *testing.T) {
	fake := shelltest.Toolchain(&shelltest.Fake{}, "3.2.4", "1.80.1")
	p := NewProvisioner(fake)
	p.LookPath = shelltest.FoundAll

	_, err := p.Provision(context.Background(), t.TempDir(), Pins{Ruby: "3.3", Rust: "stable"})
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestProvisionReportsMissingTools(t *testing.T) {
	fake := &shelltest.Fake{}
	p := NewProvisioner(fake)
	p.LookPath = func(name string) (string, error) {
		switch name {
		case "cargo", "rustc":
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + name, nil
	}

	_, err := p.Provision(context.Background(), t.TempDir(), Pins{Ruby: "3.3", Rust: "stable"})
	require.ErrorIs(t, err, ErrMissingDependency)
	require.Contains(t, err.Error(), "cargo (Rust package manager)")
	require.Contains(t, err.Error(), "rustc (Rust compiler)")
	require.Empty(t, fake.Calls(), "no probes run when tools are missing")
}

func TestProvisionFailsWhenProbeFails(t *testing.T) {
	fake := shelltest.Toolchain(&shelltest.Fake{}, "3.3.5", "1.80.1")
	fake.On("rustc --version", shelltest.Response{ExitCode: 1, Stdout: "error: no default toolchain configured"})
	p := NewProvisioner(fake)
	p.LookPath = shelltest.FoundAll

	_, err := p.Provision(context.Background(), t.TempDir(), Pins{Ruby: "3.3", Rust: "stable"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no default toolchain")
}

func TestCheckRequiredToolsAlternativesAndOptional(t *testing.T) {
	reqs := []ToolRequirement{
		{Name: "bundle", Alternatives: []string{"bundler"}},
		{Name: "clang", Alternatives: []string{"gcc"}, Optional: true},
	}

	err := CheckRequiredTools(reqs, func(name string) (string, error) {
		if name == "bundler" {
			return "/usr/bin/bundler", nil
		}
		return "", errors.New("not found")
	})
	require.NoError(t, err)
}

func TestMatchRuby(t *testing.T) {
	require.True(t, MatchRuby("3.3", "3.3.5"))
	require.True(t, MatchRuby("3.3.5", "3.3.5"))
	require.True(t, MatchRuby("3", "3.3.5"))
	require.True(t, MatchRuby("ruby-3.3", "3.3.0"))
	require.False(t, MatchRuby("3.3", "3.30.0"))
	require.False(t, MatchRuby("3.3", "3.2.9"))
	require.False(t, MatchRuby("", "3.3.5"))
}

func TestMatchRust(t *testing.T) {
	require.True(t, MatchRust("stable", "1.80.1"))
	require.True(t, MatchRust("", "1.80.1"))
	require.False(t, MatchRust("stable", "1.82.0-nightly"))
	require.True(t, MatchRust("nightly", "1.82.0-nightly"))
	require.True(t, MatchRust("beta", "1.81.0-beta.3"))
	require.True(t, MatchRust("1.80", "1.80.1"))
	require.True(t, MatchRust("1.82", "1.82.0-nightly"))
	require.False(t, MatchRust("1.79", "1.80.1"))
}
