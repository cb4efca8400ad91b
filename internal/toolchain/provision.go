// Package toolchain provisions the pinned Ruby interpreter and Rust toolchain
// a job builds with.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"extci/internal/shell"
)

var ErrVersionMismatch = errors.New("toolchain version mismatch")

// Pins are the versions the workflow asks for.
type Pins struct {
	Ruby string
	Rust string
}

// Identity names the resolved toolchain; it feeds the dependency cache key.
type Identity struct {
	Ruby     string `json:"ruby"`
	Rust     string `json:"rust"`
	Platform string `json:"platform"`
}

func (id Identity) String() string {
	return fmt.Sprintf("ruby-%s/rustc-%s/%s", id.Ruby, id.Rust, id.Platform)
}

type Provisioner struct {
	Exec         shell.Executor
	LookPath     func(string) (string, error)
	Requirements []ToolRequirement
	// Env is the environment version probes run with.
	Env []string
	// Log receives probe output; nil discards it.
	Log io.Writer
}

func NewProvisioner(ex shell.Executor) *Provisioner {
	return &Provisioner{
		Exec:         ex,
		LookPath:     lookPath,
		Requirements: DefaultRequirements(),
	}
}

// Provision checks the tools and their versions against pins.
func (p *Provisioner) Provision(ctx context.Context, dir string, pins Pins) (Identity, error) {
	lp := p.LookPath
	if lp == nil {
		lp = lookPath
	}

	if err := CheckRequiredTools(p.Requirements, lp); err != nil {
		return Identity{}, err
	}

	rubyVersion, err := p.probe(ctx, dir, "ruby", "-e", "print RUBY_VERSION")
	if err != nil {
		return Identity{}, err
	}

	rustcOut, err := p.probe(ctx, dir, "rustc", "--version")
	if err != nil {
		return Identity{}, err
	}
	rustVersion := parseRustcVersion(rustcOut)

	if !MatchRuby(pins.Ruby, rubyVersion) {
		return Identity{}, fmt.Errorf("%w: ruby %s does not satisfy %q", ErrVersionMismatch, rubyVersion, pins.Ruby)
	}
	if !MatchRust(pins.Rust, rustVersion) {
		return Identity{}, fmt.Errorf("%w: rustc %s does not satisfy %q", ErrVersionMismatch, rustVersion, pins.Rust)
	}

	return Identity{
		Ruby:     rubyVersion,
		Rust:     rustVersion,
		Platform: runtime.GOOS + "-" + runtime.GOARCH,
	}, nil
}

func (p *Provisioner) probe(ctx context.Context, dir, name string, args ...string) (string, error) {
	var out bytes.Buffer
	var stderr io.Writer = &out
	if p.Log != nil {
		stderr = io.MultiWriter(&out, p.Log)
	}

	code, err := p.Exec.Run(ctx, shell.Command{
		Name:   name,
		Args:   args,
		Dir:    dir,
		Env:    p.Env,
		Stdout: &out,
		Stderr: stderr,
	})
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", name, err)
	}
	if code != 0 {
		return "", fmt.Errorf("probing %s: exit status %d: %s", name, code, strings.TrimSpace(out.String()))
	}

	return strings.TrimSpace(out.String()), nil
}

// parseRustcVersion extracts "1.80.1" from "rustc 1.80.1 (3f5fd8dd4 2024-08-06)".
func parseRustcVersion(out string) string {
	fields := strings.Fields(out)
	if len(fields) >= 2 && fields[0] == "rustc" {
		return fields[1]
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// MatchRuby reports whether actual satisfies pin by dotted-segment prefix,
// so "3.3" accepts "3.3.5" but not "3.30.0".
func MatchRuby(pin, actual string) bool {
	return matchSegments(strings.TrimPrefix(pin, "ruby-"), actual)
}

// MatchRust accepts channel names as well as version prefixes.
func MatchRust(pin, actual string) bool {
	switch pin {
	case "", "stable":
		return actual != "" && !strings.Contains(actual, "-nightly") && !strings.Contains(actual, "-beta")
	case "nightly":
		return strings.Contains(actual, "-nightly")
	case "beta":
		return strings.Contains(actual, "-beta")
	}

	release, _, _ := strings.Cut(actual, "-")
	return matchSegments(pin, release)
}

func matchSegments(pin, actual string) bool {
	if pin == "" || actual == "" {
		return false
	}
	return actual == pin || strings.HasPrefix(actual, pin+".")
}

func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}
