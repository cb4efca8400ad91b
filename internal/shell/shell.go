// Package shell runs external commands for the CI runner.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Command describes one process invocation.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Executor runs a command to completion. A non-zero exit is reported through
// the exit code with a nil error; err is reserved for failures to start or
// wait on the process, including context cancellation.
type Executor interface {
	Run(ctx context.Context, cmd Command) (exitCode int, err error)
}

// Local runs commands on the host.
type Local struct{}

func (Local) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("running %s: %w", c.Name, err)
}

// Script wraps a command line so it runs through the given shell with
// errexit semantics, the way CI steps do.
func Script(shell, line string) (string, []string) {
	if shell == "" {
		shell = "bash"
	}
	return shell, []string{"-e", "-c", line}
}

// WithEnvOverrides returns base with every key in overrides replaced.
func WithEnvOverrides(base []string, overrides map[string]string) []string {
	result := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		result = append(result, kv)
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		result = append(result, key+"="+overrides[key])
	}
	return result
}

// Environ is os.Environ with overrides applied.
func Environ(overrides ...map[string]string) []string {
	env := os.Environ()
	for _, o := range overrides {
		env = WithEnvOverrides(env, o)
	}
	return env
}
