// Package shelltest provides a scripted shell.Executor for tests.
package shelltest

import (
	"context"
	"io"
	"strings"
	"sync"

	"extci/internal/shell"
)

// Response is what the fake returns for a matching command.
type Response struct {
	Stdout   string
	ExitCode int
	Err      error
	// Hook runs before the response is returned, e.g. to create files.
	Hook func(cmd shell.Command)
}

// Fake matches commands by the joined command line (name, args) containing
// a registered pattern. Unmatched commands exit 0 with no output.
type Fake struct {
	mu        sync.Mutex
	responses []entry
	calls     []shell.Command
}

type entry struct {
	pattern string
	resp    Response
}

// On registers resp for any command whose line contains pattern. Later
// registrations win.
func (f *Fake) On(pattern string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, entry{pattern: pattern, resp: resp})
	return f
}

func (f *Fake) Run(ctx context.Context, cmd shell.Command) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	resp, _ := f.match(Line(cmd))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if resp.Hook != nil {
		resp.Hook(cmd)
	}
	if resp.Stdout != "" && cmd.Stdout != nil {
		_, _ = io.WriteString(cmd.Stdout, resp.Stdout)
	}
	return resp.ExitCode, resp.Err
}

func (f *Fake) match(line string) (Response, bool) {
	for i := len(f.responses) - 1; i >= 0; i-- {
		if strings.Contains(line, f.responses[i].pattern) {
			return f.responses[i].resp, true
		}
	}
	return Response{}, false
}

// Calls returns the command lines seen so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = Line(c)
	}
	return lines
}

// Commands returns the raw commands seen so far.
func (f *Fake) Commands() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]shell.Command(nil), f.calls...)
}

// Ran reports whether any command line contained pattern.
func (f *Fake) Ran(pattern string) bool {
	for _, line := range f.Calls() {
		if strings.Contains(line, pattern) {
			return true
		}
	}
	return false
}

// Line renders a command the way the fake matches it.
func Line(cmd shell.Command) string {
	return cmd.String()
}

// Toolchain registers healthy version probes for ruby and rustc.
func Toolchain(f *Fake, ruby, rustc string) *Fake {
	f.On("ruby -e print RUBY_VERSION", Response{Stdout: ruby})
	f.On("rustc --version", Response{Stdout: "rustc " + rustc + " (3f5fd8dd4 2024-08-06)\n"})
	return f
}

// FoundAll is a LookPath that resolves every tool.
func FoundAll(name string) (string, error) {
	return "/usr/bin/" + name, nil
}
