package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingDependency indicates that a required binary could not be found.
var ErrMissingDependency = errors.New("missing dependency")

// ToolRequirement describes a binary the job needs on PATH.
//
// Alternatives can satisfy the requirement in place of Name. Optional tools
// are looked up but never fail provisioning.
type ToolRequirement struct {
	Name         string
	Alternatives []string
	Optional     bool
	Purpose      string
}

// DefaultRequirements are the tools a Ruby extension with a Rust core needs.
func DefaultRequirements() []ToolRequirement {
	return []ToolRequirement{
		{Name: "ruby", Purpose: "Ruby interpreter"},
		{Name: "bundle", Alternatives: []string{"bundler"}, Purpose: "Bundler dependency manager"},
		{Name: "cargo", Purpose: "Rust package manager"},
		{Name: "rustc", Purpose: "Rust compiler"},
		{Name: "clang", Alternatives: []string{"gcc", "cc"}, Optional: true, Purpose: "C toolchain for bindgen"},
	}
}

// CheckRequiredTools verifies all required tools resolve through lookPath.
// Every missing tool is reported in a single error wrapping
// ErrMissingDependency.
func CheckRequiredTools(requirements []ToolRequirement, lookPath func(string) (string, error)) error {
	var missing []string

	for _, req := range requirements {
		found := false
		for _, name := range append([]string{req.Name}, req.Alternatives...) {
			if _, err := lookPath(name); err == nil {
				found = true
				break
			}
		}

		if found || req.Optional {
			continue
		}

		if req.Purpose != "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missing = append(missing, req.Name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
}
