package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"extci/internal/cache"
	"extci/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	// VendorPath is where bundler installs gems when vendoring is enabled.
	VendorPath = "vendor/bundle"

	CacheKeyPrefix = "extci"
)

type (
	// Definition is the structural representation of a job file.
	Definition struct {
		Name    string            `yaml:"name"`
		Ruby    string            `yaml:"ruby"`
		Rust    string            `yaml:"rust"`
		Shell   string            `yaml:"shell"`
		Env     map[string]string `yaml:"env"`
		Cache   Cache             `yaml:"cache"`
		Install string            `yaml:"install"`
		Compile string            `yaml:"compile"`
		Test    string            `yaml:"test"`
	}

	Cache struct {
		Enabled   *bool    `yaml:"enabled"`
		Vendor    bool     `yaml:"vendor"`
		Paths     []string `yaml:"paths"`
		Lockfiles []string `yaml:"lockfiles"`
	}
)

var (
	ErrEmptyCommand = errors.New("workflow command is empty")
	ErrNoRubyPin    = errors.New("workflow has no ruby version")
	ErrBadCachePath = errors.New("cache path must be relative to the workspace")
)

// Default mirrors the extension's upstream build workflow.
func Default() Definition {
	enabled := true
	return Definition{
		Name:  "build",
		Ruby:  "3.3",
		Rust:  "stable",
		Shell: "bash",
		Env: map[string]string{
			models.EnvBundleGemfile:        "Gemfile",
			models.EnvUseOfficialGemSource: "1",
		},
		Cache: Cache{
			Enabled:   &enabled,
			Vendor:    true,
			Paths:     []string{"target"},
			Lockfiles: []string{"Cargo.lock", "ext/*/Cargo.lock"},
		},
		Install: "bundle install --jobs 4",
		Compile: "bundle exec rake compile",
		Test:    "bundle exec rspec spec",
	}
}

// FromBytes parses a definition and fills unset fields from Default.
func FromBytes(name string, contents []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(contents, &def); err != nil {
		return def, fmt.Errorf("parsing %s: %w", name, err)
	}

	def.applyDefaults()
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	return def, def.Validate()
}

// Load reads file from dir, falling back to Default when it does not exist.
func Load(dir, file string) (Definition, error) {
	if file == "" {
		return Default(), nil
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, file)
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Definition{}, err
	}

	return FromBytes(file, contents)
}

func (d *Definition) applyDefaults() {
	def := Default()

	if d.Ruby == "" {
		d.Ruby = def.Ruby
	}
	if d.Rust == "" {
		d.Rust = def.Rust
	}
	if d.Shell == "" {
		d.Shell = def.Shell
	}
	if d.Install == "" {
		d.Install = def.Install
	}
	if d.Compile == "" {
		d.Compile = def.Compile
	}
	if d.Test == "" {
		d.Test = def.Test
	}
	if d.Env == nil {
		d.Env = map[string]string{}
	}
	for k, v := range def.Env {
		if _, ok := d.Env[k]; !ok {
			d.Env[k] = v
		}
	}
	if d.Cache.Enabled == nil {
		d.Cache.Enabled = def.Cache.Enabled
	}
	if d.Cache.Lockfiles == nil {
		d.Cache.Lockfiles = def.Cache.Lockfiles
	}
}

func (d Definition) Validate() error {
	if strings.TrimSpace(d.Ruby) == "" {
		return ErrNoRubyPin
	}
	for name, cmd := range map[string]string{"install": d.Install, "compile": d.Compile, "test": d.Test} {
		if strings.TrimSpace(cmd) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyCommand, name)
		}
	}
	for _, p := range d.Cache.Paths {
		if err := checkRelative(p); err != nil {
			return err
		}
	}
	for _, p := range d.Cache.Lockfiles {
		if err := checkRelative(p); err != nil {
			return err
		}
	}
	return nil
}

func checkRelative(p string) error {
	clean := filepath.Clean(p)
	if p == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrBadCachePath, p)
	}
	return nil
}

// CacheEnabled reports whether the dependency cache is in use.
func (d Definition) CacheEnabled() bool {
	return d.Cache.Enabled == nil || *d.Cache.Enabled
}

// DependencyPaths lists the workspace-relative directories filled by the
// install command.
func (d Definition) DependencyPaths() []string {
	if d.Cache.Vendor {
		return []string{VendorPath}
	}
	return nil
}

// BuildPaths lists the workspace-relative directories filled by the compile
// command.
func (d Definition) BuildPaths() []string {
	return d.Cache.Paths
}

// CacheLockfiles lists the lockfile patterns hashed into the cache key: the
// bundler lockfile of the job's gemfile, then the workflow's own patterns.
func (d Definition) CacheLockfiles(workdir string) []string {
	return append([]string{d.JobEnv(workdir).Lockfile()}, d.Cache.Lockfiles...)
}

// CacheKey derives the dependency cache key of workdir under a toolchain
// identity.
func (d Definition) CacheKey(workdir, identity string) (string, error) {
	return cache.Key(CacheKeyPrefix, identity, workdir, d.CacheLockfiles(workdir))
}

// JobEnv builds the per-job dependency-resolution environment.
func (d Definition) JobEnv(workdir string) models.JobEnv {
	return models.NewJobEnv(
		workdir,
		d.Env[models.EnvBundleGemfile],
		models.ParseBoolish(d.Env[models.EnvUseOfficialGemSource]),
	)
}

// ExtraEnv returns workflow variables other than the JobEnv pair.
func (d Definition) ExtraEnv() map[string]string {
	extra := make(map[string]string, len(d.Env))
	for k, v := range d.Env {
		if k == models.EnvBundleGemfile || k == models.EnvUseOfficialGemSource {
			continue
		}
		extra[k] = v
	}
	return extra
}
