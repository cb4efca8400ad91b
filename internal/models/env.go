package models

import (
	"path/filepath"
	"strconv"
)

const (
	EnvBundleGemfile        = "BUNDLE_GEMFILE"
	EnvUseOfficialGemSource = "USE_OFFICIAL_GEM_SOURCE"
)

// JobEnv is the environment consumed by the dependency-resolution step.
// It is built once per job and never mutated afterwards.
type JobEnv struct {
	bundleGemfile        string
	useOfficialGemSource bool
}

// NewJobEnv resolves the gemfile against the job's working directory.
func NewJobEnv(workdir, gemfile string, useOfficialGemSource bool) JobEnv {
	if gemfile == "" {
		gemfile = "Gemfile"
	}
	if !filepath.IsAbs(gemfile) {
		gemfile = filepath.Join(workdir, gemfile)
	}

	return JobEnv{
		bundleGemfile:        filepath.Clean(gemfile),
		useOfficialGemSource: useOfficialGemSource,
	}
}

func (e JobEnv) BundleGemfile() string { return e.bundleGemfile }

func (e JobEnv) UseOfficialGemSource() bool { return e.useOfficialGemSource }

// Lockfile is the bundler lockfile paired with BUNDLE_GEMFILE.
func (e JobEnv) Lockfile() string {
	return e.bundleGemfile + ".lock"
}

// Vars renders the environment as KEY=value pairs.
func (e JobEnv) Vars() map[string]string {
	official := "0"
	if e.useOfficialGemSource {
		official = "1"
	}

	return map[string]string{
		EnvBundleGemfile:        e.bundleGemfile,
		EnvUseOfficialGemSource: official,
	}
}

// ParseBoolish accepts the boolean-like spellings used in CI env blocks.
func ParseBoolish(v string) bool {
	switch v {
	case "yes", "on", "y", "Y", "YES", "ON":
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
