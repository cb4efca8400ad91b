package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"extci/internal/cache"
	"extci/internal/metrics"
	"extci/internal/models"
	"extci/internal/shell"
	"extci/internal/toolchain"
	"extci/internal/workflow"
)

func prepare(ctx context.Context, rn *run) error {
	if rn.Checkout != nil {
		if err := rn.Checkout(ctx, rn.job, rn.workdir); err != nil {
			return err
		}
	}

	wf, err := workflow.Load(rn.workdir, rn.WorkflowFile)
	if err != nil {
		return err
	}
	rn.wf = wf

	jobEnv := wf.JobEnv(rn.workdir)
	overrides := jobEnv.Vars()
	if wf.CacheEnabled() && wf.Cache.Vendor {
		overrides["BUNDLE_PATH"] = filepath.Join(rn.workdir, workflow.VendorPath)
	}

	// environment is fixed for the rest of the job
	rn.env = shell.Environ(overrides, wf.ExtraEnv())

	fmt.Fprintf(rn.out, "workflow %s: ruby %s, rust %s\n", wf.Name, wf.Ruby, wf.Rust)
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(rn.out, "%s=%s\n", k, overrides[k])
	}
	return nil
}

func provision(ctx context.Context, rn *run) error {
	id, err := rn.Provisioner.Provision(ctx, rn.workdir, toolchain.Pins{Ruby: rn.wf.Ruby, Rust: rn.wf.Rust})
	if err != nil {
		return err
	}
	rn.identity = id

	fmt.Fprintf(rn.out, "toolchain %s\n", id)
	return nil
}

func restore(ctx context.Context, rn *run) error {
	if rn.Cache == nil || !rn.wf.CacheEnabled() {
		return errSkipped
	}

	key, err := rn.wf.CacheKey(rn.workdir, rn.identity.String())
	if err != nil {
		return err
	}
	rn.job.CacheKey = key

	hit, err := rn.Cache.Restore(ctx, key, rn.workdir)
	if err != nil {
		return err
	}
	rn.cacheHit = hit
	rn.job.CacheHit = hit
	metrics.CacheLookup(hit)

	if hit {
		fmt.Fprintf(rn.out, "cache hit %s\n", key)
	} else {
		fmt.Fprintf(rn.out, "cache miss %s\n", key)
	}

	if len(rn.wf.BuildPaths()) == 0 {
		return nil
	}
	buildKey := cache.BuildKey(key)
	rn.buildHit, err = rn.Cache.Restore(ctx, buildKey, rn.workdir)
	if err != nil {
		return err
	}
	if rn.buildHit {
		fmt.Fprintf(rn.out, "build cache hit %s\n", buildKey)
	}
	return nil
}

func install(ctx context.Context, rn *run) error {
	return rn.command(ctx, models.StepKindSetup, StepInstall, rn.wf.Install, nil)
}

// save archives the installed dependencies. It never fails the job: a cache
// that cannot be written only costs the next run time.
func save(ctx context.Context, rn *run) error {
	if rn.Cache == nil || !rn.wf.CacheEnabled() || rn.job.CacheKey == "" || rn.cacheHit {
		return errSkipped
	}
	rn.archive(ctx, rn.job.CacheKey, rn.wf.DependencyPaths())
	return nil
}

// saveBuild archives compile output once compile has passed.
func saveBuild(ctx context.Context, rn *run) error {
	if rn.Cache == nil || !rn.wf.CacheEnabled() || rn.job.CacheKey == "" || rn.buildHit || len(rn.wf.BuildPaths()) == 0 {
		return errSkipped
	}
	rn.archive(ctx, cache.BuildKey(rn.job.CacheKey), rn.wf.BuildPaths())
	return nil
}

func (rn *run) archive(ctx context.Context, key string, paths []string) {
	if len(paths) == 0 {
		fmt.Fprintln(rn.out, "nothing to cache")
		return
	}

	saved, err := rn.Cache.Save(ctx, key, rn.workdir, paths)
	switch {
	case err != nil:
		rn.log.WithError(err).WithField("key", key).Warn("failed to save cache")
		fmt.Fprintf(rn.out, "warning: %v\n", err)
	case saved:
		fmt.Fprintf(rn.out, "cache saved %s\n", key)
	default:
		fmt.Fprintln(rn.out, "nothing to cache")
	}
}

func compile(ctx context.Context, rn *run) error {
	return rn.command(ctx, models.StepKindCompile, StepCompile, rn.wf.Compile, nil)
}

func test(ctx context.Context, rn *run) error {
	return rn.command(ctx, models.StepKindTest, StepTest, rn.wf.Test, nil)
}
