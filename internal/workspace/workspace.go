// Package workspace materialises a pushed commit on disk for a job.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"extci/internal/fs"
	"extci/internal/models"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

var ErrNoCloneURL = errors.New("job has no clone url")

type Manager struct {
	Root string
	// URLOverride replaces the clone url announced by the push when set.
	URLOverride string
}

func New(root, urlOverride string) *Manager {
	return &Manager{Root: root, URLOverride: urlOverride}
}

// Dir is the working directory reused by every job of the same repository.
func (m *Manager) Dir(job models.Job) string {
	name := job.Repository
	if name == "" {
		name = "default"
	}
	name = strings.NewReplacer("/", "__", "\\", "__", "..", "_").Replace(name)
	return filepath.Join(m.Root, name)
}

// Checkout brings workdir to the job's commit, cloning on first use and
// fetching afterwards. Untracked files from earlier jobs are removed.
func (m *Manager) Checkout(ctx context.Context, job models.Job, workdir string) error {
	url := job.CloneURL
	if m.URLOverride != "" {
		url = m.URLOverride
	}
	if url == "" {
		return ErrNoCloneURL
	}

	repo, err := m.open(ctx, url, workdir)
	if err != nil {
		return err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(job.SHA), Force: true}); err != nil {
		return fmt.Errorf("git checkout %s failed: %w", job.SHA, err)
	}

	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("cleaning worktree: %w", err)
	}
	return nil
}

func (m *Manager) open(ctx context.Context, url, workdir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(workdir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return clone(ctx, url, workdir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", workdir, err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RemoteURL:  url,
		RefSpecs:   []config.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("git fetch failed: %w", err)
	}
	return repo, nil
}

func clone(ctx context.Context, url, workdir string) (*git.Repository, error) {
	if err := fs.RemoveAll(workdir); err != nil {
		return nil, err
	}
	if err := fs.EnsureDir(filepath.Dir(workdir), 0o755); err != nil {
		return nil, err
	}

	repo, err := git.PlainCloneContext(ctx, workdir, false, &git.CloneOptions{URL: url})
	if err != nil {
		_ = fs.RemoveAll(workdir)
		return nil, fmt.Errorf("git clone failed: %w", err)
	}
	return repo, nil
}

// Head describes the commit checked out in dir as a push of its branch.
func Head(dir string) (models.PushEvent, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return models.PushEvent{}, fmt.Errorf("opening %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return models.PushEvent{}, fmt.Errorf("resolving HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return models.PushEvent{}, fmt.Errorf("reading HEAD commit: %w", err)
	}

	return models.PushEvent{
		Ref: head.Name().String(),
		SHA: head.Hash().String(),
		HeadCommit: models.CommitRef{
			Message: commit.Message,
			Author: models.CommitAuthor{
				Name:  commit.Author.Name,
				Email: commit.Author.Email,
			},
			Timestamp: commit.Author.When.UTC(),
		},
	}, nil
}
