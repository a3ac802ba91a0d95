// Package gitx covers the two git duties of the delivery toolkit: the
// one-shot branch bootstrap for a fresh project and the working-copy sync
// that feeds the pipeline's checkout stage.
package gitx

import (
	"context"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DeliveryBranches are created and published in this fixed order. The
// worktree is left on the last one.
var DeliveryBranches = []string{"dev", "test", "master"}

// Signature identifies the commit author for bootstrap commits.
type Signature struct {
	Name  string
	Email string
}

// Report describes what a bootstrap run actually did, so a second run over
// the same directory can be verified to be a no-op.
type Report struct {
	InitializedRepo bool
	CreatedCommit   bool
	CreatedBranches []string
	PushedBranches  []string
}

// Bootstrapper prepares a repository for branch-per-environment delivery.
type Bootstrapper struct {
	dir       string
	remoteURL string
	author    Signature
	auth      transport.AuthMethod

	// push is swappable so ordering can be tested without a live remote.
	push func(r *git.Repository, spec config.RefSpec) error
}

// BootstrapOption configures a Bootstrapper.
type BootstrapOption func(b *Bootstrapper)

// WithBasicAuth sets credentials for pushing to the remote.
func WithBasicAuth(username, password string) BootstrapOption {
	return func(b *Bootstrapper) {
		if username != "" || password != "" {
			b.auth = &githttp.BasicAuth{Username: username, Password: password}
		}
	}
}

// WithPushFunc replaces the push implementation, used by tests.
func WithPushFunc(fn func(r *git.Repository, spec config.RefSpec) error) BootstrapOption {
	return func(b *Bootstrapper) { b.push = fn }
}

// NewBootstrapper creates a bootstrapper for dir. remoteURL may be empty,
// in which case branches are created locally and nothing is pushed.
func NewBootstrapper(dir, remoteURL string, author Signature, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{dir: dir, remoteURL: remoteURL, author: author}
	for _, opt := range opts {
		opt(b)
	}
	if b.push == nil {
		b.push = b.pushRefSpec
	}
	return b
}

// Run ensures a repository with an initial commit exists at dir, creates
// the delivery branches in fixed order, publishes them in the same order,
// and leaves the worktree checked out on master. Every step is idempotent;
// the first underlying git failure aborts the run.
func (b *Bootstrapper) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	r, err := git.PlainOpen(b.dir)
	if err == git.ErrRepositoryNotExists {
		r, err = git.PlainInit(b.dir, false)
		report.InitializedRepo = true
	}
	if err != nil {
		return nil, errors.Wrap(err, "open or init repository")
	}

	created, err := b.ensureInitialCommit(r)
	if err != nil {
		return nil, err
	}
	report.CreatedCommit = created

	head, err := r.Head()
	if err != nil {
		return nil, errors.Wrap(err, "resolve HEAD")
	}

	for _, name := range DeliveryBranches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref := plumbing.NewBranchReferenceName(name)
		_, err := r.Reference(ref, false)
		if err == plumbing.ErrReferenceNotFound {
			if err := r.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash())); err != nil {
				return nil, errors.Wrapf(err, "create branch %s", name)
			}
			report.CreatedBranches = append(report.CreatedBranches, name)
		} else if err != nil {
			return nil, errors.Wrapf(err, "inspect branch %s", name)
		}

		if b.remoteURL == "" {
			continue
		}
		spec := config.RefSpec("refs/heads/" + name + ":refs/heads/" + name)
		if err := b.push(r, spec); err != nil {
			return nil, errors.Wrapf(err, "push branch %s", name)
		}
		report.PushedBranches = append(report.PushedBranches, name)
	}

	w, err := r.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "worktree")
	}
	err = w.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("master")})
	if err != nil {
		return nil, errors.Wrap(err, "checkout master")
	}

	logrus.WithFields(logrus.Fields{
		"created_commit": report.CreatedCommit,
		"branches":       report.CreatedBranches,
		"pushed":         report.PushedBranches,
	}).Info("branch bootstrap finished")
	return report, nil
}

// ensureInitialCommit creates the first commit only when the repository has
// no history yet. It stages whatever the directory already contains.
func (b *Bootstrapper) ensureInitialCommit(r *git.Repository) (bool, error) {
	_, err := r.Head()
	if err == nil {
		return false, nil
	}
	if err != plumbing.ErrReferenceNotFound {
		return false, errors.Wrap(err, "resolve HEAD")
	}

	w, err := r.Worktree()
	if err != nil {
		return false, errors.Wrap(err, "worktree")
	}
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, errors.Wrap(err, "stage initial files")
	}
	_, err = w.Commit("Initial commit", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  b.author.Name,
			Email: b.author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "initial commit")
	}
	return true, nil
}

func (b *Bootstrapper) ensureRemote(r *git.Repository) error {
	_, err := r.Remote(git.DefaultRemoteName)
	if err == git.ErrRemoteNotFound {
		_, err = r.CreateRemote(&config.RemoteConfig{
			Name: git.DefaultRemoteName,
			URLs: []string{b.remoteURL},
		})
	}
	return err
}

func (b *Bootstrapper) pushRefSpec(r *git.Repository, spec config.RefSpec) error {
	if err := b.ensureRemote(r); err != nil {
		return err
	}
	err := r.Push(&git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       b.auth,
	})
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	return err
}
