package gitx

import (
	"context"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SyncOptions describe the revision the checkout stage must materialize.
type SyncOptions struct {
	Dir      string
	URL      string // remote URL; empty means Dir must already be a repository
	Branch   string
	Username string
	Password string
}

func (o SyncOptions) authMethod() transport.AuthMethod {
	if o.Username == "" && o.Password == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: o.Username, Password: o.Password}
}

// Sync ensures Dir holds a checkout of Branch. The repository is cloned
// when absent, the branch is checked out, and an existing clone is pulled
// up to date.
func Sync(ctx context.Context, opts SyncOptions) error {
	r, err := git.PlainOpen(opts.Dir)
	cloned := false
	if err == git.ErrRepositoryNotExists {
		if opts.URL == "" {
			return errors.Errorf("%s is not a repository and no remote URL is configured", opts.Dir)
		}
		cloned = true
		r, err = git.PlainCloneContext(ctx, opts.Dir, false, &git.CloneOptions{
			URL:           opts.URL,
			ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
			Progress:      os.Stdout,
			Auth:          opts.authMethod(),
		})
	}
	if err != nil {
		return errors.Wrap(err, "open or clone")
	}

	w, err := r.Worktree()
	if err != nil {
		return errors.Wrap(err, "worktree")
	}

	err = w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(opts.Branch),
		Force:  true,
	})
	if err != nil {
		return errors.Wrapf(err, "checkout %s", opts.Branch)
	}

	if !cloned && opts.URL != "" {
		err = w.PullContext(ctx, &git.PullOptions{
			ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
			Auth:          opts.authMethod(),
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return errors.Wrap(err, "pull")
		}
	}

	logrus.WithFields(logrus.Fields{"dir": opts.Dir, "branch": opts.Branch}).Debug("working copy synced")
	return nil
}
