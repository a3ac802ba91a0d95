package gitx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = Signature{Name: "mlship", Email: "mlship@example.com"}

func seedFile(t *testing.T, dir string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('ok')\n"), 0644)
	require.NoError(t, err)
}

func recordingPush(pushed *[]string) BootstrapOption {
	return WithPushFunc(func(r *git.Repository, spec config.RefSpec) error {
		*pushed = append(*pushed, spec.Src())
		return nil
	})
}

func countCommits(t *testing.T, dir string) int {
	t.Helper()
	r, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := r.Head()
	require.NoError(t, err)
	iter, err := r.Log(&git.LogOptions{From: head.Hash()})
	require.NoError(t, err)
	n := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error { n++; return nil }))
	return n
}

func TestBootstrap_CreatesRepoBranchesAndPushOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedFile(t, dir)

	var pushed []string
	b := NewBootstrapper(dir, "https://example.com/mlops-app.git", testAuthor, recordingPush(&pushed))

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.InitializedRepo)
	assert.True(t, report.CreatedCommit)
	// master already exists as the default branch after the initial commit.
	assert.Equal(t, []string{"dev", "test"}, report.CreatedBranches)
	assert.Equal(t, []string{"refs/heads/dev", "refs/heads/test", "refs/heads/master"}, pushed,
		"branches must be published in fixed order")

	r, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, plumbing.NewBranchReferenceName("master"), head.Name(),
		"worktree must end on master")
}

func TestBootstrap_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedFile(t, dir)

	var pushed []string
	b := NewBootstrapper(dir, "https://example.com/mlops-app.git", testAuthor, recordingPush(&pushed))

	_, err := b.Run(context.Background())
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.InitializedRepo)
	assert.False(t, report.CreatedCommit, "second run must not create a duplicate initial commit")
	assert.Empty(t, report.CreatedBranches)
	// Publishing again is harmless; the branches themselves are not recreated.
	assert.Equal(t, []string{"refs/heads/dev", "refs/heads/test", "refs/heads/master"}, pushed[3:])
}

func TestBootstrap_NoRemoteSkipsPush(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedFile(t, dir)

	var pushed []string
	b := NewBootstrapper(dir, "", testAuthor, recordingPush(&pushed))

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, pushed)
	assert.Empty(t, report.PushedBranches)
	assert.Equal(t, []string{"dev", "test"}, report.CreatedBranches)
}

func TestBootstrap_KeepsExistingHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedFile(t, dir)

	var pushed []string
	b := NewBootstrapper(dir, "", testAuthor, recordingPush(&pushed))
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	// A second bootstrap over existing history must leave exactly one commit.
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, countCommits(t, dir))
}

func TestSync_ErrorsWhenDirIsNotARepoAndNoURL(t *testing.T) {
	t.Parallel()

	err := Sync(context.Background(), SyncOptions{Dir: t.TempDir(), Branch: "master"})
	require.Error(t, err)
}

func TestSync_ChecksOutExistingBranch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedFile(t, dir)

	b := NewBootstrapper(dir, "", testAuthor)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, Sync(context.Background(), SyncOptions{Dir: dir, Branch: "dev"}))

	r, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, plumbing.NewBranchReferenceName("dev"), head.Name())
}
