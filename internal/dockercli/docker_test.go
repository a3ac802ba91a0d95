package dockercli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func newRecordingClient(t *testing.T, calls *[]call, fail error, stderr string) *Client {
	t.Helper()
	c, err := New(WithRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		*calls = append(*calls, call{name: name, args: args})
		if fail != nil {
			return "", &CommandError{Args: args, Stderr: stderr, Err: fail}
		}
		return "abc123\n", nil
	}))
	require.NoError(t, err)
	return c
}

func TestBuild_AppliesEveryTag(t *testing.T) {
	t.Parallel()

	var calls []call
	c := newRecordingClient(t, &calls, nil, "")

	err := c.Build(context.Background(), ".", "", []string{"mlops-app:1.4.2", "mlops-app:latest"})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, []string{"build", "-t", "mlops-app:1.4.2", "-t", "mlops-app:latest", "."}, calls[0].args)
}

func TestBuild_DockerfileFlagOnlyWhenSet(t *testing.T) {
	t.Parallel()

	var calls []call
	c := newRecordingClient(t, &calls, nil, "")

	err := c.Build(context.Background(), ".", "build/Dockerfile", []string{"mlops-app:latest"})
	require.NoError(t, err)

	assert.Equal(t, []string{"build", "-f", "build/Dockerfile", "-t", "mlops-app:latest", "."}, calls[0].args)
}

func TestRunDetached_Args(t *testing.T) {
	t.Parallel()

	var calls []call
	c := newRecordingClient(t, &calls, nil, "")

	id, err := c.RunDetached(context.Background(), "mlops-app:latest", RunOptions{
		Name:    "mlops-app-prod",
		Ports:   []string{"5000:5000"},
		Volumes: []string{"/srv/models:/app/models", "/srv/data:/app/data"},
		Restart: "always",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	assert.Equal(t, []string{
		"run", "-d",
		"--name", "mlops-app-prod",
		"-p", "5000:5000",
		"-v", "/srv/models:/app/models",
		"-v", "/srv/data:/app/data",
		"--restart", "always",
		"mlops-app:latest",
	}, calls[0].args)
}

func TestPrune_Args(t *testing.T) {
	t.Parallel()

	var calls []call
	c := newRecordingClient(t, &calls, nil, "")

	require.NoError(t, c.PruneImages(context.Background()))
	require.NoError(t, c.PruneContainers(context.Background()))

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"image", "prune", "-f"}, calls[0].args)
	assert.Equal(t, []string{"container", "prune", "-f"}, calls[1].args)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	missing := &CommandError{
		Args:   []string{"rm", "-f", "mlops-app-prod"},
		Stderr: "Error response from daemon: No such container: mlops-app-prod",
		Err:    errors.New("exit status 1"),
	}
	assert.True(t, IsNotFound(missing))

	denied := &CommandError{
		Args:   []string{"rm", "-f", "mlops-app-prod"},
		Stderr: "permission denied",
		Err:    errors.New("exit status 1"),
	}
	assert.False(t, IsNotFound(denied))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("plain error")))
}

func TestCommandError_IncludesStderr(t *testing.T) {
	t.Parallel()

	var calls []call
	c := newRecordingClient(t, &calls, errors.New("exit status 125"), "port is already allocated")

	_, err := c.RunDetached(context.Background(), "mlops-app:latest", RunOptions{Name: "smoke"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is already allocated")
}
