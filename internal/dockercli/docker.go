// Package dockercli drives container operations through the `docker`
// binary. Shelling out keeps the runner honest with whatever daemon the
// deployment host has, and keeps image builds out of Go code.
package dockercli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes one external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// CommandError carries the stderr of a failed docker invocation so callers
// can classify tolerable failures (e.g. removing an absent container).
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("docker %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Client wraps the docker CLI.
type Client struct {
	bin string
	run Runner
}

// Option configures a Client.
type Option func(c *Client)

// WithBinary overrides the docker binary path.
func WithBinary(bin string) Option {
	return func(c *Client) { c.bin = bin }
}

// WithRunner replaces the command executor, used by tests.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.run = r }
}

// New creates a docker CLI client. With the default runner the docker
// binary must be present in PATH.
func New(opts ...Option) (*Client, error) {
	c := &Client{bin: "docker"}
	for _, opt := range opts {
		opt(c)
	}
	if c.run == nil {
		if _, err := exec.LookPath(c.bin); err != nil {
			return nil, fmt.Errorf("dockercli: %s not found in PATH", c.bin)
		}
		c.run = execRunner
	}
	return c, nil
}

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

func (c *Client) docker(ctx context.Context, args ...string) (string, error) {
	logrus.WithField("args", strings.Join(args, " ")).Debug("docker")
	return c.run(ctx, c.bin, args...)
}

// Build builds the image at contextDir and applies every tag in refs.
func (c *Client) Build(ctx context.Context, contextDir, dockerfile string, refs []string) error {
	args := []string{"build"}
	if dockerfile != "" {
		args = append(args, "-f", dockerfile)
	}
	for _, ref := range refs {
		args = append(args, "-t", ref)
	}
	args = append(args, contextDir)
	_, err := c.docker(ctx, args...)
	return err
}

// Tag applies an additional reference to an existing local image.
func (c *Client) Tag(ctx context.Context, src, dst string) error {
	_, err := c.docker(ctx, "tag", src, dst)
	return err
}

// RunOptions holds the container settings used by RunDetached.
type RunOptions struct {
	Name    string
	Ports   []string // host:container
	Volumes []string // host-path:container-path
	Env     []string // KEY=VALUE
	Restart string   // e.g. "always", empty to omit
}

// RunDetached starts a container in the background and returns its ID.
func (c *Client) RunDetached(ctx context.Context, image string, opts RunOptions) (string, error) {
	args := []string{"run", "-d"}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	for _, p := range opts.Ports {
		args = append(args, "-p", p)
	}
	for _, v := range opts.Volumes {
		args = append(args, "-v", v)
	}
	for _, e := range opts.Env {
		args = append(args, "-e", e)
	}
	if opts.Restart != "" {
		args = append(args, "--restart", opts.Restart)
	}
	args = append(args, image)
	out, err := c.docker(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Stop stops a running container.
func (c *Client) Stop(ctx context.Context, name string) error {
	_, err := c.docker(ctx, "stop", name)
	return err
}

// Remove deletes a container.
func (c *Client) Remove(ctx context.Context, name string) error {
	_, err := c.docker(ctx, "rm", "-f", name)
	return err
}

// PruneImages removes dangling images.
func (c *Client) PruneImages(ctx context.Context) error {
	_, err := c.docker(ctx, "image", "prune", "-f")
	return err
}

// PruneContainers removes stopped containers.
func (c *Client) PruneContainers(ctx context.Context) error {
	_, err := c.docker(ctx, "container", "prune", "-f")
	return err
}

// IsNotFound reports whether err is docker complaining about a container
// that does not exist. Replacing a production container that was never
// started must not fail the deploy.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	return strings.Contains(stderr, "no such container") ||
		strings.Contains(stderr, "is not running")
}
