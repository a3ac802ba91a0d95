// Package registry computes image references for a delivery run and pushes
// locally built images to a container registry.
package registry

import (
	"context"
	"io"

	"github.com/docker/cli/cli/config"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/daemon"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	parser "github.com/novln/docker-parser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LatestTag is the floating tag that accompanies every published version.
const LatestTag = "latest"

// LocalRefs returns the references a build applies to the local image:
// the version tag plus latest. When the version tag is already "latest"
// the two collapse into a single reference.
func LocalRefs(image, tag string) []string {
	if tag == LatestTag {
		return []string{image + ":" + LatestTag}
	}
	return []string{image + ":" + tag, image + ":" + LatestTag}
}

// PublishRefs returns the remote references for a publish: the local refs
// requalified under the registry namespace (e.g. "docker.io/group1").
// An empty namespace publishes the image name as-is.
func PublishRefs(namespace, image, tag string) []string {
	repo := image
	if namespace != "" {
		repo = namespace + "/" + image
	}
	return LocalRefs(repo, tag)
}

// Normalize expands a user-supplied image reference to its fully qualified
// form (registry, repository and tag all explicit).
func Normalize(ref string) (string, error) {
	parsed, err := parser.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "parse image reference %q", ref)
	}
	return parsed.Remote(), nil
}

// Credentials authenticate a push to one registry.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) empty() bool { return c.Username == "" && c.Password == "" }

func (c Credentials) authenticator() authn.Authenticator {
	if c.empty() {
		return authn.Anonymous
	}
	return &authn.Basic{Username: c.Username, Password: c.Password}
}

// ResolveAuth reads docker-style config JSON and returns the credentials
// stored for the registry that serves ref.
func ResolveAuth(reader io.Reader, ref string) (Credentials, error) {
	cf, err := config.LoadFromReader(reader)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "load docker config")
	}

	parsed, err := parser.Parse(ref)
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "parse image reference %q", ref)
	}

	reg, err := name.NewRegistry(parsed.Registry())
	if err != nil {
		return Credentials{}, errors.Wrap(err, "resolve registry")
	}

	key := reg.RegistryStr()
	if key == name.DefaultRegistry {
		key = authn.DefaultAuthKey
	}

	cfg, err := cf.GetAuthConfig(key)
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "read auth config for %s", key)
	}
	return Credentials{Username: cfg.Username, Password: cfg.Password}, nil
}

// Pusher copies images from the local docker daemon to a registry.
type Pusher struct {
	auth  authn.Authenticator
	image func(ref name.Reference) (v1.Image, error)
	write func(ctx context.Context, ref name.Reference, img v1.Image, auth authn.Authenticator) error
}

// PusherOption configures a Pusher.
type PusherOption func(p *Pusher)

// WithImageReader replaces the daemon image loader, used by tests.
func WithImageReader(fn func(ref name.Reference) (v1.Image, error)) PusherOption {
	return func(p *Pusher) { p.image = fn }
}

// WithWriter replaces the remote writer, used by tests.
func WithWriter(fn func(ctx context.Context, ref name.Reference, img v1.Image, auth authn.Authenticator) error) PusherOption {
	return func(p *Pusher) { p.write = fn }
}

// NewPusher creates a pusher authenticating with creds. Empty credentials
// push anonymously.
func NewPusher(creds Credentials, opts ...PusherOption) *Pusher {
	p := &Pusher{auth: creds.authenticator()}
	for _, opt := range opts {
		opt(p)
	}
	if p.image == nil {
		p.image = func(ref name.Reference) (v1.Image, error) {
			return daemon.Image(ref)
		}
	}
	if p.write == nil {
		p.write = func(ctx context.Context, ref name.Reference, img v1.Image, auth authn.Authenticator) error {
			return remote.Write(ref, img, remote.WithAuth(auth), remote.WithContext(ctx))
		}
	}
	return p
}

// Push reads localRef from the daemon and writes it to targetRef.
func (p *Pusher) Push(ctx context.Context, localRef, targetRef string) error {
	src, err := name.ParseReference(localRef)
	if err != nil {
		return errors.Wrapf(err, "parse local reference %q", localRef)
	}
	dst, err := name.ParseReference(targetRef)
	if err != nil {
		return errors.Wrapf(err, "parse target reference %q", targetRef)
	}

	img, err := p.image(src)
	if err != nil {
		return errors.Wrapf(err, "read %s from daemon", localRef)
	}
	if err := p.write(ctx, dst, img, p.auth); err != nil {
		return errors.Wrapf(err, "push %s", targetRef)
	}

	logrus.WithFields(logrus.Fields{"from": localRef, "to": targetRef}).Info("image pushed")
	return nil
}
