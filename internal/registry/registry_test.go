package registry

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRefs(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"mlops-app:1.4.2", "mlops-app:latest"},
		LocalRefs("mlops-app", "1.4.2"))

	// Default parameters collapse both tags into the same reference.
	assert.Equal(t,
		[]string{"mlops-app:latest"},
		LocalRefs("mlops-app", "latest"))
}

func TestPublishRefs(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"docker.io/group1/mlops-app:1.4.2", "docker.io/group1/mlops-app:latest"},
		PublishRefs("docker.io/group1", "mlops-app", "1.4.2"))

	assert.Equal(t,
		[]string{"group1/mlops-app:latest"},
		PublishRefs("group1", "mlops-app", "latest"))

	assert.Equal(t,
		[]string{"mlops-app:latest"},
		PublishRefs("", "mlops-app", "latest"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got, err := Normalize("mlops-app")
	require.NoError(t, err)
	assert.Equal(t, "docker.io/library/mlops-app:latest", got)

	got, err = Normalize("registry.example.com:5000/group1/mlops-app:1.4.2")
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com:5000/group1/mlops-app:1.4.2", got)
}

func dockerConfigJSON(registry, user, pass string) string {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	return `{"auths":{"` + registry + `":{"auth":"` + token + `"}}}`
}

func TestResolveAuth_PrivateRegistry(t *testing.T) {
	t.Parallel()

	cfg := dockerConfigJSON("registry.example.com", "group1", "s3cret")
	creds, err := ResolveAuth(strings.NewReader(cfg), "registry.example.com/group1/mlops-app:latest")
	require.NoError(t, err)

	assert.Equal(t, "group1", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestResolveAuth_DefaultRegistryKey(t *testing.T) {
	t.Parallel()

	cfg := dockerConfigJSON(authn.DefaultAuthKey, "group1", "s3cret")
	creds, err := ResolveAuth(strings.NewReader(cfg), "group1/mlops-app:latest")
	require.NoError(t, err)

	assert.Equal(t, "group1", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestResolveAuth_UnknownRegistryIsEmpty(t *testing.T) {
	t.Parallel()

	cfg := dockerConfigJSON("registry.example.com", "group1", "s3cret")
	creds, err := ResolveAuth(strings.NewReader(cfg), "other.example.com/mlops-app:latest")
	require.NoError(t, err)
	assert.True(t, creds.empty())
}

func TestPusher_ReadsDaemonAndWritesTarget(t *testing.T) {
	t.Parallel()

	var readRef, wroteRef string
	var gotAuth authn.Authenticator

	p := NewPusher(Credentials{Username: "group1", Password: "s3cret"},
		WithImageReader(func(ref name.Reference) (v1.Image, error) {
			readRef = ref.Name()
			return nil, nil
		}),
		WithWriter(func(ctx context.Context, ref name.Reference, img v1.Image, auth authn.Authenticator) error {
			wroteRef = ref.Name()
			gotAuth = auth
			return nil
		}),
	)

	err := p.Push(context.Background(), "mlops-app:latest", "docker.io/group1/mlops-app:latest")
	require.NoError(t, err)

	assert.Contains(t, readRef, "mlops-app:latest")
	assert.Contains(t, wroteRef, "group1/mlops-app:latest")

	basic, ok := gotAuth.(*authn.Basic)
	require.True(t, ok)
	assert.Equal(t, "group1", basic.Username)
}

func TestPusher_AnonymousWhenNoCreds(t *testing.T) {
	t.Parallel()

	var gotAuth authn.Authenticator
	p := NewPusher(Credentials{},
		WithImageReader(func(ref name.Reference) (v1.Image, error) { return nil, nil }),
		WithWriter(func(ctx context.Context, ref name.Reference, img v1.Image, auth authn.Authenticator) error {
			gotAuth = auth
			return nil
		}),
	)

	require.NoError(t, p.Push(context.Background(), "mlops-app:latest", "mlops-app:latest"))
	assert.Equal(t, authn.Anonymous, gotAuth)
}

func TestPusher_WrapsDaemonError(t *testing.T) {
	t.Parallel()

	p := NewPusher(Credentials{},
		WithImageReader(func(ref name.Reference) (v1.Image, error) {
			return nil, errors.New("image not found locally")
		}),
	)

	err := p.Push(context.Background(), "mlops-app:latest", "mlops-app:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read mlops-app:latest from daemon")
}
