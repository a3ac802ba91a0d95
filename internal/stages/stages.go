// Package stages holds the five delivery stages in their fixed order:
// checkout, build, smoke-test, publish, deploy.
package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/mlship/mlship/internal/dockercli"
)

// Stage names, also used in run history and notifications.
const (
	NameCheckout = "checkout"
	NameBuild    = "build"
	NameSmoke    = "smoke-test"
	NamePublish  = "publish"
	NameDeploy   = "deploy"
)

// ContainerEngine is the narrow docker contract the stages require.
type ContainerEngine interface {
	Build(ctx context.Context, contextDir, dockerfile string, refs []string) error
	Tag(ctx context.Context, src, dst string) error
	RunDetached(ctx context.Context, image string, opts dockercli.RunOptions) (string, error)
	Stop(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// HealthChecker verifies a started service after a fixed warmup delay.
type HealthChecker interface {
	WaitAndCheck(ctx context.Context, url string, warmup time.Duration) error
}

// ImagePusher copies a locally built image to a registry reference.
type ImagePusher interface {
	Push(ctx context.Context, localRef, targetRef string) error
}

func healthURL(hostPort int, path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", hostPort, path)
}
