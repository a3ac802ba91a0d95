package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/mlship/mlship/internal/dockercli"
)

// Deploy replaces the production container with the freshly built image
// and re-verifies health. A missing previous container is not an error;
// the production slot is simply empty on the first deploy.
type Deploy struct {
	Engine        ContainerEngine
	Checker       HealthChecker
	ImageRef      string
	ContainerName string
	HostPort      int
	ContainerPort int
	Volumes       []string
	HealthPath    string
	Warmup        time.Duration
}

func (s *Deploy) Name() string { return NameDeploy }

func (s *Deploy) Run(ctx context.Context) error {
	if err := s.Engine.Stop(ctx, s.ContainerName); err != nil && !dockercli.IsNotFound(err) {
		return err
	}
	if err := s.Engine.Remove(ctx, s.ContainerName); err != nil && !dockercli.IsNotFound(err) {
		return err
	}

	_, err := s.Engine.RunDetached(ctx, s.ImageRef, dockercli.RunOptions{
		Name:    s.ContainerName,
		Ports:   []string{fmt.Sprintf("%d:%d", s.HostPort, s.ContainerPort)},
		Volumes: s.Volumes,
		Restart: "always",
	})
	if err != nil {
		return err
	}

	return s.Checker.WaitAndCheck(ctx, healthURL(s.HostPort, s.HealthPath), s.Warmup)
}
