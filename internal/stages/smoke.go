package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlship/mlship/internal/dockercli"
)

// SmokeTest starts the freshly built image on a scratch port, waits the
// fixed warmup delay, and asserts the health endpoint answers. The test
// container is stopped and removed whatever the probe says.
type SmokeTest struct {
	Engine        ContainerEngine
	Checker       HealthChecker
	ImageRef      string
	ContainerName string
	HostPort      int
	ContainerPort int
	HealthPath    string
	Warmup        time.Duration
}

func (s *SmokeTest) Name() string { return NameSmoke }

func (s *SmokeTest) Run(ctx context.Context) error {
	_, err := s.Engine.RunDetached(ctx, s.ImageRef, dockercli.RunOptions{
		Name:  s.ContainerName,
		Ports: []string{fmt.Sprintf("%d:%d", s.HostPort, s.ContainerPort)},
	})
	if err != nil {
		return err
	}
	defer s.cleanup()

	return s.Checker.WaitAndCheck(ctx, healthURL(s.HostPort, s.HealthPath), s.Warmup)
}

// cleanup tears the test container down on its own context, so a cancelled
// run still releases the scratch port.
func (s *SmokeTest) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Engine.Stop(ctx, s.ContainerName); err != nil && !dockercli.IsNotFound(err) {
		logrus.WithError(err).Warn("stopping smoke-test container failed")
	}
	if err := s.Engine.Remove(ctx, s.ContainerName); err != nil && !dockercli.IsNotFound(err) {
		logrus.WithError(err).Warn("removing smoke-test container failed")
	}
}
