package stages

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mlship/mlship/internal/registry"
)

// Build produces the container image under the version tag, then re-tags
// it latest. With the default tag both collapse into a single reference.
type Build struct {
	Engine     ContainerEngine
	ContextDir string
	Dockerfile string
	Refs       []string
}

// NewBuild creates the build stage for image:tag.
func NewBuild(engine ContainerEngine, contextDir, dockerfile, image, tag string) *Build {
	return &Build{
		Engine:     engine,
		ContextDir: contextDir,
		Dockerfile: dockerfile,
		Refs:       registry.LocalRefs(image, tag),
	}
}

func (s *Build) Name() string { return NameBuild }

func (s *Build) Run(ctx context.Context) error {
	if len(s.Refs) == 0 {
		return errors.New("no image reference to build")
	}

	primary := s.Refs[0]
	if err := s.Engine.Build(ctx, s.ContextDir, s.Dockerfile, []string{primary}); err != nil {
		return err
	}
	for _, ref := range s.Refs[1:] {
		if err := s.Engine.Tag(ctx, primary, ref); err != nil {
			return err
		}
	}
	return nil
}
