package stages

import (
	"context"

	"github.com/mlship/mlship/internal/registry"
)

// Publish pushes the built image to the registry under the version tag and
// latest (one push when the two collapse).
type Publish struct {
	Pusher     ImagePusher
	LocalRef   string
	TargetRefs []string
}

// NewPublish creates the publish stage. namespace qualifies the image under
// the authenticated registry account, e.g. "docker.io/group1".
func NewPublish(pusher ImagePusher, namespace, image, tag string) *Publish {
	return &Publish{
		Pusher:     pusher,
		LocalRef:   image + ":" + tag,
		TargetRefs: registry.PublishRefs(namespace, image, tag),
	}
}

func (s *Publish) Name() string { return NamePublish }

func (s *Publish) Run(ctx context.Context) error {
	for _, target := range s.TargetRefs {
		if err := s.Pusher.Push(ctx, s.LocalRef, target); err != nil {
			return err
		}
	}
	return nil
}
