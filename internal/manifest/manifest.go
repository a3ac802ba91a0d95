// Package manifest reads the optional .mlship.yml file a project may carry
// to describe how its image is built, verified and deployed.
package manifest

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mlship/mlship/internal/registry"
)

// DefaultFileName is looked up in the project root when no explicit
// manifest path is given.
const DefaultFileName = ".mlship.yml"

// Duration wraps time.Duration so warmup delays can be written as "10s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Service describes the HTTP surface the built image exposes.
type Service struct {
	Port       int    `yaml:"port"`
	HealthPath string `yaml:"health_path"`
}

// Warmup holds the fixed delays before the two health verifications.
type Warmup struct {
	Smoke  Duration `yaml:"smoke"`
	Deploy Duration `yaml:"deploy"`
}

// Deploy describes the production slot.
type Deploy struct {
	Container string   `yaml:"container"`
	Port      int      `yaml:"port"`
	Volumes   []string `yaml:"volumes"`
}

// Registry describes where images are published.
type Registry struct {
	Namespace string `yaml:"namespace"`
}

// Manifest is the parsed .mlship.yml.
type Manifest struct {
	Image      string   `yaml:"image"`
	Tag        string   `yaml:"tag"`
	Context    string   `yaml:"context"`
	Dockerfile string   `yaml:"dockerfile"`
	Service    Service  `yaml:"service"`
	Warmup     Warmup   `yaml:"warmup"`
	Deploy     Deploy   `yaml:"deploy"`
	Registry   Registry `yaml:"registry"`
}

// Default returns the manifest used when a project ships none.
func Default() Manifest {
	return Manifest{
		Image:   "mlops-app",
		Tag:     "latest",
		Context: ".",
		Service: Service{
			Port:       5000,
			HealthPath: "/health",
		},
		Warmup: Warmup{
			Smoke:  Duration(10 * time.Second),
			Deploy: Duration(15 * time.Second),
		},
		Deploy: Deploy{
			Container: "mlops-app-prod",
			Port:      5000,
			Volumes: []string{
				"/srv/mlops/models:/app/models",
				"/srv/mlops/data:/app/data",
			},
		},
	}
}

// Load reads the manifest at path, layered over the defaults. A missing
// file is not an error; the defaults are returned with found=false.
func Load(path string) (Manifest, bool, error) {
	m := Default()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return m, false, nil
	}
	if err != nil {
		return m, false, errors.Wrap(err, "open manifest")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return m, false, errors.Wrapf(err, "parse %s", path)
	}

	if err := m.Validate(); err != nil {
		return m, false, err
	}
	return m, true, nil
}

// Validate checks the manifest for values the pipeline cannot work with.
func (m Manifest) Validate() error {
	if m.Image == "" {
		return errors.New("manifest: image is required")
	}
	if _, err := registry.Normalize(m.Image); err != nil {
		return errors.Wrap(err, "manifest")
	}
	if m.Tag == "" {
		return errors.New("manifest: tag is required")
	}
	if m.Service.Port <= 0 || m.Service.Port > 65535 {
		return errors.Errorf("manifest: service port %d out of range", m.Service.Port)
	}
	if !strings.HasPrefix(m.Service.HealthPath, "/") {
		return errors.Errorf("manifest: health path %q must start with /", m.Service.HealthPath)
	}
	if m.Deploy.Container == "" {
		return errors.New("manifest: deploy container name is required")
	}
	if m.Deploy.Port <= 0 || m.Deploy.Port > 65535 {
		return errors.Errorf("manifest: deploy port %d out of range", m.Deploy.Port)
	}
	for _, v := range m.Deploy.Volumes {
		parts := strings.Split(v, ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return errors.Errorf("manifest: volume %q is not host-path:container-path", v)
		}
	}
	return nil
}
