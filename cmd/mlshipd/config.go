package main

import "github.com/mlship/mlship/internal/forest"

const (
	defaultBindHost = "0.0.0.0"
	defaultPort     = 5000
)

// datasetProfiles gives each classroom group its own seed so no two
// groups serve a model trained on identical data.
var datasetProfiles = map[string]forest.DatasetConfig{
	"group_1": {Seed: 42, Samples: 1000, Features: 4, Noise: 0.1},
	"group_2": {Seed: 123, Samples: 1200, Features: 5, Noise: 0.15},
	"group_3": {Seed: 456, Samples: 800, Features: 6, Noise: 0.2},
	"group_4": {Seed: 789, Samples: 1500, Features: 4, Noise: 0.05},
}

// serviceConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type serviceConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Addr      string `mapstructure:"addr"`
	Group     string `mapstructure:"group"`
	ModelPath string `mapstructure:"model-path"`
	DataPath  string `mapstructure:"data-path"`

	Trees           int   `mapstructure:"trees"`
	MaxDepth        int   `mapstructure:"max-depth"`
	MinSamplesSplit int   `mapstructure:"min-samples-split"`
	MinSamplesLeaf  int   `mapstructure:"min-samples-leaf"`
	Seed            int64 `mapstructure:"seed"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

func (c serviceConfig) datasetConfig() forest.DatasetConfig {
	if profile, ok := datasetProfiles[c.Group]; ok {
		return profile
	}
	return forest.DefaultDatasetConfig()
}

func (c serviceConfig) modelConfig() forest.Config {
	return forest.Config{
		Trees:           c.Trees,
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MinSamplesLeaf:  c.MinSamplesLeaf,
		Seed:            c.Seed,
	}
}
