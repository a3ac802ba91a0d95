// Package forest is a bagged random-forest classifier trained on a
// synthetic dataset. It backs the model service's predict and retrain
// endpoints.
package forest

import (
	"math/rand"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config holds the forest hyperparameters.
type Config struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// DefaultConfig mirrors the hyperparameters the service has always shipped
// with.
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// Forest is a trained ensemble. Fields are exported for gob.
type Forest struct {
	Roots    []*treeNode
	Features int
	Classes  int
}

// Train fits cfg.Trees gini trees, each on a bootstrap sample of the
// training set.
func Train(X [][]float64, y []int, cfg Config) (*Forest, error) {
	if len(X) == 0 {
		return nil, errors.New("training set is empty")
	}
	if len(X) != len(y) {
		return nil, errors.Errorf("feature rows (%d) and labels (%d) differ", len(X), len(y))
	}
	if cfg.Trees <= 0 {
		return nil, errors.Errorf("invalid tree count %d", cfg.Trees)
	}

	classes := 0
	for _, label := range y {
		if label < 0 {
			return nil, errors.Errorf("negative class label %d", label)
		}
		if label+1 > classes {
			classes = label + 1
		}
	}

	f := &Forest{
		Roots:    make([]*treeNode, cfg.Trees),
		Features: len(X[0]),
		Classes:  classes,
	}

	// Trees are independent given their seed, so they train in parallel.
	// One rng per tree keeps the result deterministic for a given seed.
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for t := range f.Roots {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))

			sample := make([]int, len(X))
			for i := range sample {
				sample[i] = rng.Intn(len(X))
			}
			f.Roots[t] = buildTree(X, y, sample, 0, cfg, classes, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// PredictProba averages the leaf class distributions across all trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.Features {
		return nil, errors.Errorf("expected %d features, got %d", f.Features, len(x))
	}

	probs := make([]float64, f.Classes)
	for _, root := range f.Roots {
		for c, p := range root.predict(x) {
			probs[c] += p
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Roots))
	}
	return probs, nil
}

// Predict returns the majority class and its averaged probability.
func (f *Forest) Predict(x []float64) (int, float64, error) {
	probs, err := f.PredictProba(x)
	if err != nil {
		return 0, 0, err
	}

	class := 0
	for c, p := range probs {
		if p > probs[class] {
			class = c
		}
	}
	return class, probs[class], nil
}

// Evaluate returns accuracy over a held-out set.
func (f *Forest) Evaluate(X [][]float64, y []int) (float64, error) {
	if len(X) == 0 {
		return 0, errors.New("evaluation set is empty")
	}

	correct := 0
	for i, x := range X {
		class, _, err := f.Predict(x)
		if err != nil {
			return 0, err
		}
		if class == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}
