package forest

import (
	"math/rand"

	"github.com/pkg/errors"
)

// DatasetConfig describes the synthetic training set. Each group gets its
// own seed so no two groups train on identical data.
type DatasetConfig struct {
	Seed     int64
	Samples  int
	Features int
	Noise    float64
}

// DefaultDatasetConfig matches the group_1 profile.
func DefaultDatasetConfig() DatasetConfig {
	return DatasetConfig{Seed: 42, Samples: 1000, Features: 4, Noise: 0.1}
}

// Generate builds the synthetic dataset: standard-normal features with the
// label set by whether the (noisy) feature sum is positive.
func (c DatasetConfig) Generate() ([][]float64, []int, error) {
	if c.Samples <= 0 || c.Features <= 0 {
		return nil, nil, errors.Errorf("dataset config needs positive samples and features, got %d/%d", c.Samples, c.Features)
	}

	rng := rand.New(rand.NewSource(c.Seed))

	X := make([][]float64, c.Samples)
	y := make([]int, c.Samples)
	for i := range X {
		row := make([]float64, c.Features)
		sum := 0.0
		for j := range row {
			row[j] = rng.NormFloat64()
			sum += row[j]
		}
		X[i] = row
		if sum+rng.NormFloat64()*c.Noise > 0 {
			y[i] = 1
		}
	}
	return X, y, nil
}

// Split shuffles the dataset and carves off testFrac of it for evaluation.
func Split(X [][]float64, y []int, testFrac float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(len(X))

	nTest := int(float64(len(X)) * testFrac)
	for i, p := range idx {
		if i < nTest {
			testX = append(testX, X[p])
			testY = append(testY, y[p])
		} else {
			trainX = append(trainX, X[p])
			trainY = append(trainY, y[p])
		}
	}
	return trainX, trainY, testX, testY
}
