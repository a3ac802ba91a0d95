package forest

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is a single CART node. Fields are exported so gob can persist
// trained forests.
type treeNode struct {
	Feature   int
	Threshold float64
	Left      *treeNode
	Right     *treeNode
	Leaf      bool
	Dist      []float64
}

type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
}

// buildTree grows a gini-based decision tree over the rows named by idx.
func buildTree(X [][]float64, y []int, idx []int, depth int, cfg Config, classes int, rng *rand.Rand) *treeNode {
	dist := classDistribution(y, idx, classes)
	if depth >= cfg.MaxDepth || len(idx) < cfg.MinSamplesSplit || isPure(dist) {
		return &treeNode{Leaf: true, Dist: dist}
	}

	best, ok := bestSplit(X, y, idx, cfg, classes, rng)
	if !ok {
		return &treeNode{Leaf: true, Dist: dist}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.MinSamplesLeaf || len(right) < cfg.MinSamplesLeaf {
		return &treeNode{Leaf: true, Dist: dist}
	}

	return &treeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      buildTree(X, y, left, depth+1, cfg, classes, rng),
		Right:     buildTree(X, y, right, depth+1, cfg, classes, rng),
	}
}

// bestSplit scans a random sqrt-sized feature subset for the split with the
// largest gini impurity decrease.
func bestSplit(X [][]float64, y []int, idx []int, cfg Config, classes int, rng *rand.Rand) (splitCandidate, bool) {
	nFeatures := len(X[0])
	mtry := int(math.Ceil(math.Sqrt(float64(nFeatures))))

	features := rng.Perm(nFeatures)[:mtry]
	parent := gini(classDistribution(y, idx, classes))

	best := splitCandidate{gain: 0}
	found := false

	values := make([]float64, 0, len(idx))
	for _, f := range features {
		values = values[:0]
		for _, i := range idx {
			values = append(values, X[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2

			leftCounts := make([]float64, classes)
			rightCounts := make([]float64, classes)
			var nLeft, nRight float64
			for _, i := range idx {
				if X[i][f] <= threshold {
					leftCounts[y[i]]++
					nLeft++
				} else {
					rightCounts[y[i]]++
					nRight++
				}
			}
			if nLeft == 0 || nRight == 0 {
				continue
			}

			total := nLeft + nRight
			weighted := nLeft/total*giniCounts(leftCounts, nLeft) + nRight/total*giniCounts(rightCounts, nRight)
			gain := parent - weighted
			if gain > best.gain {
				best = splitCandidate{feature: f, threshold: threshold, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (n *treeNode) predict(x []float64) []float64 {
	if n.Leaf {
		return n.Dist
	}
	if x[n.Feature] <= n.Threshold {
		return n.Left.predict(x)
	}
	return n.Right.predict(x)
}

func classDistribution(y []int, idx []int, classes int) []float64 {
	dist := make([]float64, classes)
	for _, i := range idx {
		dist[y[i]]++
	}
	for c := range dist {
		dist[c] /= float64(len(idx))
	}
	return dist
}

func isPure(dist []float64) bool {
	for _, p := range dist {
		if p == 1 {
			return true
		}
	}
	return false
}

func gini(dist []float64) float64 {
	g := 1.0
	for _, p := range dist {
		g -= p * p
	}
	return g
}

func giniCounts(counts []float64, n float64) float64 {
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}
