package forecast

import (
	"math/rand"
	"sort"
)

// treeParams bound the growth of a single regression tree.
type treeParams struct {
	maxDepth         int
	minLeaf          int
	featuresPerSplit int
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// tree is a CART regression tree with variance-reduction splits.
type tree struct {
	root        *node
	importances []float64
}

// fitTree grows a tree on the given sample rows. importances accumulates
// the impurity decrease per feature, weighted by node size.
func fitTree(samples [][]float64, targets []float64, idx []int, p treeParams, rng *rand.Rand) *tree {
	t := &tree{importances: make([]float64, len(samples[0]))}
	t.root = t.grow(samples, targets, idx, 0, p, rng)
	return t
}

func (t *tree) grow(samples [][]float64, targets []float64, idx []int, depth int, p treeParams, rng *rand.Rand) *node {
	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf || constantTargets(targets, idx) {
		return &node{leaf: true, value: meanAt(targets, idx)}
	}

	feature, threshold, gain, ok := t.bestSplit(samples, targets, idx, p, rng)
	if !ok {
		return &node{leaf: true, value: meanAt(targets, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if samples[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.minLeaf || len(right) < p.minLeaf {
		return &node{leaf: true, value: meanAt(targets, idx)}
	}

	t.importances[feature] += gain * float64(len(idx))

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(samples, targets, left, depth+1, p, rng),
		right:     t.grow(samples, targets, right, depth+1, p, rng),
	}
}

// bestSplit scans a random feature subset for the threshold with the
// largest variance reduction.
func (t *tree) bestSplit(samples [][]float64, targets []float64, idx []int, p treeParams, rng *rand.Rand) (int, float64, float64, bool) {
	nFeatures := len(samples[0])
	candidates := rng.Perm(nFeatures)
	if p.featuresPerSplit < nFeatures {
		candidates = candidates[:p.featuresPerSplit]
	}

	parentVar := varianceAt(targets, idx)
	if parentVar == 0 {
		return 0, 0, 0, false
	}

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	values := make([]float64, 0, len(idx))
	for _, f := range candidates {
		values = values[:0]
		for _, i := range idx {
			values = append(values, samples[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2

			var leftN, rightN int
			var leftSum, rightSum, leftSq, rightSq float64
			for _, i := range idx {
				x := samples[i][f]
				y := targets[i]
				if x <= threshold {
					leftN++
					leftSum += y
					leftSq += y * y
				} else {
					rightN++
					rightSum += y
					rightSq += y * y
				}
			}
			if leftN < p.minLeaf || rightN < p.minLeaf {
				continue
			}

			leftVar := leftSq/float64(leftN) - (leftSum/float64(leftN))*(leftSum/float64(leftN))
			rightVar := rightSq/float64(rightN) - (rightSum/float64(rightN))*(rightSum/float64(rightN))
			n := float64(len(idx))
			weighted := (float64(leftN)*leftVar + float64(rightN)*rightVar) / n

			if gain := parentVar - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

func (t *tree) predict(x []float64) float64 {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func meanAt(targets []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}

func varianceAt(targets []float64, idx []int) float64 {
	m := meanAt(targets, idx)
	var sum float64
	for _, i := range idx {
		d := targets[i] - m
		sum += d * d
	}
	return sum / float64(len(idx))
}

func constantTargets(targets []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if targets[i] != targets[idx[0]] {
			return false
		}
	}
	return true
}
