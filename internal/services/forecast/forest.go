package forecast

import (
	"fmt"
	"math/rand"
	"sort"
)

// ForestConfig holds ensemble hyperparameters.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

// DefaultForestConfig mirrors the tuned defaults of the decision pipeline.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:    64,
		MaxDepth: 12,
		MinLeaf:  2,
		Seed:     1,
	}
}

// Forest is a bagged ensemble of regression trees.
type Forest struct {
	trees       []*tree
	importances []float64
}

// FitForest trains the ensemble: one bootstrap sample per tree, with
// ceil(p/3) features considered per split.
func FitForest(samples [][]float64, targets []float64, cfg ForestConfig) (*Forest, error) {
	if len(samples) == 0 || len(samples) != len(targets) {
		return nil, fmt.Errorf("forest: bad training shape (%d samples, %d targets)", len(samples), len(targets))
	}

	nFeatures := len(samples[0])
	params := treeParams{
		maxDepth:         cfg.MaxDepth,
		minLeaf:          cfg.MinLeaf,
		featuresPerSplit: (nFeatures + 2) / 3,
	}
	if params.featuresPerSplit < 1 {
		params.featuresPerSplit = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	f := &Forest{
		trees:       make([]*tree, 0, cfg.Trees),
		importances: make([]float64, nFeatures),
	}

	n := len(samples)
	for i := 0; i < cfg.Trees; i++ {
		treeRng := rand.New(rand.NewSource(rng.Int63()))

		idx := make([]int, n)
		for j := range idx {
			idx[j] = treeRng.Intn(n)
		}

		t := fitTree(samples, targets, idx, params, treeRng)
		f.trees = append(f.trees, t)
		for k, imp := range t.importances {
			f.importances[k] += imp
		}
	}

	return f, nil
}

// Predict returns the mean of the per-tree predictions.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

// TreePredictions returns each tree's prediction for x, used for
// dispersion-based confidence.
func (f *Forest) TreePredictions(x []float64) []float64 {
	preds := make([]float64, len(f.trees))
	for i, t := range f.trees {
		preds[i] = t.predict(x)
	}
	return preds
}

// Importances returns per-feature impurity importances normalized to sum 1.
// All-zero importances (no split ever made) normalize to a uniform split.
func (f *Forest) Importances() []float64 {
	out := make([]float64, len(f.importances))
	var total float64
	for _, v := range f.importances {
		total += v
	}
	if total == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, v := range f.importances {
		out[i] = v / total
	}
	return out
}

// percentile returns the q-th percentile (0..1) of values using linear
// interpolation between closest ranks.
func percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
