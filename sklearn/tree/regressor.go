// Package tree implements a CART regression tree. The ensembles in
// sklearn/ensemble grow their members through FitSubset.
package tree

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Node is one entry of the flattened tree. Feature is -1 for leaves.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	NSamples  int
}

// DecisionTreeRegressor is a CART tree grown by minimizing squared error.
// A sample goes left when x[Feature] <= Threshold.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// MaxDepth limits the depth of the tree (root depth = 0). 0 means unbounded.
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of features drawn at each split. 0 means all.
	MaxFeatures int
	RandomState uint64

	Nodes     []Node
	NFeatures int
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth sets the maximum depth. 0 means unbounded.
func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of candidate features per split.
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }

// WithRandomState seeds feature sampling.
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a tree with the usual CART defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	r, _, err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	rows := make([]int, r)
	for i := range rows {
		rows[i] = i
	}
	return t.FitSubset(X, model.Column(y), rows)
}

// FitSubset grows the tree on the listed rows of X. Rows may repeat, which is
// how bootstrap samples are passed in.
func (t *DecisionTreeRegressor) FitSubset(X mat.Matrix, y []float64, rows []int) error {
	if err := t.validate(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	r, c := X.Dims()

	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = make([]float64, r)
		for i := 0; i < r; i++ {
			cols[j][i] = X.At(i, j)
		}
	}

	b := &builder{
		tree: t,
		cols: cols,
		y:    y,
		rng:  rand.New(rand.NewPCG(t.RandomState, t.RandomState^0x9e3779b97f4a7c15)),
	}
	t.Nodes = t.Nodes[:0]
	t.NFeatures = c
	b.grow(append([]int(nil), rows...), 0)
	t.SetFitted()
	return nil
}

func (t *DecisionTreeRegressor) validate() error {
	if t.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", t.MaxDepth)
	}
	if t.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.MinSamplesSplit)
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.MinSamplesLeaf)
	}
	if t.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", t.MaxFeatures)
	}
	return nil
}

// Predict returns the leaf mean reached by every row.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := model.CheckPredictInput("DecisionTreeRegressor.Predict", t.IsFitted(), "DecisionTreeRegressor", X, t.NFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, t.PredictRow(X, i))
	}
	return out, nil
}

// PredictRow predicts row i of X without validation.
func (t *DecisionTreeRegressor) PredictRow(X mat.Matrix, i int) float64 {
	n := 0
	for t.Nodes[n].Feature >= 0 {
		if X.At(i, t.Nodes[n].Feature) <= t.Nodes[n].Threshold {
			n = t.Nodes[n].Left
		} else {
			n = t.Nodes[n].Right
		}
	}
	return t.Nodes[n].Value
}

// Score returns R² on (X, y).
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// Depth returns the depth of the deepest leaf.
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(n, d int) int
	walk = func(n, d int) int {
		node := t.Nodes[n]
		if node.Feature < 0 {
			return d
		}
		return max(walk(node.Left, d+1), walk(node.Right, d+1))
	}
	return walk(0, 0)
}

// NLeaves returns the number of leaves.
func (t *DecisionTreeRegressor) NLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Feature < 0 {
			n++
		}
	}
	return n
}

// GetParams implements model.ParameterGetter.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
		"random_state":      int(t.RandomState),
	}
}

// SetParams implements model.ParameterSetter.
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	seed := int(t.RandomState)
	err := model.BindParams("DecisionTreeRegressor", params, map[string]interface{}{
		"max_depth":         &t.MaxDepth,
		"min_samples_split": &t.MinSamplesSplit,
		"min_samples_leaf":  &t.MinSamplesLeaf,
		"max_features":      &t.MaxFeatures,
		"random_state":      &seed,
	})
	t.RandomState = uint64(seed)
	return err
}

type builder struct {
	tree *DecisionTreeRegressor
	// cols[j][i] is X[i, j]
	cols [][]float64
	y    []float64
	rng  *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	pos       int
	cost      float64
}

// grow appends the subtree for rows and returns its node index.
func (b *builder) grow(rows []int, depth int) int {
	t := b.tree
	var sum, sumSq float64
	for _, r := range rows {
		sum += b.y[r]
		sumSq += b.y[r] * b.y[r]
	}
	n := float64(len(rows))
	mean := sum / n
	sse := sumSq - sum*sum/n

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Feature: -1, Value: mean, NSamples: len(rows)})

	if (t.MaxDepth > 0 && depth >= t.MaxDepth) ||
		len(rows) < t.MinSamplesSplit ||
		len(rows) < 2*t.MinSamplesLeaf ||
		sse <= 1e-12*n {
		return idx
	}

	best, ok := b.bestSplit(rows, sse)
	if !ok {
		return idx
	}

	sortByFeature(b.cols[best.feature], rows)
	left := append([]int(nil), rows[:best.pos]...)
	right := append([]int(nil), rows[best.pos:]...)

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	t.Nodes[idx].Feature = best.feature
	t.Nodes[idx].Threshold = best.threshold
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

func (b *builder) candidateFeatures() []int {
	p := b.tree.NFeatures
	if b.tree.MaxFeatures <= 0 || b.tree.MaxFeatures >= p {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	feats := b.rng.Perm(p)[:b.tree.MaxFeatures]
	sort.Ints(feats)
	return feats
}

// bestSplit scans every candidate feature for the threshold with the lowest
// summed squared error. Ties keep the first split found.
func (b *builder) bestSplit(rows []int, parentSSE float64) (split, bool) {
	minLeaf := b.tree.MinSamplesLeaf
	n := len(rows)
	best := split{cost: parentSSE}
	found := false

	work := append([]int(nil), rows...)
	for _, f := range b.candidateFeatures() {
		col := b.cols[f]
		sortByFeature(col, work)

		var totalSum, totalSq float64
		for _, r := range work {
			totalSum += b.y[r]
			totalSq += b.y[r] * b.y[r]
		}

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			yi := b.y[work[i]]
			leftSum += yi
			leftSq += yi * yi

			nl := i + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			xi := col[work[i]]
			xn := col[work[i+1]]
			if xi == xn {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			cost := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if cost < best.cost-1e-12 {
				threshold := xi + (xn-xi)/2
				if threshold == xn || math.IsInf(threshold, 0) {
					threshold = xi
				}
				best = split{feature: f, threshold: threshold, pos: nl, cost: cost}
				found = true
			}
		}
	}
	return best, found
}

func sortByFeature(col []float64, rows []int) {
	slices.SortStableFunc(rows, func(a, b int) int {
		return cmp.Compare(col[a], col[b])
	})
}
