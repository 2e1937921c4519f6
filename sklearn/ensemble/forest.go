package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/core/parallel"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/sklearn/tree"
)

// RandomForestRegressor averages CART trees grown on bootstrap samples.
// Tree i is seeded with RandomState+i.
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     uint64
	// NJobs bounds the number of trees grown concurrently. 0 means NumCPU.
	NJobs int

	Trees     []*tree.DecisionTreeRegressor
	NFeatures int
}

// ForestOption configures a RandomForestRegressor.
type ForestOption func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithForestMaxDepth bounds the depth of each tree.
func WithForestMaxDepth(d int) ForestOption {
	return func(f *RandomForestRegressor) { f.MaxDepth = d }
}

// WithForestMaxFeatures sets the features drawn per split.
func WithForestMaxFeatures(k int) ForestOption {
	return func(f *RandomForestRegressor) { f.MaxFeatures = k }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) ForestOption {
	return func(f *RandomForestRegressor) { f.Bootstrap = b }
}

// WithForestRandomState sets the base seed.
func WithForestRandomState(seed uint64) ForestOption {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithNJobs bounds tree-level parallelism.
func WithNJobs(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NJobs = n }
}

// NewRandomForestRegressor returns a forest of 100 unbounded trees.
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit grows NEstimators trees in parallel.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	n, c, err := model.CheckFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.NEstimators)
	}
	target := model.Column(y)

	trees := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	errs := make([]error, f.NEstimators)
	parallel.ForEach(f.NEstimators, f.NJobs, func(i int) {
		seed := f.RandomState + uint64(i)
		rows := make([]int, n)
		if f.Bootstrap {
			rng := rand.New(rand.NewPCG(seed, seed))
			for j := range rows {
				rows[j] = rng.IntN(n)
			}
		} else {
			for j := range rows {
				rows[j] = j
			}
		}
		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(f.MaxDepth),
			tree.WithMinSamplesSplit(f.MinSamplesSplit),
			tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
			tree.WithMaxFeatures(f.MaxFeatures),
			tree.WithRandomState(seed),
		)
		errs[i] = t.FitSubset(X, target, rows)
		trees[i] = t
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "tree %d", i)
		}
	}

	f.Trees = trees
	f.NFeatures = c
	f.SetFitted()
	return nil
}

// Predict returns the mean prediction of all trees.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := model.CheckPredictInput("RandomForestRegressor.Predict", f.IsFitted(), "RandomForestRegressor", X, f.NFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	k := float64(len(f.Trees))
	for i := 0; i < r; i++ {
		var sum float64
		for _, t := range f.Trees {
			sum += t.PredictRow(X, i)
		}
		out.Set(i, 0, sum/k)
	}
	return out, nil
}

// Score returns R² on (X, y).
func (f *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams implements model.ParameterGetter.
func (f *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.NEstimators,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      int(f.RandomState),
		"n_jobs":            f.NJobs,
	}
}

// SetParams implements model.ParameterSetter.
func (f *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	seed := int(f.RandomState)
	err := model.BindParams("RandomForestRegressor", params, map[string]interface{}{
		"n_estimators":      &f.NEstimators,
		"max_depth":         &f.MaxDepth,
		"min_samples_split": &f.MinSamplesSplit,
		"min_samples_leaf":  &f.MinSamplesLeaf,
		"max_features":      &f.MaxFeatures,
		"bootstrap":         &f.Bootstrap,
		"random_state":      &seed,
		"n_jobs":            &f.NJobs,
	})
	f.RandomState = uint64(seed)
	return err
}
