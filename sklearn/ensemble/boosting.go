package ensemble

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/sklearn/tree"
)

// GradientBoostingRegressor fits shallow trees to squared-error residuals.
// Prediction is Init + LearningRate * sum(tree(x)).
type GradientBoostingRegressor struct {
	model.BaseEstimator

	NEstimators     int
	LearningRate    float64
	Subsample       float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	RandomState     uint64

	Init      float64
	Trees     []*tree.DecisionTreeRegressor
	NFeatures int
}

// BoostingOption configures a GradientBoostingRegressor.
type BoostingOption func(*GradientBoostingRegressor)

// WithBoostingEstimators sets the number of boosting stages.
func WithBoostingEstimators(n int) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every stage.
func WithLearningRate(lr float64) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.LearningRate = lr }
}

// WithSubsample sets the fraction of rows drawn per stage.
func WithSubsample(s float64) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.Subsample = s }
}

// WithBoostingMaxDepth sets the depth of each stage tree.
func WithBoostingMaxDepth(d int) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.MaxDepth = d }
}

// WithBoostingRandomState seeds row subsampling.
func WithBoostingRandomState(seed uint64) BoostingOption {
	return func(g *GradientBoostingRegressor) { g.RandomState = seed }
}

// NewGradientBoostingRegressor returns 100 stages of depth-3 trees at rate 0.1.
func NewGradientBoostingRegressor(opts ...BoostingOption) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		NEstimators:     100,
		LearningRate:    0.1,
		Subsample:       1.0,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *GradientBoostingRegressor) validate() error {
	if g.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", g.NEstimators)
	}
	if g.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be > 0", g.LearningRate)
	}
	if g.Subsample <= 0 || g.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", g.Subsample)
	}
	return nil
}

// Fit runs NEstimators boosting stages. With Subsample < 1 every stage sees
// a fresh sample of rows drawn without replacement.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	n, c, err := model.CheckFitInput("GradientBoostingRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := g.validate(); err != nil {
		return err
	}
	target := model.Column(y)
	rng := rand.New(rand.NewPCG(g.RandomState, g.RandomState))

	g.Init = stat.Mean(target, nil)
	current := make([]float64, n)
	for i := range current {
		current[i] = g.Init
	}

	nInBag := max(1, int(g.Subsample*float64(n)))
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	residual := make([]float64, n)
	g.Trees = make([]*tree.DecisionTreeRegressor, 0, g.NEstimators)
	for m := 0; m < g.NEstimators; m++ {
		for i := range residual {
			residual[i] = target[i] - current[i]
		}
		rows := all
		if nInBag < n {
			rows = rng.Perm(n)[:nInBag]
			sort.Ints(rows)
		}
		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(g.MaxDepth),
			tree.WithMinSamplesSplit(g.MinSamplesSplit),
			tree.WithMinSamplesLeaf(g.MinSamplesLeaf),
			tree.WithRandomState(g.RandomState+uint64(m)),
		)
		if err := t.FitSubset(X, residual, rows); err != nil {
			return errors.Wrapf(err, "stage %d", m)
		}
		for i := 0; i < n; i++ {
			current[i] += g.LearningRate * t.PredictRow(X, i)
		}
		g.Trees = append(g.Trees, t)
	}

	g.NFeatures = c
	g.SetFitted()
	return nil
}

// Predict returns the boosted prediction for every row.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := model.CheckPredictInput("GradientBoostingRegressor.Predict", g.IsFitted(), "GradientBoostingRegressor", X, g.NFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		v := g.Init
		for _, t := range g.Trees {
			v += g.LearningRate * t.PredictRow(X, i)
		}
		out.Set(i, 0, v)
	}
	return out, nil
}

// Score returns R² on (X, y).
func (g *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := g.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams implements model.ParameterGetter.
func (g *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      g.NEstimators,
		"learning_rate":     g.LearningRate,
		"subsample":         g.Subsample,
		"max_depth":         g.MaxDepth,
		"min_samples_split": g.MinSamplesSplit,
		"min_samples_leaf":  g.MinSamplesLeaf,
		"random_state":      int(g.RandomState),
	}
}

// SetParams implements model.ParameterSetter.
func (g *GradientBoostingRegressor) SetParams(params map[string]interface{}) error {
	seed := int(g.RandomState)
	err := model.BindParams("GradientBoostingRegressor", params, map[string]interface{}{
		"n_estimators":      &g.NEstimators,
		"learning_rate":     &g.LearningRate,
		"subsample":         &g.Subsample,
		"max_depth":         &g.MaxDepth,
		"min_samples_split": &g.MinSamplesSplit,
		"min_samples_leaf":  &g.MinSamplesLeaf,
		"random_state":      &seed,
	})
	g.RandomState = uint64(seed)
	return err
}
