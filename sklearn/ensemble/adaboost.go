package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/sklearn/tree"
)

// Loss functions accepted by AdaBoostRegressor.
const (
	LossLinear      = "linear"
	LossSquare      = "square"
	LossExponential = "exponential"
)

// AdaBoostRegressor implements AdaBoost.R2 (Drucker, 1997). Each stage fits a
// tree on a weighted resample of the training rows; prediction is the
// weighted median of the stage predictions.
type AdaBoostRegressor struct {
	model.BaseEstimator

	NEstimators  int
	LearningRate float64
	Loss         string
	MaxDepth     int
	RandomState  uint64

	Trees     []*tree.DecisionTreeRegressor
	Weights   []float64
	Errors    []float64
	NFeatures int
}

// AdaBoostOption configures an AdaBoostRegressor.
type AdaBoostOption func(*AdaBoostRegressor)

// WithAdaBoostEstimators sets the maximum number of stages.
func WithAdaBoostEstimators(n int) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.NEstimators = n }
}

// WithAdaBoostLearningRate scales every stage weight.
func WithAdaBoostLearningRate(lr float64) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.LearningRate = lr }
}

// WithLoss selects linear, square or exponential loss.
func WithLoss(loss string) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.Loss = loss }
}

// WithAdaBoostRandomState seeds the weighted resampling.
func WithAdaBoostRandomState(seed uint64) AdaBoostOption {
	return func(a *AdaBoostRegressor) { a.RandomState = seed }
}

// NewAdaBoostRegressor returns 50 stages of depth-3 trees with linear loss.
func NewAdaBoostRegressor(opts ...AdaBoostOption) *AdaBoostRegressor {
	a := &AdaBoostRegressor{
		NEstimators:  50,
		LearningRate: 1.0,
		Loss:         LossLinear,
		MaxDepth:     3,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *AdaBoostRegressor) validate() error {
	if a.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", a.NEstimators)
	}
	if a.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be > 0", a.LearningRate)
	}
	switch a.Loss {
	case LossLinear, LossSquare, LossExponential:
	default:
		return errors.NewValidationError("loss", "must be linear, square or exponential", a.Loss)
	}
	return nil
}

// Fit boosts until NEstimators stages are kept, a stage fits perfectly, or a
// stage's weighted error reaches 0.5.
func (a *AdaBoostRegressor) Fit(X, y mat.Matrix) error {
	n, c, err := model.CheckFitInput("AdaBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := a.validate(); err != nil {
		return err
	}
	target := model.Column(y)
	rng := rand.New(rand.NewPCG(a.RandomState, a.RandomState))

	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	cdf := make([]float64, n)
	loss := make([]float64, n)

	a.Trees = a.Trees[:0]
	a.Weights = a.Weights[:0]
	a.Errors = a.Errors[:0]

	for m := 0; m < a.NEstimators; m++ {
		floats.CumSum(cdf, w)
		total := cdf[n-1]
		rows := make([]int, n)
		for i := range rows {
			rows[i] = min(sort.SearchFloat64s(cdf, rng.Float64()*total), n-1)
		}

		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(a.MaxDepth),
			tree.WithRandomState(a.RandomState+uint64(m)),
		)
		if err := t.FitSubset(X, target, rows); err != nil {
			return errors.Wrapf(err, "stage %d", m)
		}

		var maxLoss float64
		for i := 0; i < n; i++ {
			loss[i] = math.Abs(t.PredictRow(X, i) - target[i])
			maxLoss = math.Max(maxLoss, loss[i])
		}
		if maxLoss > 0 {
			for i := range loss {
				loss[i] /= maxLoss
				switch a.Loss {
				case LossSquare:
					loss[i] *= loss[i]
				case LossExponential:
					loss[i] = 1 - math.Exp(-loss[i])
				}
			}
		}
		estErr := floats.Dot(w, loss)

		if estErr <= 0 {
			a.addStage(t, 1, 0)
			break
		}
		if estErr >= 0.5 {
			if len(a.Trees) == 0 {
				a.addStage(t, 1, estErr)
			}
			break
		}

		beta := estErr / (1 - estErr)
		a.addStage(t, a.LearningRate*math.Log(1/beta), estErr)

		if m == a.NEstimators-1 {
			break
		}
		for i := range w {
			w[i] *= math.Pow(beta, (1-loss[i])*a.LearningRate)
		}
		sum := floats.Sum(w)
		if sum <= 0 {
			break
		}
		floats.Scale(1/sum, w)
	}

	a.NFeatures = c
	a.SetFitted()
	return nil
}

func (a *AdaBoostRegressor) addStage(t *tree.DecisionTreeRegressor, weight, err float64) {
	a.Trees = append(a.Trees, t)
	a.Weights = append(a.Weights, weight)
	a.Errors = append(a.Errors, err)
}

// Predict returns the weighted median of the stage predictions.
func (a *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := model.CheckPredictInput("AdaBoostRegressor.Predict", a.IsFitted(), "AdaBoostRegressor", X, a.NFeatures)
	if err != nil {
		return nil, err
	}
	k := len(a.Trees)
	preds := make([]float64, k)
	order := make([]int, k)
	half := floats.Sum(a.Weights) / 2

	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		for j, t := range a.Trees {
			preds[j] = t.PredictRow(X, i)
			order[j] = j
		}
		sort.SliceStable(order, func(p, q int) bool { return preds[order[p]] < preds[order[q]] })

		var cum float64
		median := preds[order[k-1]]
		for _, j := range order {
			cum += a.Weights[j]
			if cum >= half {
				median = preds[j]
				break
			}
		}
		out.Set(i, 0, median)
	}
	return out, nil
}

// Score returns R² on (X, y).
func (a *AdaBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := a.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams implements model.ParameterGetter.
func (a *AdaBoostRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  a.NEstimators,
		"learning_rate": a.LearningRate,
		"loss":          a.Loss,
		"max_depth":     a.MaxDepth,
		"random_state":  int(a.RandomState),
	}
}

// SetParams implements model.ParameterSetter.
func (a *AdaBoostRegressor) SetParams(params map[string]interface{}) error {
	seed := int(a.RandomState)
	err := model.BindParams("AdaBoostRegressor", params, map[string]interface{}{
		"n_estimators":  &a.NEstimators,
		"learning_rate": &a.LearningRate,
		"loss":          &a.Loss,
		"max_depth":     &a.MaxDepth,
		"random_state":  &seed,
	})
	a.RandomState = uint64(seed)
	return err
}
