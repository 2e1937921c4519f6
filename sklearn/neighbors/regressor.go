// Package neighbors implements k-nearest-neighbours regression.
package neighbors

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/core/parallel"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Weighting schemes for KNeighborsRegressor.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// parallelThreshold is the number of query rows above which Predict fans out.
const parallelThreshold = 64

// KNeighborsRegressor predicts the (optionally distance-weighted) mean target
// of the NNeighbors closest training rows under Euclidean distance. Among
// equidistant rows the one seen first in training wins.
type KNeighborsRegressor struct {
	model.BaseEstimator

	NNeighbors int
	Weights    string

	// Training data, row-major.
	XTrain    []float64
	YTrain    []float64
	NFeatures int
	NSamples  int
}

// Option configures a KNeighborsRegressor.
type Option func(*KNeighborsRegressor)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option { return func(r *KNeighborsRegressor) { r.NNeighbors = k } }

// WithWeights selects uniform or distance weighting.
func WithWeights(w string) Option { return func(r *KNeighborsRegressor) { r.Weights = w } }

// NewKNeighborsRegressor returns a 5-neighbour uniform regressor.
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	r := &KNeighborsRegressor{NNeighbors: 5, Weights: WeightsUniform}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Fit stores the training data.
func (r *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	n, c, err := model.CheckFitInput("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if r.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be >= 1", r.NNeighbors)
	}
	if r.NNeighbors > n {
		return errors.NewValidationError("n_neighbors", "must not exceed the number of training samples", r.NNeighbors)
	}
	if r.Weights != WeightsUniform && r.Weights != WeightsDistance {
		return errors.NewValidationError("weights", "must be uniform or distance", r.Weights)
	}

	r.XTrain = make([]float64, n*c)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			r.XTrain[i*c+j] = X.At(i, j)
		}
	}
	r.YTrain = model.Column(y)
	r.NFeatures = c
	r.NSamples = n
	r.SetFitted()
	return nil
}

// Predict averages the neighbours of every row. Large inputs are split
// across CPUs.
func (r *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := model.CheckPredictInput("KNeighborsRegressor.Predict", r.IsFitted(), "KNeighborsRegressor", X, r.NFeatures)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		q := make([]float64, r.NFeatures)
		nb := make([]neighbor, 0, r.NNeighbors+1)
		for i := start; i < end; i++ {
			for j := range q {
				q[j] = X.At(i, j)
			}
			out[i] = r.predictOne(q, nb[:0])
		}
	})
	return mat.NewDense(rows, 1, out), nil
}

type neighbor struct {
	dist float64
	y    float64
}

// predictOne keeps the k nearest rows in an insertion-sorted buffer.
func (r *KNeighborsRegressor) predictOne(q []float64, nb []neighbor) float64 {
	k := r.NNeighbors
	c := r.NFeatures
	for i := 0; i < r.NSamples; i++ {
		row := r.XTrain[i*c : (i+1)*c]
		var d float64
		for j, v := range row {
			diff := q[j] - v
			d += diff * diff
		}
		if len(nb) == k && d >= nb[k-1].dist {
			continue
		}
		if len(nb) < k {
			nb = append(nb, neighbor{})
		}
		pos := len(nb) - 1
		for pos > 0 && nb[pos-1].dist > d {
			nb[pos] = nb[pos-1]
			pos--
		}
		nb[pos] = neighbor{dist: d, y: r.YTrain[i]}
	}

	if r.Weights == WeightsDistance {
		var num, den float64
		for _, n := range nb {
			if n.dist == 0 {
				// exact matches take all the weight
				return exactMean(nb)
			}
			w := 1 / math.Sqrt(n.dist)
			num += w * n.y
			den += w
		}
		return num / den
	}
	var sum float64
	for _, n := range nb {
		sum += n.y
	}
	return sum / float64(len(nb))
}

func exactMean(nb []neighbor) float64 {
	var sum float64
	var cnt int
	for _, n := range nb {
		if n.dist == 0 {
			sum += n.y
			cnt++
		}
	}
	return sum / float64(cnt)
}

// Score returns R² on (X, y).
func (r *KNeighborsRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams implements model.ParameterGetter.
func (r *KNeighborsRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": r.NNeighbors,
		"weights":     r.Weights,
	}
}

// SetParams implements model.ParameterSetter.
func (r *KNeighborsRegressor) SetParams(params map[string]interface{}) error {
	return model.BindParams("KNeighborsRegressor", params, map[string]interface{}{
		"n_neighbors": &r.NNeighbors,
		"weights":     &r.Weights,
	})
}
