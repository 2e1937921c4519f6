// Package linear implements ordinary least squares regression.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/core/parallel"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// LinearRegression fits y = Xw + b by least squares.
//
// The system is solved with an SVD of the centered design matrix, so
// rank-deficient inputs such as one-hot blocks next to an intercept yield the
// minimum-norm solution instead of failing.
type LinearRegression struct {
	model.BaseEstimator

	Weights   []float64
	Intercept float64
	NFeatures int
	Rank      int

	FitIntercept bool
	Rcond        float64
}

// NewLinearRegression creates a LinearRegression that fits an intercept.
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{FitIntercept: true, Rcond: 1e-10}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit learns weights and intercept.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c, err := model.CheckFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	xMean := make([]float64, c)
	var yMean float64
	if lr.FitIntercept {
		for j := 0; j < c; j++ {
			for i := 0; i < r; i++ {
				xMean[j] += X.At(i, j)
			}
			xMean[j] /= float64(r)
		}
		for i := 0; i < r; i++ {
			yMean += y.At(i, 0)
		}
		yMean /= float64(r)
	}

	// parallel threshold in rows
	const parallelThreshold = 1000

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.Set(i, 0, y.At(i, 0)-yMean)
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(lr.Rcond)
	if rank == 0 {
		// every feature is constant: predict the mean
		lr.Weights = make([]float64, c)
		lr.Intercept = yMean
		lr.NFeatures, lr.Rank = c, 0
		lr.SetFitted()
		return nil
	}

	var w mat.Dense
	svd.SolveTo(&w, yc, rank)

	lr.Weights = make([]float64, c)
	intercept := yMean
	for j := 0; j < c; j++ {
		lr.Weights[j] = w.At(j, 0)
		intercept -= xMean[j] * lr.Weights[j]
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", lr.Weights, 0); err != nil {
		return err
	}

	lr.Intercept = intercept
	lr.NFeatures = c
	lr.Rank = rank
	lr.SetFitted()
	return nil
}

// Predict returns X·w + b.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := model.CheckPredictInput("LinearRegression.Predict", lr.IsFitted(), "LinearRegression", X, lr.NFeatures)
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j, w := range lr.Weights {
			pred += X.At(i, j) * w
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score returns R² on (X, y).
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams implements model.ParameterGetter.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.FitIntercept,
		"rcond":         lr.Rcond,
	}
}

// SetParams implements model.ParameterSetter.
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	return model.BindParams("LinearRegression", params, map[string]interface{}{
		"fit_intercept": &lr.FitIntercept,
		"rcond":         &lr.Rcond,
	})
}
