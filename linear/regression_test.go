package linear

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

func TestLinearRegressionSimple(t *testing.T) {
	// y = 2x + 1
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2.0, lr.Weights[0], 1e-9)
	assert.InDelta(t, 1.0, lr.Intercept, 1e-9)

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{5, 6}))
	require.NoError(t, err)
	assert.InDelta(t, 11.0, pred.At(0, 0), 1e-9)
	assert.InDelta(t, 13.0, pred.At(1, 0), 1e-9)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestLinearRegressionNoIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2.0, lr.Weights[0], 1e-9)
	assert.Equal(t, 0.0, lr.Intercept)
}

func TestLinearRegressionRankDeficient(t *testing.T) {
	// Two complementary one-hot columns sum to the intercept column.
	rng := rand.New(rand.NewPCG(1, 2))
	n := 60
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64() * 10
		hot := float64(i % 2)
		X.Set(i, 0, x)
		X.Set(i, 1, hot)
		X.Set(i, 2, 1-hot)
		y.Set(i, 0, 3*x+5*hot+2)
	}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 2, lr.Rank)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.InDelta(t, 3.0, lr.Weights[0], 1e-9)
	// minimum-norm split of the indicator effect
	assert.InDelta(t, 5.0, lr.Weights[1]-lr.Weights[2], 1e-9)
}

func TestLinearRegressionConstantFeatures(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 1, 1})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred.At(0, 0), 1e-12)
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	err = lr.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}), mat.NewDense(2, 1, []float64{1, 2}))
	var instab *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instab))

	require.NoError(t, lr.Fit(mat.NewDense(3, 2, []float64{1, 0, 2, 1, 3, 0}), mat.NewDense(3, 1, []float64{1, 2, 3})))
	_, err = lr.Predict(mat.NewDense(1, 3, nil))
	assert.True(t, errors.As(err, &dim))
}

func TestLinearRegressionParams(t *testing.T) {
	lr := NewLinearRegression()
	require.NoError(t, lr.SetParams(map[string]interface{}{"fit_intercept": false, "rcond": 1e-8}))
	assert.Equal(t, map[string]interface{}{"fit_intercept": false, "rcond": 1e-8}, lr.GetParams())

	var vErr *errors.ValidationError
	assert.True(t, errors.As(lr.SetParams(map[string]interface{}{"alpha": 1.0}), &vErr))
	assert.True(t, errors.As(lr.SetParams(map[string]interface{}{"fit_intercept": 1}), &vErr))
}

func TestLinearRegressionGobRoundTrip(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 2, 1, 3, 0, 4, 1})
	y := mat.NewDense(4, 1, []float64{1, 3, 3, 5})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	want, err := lr.Predict(X)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(lr, &buf))
	var loaded LinearRegression
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
