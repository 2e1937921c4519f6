package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// synthetic returns y = 3*x0 - 2*x1 + sin(x2) + noise.
func synthetic(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0, x1, x2 := rng.Float64()*4, rng.Float64()*4, rng.Float64()*6
		X.SetRow(i, []float64{x0, x1, x2})
		y.Set(i, 0, 3*x0-2*x1+math.Sin(x2)+0.1*rng.NormFloat64())
	}
	return X, y
}

type regressor interface {
	model.Regressor
	Score(X, y mat.Matrix) (float64, error)
}

func TestEnsemblesLearn(t *testing.T) {
	Xtr, ytr := synthetic(300, 1)
	Xte, yte := synthetic(100, 2)

	tests := []struct {
		name    string
		est     regressor
		minTest float64
	}{
		{"random forest", NewRandomForestRegressor(WithNEstimators(20), WithForestRandomState(42)), 0.8},
		{"gradient boosting", NewGradientBoostingRegressor(WithBoostingEstimators(100), WithBoostingRandomState(42)), 0.9},
		{"stochastic gradient boosting", NewGradientBoostingRegressor(WithSubsample(0.8), WithBoostingRandomState(42)), 0.9},
		{"adaboost", NewAdaBoostRegressor(WithAdaBoostEstimators(30), WithAdaBoostRandomState(42)), 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.est.Fit(Xtr, ytr))
			assert.True(t, tt.est.IsFitted())

			score, err := tt.est.Score(Xte, yte)
			require.NoError(t, err)
			assert.Greater(t, score, tt.minTest)
		})
	}
}

func TestRandomForestParallelismIndependent(t *testing.T) {
	X, y := synthetic(120, 3)

	serial := NewRandomForestRegressor(WithNEstimators(8), WithNJobs(1), WithForestRandomState(7))
	par := NewRandomForestRegressor(WithNEstimators(8), WithNJobs(4), WithForestRandomState(7))
	require.NoError(t, serial.Fit(X, y))
	require.NoError(t, par.Fit(X, y))

	a, err := serial.Predict(X)
	require.NoError(t, err)
	b, err := par.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
}

func TestRandomForestWithoutBootstrapMatchesSingleTree(t *testing.T) {
	X, y := synthetic(60, 4)
	f := NewRandomForestRegressor(WithNEstimators(3), WithBootstrap(false))
	require.NoError(t, f.Fit(X, y))

	// all trees see the same rows and all features
	assert.Equal(t, f.Trees[0].Nodes, f.Trees[1].Nodes)
	assert.Equal(t, f.Trees[1].Nodes, f.Trees[2].Nodes)
}

func TestGradientBoostingSingleStage(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{0, 0, 10, 10})

	g := NewGradientBoostingRegressor(WithBoostingEstimators(1), WithLearningRate(0.5), WithBoostingMaxDepth(1))
	require.NoError(t, g.Fit(X, y))
	assert.InDelta(t, 5.0, g.Init, 1e-12)

	pred, err := g.Predict(X)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 7.5, pred.At(3, 0), 1e-12)
}

func TestAdaBoostPerfectStageStops(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 1, 1, 1})

	a := NewAdaBoostRegressor(WithAdaBoostEstimators(10))
	require.NoError(t, a.Fit(X, y))
	assert.Len(t, a.Trees, 1)
	assert.Equal(t, []float64{1}, a.Weights)

	pred, err := a.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
}

func TestAdaBoostLosses(t *testing.T) {
	X, y := synthetic(150, 5)
	for _, loss := range []string{LossLinear, LossSquare, LossExponential} {
		t.Run(loss, func(t *testing.T) {
			a := NewAdaBoostRegressor(WithLoss(loss), WithAdaBoostEstimators(10), WithAdaBoostRandomState(1))
			require.NoError(t, a.Fit(X, y))
			assert.NotEmpty(t, a.Trees)
			assert.Len(t, a.Weights, len(a.Trees))
			for _, e := range a.Errors {
				assert.Less(t, e, 0.5)
			}
		})
	}
}

func TestEnsembleValidation(t *testing.T) {
	X, y := synthetic(20, 6)
	var ve *errors.ValidationError

	assert.True(t, errors.As(NewRandomForestRegressor(WithNEstimators(0)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewGradientBoostingRegressor(WithSubsample(1.5)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewGradientBoostingRegressor(WithLearningRate(0)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewAdaBoostRegressor(WithLoss("huber")).Fit(X, y), &ve))

	var nf *errors.NotFittedError
	_, err := NewAdaBoostRegressor().Predict(X)
	assert.True(t, errors.As(err, &nf))
}

func TestEnsembleSetParams(t *testing.T) {
	g := NewGradientBoostingRegressor()
	require.NoError(t, g.SetParams(map[string]interface{}{
		"learning_rate": 0.05,
		"subsample":     0.8,
		"n_estimators":  float64(64),
	}))
	assert.Equal(t, 0.05, g.LearningRate)
	assert.Equal(t, 0.8, g.Subsample)
	assert.Equal(t, 64, g.NEstimators)

	f := NewRandomForestRegressor()
	require.NoError(t, f.SetParams(map[string]interface{}{"n_estimators": 16, "random_state": 42}))
	assert.Equal(t, 16, f.NEstimators)
	assert.Equal(t, uint64(42), f.RandomState)

	a := NewAdaBoostRegressor()
	require.NoError(t, a.SetParams(map[string]interface{}{"learning_rate": 0.5, "loss": "square"}))
	assert.Equal(t, 0.5, a.GetParams()["learning_rate"])
	assert.Equal(t, LossSquare, a.Loss)

	var ve *errors.ValidationError
	assert.True(t, errors.As(a.SetParams(map[string]interface{}{"loss": 3}), &ve))
}

func TestEnsembleGobRoundTrip(t *testing.T) {
	X, y := synthetic(80, 8)
	f := NewRandomForestRegressor(WithNEstimators(4))
	require.NoError(t, f.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(f))
	var back RandomForestRegressor
	require.NoError(t, gob.NewDecoder(&buf).Decode(&back))

	want, err := f.Predict(X)
	require.NoError(t, err)
	got, err := back.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
