package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

func TestVectorScores(t *testing.T) {
	tests := []struct {
		name         string
		yTrue, yPred []float64
		mse, mae, r2 float64
	}{
		{"exact", []float64{55, 65, 75}, []float64{55, 65, 75}, 0, 0, 1},
		{"close", []float64{60, 70, 80, 90}, []float64{62, 68, 80, 94}, 6, 2, 1 - 24.0/500},
		{"mean predictor", []float64{1, 2, 3}, []float64{2, 2, 2}, 2.0 / 3, 2.0 / 3, 0},
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, 8.0 / 3, 4.0 / 3, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yt := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yp := mat.NewVecDense(len(tt.yPred), tt.yPred)

			mse, err := MSE(yt, yp)
			require.NoError(t, err)
			assert.InDelta(t, tt.mse, mse, 1e-12)

			rmse, err := RMSE(yt, yp)
			require.NoError(t, err)
			assert.InDelta(t, math.Sqrt(tt.mse), rmse, 1e-12)

			mae, err := MAE(yt, yp)
			require.NoError(t, err)
			assert.InDelta(t, tt.mae, mae, 1e-12)

			r2, err := R2Score(yt, yp)
			require.NoError(t, err)
			assert.InDelta(t, tt.r2, r2, 1e-12)
		})
	}
}

func TestVectorScoresRejectBadPairs(t *testing.T) {
	scores := map[string]func(yTrue, yPred *mat.VecDense) (float64, error){
		"MSE": MSE, "RMSE": RMSE, "MAE": MAE, "R2Score": R2Score,
	}
	yTrue := mat.NewVecDense(3, []float64{70, 80, 90})

	for name, score := range scores {
		t.Run(name, func(t *testing.T) {
			_, err := score(&mat.VecDense{}, &mat.VecDense{})
			var ve *errors.ValueError
			assert.True(t, errors.As(err, &ve), "empty: %v", err)

			_, err = score(yTrue, mat.NewVecDense(2, []float64{70, 80}))
			var de *errors.DimensionError
			assert.True(t, errors.As(err, &de), "length: %v", err)

			for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				_, err = score(yTrue, mat.NewVecDense(3, []float64{70, bad, 90}))
				var ni *errors.NumericalInstabilityError
				require.True(t, errors.As(err, &ni), "non-finite %v: %v", bad, err)
				assert.Equal(t, 1, ni.Iteration)
			}
		})
	}
}

func TestR2ScoreZeroVariance(t *testing.T) {
	flat := mat.NewVecDense(3, []float64{72, 72, 72})
	_, err := R2Score(flat, mat.NewVecDense(3, []float64{70, 72, 74}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total sum of squares is zero")

	_, err = Summarize(mat.NewDense(3, 1, []float64{72, 72, 72}), mat.NewDense(3, 1, []float64{72, 72, 72}))
	assert.Error(t, err)
}

func TestMatrixShapes(t *testing.T) {
	col := mat.NewDense(3, 1, []float64{1, 2, 3})
	tests := []struct {
		name         string
		yTrue, yPred mat.Matrix
		dimension    bool
	}{
		{"empty", &mat.Dense{}, &mat.Dense{}, false},
		{"two columns", mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil), false},
		{"row mismatch", col, mat.NewDense(2, 1, nil), true},
		{"column mismatch", col, mat.NewDense(3, 2, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, score := range []func(a, b mat.Matrix) (float64, error){R2ScoreMatrix, MSEMatrix} {
				_, err := score(tt.yTrue, tt.yPred)
				if tt.dimension {
					var de *errors.DimensionError
					assert.True(t, errors.As(err, &de), "got %v", err)
				} else {
					var ve *errors.ValueError
					assert.True(t, errors.As(err, &ve), "got %v", err)
				}
			}
			_, err := Summarize(tt.yTrue, tt.yPred)
			assert.Error(t, err)
		})
	}
}

func TestSummarize(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	yPred := mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5})

	r2, err := R2ScoreMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, r2, 1e-12)

	mse, err := MSEMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, mse, 1e-12)

	s, err := Summarize(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, s.R2, 1e-12)
	assert.InDelta(t, 0.25, s.MSE, 1e-12)
	assert.InDelta(t, 0.5, s.RMSE, 1e-12)
	assert.InDelta(t, 0.5, s.MAE, 1e-12)
}

func TestSummarizeRejectsNaNPredictions(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{60, 70, 80})
	yPred := mat.NewDense(3, 1, []float64{math.NaN(), math.NaN(), math.NaN()})

	s, err := Summarize(yTrue, yPred)
	var ni *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &ni), "got %v", err)
	assert.Equal(t, Summary{}, s)

	_, err = R2ScoreMatrix(yTrue, yPred)
	assert.True(t, errors.As(err, &ni))
}
