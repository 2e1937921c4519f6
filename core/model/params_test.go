package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

func TestBindParams(t *testing.T) {
	var (
		depth   int
		rate    float64
		shuffle bool
		weights string
	)
	fields := map[string]interface{}{
		"max_depth":     &depth,
		"learning_rate": &rate,
		"shuffle":       &shuffle,
		"weights":       &weights,
	}

	err := BindParams("Tree", map[string]interface{}{
		"max_depth":     4.0,
		"learning_rate": 1,
		"shuffle":       true,
		"weights":       "distance",
	}, fields)
	require.NoError(t, err)
	assert.Equal(t, 4, depth)
	assert.Equal(t, 1.0, rate)
	assert.True(t, shuffle)
	assert.Equal(t, "distance", weights)

	require.NoError(t, BindParams("Tree", map[string]interface{}{"max_depth": int64(9)}, fields))
	assert.Equal(t, 9, depth)
}

func TestBindParamsRejects(t *testing.T) {
	var depth int
	var name string
	fields := map[string]interface{}{"max_depth": &depth, "name": &name}

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"unknown", map[string]interface{}{"max_leaves": 3}},
		{"fractional int", map[string]interface{}{"max_depth": 2.5}},
		{"wrong type", map[string]interface{}{"name": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BindParams("Tree", tt.params, fields)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestCheckFitInput(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	rows, cols, err := CheckFitInput("Fit", X, y)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []float64{1, 2, 3}, Column(y))

	_, _, err = CheckFitInput("Fit", X, mat.NewDense(2, 1, []float64{1, 2}))
	assert.Error(t, err)
	_, _, err = CheckFitInput("Fit", X, mat.NewDense(3, 2, nil))
	assert.Error(t, err)
}

func TestCheckPredictInput(t *testing.T) {
	X := mat.NewDense(2, 3, nil)

	_, err := CheckPredictInput("Predict", false, "Tree", X, 3)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = CheckPredictInput("Predict", true, "Tree", X, 2)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	rows, err := CheckPredictInput("Predict", true, "Tree", X, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}
