package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "RandomForest.Fit")
		panic("index out of range")
	}

	err := fit()
	require.Error(t, err)

	var pe *PanicError
	require.True(t, As(err, &pe))
	assert.Equal(t, "RandomForest.Fit", pe.Operation)
	assert.Equal(t, "index out of range", pe.PanicValue)
	assert.NotEmpty(t, pe.StackTrace)
	assert.Equal(t, "panic in RandomForest.Fit: index out of range", pe.Error())
}

func TestRecoverNoPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "RandomForest.Fit")
		return nil
	}
	assert.NoError(t, fit())
}

func TestRecoverKeepsEarlierError(t *testing.T) {
	earlier := fmt.Errorf("bad fold")
	fit := func() (err error) {
		defer Recover(&err, "GridSearchCV.Fit")
		err = earlier
		panic("nil tree")
	}

	err := fit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in GridSearchCV.Fit")
	assert.Contains(t, err.Error(), "bad fold")
	assert.True(t, Is(err, earlier))
}

func TestSafeExecute(t *testing.T) {
	assert.NoError(t, SafeExecute("fit Linear Regression", func() error { return nil }))

	sentinel := fmt.Errorf("singular")
	assert.Same(t, sentinel, SafeExecute("fit Linear Regression", func() error { return sentinel }))

	err := SafeExecute("fit AdaBoost Regressor", func() error {
		var trees []int
		_ = trees[3]
		return nil
	})
	var pe *PanicError
	require.True(t, As(err, &pe))
	assert.Equal(t, "fit AdaBoost Regressor", pe.Operation)
	assert.True(t, Is(err, pe.PanicValue.(error)), "runtime errors stay reachable through Unwrap")
}

func TestPanicErrorString(t *testing.T) {
	pe := NewPanicError("Predictor.Predict", 42)
	assert.Equal(t, "panic in Predictor.Predict: 42", pe.Error())
	assert.Contains(t, pe.String(), "Stack trace:")
	assert.Contains(t, pe.String(), pe.Error())
	assert.Nil(t, pe.Unwrap())

	wrapped := NewPanicError("Predictor.Predict", ErrEmptyData)
	assert.True(t, Is(wrapped, ErrEmptyData))
}

func TestRecoverPanicValues(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"string", "boom", "boom"},
		{"int", 7, "7"},
		{"error", fmt.Errorf("wrapped"), "wrapped"},
		{"nil", nil, "panic called with nil argument"},
		{"struct", struct{ Stage int }{3}, "{3}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err, "stage")
				panic(tt.value)
			}
			var pe *PanicError
			require.True(t, As(f(), &pe))
			assert.Equal(t, tt.want, fmt.Sprintf("%v", pe.PanicValue))
		})
	}
}

func BenchmarkSafeExecuteNoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("bench", func() error { return nil })
	}
}
