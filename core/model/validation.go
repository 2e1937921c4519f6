package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// CheckFitInput validates the shapes passed to Fit and returns the
// dimensions of X.
func CheckFitInput(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	ry, cy := y.Dims()
	if ry != rows {
		return 0, 0, errors.NewDimensionError(op, rows, ry, 0)
	}
	if cy != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	if err := errors.CheckMatrix(op, X, rows, cols, 0); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// CheckPredictInput validates X against the width seen during Fit.
func CheckPredictInput(op string, fitted bool, name string, X mat.Matrix, nFeatures int) (rows int, err error) {
	if !fitted {
		return 0, errors.NewNotFittedError(name, "Predict")
	}
	rows, cols := X.Dims()
	if cols != nFeatures {
		return 0, errors.NewDimensionError(op, nFeatures, cols, 1)
	}
	return rows, nil
}

// Column copies the single column of y into a slice.
func Column(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}
