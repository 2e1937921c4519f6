package model

import "gonum.org/v1/gonum/mat"

// Transformer is a numeric preprocessing step.
type Transformer interface {
	// Fit learns the statistics needed by Transform.
	Fit(X mat.Matrix) error

	// Transform applies the learned statistics to X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform is Fit followed by Transform on the same data.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
