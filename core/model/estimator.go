package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that can be trained.
type Fitter interface {
	// Fit trains the model on X (n_samples × n_features) and the column vector y.
	Fit(X, y mat.Matrix) error
}

// Predictor is a model that can predict.
type Predictor interface {
	// Predict returns an n_samples × 1 matrix of predictions.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter exposes hyperparameters.
type ParameterGetter interface {
	// GetParams returns the hyperparameters keyed by their snake_case name.
	GetParams() map[string]interface{}
}

// ParameterSetter allows hyperparameters to be changed before Fit.
type ParameterSetter interface {
	// SetParams updates the named hyperparameters. Unknown names and values of
	// the wrong type are rejected with a ValidationError.
	SetParams(params map[string]interface{}) error
}

// Regressor is what a grid search can tune and what the artifact store persists.
type Regressor interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter
	IsFitted() bool
}
