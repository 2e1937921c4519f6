package model

// EstimatorState is the training state of an estimator.
type EstimatorState int

const (
	// NotFitted is the state of a freshly constructed estimator.
	NotFitted EstimatorState = iota
	// Fitted is the state after a successful Fit.
	Fitted
)

// BaseEstimator is embedded by every regressor. State is exported so that a
// gob-encoded model comes back fitted.
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted reports whether the estimator has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to the NotFitted state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
