// Package errors provides the error taxonomy and warning system shared by every
// examscore package. Structured error types carry the pipeline phase and the
// originating cause, and cockroachdb/errors attaches stack traces.
package errors

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("examscore-warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the process-wide warning handler.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a structured warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The zerolog sink wins when installed.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// FitFailedWarning is raised when one hyperparameter combination fails to fit
// during a search. The combination is scored as unusable and the search goes on.
type FitFailedWarning struct {
	Estimator string
	Params    string
	Err       error
}

func (w *FitFailedWarning) Error() string {
	return fmt.Sprintf("%s failed to fit with params %s: %v", w.Estimator, w.Params, w.Err)
}

func (w *FitFailedWarning) Unwrap() error { return w.Err }

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *FitFailedWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("estimator", w.Estimator).
		Str("params", w.Params).
		AnErr("cause", w.Err).
		Str("type", "FitFailedWarning")
}

// NewFitFailedWarning creates a FitFailedWarning.
func NewFitFailedWarning(estimator, params string, err error) *FitFailedWarning {
	return &FitFailedWarning{Estimator: estimator, Params: params, Err: err}
}

// ===========================================================================
//
//	Estimator errors
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("examscore: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError reports a shape mismatch on one axis.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("examscore: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError reports an invalid hyperparameter or option value.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("examscore: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError reports an argument with an unusable value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("examscore: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is a general estimator failure.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("examscore: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("examscore: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	Pipeline errors
//
// ===========================================================================

// Pipeline phases used as error context.
const (
	PhaseIngestion = "ingestion"
	PhaseTransform = "transformation"
	PhaseTraining  = "training"
	PhasePersist   = "persistence"
	PhaseInference = "inference"
	PhaseConfig    = "configuration"
)

// ConfigurationError reports a schema or shape mismatch: a frame missing
// required columns, an unfit transformer, or a transformer/model pair that
// did not come from the same fit cycle.
type ConfigurationError struct {
	Phase  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("examscore: configuration error during %s: %s: %v", e.Phase, e.Reason, e.Err)
	}
	return fmt.Sprintf("examscore: configuration error during %s: %s", e.Phase, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("phase", e.Phase).
		Str("reason", e.Reason).
		AnErr("cause", e.Err).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(phase, reason string, err error) error {
	return errors.WithStack(&ConfigurationError{Phase: phase, Reason: reason, Err: err})
}

// IngestionError reports an I/O or parse failure on raw or split data.
type IngestionError struct {
	Phase string
	Path  string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("examscore: ingestion failed during %s for %q: %v", e.Phase, e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *IngestionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("phase", e.Phase).
		Str("path", e.Path).
		AnErr("cause", e.Err).
		Str("type", "IngestionError")
}

// NewIngestionError creates an IngestionError with a stack trace.
func NewIngestionError(phase, path string, err error) error {
	return errors.WithStack(&IngestionError{Phase: phase, Path: path, Err: err})
}

// NoAcceptableModelError is returned when no candidate reached the minimum
// score, or when every candidate failed. Scores and Excluded carry the full
// score report so the failure can be diagnosed from the log alone.
type NoAcceptableModelError struct {
	BestModel string
	BestScore float64
	Threshold float64
	Scores    map[string]float64
	Excluded  map[string]string
}

func (e *NoAcceptableModelError) Error() string {
	if e.BestModel == "" {
		return fmt.Sprintf("examscore: no acceptable model: all %d candidates failed (%s)", len(e.Excluded), joinSorted(e.Excluded))
	}
	return fmt.Sprintf("examscore: no acceptable model: best %s scored %.4f, below threshold %.4f",
		e.BestModel, e.BestScore, e.Threshold)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NoAcceptableModelError) MarshalZerologObject(event *zerolog.Event) {
	scores := zerolog.Dict()
	for name, s := range e.Scores {
		scores.Float64(name, s)
	}
	excluded := zerolog.Dict()
	for name, reason := range e.Excluded {
		excluded.Str(name, reason)
	}
	event.Str("best_model", e.BestModel).
		Float64("best_score", e.BestScore).
		Float64("threshold", e.Threshold).
		Dict("scores", scores).
		Dict("excluded", excluded).
		Str("type", "NoAcceptableModelError")
}

// NewNoAcceptableModelError creates a NoAcceptableModelError with a stack trace.
func NewNoAcceptableModelError(best string, bestScore, threshold float64, scores map[string]float64, excluded map[string]string) error {
	return errors.WithStack(&NoAcceptableModelError{
		BestModel: best,
		BestScore: bestScore,
		Threshold: threshold,
		Scores:    scores,
		Excluded:  excluded,
	})
}

// ArtifactMissingError is returned when a persisted artifact does not exist.
type ArtifactMissingError struct {
	Path string
	Err  error
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("examscore: artifact %q is missing: %v", e.Path, e.Err)
}

func (e *ArtifactMissingError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ArtifactMissingError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		AnErr("cause", e.Err).
		Str("type", "ArtifactMissingError")
}

// NewArtifactMissingError creates an ArtifactMissingError with a stack trace.
func NewArtifactMissingError(path string, err error) error {
	return errors.WithStack(&ArtifactMissingError{Path: path, Err: err})
}

// ArtifactCorruptError is returned when an artifact exists but cannot be decoded.
type ArtifactCorruptError struct {
	Path string
	Err  error
}

func (e *ArtifactCorruptError) Error() string {
	return fmt.Sprintf("examscore: artifact %q is corrupt: %v", e.Path, e.Err)
}

func (e *ArtifactCorruptError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ArtifactCorruptError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		AnErr("cause", e.Err).
		Str("type", "ArtifactCorruptError")
}

// NewArtifactCorruptError creates an ArtifactCorruptError with a stack trace.
func NewArtifactCorruptError(path string, err error) error {
	return errors.WithStack(&ArtifactCorruptError{Path: path, Err: err})
}

func joinSorted(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + m[k]
	}
	return strings.Join(parts, "; ")
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to err.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Numerical errors
//
// ===========================================================================

// NumericalInstabilityError reports NaN or Inf values produced by a computation.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	var b strings.Builder
	for i, v := range e.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= 5 {
			b.WriteString("...")
			break
		}
		fmt.Fprintf(&b, "%.6g", v)
	}
	return fmt.Sprintf("examscore: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, b.String())
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

var (
	// ErrEmptyData is returned when an estimator receives no rows.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a linear system has no usable solution.
	ErrSingularMatrix = New("singular matrix")
)
