package errors

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "examscore: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "examscore: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestPipelineErrorsCarryPhaseAndCause(t *testing.T) {
	cause := fs.ErrNotExist

	tests := []struct {
		name   string
		err    error
		phase  string
		substr string
	}{
		{
			name:   "configuration",
			err:    NewConfigurationError(PhaseTransform, "missing column \"lunch\"", cause),
			phase:  PhaseTransform,
			substr: "missing column",
		},
		{
			name:   "ingestion",
			err:    NewIngestionError(PhaseIngestion, "data/students.csv", cause),
			phase:  PhaseIngestion,
			substr: "data/students.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.phase)
			assert.Contains(t, tt.err.Error(), tt.substr)
			assert.True(t, Is(tt.err, fs.ErrNotExist), "cause must stay reachable through Unwrap")
		})
	}

	var cfgErr *ConfigurationError
	require.True(t, As(tests[0].err, &cfgErr))
	assert.Equal(t, PhaseTransform, cfgErr.Phase)

	var ingErr *IngestionError
	require.True(t, As(tests[1].err, &ingErr))
	assert.Equal(t, "data/students.csv", ingErr.Path)
}

func TestArtifactErrors(t *testing.T) {
	missing := NewArtifactMissingError("artifacts/model.pkl", fs.ErrNotExist)
	corrupt := NewArtifactCorruptError("artifacts/model.pkl", fmt.Errorf("unexpected EOF"))

	var missingErr *ArtifactMissingError
	require.True(t, As(missing, &missingErr))
	assert.Equal(t, "artifacts/model.pkl", missingErr.Path)
	assert.True(t, Is(missing, fs.ErrNotExist))

	var corruptErr *ArtifactCorruptError
	require.True(t, As(corrupt, &corruptErr))
	assert.False(t, As(corrupt, &missingErr))
	assert.Contains(t, corrupt.Error(), "corrupt")
}

func TestNoAcceptableModelError(t *testing.T) {
	t.Run("below threshold", func(t *testing.T) {
		err := NewNoAcceptableModelError("Decision Tree", 0.42, 0.6,
			map[string]float64{"Decision Tree": 0.42, "Linear Regression": 0.31}, nil)

		var target *NoAcceptableModelError
		require.True(t, As(err, &target))
		assert.Equal(t, "Decision Tree", target.BestModel)
		assert.Len(t, target.Scores, 2)
		assert.Contains(t, err.Error(), "below threshold 0.6000")
	})

	t.Run("all candidates failed", func(t *testing.T) {
		err := NewNoAcceptableModelError("", 0, 0.6, nil, map[string]string{
			"Random Forest":    "boom",
			"Gradient Boosting": "bang",
		})
		assert.Contains(t, err.Error(), "all 2 candidates failed")
		assert.Contains(t, err.Error(), "Gradient Boosting: bang; Random Forest: boom")
	})
}

func TestWarnUsesInstalledHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewFitFailedWarning("Decision Tree", "{max_depth: 4}", fmt.Errorf("empty fold")))

	require.Len(t, got, 1)
	var w *FitFailedWarning
	require.True(t, As(got[0], &w))
	assert.Equal(t, "Decision Tree", w.Estimator)
}

func TestCheckMatrix(t *testing.T) {
	m := stubMatrix{{1, 2}, {3, nan()}}
	err := CheckMatrix("predict", m, 2, 2, 0)
	require.Error(t, err)

	var instab *NumericalInstabilityError
	require.True(t, As(err, &instab))
	assert.Equal(t, "predict", instab.Operation)

	assert.NoError(t, CheckMatrix("predict", stubMatrix{{1, 2}}, 1, 2, 0))
}

type stubMatrix [][]float64

func (s stubMatrix) At(i, j int) float64 { return s[i][j] }

func nan() float64 {
	var zero float64
	return zero / zero
}
