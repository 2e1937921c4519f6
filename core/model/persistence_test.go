package model

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

type savedThing struct {
	Header  ArtifactHeader
	Weights []float64
	Base    BaseEstimator
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "model.pkl")

	in := savedThing{
		Header:  NewArtifactHeader(uuid.New(), KindModel, 3),
		Weights: []float64{1.5, -2, 0.25},
	}
	in.Base.SetFitted()

	require.NoError(t, SaveModel(&in, path))

	var out savedThing
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in.Header.FitID, out.Header.FitID)
	assert.Equal(t, in.Weights, out.Weights)
	assert.True(t, out.Base.IsFitted())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveModelOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")

	require.NoError(t, SaveModel(&savedThing{Weights: []float64{1}}, path))
	require.NoError(t, SaveModel(&savedThing{Weights: []float64{2, 3}}, path))

	var out savedThing
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, []float64{2, 3}, out.Weights)
}

func TestLoadModelMissing(t *testing.T) {
	var out savedThing
	err := LoadModel(&out, filepath.Join(t.TempDir(), "absent.pkl"))

	var missing *errors.ArtifactMissingError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Path, "absent.pkl")
}

func TestLoadModelCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gob"), 0o644))

	var out savedThing
	err := LoadModel(&out, path)

	var corrupt *errors.ArtifactCorruptError
	require.True(t, errors.As(err, &corrupt))
}

func TestWriteFileAtomicKeepsOldFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "half")
		return errors.New("disk full")
	})
	require.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(data))

	entries, _ := os.ReadDir(filepath.Dir(path))
	assert.Len(t, entries, 1)
}

func TestCheckPair(t *testing.T) {
	fit := uuid.New()

	tests := []struct {
		name    string
		model   ArtifactHeader
		pre     ArtifactHeader
		wantErr bool
	}{
		{"same fit", NewArtifactHeader(fit, KindModel, 20), NewArtifactHeader(fit, KindPreprocessor, 20), false},
		{"different fit", NewArtifactHeader(fit, KindModel, 20), NewArtifactHeader(uuid.New(), KindPreprocessor, 20), true},
		{"width mismatch", NewArtifactHeader(fit, KindModel, 20), NewArtifactHeader(fit, KindPreprocessor, 19), true},
		{"swapped kinds", NewArtifactHeader(fit, KindPreprocessor, 20), NewArtifactHeader(fit, KindModel, 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPair(tt.model, tt.pre)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *errors.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("ColumnTransformer", "Transform")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))

	s.SetFitted(20, 800)
	assert.NoError(t, s.RequireFitted("ColumnTransformer", "Transform"))
	width, samples := s.GetDimensions()
	assert.Equal(t, 20, width)
	assert.Equal(t, 800, samples)

	s.Reset()
	assert.False(t, s.IsFitted())
}
