package model

import (
	"bufio"
	"encoding/gob"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Artifact kinds written by the trainer.
const (
	KindModel        = "model"
	KindPreprocessor = "preprocessor"
)

// ArtifactHeader is carried by every persisted object. The model and the
// preprocessor written by one training run share FitID.
type ArtifactHeader struct {
	FitID     uuid.UUID
	Kind      string
	CreatedAt time.Time
	// NFeatures is the model input width, or the preprocessor output width.
	NFeatures int
}

// NewArtifactHeader stamps a header with the current time.
func NewArtifactHeader(fitID uuid.UUID, kind string, nFeatures int) ArtifactHeader {
	return ArtifactHeader{
		FitID:     fitID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		NFeatures: nFeatures,
	}
}

// CheckPair verifies that a model header and a preprocessor header come from
// the same fit cycle and agree on the feature width.
func CheckPair(modelHeader, preprocessorHeader ArtifactHeader) error {
	if modelHeader.Kind != KindModel || preprocessorHeader.Kind != KindPreprocessor {
		return errors.NewConfigurationError(errors.PhaseInference,
			"artifact kinds are "+modelHeader.Kind+" and "+preprocessorHeader.Kind+", want model and preprocessor", nil)
	}
	if modelHeader.FitID != preprocessorHeader.FitID {
		return errors.NewConfigurationError(errors.PhaseInference,
			"model fit "+modelHeader.FitID.String()+" does not match preprocessor fit "+preprocessorHeader.FitID.String(), nil)
	}
	if modelHeader.NFeatures != preprocessorHeader.NFeatures {
		return errors.NewConfigurationError(errors.PhaseInference, "feature width mismatch",
			errors.NewDimensionError("CheckPair", modelHeader.NFeatures, preprocessorHeader.NFeatures, 1))
	}
	return nil
}

// WriteFileAtomic writes path through a temporary file in the same directory
// and renames it into place, so readers never observe a partial file. Parent
// directories are created as needed.
func WriteFileAtomic(path string, fn func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrapf(err, "flush %s", tmp.Name())
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}

// SaveModel gob-encodes obj to filename, replacing any existing file.
//
// Concrete types stored behind interface fields must be registered with
// gob.Register before saving.
//
// Example:
//
//	err := model.SaveModel(&artifact, "artifacts/model.pkl")
func SaveModel(obj interface{}, filename string) error {
	err := WriteFileAtomic(filename, func(w io.Writer) error {
		return SaveModelToWriter(obj, w)
	})
	if err != nil {
		return errors.Wrapf(err, "save artifact %s", filename)
	}
	return nil
}

// LoadModel decodes filename into obj, which must be a pointer.
// A missing or unreadable file yields ArtifactMissingError and a decode
// failure yields ArtifactCorruptError.
func LoadModel(obj interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.NewArtifactMissingError(filename, err)
		}
		return errors.NewArtifactMissingError(filename, errors.Wrap(err, "unreadable"))
	}
	defer file.Close()

	if err := LoadModelFromReader(obj, bufio.NewReader(file)); err != nil {
		return errors.NewArtifactCorruptError(filename, err)
	}
	return nil
}

// SaveModelToWriter gob-encodes obj to w.
func SaveModelToWriter(obj interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(obj); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader gob-decodes from r into obj.
func LoadModelFromReader(obj interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(obj); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
