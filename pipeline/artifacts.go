package pipeline

import (
	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/preprocessing"
)

// ModelArtifact is the gob payload of model.pkl.
type ModelArtifact struct {
	Header ArtifactHeader
	Name   string
	Params map[string]interface{}
	Model  model.Regressor
}

// PreprocessorArtifact is the gob payload of preprocessor.pkl.
type PreprocessorArtifact struct {
	Header      ArtifactHeader
	Transformer *preprocessing.ColumnTransformer
}

// ArtifactHeader is re-exported for callers that only import pipeline.
type ArtifactHeader = model.ArtifactHeader

// SaveArtifacts writes the preprocessor and then the model. Both carry the
// FitID of tm.
func SaveArtifacts(tm *TrainedModel, modelPath, preprocessorPath string) error {
	if tm == nil || tm.Model == nil || tm.Preprocessor == nil {
		return errors.NewValueError("SaveArtifacts", "nothing to save")
	}
	width := tm.Preprocessor.NOutputs()

	pre := PreprocessorArtifact{
		Header:      model.NewArtifactHeader(tm.FitID, model.KindPreprocessor, width),
		Transformer: tm.Preprocessor,
	}
	if err := model.SaveModel(&pre, preprocessorPath); err != nil {
		return err
	}

	m := ModelArtifact{
		Header: model.NewArtifactHeader(tm.FitID, model.KindModel, width),
		Name:   tm.Name,
		Params: tm.Params,
		Model:  tm.Model,
	}
	return model.SaveModel(&m, modelPath)
}

// LoadArtifacts reads both artifacts and checks that they belong together.
func LoadArtifacts(modelPath, preprocessorPath string) (*ModelArtifact, *PreprocessorArtifact, error) {
	var m ModelArtifact
	if err := model.LoadModel(&m, modelPath); err != nil {
		return nil, nil, err
	}
	var pre PreprocessorArtifact
	if err := model.LoadModel(&pre, preprocessorPath); err != nil {
		return nil, nil, err
	}
	if m.Model == nil {
		return nil, nil, errors.NewArtifactCorruptError(modelPath, errors.New("no model in artifact"))
	}
	if pre.Transformer == nil {
		return nil, nil, errors.NewArtifactCorruptError(preprocessorPath, errors.New("no transformer in artifact"))
	}
	if err := model.CheckPair(m.Header, pre.Header); err != nil {
		return nil, nil, err
	}
	if got := pre.Transformer.NOutputs(); got != pre.Header.NFeatures {
		return nil, nil, errors.NewConfigurationError(errors.PhaseInference, "preprocessor width differs from its header",
			errors.NewDimensionError("LoadArtifacts", pre.Header.NFeatures, got, 1))
	}
	return &m, &pre, nil
}
