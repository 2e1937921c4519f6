package pipeline

import (
	"math"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/examscore/dataset"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

// CustomData is one inference request: the seven feature fields of a
// student record.
type CustomData struct {
	Gender                   string  `json:"gender"`
	RaceEthnicity            string  `json:"race_ethnicity"`
	ParentalLevelOfEducation string  `json:"parental_level_of_education"`
	Lunch                    string  `json:"lunch"`
	TestPreparationCourse    string  `json:"test_preparation_course"`
	ReadingScore             float64 `json:"reading_score"`
	WritingScore             float64 `json:"writing_score"`
}

// ToFrame returns a one-row frame without a target column.
func (c CustomData) ToFrame() *dataset.Frame {
	return dataset.FrameFromRecords([]dataset.Record{c.Record()}, false)
}

// Record converts c into a dataset.Record with a zero target.
func (c CustomData) Record() dataset.Record {
	return dataset.Record{
		Gender:                   c.Gender,
		RaceEthnicity:            c.RaceEthnicity,
		ParentalLevelOfEducation: c.ParentalLevelOfEducation,
		Lunch:                    c.Lunch,
		TestPreparationCourse:    c.TestPreparationCourse,
		ReadingScore:             c.ReadingScore,
		WritingScore:             c.WritingScore,
	}
}

// Predictor holds a loaded model and preprocessor pair. It is read-only and
// safe for concurrent use.
type Predictor struct {
	model  *ModelArtifact
	pre    *PreprocessorArtifact
	logger log.Logger
}

// LoadPredictor loads and validates the artifact pair once.
func LoadPredictor(modelPath, preprocessorPath string, logger log.Logger) (*Predictor, error) {
	if logger == nil {
		logger = log.GetLoggerWithName("predictor")
	}
	m, pre, err := LoadArtifacts(modelPath, preprocessorPath)
	if err != nil {
		return nil, err
	}
	logger = logger.With(log.PhaseKey, log.PhaseInference)
	logger.Info("Artifacts loaded",
		log.ModelNameKey, m.Name,
		log.FitIDKey, m.Header.FitID.String(),
		log.FeaturesKey, m.Header.NFeatures,
	)
	return &Predictor{model: m, pre: pre, logger: logger}, nil
}

// ModelName returns the roster name of the loaded model.
func (p *Predictor) ModelName() string { return p.model.Name }

// FitID returns the fit cycle shared by the loaded artifacts.
func (p *Predictor) FitID() string { return p.model.Header.FitID.String() }

// TrainedAt returns when the model artifact was written.
func (p *Predictor) TrainedAt() time.Time { return p.model.Header.CreatedAt }

// Predict transforms frame and returns one prediction per row.
func (p *Predictor) Predict(frame *dataset.Frame) ([]float64, error) {
	X, err := p.pre.Transformer.Transform(frame)
	if err != nil {
		return nil, err
	}
	out, err := p.model.Model.Predict(X)
	if err != nil {
		var de *errors.DimensionError
		if errors.As(err, &de) {
			return nil, errors.NewConfigurationError(errors.PhaseInference,
				"model "+p.model.Name+" and preprocessor disagree on feature width", err)
		}
		return nil, errors.NewModelError("Predictor.Predict", "predict", err)
	}
	rows, _ := out.Dims()
	preds := make([]float64, rows)
	for i := range preds {
		preds[i] = out.At(i, 0)
	}
	for i, v := range preds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewNumericalInstabilityError("Predictor.Predict", []float64{v}, i)
		}
	}
	p.logger.Debug("Predicted", log.PredsKey, rows)
	return preds, nil
}

// PredictOne predicts a single request.
func (p *Predictor) PredictOne(c CustomData) (float64, error) {
	preds, err := p.Predict(c.ToFrame())
	if err != nil {
		return 0, err
	}
	return preds[0], nil
}

// PredictPipeline loads the artifacts on every call, so it always serves
// the most recently trained pair.
type PredictPipeline struct {
	ModelPath        string
	PreprocessorPath string

	logger log.Logger
}

// NewPredictPipeline reads model.pkl and preprocessor.pkl from dir.
func NewPredictPipeline(dir string, logger log.Logger) *PredictPipeline {
	return &PredictPipeline{
		ModelPath:        filepath.Join(dir, ModelFile),
		PreprocessorPath: filepath.Join(dir, PreprocessorFile),
		logger:           logger,
	}
}

// Predict loads the artifacts and predicts every row of frame.
func (pp *PredictPipeline) Predict(frame *dataset.Frame) ([]float64, error) {
	p, err := LoadPredictor(pp.ModelPath, pp.PreprocessorPath, pp.logger)
	if err != nil {
		return nil, err
	}
	return p.Predict(frame)
}
