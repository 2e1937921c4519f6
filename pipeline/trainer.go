package pipeline

import (
	"context"
	"math"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/dataset"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/modelselection"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
	"github.com/YuminosukeSato/examscore/preprocessing"
)

// DefaultMinScore is the lowest test R² a model may ship with.
const DefaultMinScore = 0.6

// ModelTrainerConfig controls model selection.
type ModelTrainerConfig struct {
	ArtifactsDir string
	// MinScore is the minimum acceptable test R² of the selected model.
	MinScore float64
	CVFolds  int
	// Workers bounds concurrent fold fits inside each grid search.
	Workers             int
	RandomState         uint64
	CategoricalStrategy string
	PlotScores          bool
	// Roster is searched in order. Empty means DefaultRoster(RandomState).
	Roster []modelselection.Candidate
}

// DefaultModelTrainerConfig returns the reference settings.
func DefaultModelTrainerConfig() ModelTrainerConfig {
	return ModelTrainerConfig{
		ArtifactsDir:        DefaultArtifactsDir,
		MinScore:            DefaultMinScore,
		CVFolds:             3,
		Workers:             runtime.NumCPU(),
		RandomState:         dataset.DefaultSeed,
		CategoricalStrategy: preprocessing.StrategyConstant,
		PlotScores:          true,
	}
}

// ModelPath returns the path of model.pkl.
func (c ModelTrainerConfig) ModelPath() string { return filepath.Join(c.ArtifactsDir, ModelFile) }

// PreprocessorPath returns the path of preprocessor.pkl.
func (c ModelTrainerConfig) PreprocessorPath() string {
	return filepath.Join(c.ArtifactsDir, PreprocessorFile)
}

// ReportPath returns the path of report.json.
func (c ModelTrainerConfig) ReportPath() string { return filepath.Join(c.ArtifactsDir, ReportFile) }

// PlotPath returns the path of scores.png.
func (c ModelTrainerConfig) PlotPath() string { return filepath.Join(c.ArtifactsDir, ScoresPlotFile) }

// TrainedModel is the selected candidate refit on the full training split,
// together with the preprocessor it was trained behind.
type TrainedModel struct {
	FitID        uuid.UUID
	Name         string
	Params       map[string]interface{}
	Model        model.Regressor
	Preprocessor *preprocessing.ColumnTransformer
	TestScore    float64
	CVScore      float64
}

// ModelTrainer runs model selection over a roster of candidates.
type ModelTrainer struct {
	Config ModelTrainerConfig
	Schema dataset.Schema

	logger log.Logger
}

// NewModelTrainer creates a trainer for the student schema.
func NewModelTrainer(cfg ModelTrainerConfig, logger log.Logger) *ModelTrainer {
	if logger == nil {
		logger = log.GetLoggerWithName("trainer")
	}
	if cfg.CVFolds < 2 {
		cfg.CVFolds = 3
	}
	return &ModelTrainer{
		Config: cfg,
		Schema: dataset.StudentSchema(),
		logger: logger.With(log.PhaseKey, log.PhaseTraining),
	}
}

func (t *ModelTrainer) roster() []modelselection.Candidate {
	if len(t.Config.Roster) > 0 {
		return t.Config.Roster
	}
	return DefaultRoster(t.Config.RandomState)
}

// SelectAndFit fits the preprocessor on train, grid-searches every candidate
// on the transformed training data and scores the refit winners on test.
// A candidate that errors or panics is excluded and the rest go on.
//
// The report is returned even when selection fails, so the caller can log
// and persist it. Failure to find a model scoring at least MinScore, or
// every candidate failing, yields NoAcceptableModelError.
func (t *ModelTrainer) SelectAndFit(ctx context.Context, train, test *dataset.Frame) (*TrainedModel, *ScoreReport, error) {
	trainX, trainY, err := train.SplitTarget(t.Schema.Target)
	if err != nil {
		return nil, nil, err
	}
	testX, testY, err := test.SplitTarget(t.Schema.Target)
	if err != nil {
		return nil, nil, err
	}

	opts := []preprocessing.Option{preprocessing.WithLogger(t.logger)}
	if t.Config.CategoricalStrategy != "" {
		opts = append(opts, preprocessing.WithCategoricalStrategy(t.Config.CategoricalStrategy))
	}
	pre := preprocessing.NewColumnTransformer(t.Schema.Numeric, t.Schema.Categorical, opts...)
	Xtr, err := pre.FitTransform(trainX)
	if err != nil {
		return nil, nil, err
	}
	Xte, err := pre.Transform(testX)
	if err != nil {
		return nil, nil, err
	}
	ytr := mat.NewDense(len(trainY), 1, trainY)
	yte := mat.NewDense(len(testY), 1, testY)

	roster := t.roster()
	report := &ScoreReport{Threshold: t.Config.MinScore}
	fitted := make(map[string]model.Regressor, len(roster))

	for _, c := range roster {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		logger := t.logger.With(log.ModelNameKey, c.Name)
		start := time.Now()

		var (
			res     *modelselection.SearchResult
			summary metrics.Summary
		)
		err := errors.SafeExecute("train "+c.Name, func() error {
			search := modelselection.NewGridSearchCV(c,
				modelselection.WithCV(modelselection.NewKFold(t.Config.CVFolds, false, 0)),
				modelselection.WithWorkers(t.Config.Workers),
				modelselection.WithLogger(logger),
			)
			var err error
			res, err = search.Fit(ctx, Xtr, ytr)
			if err != nil {
				return err
			}
			pred, err := res.BestEstimator.Predict(Xte)
			if err != nil {
				return err
			}
			if summary, err = metrics.Summarize(yte, pred); err != nil {
				return err
			}
			return errors.CheckScalar("score "+c.Name, summary.R2, 0)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, report, ctxErr
			}
			logger.Warn("Candidate excluded", err, log.ErrorTypeKey, "candidate_failed")
			report.Excluded = append(report.Excluded, Exclusion{Name: c.Name, Reason: err.Error()})
			continue
		}

		logger.Info("Candidate scored",
			log.R2ScoreKey, summary.R2,
			log.CVScoreKey, res.BestScore,
			log.CVStdKey, res.BestStd,
			log.HyperParamsKey, modelselection.FormatParams(res.BestParams),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		report.Entries = append(report.Entries, ScoreEntry{
			Name:    c.Name,
			TestR2:  summary.R2,
			CVScore: res.BestScore,
			CVStd:   res.BestStd,
			Params:  res.BestParams,
			Metrics: summary,
		})
		fitted[c.Name] = res.BestEstimator
	}

	best, ok := report.best()
	if !ok {
		return nil, report, errors.NewNoAcceptableModelError("", 0, t.Config.MinScore, report.Scores(), report.ExcludedReasons())
	}
	report.Best = best.Name
	report.BestScore = best.TestR2
	if best.TestR2 < t.Config.MinScore || math.IsNaN(best.TestR2) {
		return nil, report, errors.NewNoAcceptableModelError(best.Name, best.TestR2, t.Config.MinScore,
			report.Scores(), report.ExcludedReasons())
	}

	tm := &TrainedModel{
		FitID:        uuid.New(),
		Name:         best.Name,
		Params:       best.Params,
		Model:        fitted[best.Name],
		Preprocessor: pre,
		TestScore:    best.TestR2,
		CVScore:      best.CVScore,
	}
	report.FitID = tm.FitID.String()

	t.logger.Info("Best model selected",
		log.ModelNameKey, tm.Name,
		log.R2ScoreKey, tm.TestScore,
		log.ThresholdKey, t.Config.MinScore,
		log.FitIDKey, report.FitID,
	)
	return tm, report, nil
}

// InitiateTraining loads the train and test splits, selects a model and
// persists model.pkl, preprocessor.pkl, report.json and, when enabled,
// scores.png. The report is written even when selection fails.
func (t *ModelTrainer) InitiateTraining(ctx context.Context, trainPath, testPath string) (*TrainedModel, *ScoreReport, error) {
	train, err := dataset.LoadFrame(trainPath, t.Schema)
	if err != nil {
		return nil, nil, err
	}
	test, err := dataset.LoadFrame(testPath, t.Schema)
	if err != nil {
		return nil, nil, err
	}
	t.logger.Info("Loaded train and test data",
		log.TrainSamplesKey, train.Len(),
		log.TestSamplesKey, test.Len(),
	)

	tm, report, err := t.SelectAndFit(ctx, train, test)
	if report != nil {
		if werr := WriteReport(t.Config.ReportPath(), report); werr != nil {
			t.logger.Warn("Score report not written", werr, log.PathKey, t.Config.ReportPath())
		}
		if t.Config.PlotScores && len(report.Entries) > 0 {
			if perr := PlotScoreReport(report, t.Config.PlotPath()); perr != nil {
				t.logger.Warn("Score plot not written", perr, log.PathKey, t.Config.PlotPath())
			}
		}
	}
	if err != nil {
		return nil, report, err
	}

	if err := SaveArtifacts(tm, t.Config.ModelPath(), t.Config.PreprocessorPath()); err != nil {
		return nil, report, err
	}
	t.logger.Info("Artifacts saved",
		log.PathKey, t.Config.ArtifactsDir,
		log.FitIDKey, tm.FitID.String(),
	)
	return tm, report, nil
}
