package modelselection

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/core/parallel"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

// Factory builds a fresh, unfitted regressor.
type Factory func() model.Regressor

// Candidate is one entry of a model roster.
type Candidate struct {
	Name    string
	Factory Factory
	Grid    ParamGrid
}

// SearchResult holds every combination's CV outcome and the refitted winner.
type SearchResult struct {
	Results       []CVResult
	BestIndex     int
	BestParams    map[string]interface{}
	BestScore     float64
	BestStd       float64
	BestEstimator model.Regressor
}

// GridSearchCV evaluates every combination of Grid with cross-validation and
// refits the best one on the full data. Ties keep the earliest combination.
type GridSearchCV struct {
	Name    string
	Factory Factory
	Grid    ParamGrid
	CV      Splitter
	// Workers bounds concurrent fold fits. 0 means NumCPU.
	Workers int

	logger log.Logger
}

// SearchOption configures a GridSearchCV.
type SearchOption func(*GridSearchCV)

// WithCV sets the fold splitter.
func WithCV(cv Splitter) SearchOption { return func(g *GridSearchCV) { g.CV = cv } }

// WithWorkers bounds parallelism.
func WithWorkers(n int) SearchOption { return func(g *GridSearchCV) { g.Workers = n } }

// WithLogger injects a logger.
func WithLogger(l log.Logger) SearchOption { return func(g *GridSearchCV) { g.logger = l } }

// NewGridSearchCV creates a search with unshuffled 3-fold CV.
func NewGridSearchCV(c Candidate, opts ...SearchOption) *GridSearchCV {
	g := &GridSearchCV{
		Name:    c.Name,
		Factory: c.Factory,
		Grid:    c.Grid,
		CV:      NewKFold(3, false, 0),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *GridSearchCV) getLogger() log.Logger {
	if g.logger == nil {
		g.logger = log.GetLoggerWithName("modelselection")
	}
	return g.logger
}

// Fit runs the search. A combination whose fit or score fails in any fold is
// reported through errors.Warn as a FitFailedWarning and skipped. Fit fails
// when every combination fails or ctx is cancelled.
func (g *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) (*SearchResult, error) {
	if g.Factory == nil {
		return nil, errors.NewValueError("GridSearchCV.Fit", "no estimator factory")
	}
	n, _, err := model.CheckFitInput("GridSearchCV.Fit", X, y)
	if err != nil {
		return nil, err
	}
	nSplits := g.CV.GetNSplits()
	if n < nSplits {
		return nil, errors.NewValidationError("cv", fmt.Sprintf("cannot split %d samples into %d folds", n, nSplits), nSplits)
	}

	logger := g.getLogger().With(log.ModelNameKey, g.Name)
	start := time.Now()

	combos := g.Grid.Expand()
	folds := g.CV.Split(n)
	results := make([]CVResult, len(combos))
	foldErrs := make([][]error, len(combos))
	for i, c := range combos {
		results[i] = CVResult{Params: c, FoldScores: make([]float64, len(folds))}
		foldErrs[i] = make([]error, len(folds))
	}

	parallel.ForEach(len(combos)*len(folds), g.Workers, func(task int) {
		ci, fi := task/len(folds), task%len(folds)
		if err := ctx.Err(); err != nil {
			foldErrs[ci][fi] = err
			return
		}
		foldErrs[ci][fi] = errors.SafeExecute("fit "+g.Name, func() error {
			score, err := g.evaluate(combos[ci], X, y, folds[fi])
			results[ci].FoldScores[fi] = score
			return err
		})
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := -1
	for i := range results {
		for fi, e := range foldErrs[i] {
			if e != nil {
				results[i].Err = errors.Wrapf(e, "fold %d", fi)
				break
			}
		}
		if results[i].Err != nil {
			errors.Warn(errors.NewFitFailedWarning(g.Name, FormatParams(results[i].Params), results[i].Err))
			continue
		}
		mean := results[i].MeanScore()
		logger.Debug("Combination scored",
			log.HyperParamsKey, FormatParams(results[i].Params),
			log.CVScoreKey, mean,
		)
		if math.IsNaN(mean) {
			continue
		}
		if best < 0 || mean > results[best].MeanScore() {
			best = i
		}
	}
	if best < 0 {
		return nil, errors.NewModelError("GridSearchCV.Fit",
			fmt.Sprintf("all %d parameter combinations failed", len(combos)), results[0].Err)
	}

	res := &SearchResult{
		Results:    results,
		BestIndex:  best,
		BestParams: results[best].Params,
		BestScore:  results[best].MeanScore(),
		BestStd:    results[best].StdScore(),
	}

	est := g.Factory()
	if err := est.SetParams(res.BestParams); err != nil {
		return nil, err
	}
	if err := errors.SafeExecute("refit "+g.Name, func() error { return est.Fit(X, y) }); err != nil {
		return nil, errors.Wrap(err, "refit best combination")
	}
	res.BestEstimator = est

	logger.Info("Grid search complete",
		log.CombinationsKey, len(combos),
		log.FoldsKey, len(folds),
		log.HyperParamsKey, FormatParams(res.BestParams),
		log.CVScoreKey, res.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (g *GridSearchCV) evaluate(params map[string]interface{}, X, y mat.Matrix, f Fold) (float64, error) {
	est := g.Factory()
	if err := est.SetParams(params); err != nil {
		return 0, err
	}
	Xtr, ytr := TakeRows(X, y, f.TrainIndices)
	Xte, yte := TakeRows(X, y, f.TestIndices)
	if err := est.Fit(Xtr, ytr); err != nil {
		return 0, err
	}
	pred, err := est.Predict(Xte)
	if err != nil {
		return 0, err
	}
	score, err := metrics.R2ScoreMatrix(yte, pred)
	if err != nil {
		return 0, err
	}
	return score, errors.CheckScalar("GridSearchCV.evaluate", score, 0)
}
