package pipeline

import (
	"encoding/gob"
	"sort"
	"strings"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/linear"
	"github.com/YuminosukeSato/examscore/modelselection"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/sklearn/ensemble"
	"github.com/YuminosukeSato/examscore/sklearn/neighbors"
	"github.com/YuminosukeSato/examscore/sklearn/tree"
)

// Roster names.
const (
	LinearRegressionName = "Linear Regression"
	DecisionTreeName     = "Decision Tree"
	RandomForestName     = "Random Forest"
	GradientBoostingName = "Gradient Boosting"
	KNeighborsName       = "K-Neighbors Regressor"
	AdaBoostName         = "AdaBoost Regressor"
)

func init() {
	// model.pkl stores the winner behind the model.Regressor interface.
	gob.Register(&linear.LinearRegression{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
	gob.Register(&ensemble.AdaBoostRegressor{})
	gob.Register(&neighbors.KNeighborsRegressor{})
}

type rosterEntry struct {
	name    string
	factory func(seed uint64) model.Regressor
	grid    modelselection.ParamGrid
}

var defaultRoster = []rosterEntry{
	{
		name:    LinearRegressionName,
		factory: func(uint64) model.Regressor { return linear.NewLinearRegression() },
		grid:    modelselection.ParamGrid{},
	},
	{
		name: DecisionTreeName,
		factory: func(seed uint64) model.Regressor {
			return tree.NewDecisionTreeRegressor(tree.WithRandomState(seed))
		},
		grid: modelselection.ParamGrid{
			"max_depth":        {0, 4, 8},
			"min_samples_leaf": {1, 5},
		},
	},
	{
		name: RandomForestName,
		factory: func(seed uint64) model.Regressor {
			return ensemble.NewRandomForestRegressor(ensemble.WithForestRandomState(seed))
		},
		grid: modelselection.ParamGrid{
			"n_estimators": {16, 32, 64},
		},
	},
	{
		name: GradientBoostingName,
		factory: func(seed uint64) model.Regressor {
			return ensemble.NewGradientBoostingRegressor(ensemble.WithBoostingRandomState(seed))
		},
		grid: modelselection.ParamGrid{
			"learning_rate": {0.1, 0.05, 0.01},
			"subsample":     {0.8, 1.0},
			"n_estimators":  {32, 64, 128},
		},
	},
	{
		name:    KNeighborsName,
		factory: func(uint64) model.Regressor { return neighbors.NewKNeighborsRegressor() },
		grid: modelselection.ParamGrid{
			"n_neighbors": {5, 7, 9, 11},
		},
	},
	{
		name: AdaBoostName,
		factory: func(seed uint64) model.Regressor {
			return ensemble.NewAdaBoostRegressor(ensemble.WithAdaBoostRandomState(seed))
		},
		grid: modelselection.ParamGrid{
			"learning_rate": {0.1, 0.5, 1.0},
			"n_estimators":  {16, 32, 64},
		},
	},
}

// DefaultRoster returns the six default candidates in selection order. Every
// seeded estimator is built with randomState.
func DefaultRoster(randomState uint64) []modelselection.Candidate {
	out := make([]modelselection.Candidate, len(defaultRoster))
	for i, e := range defaultRoster {
		out[i] = candidate(e, e.grid, randomState)
	}
	return out
}

// RosterOverride selects a default candidate by name and optionally replaces
// its grid.
type RosterOverride struct {
	Name string
	Grid map[string][]interface{}
}

// BuildRoster returns the candidates named by overrides, in override order.
// An override without a grid keeps the default grid. No overrides means the
// default roster.
func BuildRoster(overrides []RosterOverride, randomState uint64) ([]modelselection.Candidate, error) {
	if len(overrides) == 0 {
		return DefaultRoster(randomState), nil
	}
	byName := make(map[string]rosterEntry, len(defaultRoster))
	for _, e := range defaultRoster {
		byName[strings.ToLower(e.name)] = e
	}

	seen := make(map[string]bool, len(overrides))
	out := make([]modelselection.Candidate, 0, len(overrides))
	for _, o := range overrides {
		key := strings.ToLower(strings.TrimSpace(o.Name))
		e, ok := byName[key]
		if !ok {
			return nil, errors.NewConfigurationError(errors.PhaseConfig,
				"unknown roster candidate "+o.Name+" (valid: "+strings.Join(KnownCandidates(), ", ")+")", nil)
		}
		if seen[key] {
			return nil, errors.NewConfigurationError(errors.PhaseConfig, "duplicate roster candidate "+o.Name, nil)
		}
		seen[key] = true

		grid := e.grid
		if o.Grid != nil {
			grid = modelselection.ParamGrid(o.Grid)
		}
		out = append(out, candidate(e, grid, randomState))
	}
	return out, nil
}

// KnownCandidates lists the roster names in sorted order.
func KnownCandidates() []string {
	names := make([]string, len(defaultRoster))
	for i, e := range defaultRoster {
		names[i] = e.name
	}
	sort.Strings(names)
	return names
}

func candidate(e rosterEntry, grid modelselection.ParamGrid, seed uint64) modelselection.Candidate {
	factory := e.factory
	return modelselection.Candidate{
		Name:    e.name,
		Factory: func() model.Regressor { return factory(seed) },
		Grid:    grid,
	}
}
