package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMedian       = "median"
	StrategyMean         = "mean"
	StrategyConstant     = "constant"
	StrategyMostFrequent = "most_frequent"
)

// MissingCategory is the fill value of the constant categorical strategy.
const MissingCategory = "missing"

// SimpleImputer replaces NaN in numeric columns with a per-column statistic
// learned from the non-missing training values.
type SimpleImputer struct {
	model.BaseEstimator

	Strategy   string
	Statistics []float64
}

// NewSimpleImputer creates a numeric imputer with the median or mean strategy.
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit learns one statistic per column.
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.Strategy != StrategyMedian && s.Strategy != StrategyMean {
		return errors.NewValidationError("strategy", "numeric imputer supports median and mean", s.Strategy)
	}

	s.Statistics = make([]float64, c)
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return errors.NewValueError("SimpleImputer.Fit", "a column has no observed values")
		}
		if s.Strategy == StrategyMean {
			s.Statistics[j] = stat.Mean(observed, nil)
		} else {
			s.Statistics[j] = median(observed)
		}
	}

	s.SetFitted()
	return nil
}

// Transform replaces NaN with the learned statistics.
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != len(s.Statistics) {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", len(s.Statistics), c, 1)
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return out, nil
}

// FitTransform fits on X and transforms it.
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// median sorts values in place and averages the two middle values of an even
// count.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// CategoricalImputer fills missing ("") categorical values, either with a
// constant or with the most frequent training value of each column.
type CategoricalImputer struct {
	model.BaseEstimator

	Strategy  string
	FillValue string
	Fills     []string
}

// NewCategoricalImputer creates an imputer. The constant strategy fills with
// MissingCategory.
func NewCategoricalImputer(strategy string) *CategoricalImputer {
	return &CategoricalImputer{Strategy: strategy, FillValue: MissingCategory}
}

// Fit learns the fill value of every column.
func (c *CategoricalImputer) Fit(cols [][]string) error {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return errors.NewModelError("CategoricalImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	c.Fills = make([]string, len(cols))
	for j, col := range cols {
		switch c.Strategy {
		case StrategyConstant:
			c.Fills[j] = c.FillValue
		case StrategyMostFrequent:
			c.Fills[j] = mostFrequent(col, c.FillValue)
		default:
			return errors.NewValidationError("strategy", "categorical imputer supports constant and most_frequent", c.Strategy)
		}
	}

	c.SetFitted()
	return nil
}

// Transform returns copies of cols with missing values filled.
func (c *CategoricalImputer) Transform(cols [][]string) ([][]string, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("CategoricalImputer", "Transform")
	}
	if len(cols) != len(c.Fills) {
		return nil, errors.NewDimensionError("CategoricalImputer.Transform", len(c.Fills), len(cols), 1)
	}

	out := make([][]string, len(cols))
	for j, col := range cols {
		filled := make([]string, len(col))
		for i, v := range col {
			if v == "" {
				v = c.Fills[j]
			}
			filled[i] = v
		}
		out[j] = filled
	}
	return out, nil
}

// mostFrequent returns the most common non-missing value. Ties go to the
// lexicographically smallest value; an all-missing column yields fallback.
func mostFrequent(col []string, fallback string) string {
	counts := make(map[string]int)
	for _, v := range col {
		if v != "" {
			counts[v]++
		}
	}
	best, bestCount := fallback, 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}
