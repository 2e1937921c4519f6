package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// OneHotEncoder expands categorical columns into indicator columns.
// Categories are kept in the order first observed during Fit, and a value
// never seen during Fit encodes as all zeros for its column.
type OneHotEncoder struct {
	model.BaseEstimator

	Categories [][]string
	Index      []map[string]int
}

// NewOneHotEncoder creates an encoder that ignores unknown categories.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit records the categories of every column.
func (e *OneHotEncoder) Fit(cols [][]string) error {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	e.Categories = make([][]string, len(cols))
	e.Index = make([]map[string]int, len(cols))
	for j, col := range cols {
		idx := make(map[string]int)
		var cats []string
		for _, v := range col {
			if _, seen := idx[v]; !seen {
				idx[v] = len(cats)
				cats = append(cats, v)
			}
		}
		e.Categories[j] = cats
		e.Index[j] = idx
	}

	e.SetFitted()
	return nil
}

// NOutputs returns the number of indicator columns.
func (e *OneHotEncoder) NOutputs() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Transform encodes cols into an n_rows × NOutputs matrix.
func (e *OneHotEncoder) Transform(cols [][]string) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(cols) != len(e.Categories) {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.Categories), len(cols), 1)
	}

	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(len(cols[0]), e.NOutputs(), nil)
	offset := 0
	for j, col := range cols {
		for i, v := range col {
			if k, ok := e.Index[j][v]; ok {
				out.Set(i, offset+k, 1)
			}
		}
		offset += len(e.Categories[j])
	}
	return out, nil
}

// FeatureNames returns "<column>_<category>" for every indicator column.
func (e *OneHotEncoder) FeatureNames(columns []string) []string {
	names := make([]string, 0, e.NOutputs())
	for j, cats := range e.Categories {
		for _, c := range cats {
			names = append(names, columns[j]+"_"+c)
		}
	}
	return names
}
