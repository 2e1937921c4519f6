package dataset

import (
	"math"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Frame is a columnar table. Numeric columns use NaN for missing values and
// categorical columns use "".
type Frame struct {
	order       []string
	numeric     map[string][]float64
	categorical map[string][]string
	rows        int
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
		rows:        -1,
	}
}

func (f *Frame) checkAdd(name string, n int) error {
	if f.Has(name) {
		return errors.NewValueError("Frame.Add", "duplicate column "+name)
	}
	if f.rows >= 0 && n != f.rows {
		return errors.NewDimensionError("Frame.Add", f.rows, n, 0)
	}
	return nil
}

// AddNumeric appends a numeric column.
func (f *Frame) AddNumeric(name string, values []float64) error {
	if err := f.checkAdd(name, len(values)); err != nil {
		return err
	}
	f.numeric[name] = values
	f.order = append(f.order, name)
	f.rows = len(values)
	return nil
}

// AddCategorical appends a categorical column.
func (f *Frame) AddCategorical(name string, values []string) error {
	if err := f.checkAdd(name, len(values)); err != nil {
		return err
	}
	f.categorical[name] = values
	f.order = append(f.order, name)
	f.rows = len(values)
	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f.rows < 0 {
		return 0
	}
	return f.rows
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.order...)
}

// Has reports whether the frame holds a column of either kind.
func (f *Frame) Has(name string) bool {
	_, n := f.numeric[name]
	_, c := f.categorical[name]
	return n || c
}

// Numeric returns a numeric column. The slice is shared with the frame.
func (f *Frame) Numeric(name string) ([]float64, bool) {
	v, ok := f.numeric[name]
	return v, ok
}

// Categorical returns a categorical column. The slice is shared with the frame.
func (f *Frame) Categorical(name string) ([]string, bool) {
	v, ok := f.categorical[name]
	return v, ok
}

// Take returns a new frame holding rows idx, in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := NewFrame()
	for _, name := range f.order {
		if col, ok := f.numeric[name]; ok {
			sub := make([]float64, len(idx))
			for i, r := range idx {
				sub[i] = col[r]
			}
			_ = out.AddNumeric(name, sub)
			continue
		}
		col := f.categorical[name]
		sub := make([]string, len(idx))
		for i, r := range idx {
			sub[i] = col[r]
		}
		_ = out.AddCategorical(name, sub)
	}
	if len(f.order) == 0 {
		out.rows = len(idx)
	}
	return out
}

// Drop returns a frame without the named column. Columns are shared.
func (f *Frame) Drop(name string) *Frame {
	out := NewFrame()
	for _, c := range f.order {
		if c == name {
			continue
		}
		if col, ok := f.numeric[c]; ok {
			_ = out.AddNumeric(c, col)
		} else {
			_ = out.AddCategorical(c, f.categorical[c])
		}
	}
	return out
}

// SplitTarget separates the target column from the features.
func (f *Frame) SplitTarget(target string) (*Frame, []float64, error) {
	y, ok := f.numeric[target]
	if !ok {
		return nil, nil, errors.NewConfigurationError(errors.PhaseTransform,
			"target column "+target+" is missing or not numeric", nil)
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, nil, errors.NewConfigurationError(errors.PhaseTransform,
				"target column "+target+" has a missing value",
				errors.NewValidationError(target, "row must have a target", i))
		}
	}
	return f.Drop(target), y, nil
}
