package preprocessing

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/dataset"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

// ColumnTransformer maps a dataset.Frame to a fixed-width feature matrix.
//
// Numeric columns go through median imputation and standard scaling.
// Categorical columns go through imputation, one-hot encoding and scaling by
// standard deviation without centering. The output holds the numeric block in
// column order, followed by the indicator columns of each categorical column.
//
// After Fit the transformer is read-only and safe for concurrent Transform
// calls.
type ColumnTransformer struct {
	NumericColumns     []string
	CategoricalColumns []string

	NumImputer *SimpleImputer
	NumScaler  *StandardScaler
	CatImputer *CategoricalImputer
	Encoder    *OneHotEncoder
	CatScaler  *StandardScaler

	Names []string
	State *model.StateManager

	logger log.Logger
}

// Option configures a ColumnTransformer.
type Option func(*ColumnTransformer)

// WithCategoricalStrategy selects StrategyConstant (the default) or
// StrategyMostFrequent for categorical imputation.
func WithCategoricalStrategy(strategy string) Option {
	return func(ct *ColumnTransformer) {
		ct.CatImputer = NewCategoricalImputer(strategy)
	}
}

// WithLogger sets the logger used for fit events.
func WithLogger(l log.Logger) Option {
	return func(ct *ColumnTransformer) {
		ct.logger = l
	}
}

// NewColumnTransformer creates an unfit transformer over the given columns.
func NewColumnTransformer(numeric, categorical []string, opts ...Option) *ColumnTransformer {
	ct := &ColumnTransformer{
		NumericColumns:     append([]string(nil), numeric...),
		CategoricalColumns: append([]string(nil), categorical...),
		NumImputer:         NewSimpleImputer(StrategyMedian),
		NumScaler:          NewStandardScaler(true, true),
		CatImputer:         NewCategoricalImputer(StrategyConstant),
		Encoder:            NewOneHotEncoder(),
		CatScaler:          NewStandardScaler(false, true),
		State:              model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct
}

// NewStudentPreprocessor creates the transformer for dataset.StudentSchema.
func NewStudentPreprocessor(opts ...Option) *ColumnTransformer {
	s := dataset.StudentSchema()
	return NewColumnTransformer(s.Numeric, s.Categorical, opts...)
}

// SetLogger replaces the logger, typically after the transformer was loaded
// from an artifact.
func (ct *ColumnTransformer) SetLogger(l log.Logger) {
	ct.logger = l
}

func (ct *ColumnTransformer) getLogger() log.Logger {
	if ct.logger == nil {
		ct.logger = log.GetLoggerWithName("preprocessing")
	}
	return ct.logger
}

// Fit learns every statistic from frame.
func (ct *ColumnTransformer) Fit(frame *dataset.Frame) error {
	_, err := ct.FitTransform(frame)
	return err
}

// FitTransform fits on frame and returns its transformed matrix.
func (ct *ColumnTransformer) FitTransform(frame *dataset.Frame) (*mat.Dense, error) {
	start := time.Now()
	if len(ct.NumericColumns)+len(ct.CategoricalColumns) == 0 {
		return nil, errors.NewConfigurationError(errors.PhaseTransform, "no feature columns configured", nil)
	}
	if frame == nil || frame.Len() == 0 {
		return nil, errors.NewConfigurationError(errors.PhaseTransform,
			"cannot fit on an empty frame", errors.ErrEmptyData)
	}
	num, cat, err := ct.extract(frame)
	if err != nil {
		return nil, err
	}

	ct.State.Reset()
	var blocks []mat.Matrix

	if len(ct.NumericColumns) > 0 {
		imputed, err := ct.NumImputer.FitTransform(num)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "numeric imputation failed", err)
		}
		scaled, err := ct.NumScaler.FitTransform(imputed)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "numeric scaling failed", err)
		}
		blocks = append(blocks, scaled)
	}

	if len(ct.CategoricalColumns) > 0 {
		if err := ct.CatImputer.Fit(cat); err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "categorical imputation failed", err)
		}
		filled, err := ct.CatImputer.Transform(cat)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "categorical imputation failed", err)
		}
		if err := ct.Encoder.Fit(filled); err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "one-hot encoding failed", err)
		}
		encoded, err := ct.Encoder.Transform(filled)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "one-hot encoding failed", err)
		}
		scaled, err := ct.CatScaler.FitTransform(encoded)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "categorical scaling failed", err)
		}
		blocks = append(blocks, scaled)
	}

	out := hstack(frame.Len(), blocks)
	ct.Names = append(append([]string(nil), ct.NumericColumns...), ct.Encoder.FeatureNames(ct.CategoricalColumns)...)
	_, width := out.Dims()
	ct.State.SetFitted(width, frame.Len())

	ct.getLogger().Info("Preprocessor fitted",
		log.OperationKey, log.OperationFitTransform,
		log.PhaseKey, log.PhaseTransform,
		log.SamplesKey, frame.Len(),
		log.FeaturesKey, width,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Transform applies the fitted statistics to frame. It never refits.
func (ct *ColumnTransformer) Transform(frame *dataset.Frame) (*mat.Dense, error) {
	if err := ct.State.RequireFitted("ColumnTransformer", "Transform"); err != nil {
		return nil, errors.NewConfigurationError(errors.PhaseTransform, "transformer is not fitted", err)
	}
	if frame == nil || frame.Len() == 0 {
		return nil, errors.NewConfigurationError(errors.PhaseTransform,
			"cannot transform an empty frame", errors.ErrEmptyData)
	}
	num, cat, err := ct.extract(frame)
	if err != nil {
		return nil, err
	}

	var blocks []mat.Matrix
	if len(ct.NumericColumns) > 0 {
		imputed, err := ct.NumImputer.Transform(num)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "numeric imputation failed", err)
		}
		scaled, err := ct.NumScaler.Transform(imputed)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "numeric scaling failed", err)
		}
		blocks = append(blocks, scaled)
	}
	if len(ct.CategoricalColumns) > 0 {
		filled, err := ct.CatImputer.Transform(cat)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "categorical imputation failed", err)
		}
		encoded, err := ct.Encoder.Transform(filled)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "one-hot encoding failed", err)
		}
		scaled, err := ct.CatScaler.Transform(encoded)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.PhaseTransform, "categorical scaling failed", err)
		}
		blocks = append(blocks, scaled)
	}
	return hstack(frame.Len(), blocks), nil
}

// FeatureNames returns the name of every output column.
func (ct *ColumnTransformer) FeatureNames() []string {
	return append([]string(nil), ct.Names...)
}

// NOutputs returns the output width, or 0 before Fit.
func (ct *ColumnTransformer) NOutputs() int {
	width, _ := ct.State.GetDimensions()
	return width
}

// IsFitted reports whether Fit succeeded.
func (ct *ColumnTransformer) IsFitted() bool {
	return ct.State.IsFitted()
}

// extract pulls the configured columns out of frame, checking their kind.
func (ct *ColumnTransformer) extract(frame *dataset.Frame) (*mat.Dense, [][]string, error) {
	n := frame.Len()

	var num *mat.Dense
	if len(ct.NumericColumns) > 0 {
		num = mat.NewDense(n, len(ct.NumericColumns), nil)
		for j, name := range ct.NumericColumns {
			col, ok := frame.Numeric(name)
			if !ok {
				return nil, nil, errors.NewConfigurationError(errors.PhaseTransform,
					"missing numeric column "+name, nil)
			}
			num.SetCol(j, col)
		}
	}

	cat := make([][]string, len(ct.CategoricalColumns))
	for j, name := range ct.CategoricalColumns {
		col, ok := frame.Categorical(name)
		if !ok {
			return nil, nil, errors.NewConfigurationError(errors.PhaseTransform,
				"missing categorical column "+name, nil)
		}
		cat[j] = col
	}
	return num, cat, nil
}

func hstack(rows int, blocks []mat.Matrix) *mat.Dense {
	width := 0
	for _, b := range blocks {
		_, c := b.Dims()
		width += c
	}
	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}
