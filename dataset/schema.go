// Package dataset holds the student-performance schema and the tabular types
// the pipeline moves between stages: the raw string Table read from CSV, the
// typed Record, and the columnar Frame consumed by preprocessing.
package dataset

import (
	"strings"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Column names of the student-performance dataset.
const (
	ColGender                   = "gender"
	ColRaceEthnicity            = "race_ethnicity"
	ColParentalLevelOfEducation = "parental_level_of_education"
	ColLunch                    = "lunch"
	ColTestPreparationCourse    = "test_preparation_course"
	ColMathScore                = "math_score"
	ColReadingScore             = "reading_score"
	ColWritingScore             = "writing_score"
)

// Schema names the numeric features, categorical features and target of a
// dataset. Order matters: it fixes the column order of the feature matrix.
type Schema struct {
	Numeric     []string
	Categorical []string
	Target      string
}

// StudentSchema returns the fixed schema of the exam-score dataset.
func StudentSchema() Schema {
	return Schema{
		Numeric: []string{ColWritingScore, ColReadingScore},
		Categorical: []string{
			ColGender,
			ColRaceEthnicity,
			ColParentalLevelOfEducation,
			ColLunch,
			ColTestPreparationCourse,
		},
		Target: ColMathScore,
	}
}

// Features returns numeric then categorical feature names.
func (s Schema) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// Columns returns every column the schema requires, target included.
func (s Schema) Columns() []string {
	cols := s.Features()
	if s.Target != "" {
		cols = append(cols, s.Target)
	}
	return cols
}

// IsNumeric reports whether name is a numeric feature or the target.
func (s Schema) IsNumeric(name string) bool {
	if name == s.Target {
		return true
	}
	for _, n := range s.Numeric {
		if n == name {
			return true
		}
	}
	return false
}

// ValidateHeader checks that header holds every column in want.
// Extra columns are allowed.
func (s Schema) ValidateHeader(header []string, want []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range want {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewConfigurationError(errors.PhaseIngestion,
			"missing columns: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// IsMissing reports whether a raw CSV cell denotes a missing value.
func IsMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}
