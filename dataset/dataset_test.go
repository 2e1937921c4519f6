package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

const sampleCSV = `gender,race_ethnicity,parental_level_of_education,lunch,test_preparation_course,math_score,reading_score,writing_score
female,group B,bachelor's degree,standard,none,72,72,74
female,group C,some college,standard,completed,69,90,88
male,group A,associate's degree,free/reduced,none,47,57,NA
male,,some college,standard,none,76,78,75
`

func TestReadCSVAndToFrame(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Len(t, table.Header, 8)

	s := StudentSchema()
	f, err := table.ToFrame(s, s.Columns())
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())

	writing, ok := f.Numeric(ColWritingScore)
	require.True(t, ok)
	assert.True(t, math.IsNaN(writing[2]))

	race, ok := f.Categorical(ColRaceEthnicity)
	require.True(t, ok)
	assert.Equal(t, "", race[3])
	assert.Equal(t, "group B", race[0])

	X, y, err := f.SplitTarget(s.Target)
	require.NoError(t, err)
	assert.Equal(t, []float64{72, 69, 47, 76}, y)
	assert.False(t, X.Has(ColMathScore))
	assert.Len(t, X.Columns(), 7)
}

func TestToFrameMissingColumn(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("gender,lunch\nmale,standard\n"))
	require.NoError(t, err)

	s := StudentSchema()
	_, err = table.ToFrame(s, s.Columns())

	var cfgErr *errors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Reason, ColRaceEthnicity)
}

func TestToFrameRejectsBadNumber(t *testing.T) {
	bad := strings.Replace(sampleCSV, "72,72,74", "72,seventy,74", 1)
	table, err := ReadCSV(strings.NewReader(bad))
	require.NoError(t, err)

	s := StudentSchema()
	_, err = table.ToFrame(s, s.Columns())
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Equal(t, sampleCSV, buf.String())
}

func TestReadCSVFileMissing(t *testing.T) {
	_, err := ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv"))

	var ingErr *errors.IngestionError
	require.True(t, errors.As(err, &ingErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTrainTestSplit(t *testing.T) {
	for _, n := range []int{5, 10, 999, 1000} {
		train, test, err := TrainTestSplit(n, DefaultTestSize, DefaultSeed)
		require.NoError(t, err)

		assert.Equal(t, n, len(train)+len(test))
		assert.Equal(t, int(math.Ceil(0.2*float64(n))), len(test))

		all := append(append([]int(nil), train...), test...)
		sort.Ints(all)
		for i, v := range all {
			require.Equal(t, i, v, "train and test must partition [0, n)")
		}

		train2, test2, err := TrainTestSplit(n, DefaultTestSize, DefaultSeed)
		require.NoError(t, err)
		assert.Equal(t, train, train2)
		assert.Equal(t, test, test2)
	}

	_, other, err := TrainTestSplit(1000, DefaultTestSize, 7)
	require.NoError(t, err)
	_, test, _ := TrainTestSplit(1000, DefaultTestSize, DefaultSeed)
	assert.NotEqual(t, test, other)
}

func TestTrainTestSplitRejects(t *testing.T) {
	_, _, err := TrainTestSplit(100, 1.5, DefaultSeed)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(1, 0.2, DefaultSeed)
	assert.Error(t, err)
}

func TestFrameFromRecordsAndTake(t *testing.T) {
	records := []Record{
		{Gender: "male", RaceEthnicity: "group A", ParentalLevelOfEducation: "bachelor's degree",
			Lunch: "standard", TestPreparationCourse: "none", ReadingScore: 78, WritingScore: 82, MathScore: 80},
		{Gender: "female", RaceEthnicity: "group C", ParentalLevelOfEducation: "high school",
			Lunch: "free/reduced", TestPreparationCourse: "completed", ReadingScore: 60, WritingScore: 65, MathScore: 55},
	}

	f := FrameFromRecords(records, false)
	assert.Equal(t, 2, f.Len())
	assert.False(t, f.Has(ColMathScore))

	sub := f.Take([]int{1})
	gender, _ := sub.Categorical(ColGender)
	reading, _ := sub.Numeric(ColReadingScore)
	assert.Equal(t, []string{"female"}, gender)
	assert.Equal(t, []float64{60}, reading)

	withTarget := FrameFromRecords(records, true)
	_, y, err := withTarget.SplitTarget(ColMathScore)
	require.NoError(t, err)
	assert.Equal(t, []float64{80, 55}, y)
}

func TestFrameRejectsRaggedColumns(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddNumeric("a", []float64{1, 2}))
	assert.Error(t, f.AddNumeric("b", []float64{1}))
	assert.Error(t, f.AddCategorical("a", []string{"x", "y"}))
}
