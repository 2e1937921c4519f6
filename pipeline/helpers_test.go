package pipeline

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/examscore/dataset"
	"github.com/YuminosukeSato/examscore/modelselection"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

var (
	genders   = []string{"female", "male"}
	races     = []string{"group A", "group B", "group C", "group D", "group E"}
	education = []string{
		"some high school", "high school", "some college",
		"associate's degree", "bachelor's degree", "master's degree",
	}
	lunches = []string{"standard", "free/reduced"}
	preps   = []string{"none", "completed"}
)

// studentTable builds n rows in the column order of the public dataset.
// math_score depends linearly on the other scores plus a few category
// effects, so a linear model explains most of its variance.
func studentTable(n int, seed uint64) *dataset.Table {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	clip := func(v float64) float64 { return math.Max(0, math.Min(100, math.Round(v))) }

	t := &dataset.Table{Header: []string{
		dataset.ColGender, dataset.ColRaceEthnicity, dataset.ColParentalLevelOfEducation,
		dataset.ColLunch, dataset.ColTestPreparationCourse,
		dataset.ColMathScore, dataset.ColReadingScore, dataset.ColWritingScore,
	}}
	for i := 0; i < n; i++ {
		g := genders[rng.IntN(len(genders))]
		race := races[rng.IntN(len(races))]
		edu := education[rng.IntN(len(education))]
		lunch := lunches[rng.IntN(len(lunches))]
		prep := preps[rng.IntN(len(preps))]

		reading := clip(69 + 14*rng.NormFloat64())
		writing := clip(reading + 5*rng.NormFloat64())
		m := 0.5*reading + 0.45*writing + 3*rng.NormFloat64()
		if g == "male" {
			m += 8
		}
		if lunch == "standard" {
			m += 4
		}
		m = clip(m)

		row := []string{g, race, edu, lunch, prep,
			strconv.FormatFloat(m, 'f', -1, 64),
			strconv.FormatFloat(reading, 'f', -1, 64),
			strconv.FormatFloat(writing, 'f', -1, 64),
		}
		if i%97 == 13 {
			row[3] = ""
		}
		if i%131 == 7 {
			row[6] = "NA"
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func writeStudentCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "students.csv")
	require.NoError(t, dataset.WriteCSVFile(path, studentTable(n, 7)))
	return path
}

func quiet() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}

func lightRoster(t *testing.T) []modelselection.Candidate {
	t.Helper()
	roster, err := BuildRoster([]RosterOverride{
		{Name: LinearRegressionName},
		{Name: DecisionTreeName, Grid: map[string][]interface{}{"max_depth": {3, 5}}},
		{Name: KNeighborsName, Grid: map[string][]interface{}{"n_neighbors": {7}}},
	}, 42)
	require.NoError(t, err)
	return roster
}

func testTrainerConfig(dir string, roster []modelselection.Candidate) ModelTrainerConfig {
	cfg := DefaultModelTrainerConfig()
	cfg.ArtifactsDir = dir
	cfg.Roster = roster
	cfg.Workers = 4
	return cfg
}

// splitFrames ingests n synthetic rows into dir and loads both splits.
func splitFrames(t *testing.T, dir string, n int) (*dataset.Frame, *dataset.Frame) {
	t.Helper()
	src := writeStudentCSV(t, t.TempDir(), n)
	cfg := DefaultDataIngestionConfig()
	cfg.ArtifactsDir = dir
	trainPath, testPath, err := NewDataIngestion(cfg, quiet()).Ingest(t.Context(), src)
	require.NoError(t, err)

	schema := dataset.StudentSchema()
	train, err := dataset.LoadFrame(trainPath, schema)
	require.NoError(t, err)
	test, err := dataset.LoadFrame(testPath, schema)
	require.NoError(t, err)
	return train, test
}
