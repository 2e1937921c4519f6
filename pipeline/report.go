package pipeline

import (
	"encoding/json"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/metrics"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// ScoreEntry is the outcome of one candidate that trained successfully.
type ScoreEntry struct {
	Name    string                 `json:"name"`
	TestR2  float64                `json:"test_r2"`
	CVScore float64                `json:"cv_score"`
	CVStd   float64                `json:"cv_std"`
	Params  map[string]interface{} `json:"params"`
	Metrics metrics.Summary        `json:"metrics"`
}

// Exclusion records a candidate that failed to train.
type Exclusion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ScoreReport lists candidate scores in roster order.
type ScoreReport struct {
	Entries   []ScoreEntry `json:"entries"`
	Excluded  []Exclusion  `json:"excluded,omitempty"`
	Best      string       `json:"best,omitempty"`
	BestScore float64      `json:"best_score"`
	Threshold float64      `json:"threshold"`
	FitID     string       `json:"fit_id,omitempty"`
}

// best returns the entry with the highest finite test R². Ties go to the
// earlier entry.
func (r *ScoreReport) best() (ScoreEntry, bool) {
	var (
		b     ScoreEntry
		found bool
	)
	for _, e := range r.Entries {
		if math.IsNaN(e.TestR2) || math.IsInf(e.TestR2, 0) {
			continue
		}
		if !found || e.TestR2 > b.TestR2 {
			b, found = e, true
		}
	}
	return b, found
}

// Score returns the test R² of name.
func (r *ScoreReport) Score(name string) (float64, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e.TestR2, true
		}
	}
	return 0, false
}

// Scores returns test R² keyed by candidate name.
func (r *ScoreReport) Scores() map[string]float64 {
	out := make(map[string]float64, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Name] = e.TestR2
	}
	return out
}

// ExcludedReasons returns failure reasons keyed by candidate name.
func (r *ScoreReport) ExcludedReasons() map[string]string {
	out := make(map[string]string, len(r.Excluded))
	for _, e := range r.Excluded {
		out[e.Name] = e.Reason
	}
	return out
}

// WriteReport writes r as indented JSON, atomically.
func WriteReport(path string, r *ScoreReport) error {
	err := model.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	})
	if err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}

// ReadReport reads a report written by WriteReport.
func ReadReport(r io.Reader) (*ScoreReport, error) {
	var rep ScoreReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, errors.Wrap(err, "decode report")
	}
	return &rep, nil
}

// PlotScoreReport renders the test R² of every entry as a bar chart PNG,
// with the acceptance threshold drawn as a horizontal line.
func PlotScoreReport(r *ScoreReport, path string) error {
	if len(r.Entries) == 0 {
		return errors.NewValueError("PlotScoreReport", "report has no entries")
	}
	p := plot.New()
	p.Title.Text = "Held-out R² by candidate"
	p.Y.Label.Text = "R²"

	values := make(plotter.Values, len(r.Entries))
	names := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		values[i] = e.TestR2
		names[i] = e.Name
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	threshold, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: r.Threshold},
		{X: float64(len(r.Entries)) - 0.5, Y: r.Threshold},
	})
	if err != nil {
		return errors.Wrap(err, "threshold line")
	}
	threshold.LineStyle.Color = color.RGBA{R: 200, A: 255}
	threshold.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(threshold)
	p.Legend.Add("min score", threshold)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return errors.Wrap(err, "render plot")
	}
	err = model.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "write plot %s", path)
	}
	return nil
}
