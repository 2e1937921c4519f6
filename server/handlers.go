package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/examscore/pipeline"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

// formOptions are the categories offered by the HTML form.
var formOptions = struct {
	Gender                   []string
	RaceEthnicity            []string
	ParentalLevelOfEducation []string
	Lunch                    []string
	TestPreparationCourse    []string
}{
	Gender:        []string{"male", "female"},
	RaceEthnicity: []string{"group A", "group B", "group C", "group D", "group E"},
	ParentalLevelOfEducation: []string{
		"associate's degree", "bachelor's degree", "high school",
		"master's degree", "some college", "some high school",
	},
	Lunch:                 []string{"free/reduced", "standard"},
	TestPreparationCourse: []string{"none", "completed"},
}

type homePage struct {
	Options      any
	Form         pipeline.CustomData
	ReadingScore string
	WritingScore string
	Error        string
	HasResult    bool
	Result       float64
}

var errNoModel = errors.New("no model loaded")

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", nil)
}

func (s *Server) predictForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "home.html", homePage{Options: formOptions})
}

func (s *Server) predictSubmit(w http.ResponseWriter, r *http.Request) {
	page := homePage{Options: formOptions}
	if err := r.ParseForm(); err != nil {
		page.Error = "could not read the form"
		s.render(w, http.StatusBadRequest, "home.html", page)
		return
	}
	page.Form = pipeline.CustomData{
		Gender:                   r.PostForm.Get("gender"),
		RaceEthnicity:            r.PostForm.Get("race_ethnicity"),
		ParentalLevelOfEducation: r.PostForm.Get("parental_level_of_education"),
		Lunch:                    r.PostForm.Get("lunch"),
		TestPreparationCourse:    r.PostForm.Get("test_preparation_course"),
	}
	page.ReadingScore = r.PostForm.Get("reading_score")
	page.WritingScore = r.PostForm.Get("writing_score")

	var err error
	if page.Form.ReadingScore, err = parseScore("reading_score", page.ReadingScore); err == nil {
		page.Form.WritingScore, err = parseScore("writing_score", page.WritingScore)
	}
	if err != nil {
		page.Error = err.Error()
		s.render(w, http.StatusUnprocessableEntity, "home.html", page)
		return
	}

	pred, err := s.predict(page.Form)
	if err != nil {
		page.Error = publicMessage(err)
		s.render(w, statusFor(err), "home.html", page)
		return
	}
	page.HasResult = true
	page.Result = pred
	s.render(w, http.StatusOK, "home.html", page)
}

// predictRequest mirrors CustomData with the scores required.
type predictRequest struct {
	Gender                   string   `json:"gender"`
	RaceEthnicity            string   `json:"race_ethnicity"`
	ParentalLevelOfEducation string   `json:"parental_level_of_education"`
	Lunch                    string   `json:"lunch"`
	TestPreparationCourse    string   `json:"test_preparation_course"`
	ReadingScore             *float64 `json:"reading_score"`
	WritingScore             *float64 `json:"writing_score"`
}

func (s *Server) predictJSON(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ReadingScore == nil || req.WritingScore == nil {
		writeError(w, http.StatusUnprocessableEntity, "reading_score and writing_score are required")
		return
	}
	c := pipeline.CustomData{
		Gender:                   req.Gender,
		RaceEthnicity:            req.RaceEthnicity,
		ParentalLevelOfEducation: req.ParentalLevelOfEducation,
		Lunch:                    req.Lunch,
		TestPreparationCourse:    req.TestPreparationCourse,
		ReadingScore:             *req.ReadingScore,
		WritingScore:             *req.WritingScore,
	}
	pred, err := s.predict(c)
	if err != nil {
		writeError(w, statusFor(err), publicMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"prediction": pred})
}

func (s *Server) predict(c pipeline.CustomData) (float64, error) {
	inf := s.inferer()
	if inf == nil {
		s.metrics.predictions.WithLabelValues("unavailable").Inc()
		return 0, errNoModel
	}
	pred, err := inf.PredictOne(c)
	if err != nil {
		s.metrics.predictions.WithLabelValues("error").Inc()
		s.logger.Error("Prediction failed", err, log.ModelNameKey, inf.ModelName())
		return 0, err
	}
	s.metrics.predictions.WithLabelValues("ok").Inc()
	return pred, nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	inf := s.inferer()
	if inf == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no model loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"model":  inf.ModelName(),
		"fit_id": inf.FitID(),
	})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf strings.Builder
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template failed", err, log.PathKey, name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, buf.String())
}

func parseScore(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("%s must be a number", field)
	}
	return v, nil
}

// statusFor maps an inference error onto an HTTP status code.
func statusFor(err error) int {
	var (
		ve *errors.ValidationError
		de *errors.DimensionError
		va *errors.ValueError
		nf *errors.NotFittedError
		ce *errors.ConfigurationError
	)
	switch {
	case errors.As(err, &ce):
		return http.StatusInternalServerError
	case errors.Is(err, errNoModel), errors.As(err, &nf):
		return http.StatusServiceUnavailable
	case errors.As(err, &ve), errors.As(err, &de), errors.As(err, &va):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	switch statusFor(err) {
	case http.StatusServiceUnavailable:
		return "model not available"
	case http.StatusUnprocessableEntity:
		return "invalid input"
	default:
		return "prediction failed"
	}
}
