// Package server exposes a loaded model over HTTP: an HTML form for manual
// use, a JSON endpoint, health probes and Prometheus metrics.
package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/YuminosukeSato/examscore/pipeline"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Inferer is what the server needs from a loaded model.
// *pipeline.Predictor satisfies it.
type Inferer interface {
	PredictOne(c pipeline.CustomData) (float64, error)
	ModelName() string
	FitID() string
}

// Server routes requests to the current Inferer. The Inferer can be swapped
// at runtime with SetInferer; until one is set, prediction routes answer 503.
type Server struct {
	mu  sync.RWMutex
	inf Inferer

	mux     *http.ServeMux
	metrics *metrics
	logger  log.Logger
}

// New builds a server around inf, which may be nil.
func New(inf Inferer, logger log.Logger) *Server {
	if logger == nil {
		logger = log.GetLoggerWithName("server")
	}
	s := &Server{
		mux:     http.NewServeMux(),
		metrics: newMetrics(),
		logger:  logger.With(log.PhaseKey, log.PhaseInference),
	}
	s.SetInferer(inf)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /{$}", s.index)
	s.handle("GET /predictdata", s.predictForm)
	s.handle("POST /predictdata", s.predictSubmit)
	s.handle("POST /api/v1/predict", s.predictJSON)
	s.handle("GET /healthz", healthz)
	s.handle("GET /readyz", s.readyz)
	s.mux.Handle("GET /metrics", s.metrics.handler())
}

// handle registers fn and records its latency and status under pattern.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		fn(rw, r)
		elapsed := time.Since(start)
		s.metrics.observe(pattern, r.Method, rw.statusCode, elapsed)
		s.logger.Debug("request",
			log.MethodKey, r.Method,
			log.RouteKey, pattern,
			log.StatusKey, rw.statusCode,
			log.DurationMsKey, elapsed.Milliseconds(),
		)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SetInferer replaces the model served. A nil inf takes the server out of
// readiness.
func (s *Server) SetInferer(inf Inferer) {
	s.mu.Lock()
	s.inf = inf
	s.mu.Unlock()
	if inf == nil {
		s.metrics.setModel("", "")
		return
	}
	s.metrics.setModel(inf.ModelName(), inf.FitID())
	s.logger.Info("Serving model", log.ModelNameKey, inf.ModelName(), log.FitIDKey, inf.FitID())
}

func (s *Server) inferer() Inferer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inf
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
