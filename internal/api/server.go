package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/logger"
	"fleet-asset-report/internal/models"
	"fleet-asset-report/internal/report"

	"github.com/gorilla/mux"
)

const usage = "http://<your_api_url>/asset_report?start_time=<your_start_time>&end_time=<your_end_time>"

// Server represents the API server
type Server struct {
	source report.Source
	format string
	router *mux.Router
}

// NewServer creates a new API server. format is the artifact format used
// when a request does not name one.
func NewServer(source report.Source, format string) *Server {
	s := &Server{
		source: source,
		format: format,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleUsage).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/asset_report", s.handleAssetReport).Methods("GET")

	s.router.Use(loggingMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Middleware
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{
		Success: false,
		Error:   err.Error(),
		Code:    string(errors.CodeOf(err)),
	})
}

// statusFor maps a report error to the HTTP status returned to the caller
func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.ErrEmptyReport):
		return http.StatusNotFound
	case errors.HasCode(err, errors.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Handlers
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"API call syntax": usage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleAssetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	window, err := models.ParseWindow(q.Get("start_time"), q.Get("end_time"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	format := s.format
	if v := q.Get("format"); v != "" {
		format = v
	}
	sink, err := report.NewSink(format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	rep, err := report.Generate(r.Context(), s.source, window)
	if err != nil {
		if !errors.HasCode(err, errors.ErrEmptyReport) {
			logger.ErrorWithCode(err).Str("window", window.String()).Msg("Report generation failed")
		}
		respondError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := sink.Write(&buf, rep); err != nil {
		logger.ErrorWithCode(err).Msg("Report serialization failed")
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", sink.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(sink, window)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
