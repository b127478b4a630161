// Package api exposes the analysis engine over HTTP: session upload and
// retrieval, track management, lap and pace queries, and the HTML report.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/httputil"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/store"
	"github.com/apex-data/laptrace/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	store  *store.Store
	tuning *config.TuningConfig
	units  string
}

// NewServer wires the API over a store. The tuning config drives parsing,
// conditioning and segmentation for every request; units is the display
// default when a request does not ask for its own.
func NewServer(st *store.Store, tuning *config.TuningConfig, defaultUnits string) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if !units.IsValid(defaultUnits) {
		defaultUnits = tuning.GetDisplayUnits()
	}
	return &Server{
		store:  st,
		tuning: tuning,
		units:  defaultUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	mux.HandleFunc("/api/channels", s.listChannels)
	mux.HandleFunc("/api/samples", s.listSamples)
	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/tracks/", s.handleTrackByID)
	mux.HandleFunc("/api/laps", s.listLaps)
	mux.HandleFunc("/api/pace", s.showPace)
	mux.HandleFunc("/api/optimal", s.showOptimal)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/report", s.showReport)
	return mux
}

// requestUnits resolves the display units for one request: the units query
// parameter when present, the server default otherwise. The empty string and
// false mean the parameter was present but invalid and a 400 was written.
func (s *Server) requestUnits(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, true
	}
	if !units.IsValid(u) {
		httputil.BadRequest(w, "invalid units parameter, valid values: "+units.GetValidUnitsString())
		return "", false
	}
	return u, true
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	// Effective values after defaults, not the sparse startup file, so a
	// client always sees the full schema.
	cfg := map[string]interface{}{
		"max_plausible_speed_mps": s.tuning.GetMaxPlausibleSpeedMPS(),
		"crossing_debounce":       s.tuning.GetCrossingDebounce().String(),
		"glitch_speed_floor_mps":  s.tuning.GetGlitchSpeedFloorMPS(),
		"glitch_max_run":          s.tuning.GetGlitchMaxRun(),
		"gforce_window":           s.tuning.GetGForceWindow(),
		"smooth_strength":         s.tuning.GetSmoothStrength(),
		"display_units":           s.units,
		"display_timezone":        s.tuning.GetDisplayTimezone(),
	}
	httputil.WriteJSONOK(w, cfg)
}
