package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/apex-data/laptrace/internal/httputil"
	"github.com/apex-data/laptrace/internal/laps"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/pace"
	"github.com/apex-data/laptrace/internal/store"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// LapAPI is the wire shape of one lap. Sample indices stay internal; speeds
// are converted to the request's display units.
type LapAPI struct {
	Number   int           `json:"number"`
	StartMs  float64       `json:"start_ms"`
	EndMs    float64       `json:"end_ms"`
	TimeMs   float64       `json:"time_ms"`
	MaxSpeed float64       `json:"max_speed"`
	MinSpeed float64       `json:"min_speed"`
	Sectors  *laps.Sectors `json:"sectors,omitempty"`
}

func lapToAPI(lap laps.Lap, displayUnits string) LapAPI {
	return LapAPI{
		Number:   lap.Number,
		StartMs:  lap.StartMs,
		EndMs:    lap.EndMs,
		TimeMs:   lap.TimeMs,
		MaxSpeed: units.ConvertSpeed(lap.MaxSpeedMps, displayUnits),
		MinSpeed: units.ConvertSpeed(lap.MinSpeedMps, displayUnits),
		Sectors:  lap.Sectors,
	}
}

// segmentedLaps returns the laps for a (session, track) pair, serving from
// the cache when possible. The cache is best effort: any failure there
// degrades to recomputing, never to a request error.
func (s *Server) segmentedLaps(sessionID string, track *store.Track, f *telemetry.ParsedFile) []laps.Lap {
	cached, err := s.store.CachedLaps(sessionID, track.ID)
	if err != nil {
		monitoring.Logf("api: lap cache read failed for session %s: %v", sessionID, err)
	} else if len(cached) > 0 {
		return cached
	}

	out := laps.Segment(f, &track.Course, s.tuning)
	if err := s.store.SaveLaps(sessionID, track.ID, out); err != nil {
		monitoring.Logf("api: lap cache write failed for session %s: %v", sessionID, err)
	}
	return out
}

func (s *Server) listLaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	sessionID, trackID := query.Get("session"), query.Get("track")
	if sessionID == "" || trackID == "" {
		httputil.BadRequest(w, "session and track parameters are required")
		return
	}
	displayUnits, ok := s.requestUnits(w, r)
	if !ok {
		return
	}

	track, ok := s.loadTrack(w, trackID)
	if !ok {
		return
	}
	f, ok := s.loadConditioned(w, sessionID)
	if !ok {
		return
	}

	segmented := s.segmentedLaps(sessionID, track, f)

	// A session with no completed laps on this course is an answer, not an
	// error.
	out := make([]LapAPI, 0, len(segmented))
	for _, lap := range segmented {
		out = append(out, lapToAPI(lap, displayUnits))
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session": sessionID,
		"track":   trackID,
		"units":   displayUnits,
		"laps":    out,
		"count":   len(out),
	})
}

func (s *Server) showOptimal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	sessionID, trackID := query.Get("session"), query.Get("track")
	if sessionID == "" || trackID == "" {
		httputil.BadRequest(w, "session and track parameters are required")
		return
	}

	track, ok := s.loadTrack(w, trackID)
	if !ok {
		return
	}
	f, ok := s.loadConditioned(w, sessionID)
	if !ok {
		return
	}

	segmented := s.segmentedLaps(sessionID, track, f)
	optimal, ok := laps.Optimal(segmented)
	if !ok {
		httputil.NotFound(w, "no laps with complete sector times")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session": sessionID,
		"track":   trackID,
		"laps":    len(segmented),
		"optimal": optimal,
	})
}

func (s *Server) showPace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	sessionID, trackID := query.Get("session"), query.Get("track")
	if sessionID == "" || trackID == "" {
		httputil.BadRequest(w, "session and track parameters are required")
		return
	}
	lapNum, err := strconv.Atoi(query.Get("lap"))
	if err != nil || lapNum < 1 {
		httputil.BadRequest(w, "lap parameter must be a positive lap number")
		return
	}

	track, ok := s.loadTrack(w, trackID)
	if !ok {
		return
	}
	f, ok := s.loadConditioned(w, sessionID)
	if !ok {
		return
	}

	segmented := s.segmentedLaps(sessionID, track, f)
	current, ok := laps.ByNumber(segmented, lapNum)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("lap %d not found", lapNum))
		return
	}

	reference, ok := laps.Fastest(segmented)
	refNum := reference.Number
	if refParam := query.Get("ref"); refParam != "" {
		refNum, err = strconv.Atoi(refParam)
		if err != nil || refNum < 1 {
			httputil.BadRequest(w, "ref parameter must be a positive lap number")
			return
		}
		reference, ok = laps.ByNumber(segmented, refNum)
	}
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("reference lap %d not found", refNum))
		return
	}

	channel := query.Get("channel")
	result := pace.Align(current.Samples(f), reference.Samples(f), channel)
	if result == nil {
		httputil.UnprocessableEntity(w, "not enough samples to align laps")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session":   sessionID,
		"track":     trackID,
		"lap":       lapNum,
		"ref":       refNum,
		"alignment": result,
	})
}
