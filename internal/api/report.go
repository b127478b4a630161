package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/apex-data/laptrace/internal/httputil"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/report"
)

func (s *Server) showReport(w http.ResponseWriter, r *http.Request) {
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
	lapNum, refNum := 0, 0
	var err error
	if v := query.Get("lap"); v != "" {
		if lapNum, err = strconv.Atoi(v); err != nil || lapNum < 1 {
			httputil.BadRequest(w, "lap parameter must be a positive lap number")
			return
		}
	}
	if v := query.Get("ref"); v != "" {
		if refNum, err = strconv.Atoi(v); err != nil || refNum < 1 {
			httputil.BadRequest(w, "ref parameter must be a positive lap number")
			return
		}
	}

	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		httputil.NotFound(w, "session not found")
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

	data, err := report.Build(report.Params{
		SessionName: sess.Name,
		TrackName:   track.Course.Name,
		Units:       displayUnits,
		File:        f,
		Laps:        s.segmentedLaps(sessionID, track, f),
		LapNumber:   lapNum,
		RefNumber:   refNum,
	})
	if err != nil {
		httputil.UnprocessableEntity(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, data); err != nil {
		httputil.InternalServerError(w, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		monitoring.Logf("api: failed to write report: %v", err)
	}
}
