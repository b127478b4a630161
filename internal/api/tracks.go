package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/httputil"
	"github.com/apex-data/laptrace/internal/store"
)

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTracks(w, r)
	case http.MethodPost:
		s.createTrack(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.store.ListTracks()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list tracks: %v", err))
		return
	}
	if tracks == nil {
		tracks = []store.Track{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"tracks": tracks,
		"count":  len(tracks),
	})
}

func (s *Server) createTrack(w http.ResponseWriter, r *http.Request) {
	var def course.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(def.Name) == "" {
		httputil.BadRequest(w, "name is required")
		return
	}

	track, err := s.store.CreateTrack(&def)
	if err != nil {
		// CreateTrack validates the course before touching the database.
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, track)
}

func (s *Server) handleTrackByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/tracks/"))
	if id == "" {
		httputil.BadRequest(w, "track id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		track, err := s.store.GetTrack(id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.NotFound(w, "track not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to get track: %v", err))
			return
		}
		httputil.WriteJSONOK(w, track)
	case http.MethodDelete:
		if err := s.store.DeleteTrack(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.NotFound(w, "track not found")
				return
			}
			httputil.InternalServerError(w, fmt.Sprintf("failed to delete track: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{
			"status":   "deleted",
			"track_id": id,
		})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// loadTrack fetches a track by id, writing the error response on failure.
func (s *Server) loadTrack(w http.ResponseWriter, id string) (*store.Track, bool) {
	track, err := s.store.GetTrack(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "track not found")
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to get track: %v", err))
		return nil, false
	}
	return track, true
}
