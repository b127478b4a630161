package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/apex-data/laptrace/internal/httputil"
	"github.com/apex-data/laptrace/internal/ingest"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/signal"
	"github.com/apex-data/laptrace/internal/store"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// maxUploadBytes caps session uploads. The largest real logger files seen so
// far (multi-hour .ld logs) stay well under this.
const maxUploadBytes = 256 << 20

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSessions(w, r)
	case http.MethodPost:
		s.uploadSession(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// uploadSession ingests one raw logger file: detect, parse, condition, store.
// The raw bytes are what gets persisted; the parse only proves they are
// usable and yields the summary row.
func (s *Server) uploadSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to read upload: %v", err))
		return
	}
	if len(body) == 0 {
		httputil.BadRequest(w, "empty upload")
		return
	}

	f, err := ingest.Parse(body, s.tuning)
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	f = signal.Condition(f, s.tuning)

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "unnamed session"
	}

	sess, err := s.store.CreateSession(name, body, f)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store session: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sess)
}

// writeParseError maps the ingest error taxonomy onto HTTP statuses: an
// unrecognized payload is a media type problem, a recognized but broken or
// empty file is unprocessable content.
func (s *Server) writeParseError(w http.ResponseWriter, err error) {
	var malformed *ingest.MalformedDataError
	switch {
	case errors.Is(err, ingest.ErrUnrecognizedFormat):
		httputil.UnsupportedMediaType(w, err.Error())
	case errors.As(err, &malformed):
		httputil.UnprocessableEntity(w, err.Error())
	case errors.Is(err, ingest.ErrNoValidSamples):
		httputil.UnprocessableEntity(w, err.Error())
	default:
		httputil.InternalServerError(w, fmt.Sprintf("parse failed: %v", err))
	}
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/sessions/"))
	if id == "" {
		httputil.BadRequest(w, "session id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sess, err := s.store.GetSession(id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.NotFound(w, "session not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to get session: %v", err))
			return
		}
		httputil.WriteJSONOK(w, sess)
	case http.MethodDelete:
		if err := s.store.DeleteSession(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.NotFound(w, "session not found")
				return
			}
			httputil.InternalServerError(w, fmt.Sprintf("failed to delete session: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{
			"status":     "deleted",
			"session_id": id,
		})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// loadConditioned rebuilds the conditioned sample stream for a stored
// session from its raw bytes. A miss writes 404; a parse failure on bytes
// that parsed at upload time is an internal fault, not a client one. The
// second return is false when a response was already written.
func (s *Server) loadConditioned(w http.ResponseWriter, id string) (*telemetry.ParsedFile, bool) {
	raw, err := s.store.GetSessionRaw(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "session not found")
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load session: %v", err))
		return nil, false
	}

	f, err := ingest.Parse(raw, s.tuning)
	if err != nil {
		monitoring.Logf("api: stored session %s no longer parses: %v", id, err)
		httputil.InternalServerError(w, "stored session data is unreadable")
		return nil, false
	}
	return signal.Condition(f, s.tuning), true
}
