package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/store"
	"github.com/apex-data/laptrace/internal/testutil"
)

func TestCreateTrack(t *testing.T) {
	server, _ := setupTestServer(t)
	track := createCircuitTrack(t, server)

	if track.ID == "" {
		t.Error("track ID is empty")
	}
	if track.Course.Name != "test circle" {
		t.Errorf("name = %q, want test circle", track.Course.Name)
	}
	if track.Course.Sector2 == nil || track.Course.Sector3 == nil {
		t.Error("sector lines not stored")
	}
}

func TestCreateTrackInvalidJSON(t *testing.T) {
	server, _ := setupTestServer(t)

	req := testutil.NewUploadRequest(http.MethodPost, "/api/tracks", []byte("{"), "application/json")
	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestCreateTrackMissingName(t *testing.T) {
	server, _ := setupTestServer(t)

	def := course.Definition{StartFinish: testCircuit().RadialLine(90, 30)}
	body, _ := json.Marshal(def)
	req := testutil.NewUploadRequest(http.MethodPost, "/api/tracks", body, "application/json")
	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "name") {
		t.Errorf("error = %q, want mention of name", resp["error"])
	}
}

func TestCreateTrackInvalidCourse(t *testing.T) {
	server, _ := setupTestServer(t)

	// Coincident endpoints make a degenerate start/finish line.
	p := testCircuit().PointAt(90, 100)
	def := course.Definition{
		Name:        "degenerate",
		StartFinish: course.Line{A: p, B: p},
	}
	body, _ := json.Marshal(def)
	req := testutil.NewUploadRequest(http.MethodPost, "/api/tracks", body, "application/json")
	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestListTracks(t *testing.T) {
	server, _ := setupTestServer(t)

	var resp struct {
		Tracks []store.Track `json:"tracks"`
		Count  int           `json:"count"`
	}

	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/tracks"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 0 || len(resp.Tracks) != 0 {
		t.Errorf("empty store listed %d tracks", resp.Count)
	}

	created := createCircuitTrack(t, server)

	w = testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/tracks"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Tracks) != 1 {
		t.Fatalf("listed %d tracks, want 1", resp.Count)
	}
	if resp.Tracks[0].ID != created.ID {
		t.Errorf("listed track %q, want %q", resp.Tracks[0].ID, created.ID)
	}
}

func TestGetTrack(t *testing.T) {
	server, _ := setupTestServer(t)
	created := createCircuitTrack(t, server)

	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/tracks/"+created.ID))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var got store.Track
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != created.ID || got.Course.Name != "test circle" {
		t.Errorf("got track %q (%q)", got.ID, got.Course.Name)
	}
}

func TestGetTrackNotFound(t *testing.T) {
	server, _ := setupTestServer(t)

	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/tracks/no-such-id"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestDeleteTrack(t *testing.T) {
	server, _ := setupTestServer(t)
	created := createCircuitTrack(t, server)

	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodDelete, "/api/tracks/"+created.ID))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "deleted" || resp["track_id"] != created.ID {
		t.Errorf("delete response = %v", resp)
	}

	w = testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/tracks/"+created.ID))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestTracksMethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)

	w := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodPut, "/api/tracks"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)

	w = testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(w, testutil.NewTestRequest(http.MethodPost, "/api/tracks/some-id"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}
