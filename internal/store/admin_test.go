package store

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAttachAdminRoutes(t *testing.T) {
	s := openTestStore(t)

	mux := http.NewServeMux()
	if err := s.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes failed: %v", err)
	}

	// The debugger may reject callers it does not trust, so a 403 still
	// proves the route is registered. Only 404 means it is missing.
	routes := []string{"/debug/", "/debug/tailsql/", "/debug/backup"}
	for _, route := range routes {
		t.Run(route, func(t *testing.T) {
			req := httptest.NewRequest("GET", route, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code == http.StatusNotFound {
				t.Errorf("Route %s should be registered, got 404", route)
			}
		})
	}
}

func TestBackupDownload(t *testing.T) {
	s := openTestStore(t)

	mux := http.NewServeMux()
	if err := s.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/debug/backup", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Skipf("backup route gated by debugger access policy, got %d", w.Code)
	}

	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", disposition)
	}

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("backup body is not gzip: %v", err)
	}
	header := make([]byte, 16)
	if _, err := io.ReadFull(zr, header); err != nil {
		t.Fatalf("failed to read backup header: %v", err)
	}
	if !strings.HasPrefix(string(header), "SQLite format 3") {
		t.Errorf("backup header = %q, want SQLite database magic", header)
	}
}
