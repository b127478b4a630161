package store

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/apex-data/laptrace/internal/monitoring"
)

// AttachAdminRoutes mounts the debug surface on mux: a tailsql console over
// the live database and an on-demand backup download.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.DB, &tailsql.DBOptions{
		Label: "LapTrace DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now",
		http.HandlerFunc(s.handleBackup))

	return nil
}

// handleBackup snapshots the database with VACUUM INTO and streams the
// result gzip-compressed, removing the snapshot afterwards.
func (s *Store) handleBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("laptrace-backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)

	if _, err := s.Exec(`VACUUM INTO ?`, backupPath); err != nil {
		http.Error(w, fmt.Sprintf("failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/octet-stream")

	zw := gzip.NewWriter(w)
	defer zw.Close()
	if _, err := io.Copy(zw, backupFile); err != nil {
		monitoring.Logf("failed to stream backup: %v", err)
	}
}
