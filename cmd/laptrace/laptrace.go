package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex-data/laptrace/internal/api"
	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/store"
	"github.com/apex-data/laptrace/internal/units"
	"github.com/apex-data/laptrace/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbPath       = flag.String("db", "laptrace.db", "Path to the sqlite database")
	tuningFile   = flag.String("tuning", "", "Path to a tuning config JSON file (built-in defaults when empty)")
	displayUnits = flag.String("units", units.KPH, "Default display units for speeds")
	debugLog     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*displayUnits) {
		log.Fatalf("invalid units %q, valid values: %s", *displayUnits, units.GetValidUnitsString())
	}
	monitoring.SetDebug(*debugLog)

	var tuning *config.TuningConfig
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		log.Printf("loaded tuning config from %s", *tuningFile)
	}

	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	mux := api.NewServer(st, tuning, *displayUnits).ServeMux()

	// mount the admin debugging routes (database console and backup download)
	if err := st.AttachAdminRoutes(mux); err != nil {
		log.Fatalf("failed to attach admin routes: %v", err)
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("laptrace %s listening on %s", version.String(), *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("Graceful shutdown complete")
}
