// Command analyze runs the analysis pipeline over logger files from the
// shell: normalize, condition, and with a course definition segment into
// laps and print the timing sheet. It can also write the same HTML report
// the server serves.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/ingest"
	"github.com/apex-data/laptrace/internal/laps"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/report"
	"github.com/apex-data/laptrace/internal/signal"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

var (
	coursePath   = flag.String("course", "", "Path to a course definition JSON file (enables lap timing)")
	tuningFile   = flag.String("tuning", "", "Path to a tuning config JSON file")
	displayUnits = flag.String("units", units.KPH, "Display units for speeds")
	lapNumber    = flag.Int("lap", 0, "Lap to feature in the HTML report (default fastest)")
	refNumber    = flag.Int("ref", 0, "Reference lap for the HTML report (default fastest)")
	htmlOut      = flag.String("html", "", "Write an HTML report to this path (requires -course)")
	verbose      = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] <logfile> [logfile ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	monitoring.SetDebug(*verbose)

	if !units.IsValid(*displayUnits) {
		log.Fatalf("invalid units %q, valid values: %s", *displayUnits, units.GetValidUnitsString())
	}
	if *htmlOut != "" && *coursePath == "" {
		log.Fatal("-html requires -course: the report is built around laps")
	}
	if *htmlOut != "" && flag.NArg() > 1 {
		log.Fatal("-html works on a single input file")
	}

	tuning := config.EmptyTuningConfig()
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	var def *course.Definition
	if *coursePath != "" {
		var err error
		def, err = course.Load(*coursePath)
		if err != nil {
			log.Fatalf("failed to load course: %v", err)
		}
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := analyzeFile(path, def, tuning); err != nil {
			log.Printf("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func analyzeFile(path string, def *course.Definition, tuning *config.TuningConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	f, err := ingest.Parse(data, tuning)
	if err != nil {
		return err
	}
	f = signal.Condition(f, tuning)
	printSummary(path, f, tuning.GetDisplayTimezone())

	if def == nil {
		return nil
	}

	segmented := laps.Segment(f, def, tuning)
	printLaps(segmented, *displayUnits)

	if *htmlOut != "" {
		if err := writeReport(path, f, def, segmented); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		fmt.Printf("\nreport written to %s\n", *htmlOut)
	}
	return nil
}

func printSummary(path string, f *telemetry.ParsedFile, tz string) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  format:   %s\n", f.Format)
	fmt.Printf("  samples:  %d over %s\n", len(f.Samples), time.Duration(f.DurationMs)*time.Millisecond)
	if f.StartDate != nil {
		// Start dates are stored UTC; the zone was validated at config load.
		date := *f.StartDate
		if local, err := units.ConvertTime(date, tz); err == nil {
			date = local
		}
		fmt.Printf("  date:     %s\n", date.Format("2006-01-02 15:04:05 MST"))
	}
	if f.Bounds.Valid() {
		fmt.Printf("  bounds:   %.5f,%.5f to %.5f,%.5f\n",
			f.Bounds.MinLat, f.Bounds.MinLon, f.Bounds.MaxLat, f.Bounds.MaxLon)
	}
	names := make([]string, 0, len(f.Fields))
	for _, fm := range f.Fields {
		names = append(names, fm.Channel)
	}
	fmt.Printf("  channels: %s\n", strings.Join(names, ", "))
}

func printLaps(segmented []laps.Lap, displayUnits string) {
	fmt.Println()
	if len(segmented) == 0 {
		fmt.Println("no completed laps on this course")
		return
	}

	fastest, _ := laps.Fastest(segmented)
	fmt.Printf("%4s  %-9s  %-8s  %-9s  %-9s  %-9s  %9s\n",
		"lap", "time", "delta", "s1", "s2", "s3", "max "+displayUnits)
	for _, lap := range segmented {
		delta := "fastest"
		if lap.Number != fastest.Number {
			delta = report.FormatDelta(lap.TimeMs - fastest.TimeMs)
		}
		s1, s2, s3 := "-", "-", "-"
		if lap.Sectors != nil {
			s1 = report.FormatLapTime(lap.Sectors.S1Ms)
			s2 = report.FormatLapTime(lap.Sectors.S2Ms)
			s3 = report.FormatLapTime(lap.Sectors.S3Ms)
		}
		fmt.Printf("%4d  %-9s  %-8s  %-9s  %-9s  %-9s  %9.1f\n",
			lap.Number, report.FormatLapTime(lap.TimeMs), delta, s1, s2, s3,
			units.ConvertSpeed(lap.MaxSpeedMps, displayUnits))
	}

	if optimal, ok := laps.Optimal(segmented); ok {
		fmt.Printf("\noptimal %s (%s): s1 lap %d, s2 lap %d, s3 lap %d\n",
			report.FormatLapTime(optimal.TimeMs),
			report.FormatDelta(optimal.DeltaToFastestMs),
			optimal.SectorLaps[0], optimal.SectorLaps[1], optimal.SectorLaps[2])
	}
}

func writeReport(path string, f *telemetry.ParsedFile, def *course.Definition, segmented []laps.Lap) error {
	data, err := report.Build(report.Params{
		SessionName: filepath.Base(path),
		TrackName:   def.Name,
		Units:       *displayUnits,
		File:        f,
		Laps:        segmented,
		LapNumber:   *lapNumber,
		RefNumber:   *refNumber,
	})
	if err != nil {
		return err
	}

	out, err := os.Create(*htmlOut)
	if err != nil {
		return err
	}
	if err := report.Render(out, data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
