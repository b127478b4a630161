// Command lapchart renders static PNG charts of one lap against a
// reference: speed over distance and the running pace delta. The server's
// HTML report carries the same charts interactively; this one is for docs
// and offline comparison.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/ingest"
	"github.com/apex-data/laptrace/internal/laps"
	"github.com/apex-data/laptrace/internal/report"
	"github.com/apex-data/laptrace/internal/signal"
	"github.com/apex-data/laptrace/internal/units"
)

var (
	coursePath   = flag.String("course", "", "Path to a course definition JSON file (required)")
	tuningFile   = flag.String("tuning", "", "Path to a tuning config JSON file")
	displayUnits = flag.String("units", units.KPH, "Display units for speeds")
	lapNumber    = flag.Int("lap", 0, "Lap to chart (default fastest)")
	refNumber    = flag.Int("ref", 0, "Reference lap (default fastest)")
	outPrefix    = flag.String("o", "lap", "Output prefix, writes <prefix>_speed.png and <prefix>_pace.png")
)

var (
	currentColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	referenceColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	paceColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lapchart -course <course.json> [flags] <logfile>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *coursePath == "" {
		log.Fatal("-course is required")
	}
	if !units.IsValid(*displayUnits) {
		log.Fatalf("invalid units %q, valid values: %s", *displayUnits, units.GetValidUnitsString())
	}

	var tuning *config.TuningConfig
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}
	def, err := course.Load(*coursePath)
	if err != nil {
		log.Fatalf("failed to load course: %v", err)
	}

	path := flag.Arg(0)
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	f, err := ingest.Parse(raw, tuning)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	f = signal.Condition(f, tuning)

	data, err := report.Build(report.Params{
		SessionName: path,
		TrackName:   def.Name,
		Units:       *displayUnits,
		File:        f,
		Laps:        laps.Segment(f, def, tuning),
		LapNumber:   *lapNumber,
		RefNumber:   *refNumber,
	})
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}

	speedFile := *outPrefix + "_speed.png"
	if err := saveSpeedPlot(data, speedFile); err != nil {
		log.Fatalf("save speed plot: %v", err)
	}
	log.Printf("wrote %s", speedFile)

	paceFile := *outPrefix + "_pace.png"
	if err := savePacePlot(data, paceFile); err != nil {
		log.Fatalf("save pace plot: %v", err)
	}
	log.Printf("wrote %s", paceFile)
}

func saveSpeedPlot(d *report.Data, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: lap %d vs lap %d", d.TrackName, d.Current.Number, d.Reference.Number)
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Speed (" + d.Units + ")"

	cur := make(plotter.XYs, 0, len(d.DistanceM))
	for i, dist := range d.DistanceM {
		cur = append(cur, plotter.XY{X: dist, Y: d.CurrentSpeed[i]})
	}
	curLine, err := plotter.NewLine(cur)
	if err != nil {
		return err
	}
	curLine.Color = currentColor
	curLine.Width = vg.Points(1)
	p.Add(curLine)
	p.Legend.Add(fmt.Sprintf("lap %d", d.Current.Number), curLine)

	// Reference gaps simply drop out of the line.
	ref := make(plotter.XYs, 0, len(d.DistanceM))
	for i, dist := range d.DistanceM {
		if d.RefSpeed[i] == nil {
			continue
		}
		ref = append(ref, plotter.XY{X: dist, Y: *d.RefSpeed[i]})
	}
	if len(ref) > 0 {
		refLine, err := plotter.NewLine(ref)
		if err != nil {
			return err
		}
		refLine.Color = referenceColor
		refLine.Width = vg.Points(1)
		p.Add(refLine)
		p.Legend.Add(fmt.Sprintf("lap %d (reference)", d.Reference.Number), refLine)
	}

	p.Legend.Top = true
	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}

func savePacePlot(d *report.Data, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pace delta to lap %d", d.Reference.Number)
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Delta (s)"

	pts := make(plotter.XYs, 0, len(d.DistanceM))
	for i, dist := range d.DistanceM {
		if d.PaceS[i] == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: dist, Y: *d.PaceS[i]})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = paceColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("time lost", line)

	p.Legend.Top = true
	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
