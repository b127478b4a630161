// Command gen-gpslog generates synthetic GPS logs in the enhanced CSV
// format, optionally with a matching course definition, for exercising the
// pipeline without real logger data.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/synth"
)

func main() {
	output := flag.String("o", "sample.csv", "output path")
	coursePath := flag.String("course", "", "also write a matching course definition to this path")
	lapCount := flag.Float64("laps", 3.5, "laps of data to generate")
	noise := flag.Float64("noise", 0, "GPS position noise in meters (standard deviation)")
	seed := flag.Int64("seed", 1, "noise random seed")
	flag.Parse()

	c := synth.Circuit{
		Center:   geo.Point{Lat: 44.5, Lon: 11.0},
		RadiusM:  100,
		LapS:     20,
		RateHz:   10,
		Laps:     *lapCount,
		PhaseDeg: 0.9,
	}

	samples := c.Samples()
	if *noise > 0 {
		rng := rand.New(rand.NewSource(*seed))
		for i := range samples {
			s := &samples[i]
			s.Lat += rng.NormFloat64() * *noise / geo.EarthRadiusM * 180 / math.Pi
			s.Lon += rng.NormFloat64() * *noise / (geo.EarthRadiusM * math.Cos(s.Lat*math.Pi/180)) * 180 / math.Pi
		}
	}

	now := time.Now()
	data := synth.EnhancedCSV(samples, map[string]string{
		"Driver":      "synthetic",
		"Session":     "generated",
		"Date":        now.Format("02/01/2006"),
		"Time of Day": now.Format("15:04:05"),
	})
	if err := os.WriteFile(*output, data, 0644); err != nil {
		log.Fatalf("write log: %v", err)
	}
	log.Printf("%d samples (%.1f laps) written to %s", len(samples), *lapCount, *output)

	if *coursePath == "" {
		return
	}
	s2 := c.RadialLine(210, 30)
	s3 := c.RadialLine(330, 30)
	def := course.Definition{
		Name:        "synthetic circle",
		StartFinish: c.RadialLine(90, 30),
		Sector2:     &s2,
		Sector3:     &s3,
	}
	out, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		log.Fatalf("marshal course: %v", err)
	}
	if err := os.WriteFile(*coursePath, append(out, '\n'), 0644); err != nil {
		log.Fatalf("write course: %v", err)
	}
	log.Printf("course written to %s", *coursePath)
}
