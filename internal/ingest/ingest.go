// Package ingest turns raw log files from heterogeneous racing data-loggers
// into the canonical telemetry.ParsedFile shape. One normalizer exists per
// supported format; dispatch tries each in a fixed priority order until one
// claims the content. Parsing is a pure function of its input: identical bytes
// always produce an identical ParsedFile, and a file either parses completely
// or fails with a typed error, never partially.
package ingest

import (
	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// Format identifies one supported logger file format.
type Format string

const (
	FormatMotecBinary Format = "motec-ld"
	FormatFit         Format = "fit"
	FormatVbo         Format = "vbo"
	FormatMotecCsv    Format = "motec-csv"
	FormatAlfanoCsv   Format = "alfano-csv"
	FormatEnhancedCsv Format = "enhanced-csv"
)

// normalizer is one member of the closed format set. New formats are added by
// adding a variant here, never by open-ended registration.
type normalizer interface {
	Format() Format
	Detect(data []byte) bool
	Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error)
}

// normalizers in priority order: unambiguous binary magics first, then
// structured text markers, with the most permissive CSV shape last so it
// cannot shadow the specific ones.
var normalizers = []normalizer{
	motecBinaryNormalizer{},
	fitNormalizer{},
	vboNormalizer{},
	motecCsvNormalizer{},
	alfanoCsvNormalizer{},
	enhancedCsvNormalizer{},
}

// Parse normalizes one raw log file. It returns ErrUnrecognizedFormat when no
// normalizer claims the content, a *MalformedDataError for a recognized but
// structurally broken file, and ErrNoValidSamples when every row was filtered
// out. A nil tuning config uses the built-in defaults.
func Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	for _, n := range normalizers {
		if n.Detect(data) {
			monitoring.Debugf("ingest: %s normalizer claimed file (%d bytes)", n.Format(), len(data))
			return n.Parse(data, tuning)
		}
	}
	return nil, ErrUnrecognizedFormat
}

// DetectFormat reports which normalizer would claim the content, without
// parsing it.
func DetectFormat(data []byte) (Format, bool) {
	for _, n := range normalizers {
		if n.Detect(data) {
			return n.Format(), true
		}
	}
	return "", false
}

// displayByDefault reports whether a channel should be surfaced in the UI
// without the user opting in. Temperatures, voltages and other housekeeping
// channels stay hidden until selected.
func displayByDefault(name string) bool {
	switch canonicalKey(name) {
	case "speed", "heading", "rpm", "enginerpm", "throttle", "throttlepos", "brake", "gforcelat", "gforcelong":
		return true
	}
	return false
}
