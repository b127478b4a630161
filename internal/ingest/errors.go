package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedFormat means no normalizer claimed the content.
	// Surfaced to users as "unsupported file".
	ErrUnrecognizedFormat = errors.New("no normalizer recognizes this file")

	// ErrNoValidSamples means the file was structurally valid but every row
	// was rejected (no fix, teleporting, out of order).
	ErrNoValidSamples = errors.New("file contains no usable GPS samples")
)

// MalformedDataError reports a file that matched a normalizer's detection but
// violates the format's structure: missing mandatory channels, truncated
// buffers, or a metadata pointer cycle. The reason is shown to the user.
type MalformedDataError struct {
	Format Format
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed %s file: %s", e.Format, e.Reason)
}

func malformedf(format Format, reason string, args ...interface{}) error {
	return &MalformedDataError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}
