package ingest

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

/*
MoTeC-style .ld binary logger format

The file is treated as a byte arena addressed by absolute offsets:

  ┌ Header (24 bytes)
  │   0x00 u32 magic marker (0x40)
  │   0x04 u32 format version (ignored)
  │   0x08 u32 offset of the first channel metadata record (0 = none)
  │   0x0C     reserved
  ├ Channel metadata records (124 bytes each, a doubly linked list)
  │   0x00 u32 prev record offset        0x14 u16 sample frequency (Hz)
  │   0x04 u32 next record offset        0x16 i16 shift
  │   0x08 u32 sample data offset        0x18 i16 multiplier
  │   0x0C u32 sample count              0x1A i16 scale
  │   0x10 u16 type family               0x1C i16 decimal exponent
  │   0x12 u16 sample width (bytes)
  │   0x1E 32s name   0x3E 8s short name   0x46 12s unit   0x52 42 pad
  └ Sample data blocks (raw arrays, one per channel, pointed to by records)

Sample readers by (family, width): float family 0x07 with width 4 is IEEE
float32, width 2 a half-float; any other family with width 4 is int32, width
2 int16. Every raw value is rescaled by

  value = (raw / scale * 10^-dec + shift) * mul

Channels record independent frequencies. The GPS latitude channel is the time
base: every other channel is resampled onto it by nearest-neighbor index
mapping, never interpolation, since logger starts are aligned and invented
intermediate values would corrupt slow channels.

List traversal keeps a visited-offset set so a corrupt next pointer cannot
loop the decoder forever.
*/

// Header layout
const (
	ldHeaderSize    = 24
	ldMagicOffset   = 0x00
	ldChanPtrOffset = 0x08

	ldMagic = 0x40 // first 4 bytes, little-endian
)

// Channel metadata record layout
const (
	ldChanRecSize = 124

	ldChanPrevOffset  = 0x00
	ldChanNextOffset  = 0x04
	ldChanDataOffset  = 0x08
	ldChanCountOffset = 0x0C
	ldChanTypeAOffset = 0x10 // type family discriminator
	ldChanWidthOffset = 0x12 // sample width in bytes
	ldChanFreqOffset  = 0x14 // sample frequency in Hz
	ldChanShiftOffset = 0x16
	ldChanMulOffset   = 0x18
	ldChanScaleOffset = 0x1A
	ldChanDecOffset   = 0x1C
	ldChanNameOffset  = 0x1E
	ldChanNameLen     = 32
	ldChanShortOffset = 0x3E
	ldChanShortLen    = 8
	ldChanUnitOffset  = 0x46
	ldChanUnitLen     = 12

	ldTypeFamilyFloat = 0x07
)

// motecBinaryNormalizer decodes the proprietary .ld-style binary logger
// format described above.
type motecBinaryNormalizer struct{}

func (motecBinaryNormalizer) Format() Format { return FormatMotecBinary }

func (motecBinaryNormalizer) Detect(data []byte) bool {
	return len(data) >= ldHeaderSize &&
		binary.LittleEndian.Uint32(data[ldMagicOffset:]) == ldMagic
}

// ldChannel is one decoded channel: metadata plus fully rescaled samples.
type ldChannel struct {
	name   string
	unit   string
	freqHz int
	values []float64
}

func (n motecBinaryNormalizer) Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	if len(data) < ldHeaderSize {
		return nil, malformedf(n.Format(), "truncated header: %d bytes", len(data))
	}
	first := binary.LittleEndian.Uint32(data[ldChanPtrOffset:])
	if first == 0 {
		return nil, malformedf(n.Format(), "header points at no channel metadata")
	}

	channels, err := walkChannelList(data, first)
	if err != nil {
		return nil, err
	}

	// Assign GPS roles by channel name, first match wins. The remaining
	// channels ride along as named extras.
	var latCh, lonCh, spdCh, hdgCh *ldChannel
	var extras []*ldChannel
	for i := range channels {
		ch := &channels[i]
		switch classifyColumn(ch.name) {
		case colLat:
			if latCh == nil {
				latCh = ch
				continue
			}
		case colLon:
			if lonCh == nil {
				lonCh = ch
				continue
			}
		case colSpeed:
			if spdCh == nil {
				spdCh = ch
				continue
			}
		case colHeading:
			if hdgCh == nil {
				hdgCh = ch
				continue
			}
		case colTime:
			// Timestamps are synthesized from the base frequency; an
			// explicit time channel is redundant.
			continue
		}
		extras = append(extras, ch)
	}
	if latCh == nil || lonCh == nil {
		return nil, malformedf(n.Format(), "missing GPS latitude/longitude channels")
	}
	if spdCh == nil {
		return nil, malformedf(n.Format(), "missing speed channel")
	}

	speedUnit := units.SniffSpeedUnit(spdCh.unit)
	if speedUnit == "" {
		speedUnit = units.KPH
	}

	// The GPS latitude channel provides the time base.
	baseFreq := latCh.freqHz
	nBase := len(latCh.values)

	fields := []telemetry.FieldMapping{{Channel: "Speed", Display: true}}
	if hdgCh != nil {
		fields = append(fields, telemetry.FieldMapping{Channel: "Heading", Display: true})
	}
	for _, ec := range extras {
		fields = append(fields, telemetry.FieldMapping{Channel: ec.name, Display: displayByDefault(ec.name)})
	}

	b := newSampleBuilder(tuning.GetMaxPlausibleSpeedMPS())
	for i := 0; i < nBase; i++ {
		s := telemetry.Sample{
			TimeMs:   int64(math.Round(float64(i) * 1000 / float64(baseFreq))),
			Lat:      latCh.values[i],
			Lon:      resampleNearest(lonCh, i, baseFreq),
			SpeedMps: units.ToMPS(resampleNearest(spdCh, i, baseFreq), speedUnit),
			Heading:  math.NaN(),
		}
		if hdgCh != nil {
			s.Heading = resampleNearest(hdgCh, i, baseFreq)
		}
		if len(extras) > 0 {
			s.Channels = make(map[string]float64, len(extras))
			for _, ec := range extras {
				s.Channels[ec.name] = resampleNearest(ec, i, baseFreq)
			}
		}
		b.add(s)
	}

	return b.build(n.Format(), fields, nil)
}

// resampleNearest maps base-frequency index i onto the channel's own sample
// array: srcIndex = round(i * chanFreq / baseFreq), clamped to the available
// range. Nearest-neighbor, never interpolation.
func resampleNearest(ch *ldChannel, i, baseFreq int) float64 {
	src := int(math.Round(float64(i) * float64(ch.freqHz) / float64(baseFreq)))
	if src >= len(ch.values) {
		src = len(ch.values) - 1
	}
	return ch.values[src]
}

// walkChannelList traverses the metadata linked list starting at first,
// decoding every channel. A visited-offset set guards against pointer cycles
// in corrupt files.
func walkChannelList(data []byte, first uint32) ([]ldChannel, error) {
	visited := make(map[uint32]bool)
	var out []ldChannel
	for off := first; off != 0; {
		if visited[off] {
			return nil, malformedf(FormatMotecBinary, "channel metadata pointer cycle at offset 0x%x", off)
		}
		visited[off] = true
		if int64(off)+ldChanRecSize > int64(len(data)) {
			return nil, malformedf(FormatMotecBinary, "channel record at 0x%x overruns file (%d bytes)", off, len(data))
		}
		rec := data[off : int(off)+ldChanRecSize]

		ch, ok, err := decodeChannel(data, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ch)
		}
		off = binary.LittleEndian.Uint32(rec[ldChanNextOffset:])
	}
	return out, nil
}

// decodeChannel reads one metadata record and its sample block. Channels with
// an unknown sample type are skipped, not fatal; overruns and broken scale
// factors are.
func decodeChannel(data, rec []byte) (ldChannel, bool, error) {
	dataPtr := binary.LittleEndian.Uint32(rec[ldChanDataOffset:])
	count := binary.LittleEndian.Uint32(rec[ldChanCountOffset:])
	family := binary.LittleEndian.Uint16(rec[ldChanTypeAOffset:])
	width := binary.LittleEndian.Uint16(rec[ldChanWidthOffset:])
	freq := binary.LittleEndian.Uint16(rec[ldChanFreqOffset:])
	shift := int16(binary.LittleEndian.Uint16(rec[ldChanShiftOffset:]))
	mul := int16(binary.LittleEndian.Uint16(rec[ldChanMulOffset:]))
	scale := int16(binary.LittleEndian.Uint16(rec[ldChanScaleOffset:]))
	dec := int16(binary.LittleEndian.Uint16(rec[ldChanDecOffset:]))
	name := cString(rec[ldChanNameOffset : ldChanNameOffset+ldChanNameLen])
	unit := cString(rec[ldChanUnitOffset : ldChanUnitOffset+ldChanUnitLen])

	if freq == 0 || count == 0 {
		monitoring.Debugf("ingest: motec-ld: channel %q: empty (freq=%d count=%d), skipped", name, freq, count)
		return ldChannel{}, false, nil
	}
	read := pickReader(family, width)
	if read == nil {
		monitoring.Debugf("ingest: motec-ld: channel %q: unsupported sample type %d/%d, skipped", name, family, width)
		return ldChannel{}, false, nil
	}
	if scale == 0 {
		return ldChannel{}, false, malformedf(FormatMotecBinary, "channel %q: zero scale factor", name)
	}
	start := int64(dataPtr)
	end := start + int64(count)*int64(width)
	if start < ldHeaderSize || end > int64(len(data)) {
		return ldChannel{}, false, malformedf(FormatMotecBinary,
			"channel %q: data block [0x%x,0x%x) overruns file (%d bytes)", name, start, end, len(data))
	}

	values := make([]float64, count)
	pow := math.Pow(10, -float64(dec))
	for i := range values {
		raw := read(data[int(dataPtr)+i*int(width):])
		values[i] = (raw/float64(scale)*pow + float64(shift)) * float64(mul)
	}
	return ldChannel{
		name:   name,
		unit:   unit,
		freqHz: int(freq),
		values: values,
	}, true, nil
}

// pickReader selects the raw sample reader for a channel's type family and
// width, or nil when the combination is unknown.
func pickReader(family, width uint16) func([]byte) float64 {
	if family == ldTypeFamilyFloat {
		switch width {
		case 4:
			return func(b []byte) float64 {
				return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			}
		case 2:
			return func(b []byte) float64 {
				return halfToFloat(binary.LittleEndian.Uint16(b))
			}
		}
		return nil
	}
	switch width {
	case 4:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b)))
		}
	case 2:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b)))
		}
	}
	return nil
}

// cString trims a fixed-width NUL-padded byte field to its string value.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
