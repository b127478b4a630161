package api

import (
	"math"
	"net/http"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/apex-data/laptrace/internal/httputil"
	"github.com/apex-data/laptrace/internal/signal"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// ChannelStatsAPI summarizes one logged channel for the channel picker:
// its field mapping plus coverage and range over the session.
type ChannelStatsAPI struct {
	Channel string   `json:"channel"`
	Display bool     `json:"display"`
	Count   int      `json:"count"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Mean    *float64 `json:"mean,omitempty"`
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		httputil.BadRequest(w, "session parameter is required")
		return
	}

	f, ok := s.loadConditioned(w, sessionID)
	if !ok {
		return
	}

	channels := make([]ChannelStatsAPI, 0, len(f.Fields))
	for _, fm := range f.Fields {
		channels = append(channels, channelStats(f, fm))
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session":  sessionID,
		"channels": channels,
		"count":    len(channels),
	})
}

func channelStats(f *telemetry.ParsedFile, fm telemetry.FieldMapping) ChannelStatsAPI {
	out := ChannelStatsAPI{Channel: fm.Channel, Display: fm.Display}

	// Gaps are NaN in the extracted series; stats run over logged values only.
	var logged []float64
	for _, v := range channelSeries(f, fm.Channel) {
		if !math.IsNaN(v) {
			logged = append(logged, v)
		}
	}
	out.Count = len(logged)
	if len(logged) == 0 {
		return out
	}

	lo, hi := logged[0], logged[0]
	for _, v := range logged[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	mean := stat.Mean(logged, nil)
	out.Min, out.Max, out.Mean = &lo, &hi, &mean
	return out
}

// channelSeries resolves a channel name to its sample-aligned series. Speed
// and Heading live on the sample struct itself; everything else is an extra
// channel.
func channelSeries(f *telemetry.ParsedFile, name string) []float64 {
	switch name {
	case "Speed":
		return f.SpeedValues()
	case "Heading":
		out := make([]float64, len(f.Samples))
		for i := range f.Samples {
			out[i] = f.Samples[i].Heading
		}
		return out
	}
	return f.ChannelValues(name)
}

// SeriesAPI is one channel extracted as a time-aligned series, smoothed by
// the tuning strength unless the request overrides it. Gaps are null, never
// invented values.
type SeriesAPI struct {
	Session string     `json:"session"`
	Channel string     `json:"channel"`
	Units   string     `json:"units,omitempty"`
	TimesMs []int64    `json:"times_ms"`
	Values  []*float64 `json:"values"`
}

func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	sessionID := query.Get("session")
	channel := query.Get("channel")
	if sessionID == "" {
		httputil.BadRequest(w, "session parameter is required")
		return
	}
	if channel == "" {
		httputil.BadRequest(w, "channel parameter is required")
		return
	}
	displayUnits, ok := s.requestUnits(w, r)
	if !ok {
		return
	}
	strength := s.tuning.GetSmoothStrength()
	if raw := query.Get("smooth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			httputil.BadRequest(w, "smooth parameter must be an integer between 0 and 100")
			return
		}
		strength = v
	}

	f, ok := s.loadConditioned(w, sessionID)
	if !ok {
		return
	}
	if !knownChannel(f, channel) {
		httputil.NotFound(w, "channel not found in session")
		return
	}

	series := SeriesAPI{
		Session: sessionID,
		Channel: channel,
		TimesMs: make([]int64, len(f.Samples)),
		Values:  make([]*float64, len(f.Samples)),
	}
	values := channelSeries(f, channel)
	// Heading is circular: a moving average across the north wrap invents
	// directions, so it is served raw.
	if channel != "Heading" {
		values = signal.Smooth(values, signal.SmoothWindow(strength))
	}
	convert := channel == "Speed"
	if convert {
		series.Units = displayUnits
	}
	for i := range f.Samples {
		series.TimesMs[i] = f.Samples[i].TimeMs
		if math.IsNaN(values[i]) {
			continue
		}
		v := values[i]
		if convert {
			v = units.ConvertSpeed(v, displayUnits)
		}
		series.Values[i] = &v
	}
	httputil.WriteJSONOK(w, series)
}

func knownChannel(f *telemetry.ParsedFile, name string) bool {
	for _, fm := range f.Fields {
		if fm.Channel == name {
			return true
		}
	}
	return false
}
