package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// FormatLapTime renders a millisecond duration as m:ss.mmm.
func FormatLapTime(ms float64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	m := int(ms) / 60000
	s := (ms - float64(m)*60000) / 1000
	return fmt.Sprintf("%s%d:%06.3f", sign, m, s)
}

// FormatDelta renders a millisecond gap as a signed seconds string.
func FormatDelta(ms float64) string {
	return fmt.Sprintf("%+.3f", ms/1000)
}

// Render writes the full report page: header with the lap table and
// statistics, then the comparison charts.
func Render(w io.Writer, d *Data) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s at %s", d.SessionName, d.TrackName)
	page.AddCharts(speedChart(d), paceChart(d))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render charts: %v", err)
	}

	header, err := renderHeader(d)
	if err != nil {
		return err
	}
	// The page template opens a bare <body> tag; the header slots in right
	// after it.
	out := strings.Replace(buf.String(), "<body>", "<body>\n"+header, 1)
	_, err = io.WriteString(w, out)
	return err
}

func speedChart(d *Data) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Speed vs Distance (%s)", d.Units),
			Subtitle: fmt.Sprintf("lap %d against lap %d", d.Current.Number, d.Reference.Number),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: d.Units}),
	)

	current := make([]opts.LineData, len(d.CurrentSpeed))
	for i, v := range d.CurrentSpeed {
		current[i] = opts.LineData{Value: v}
	}
	reference := make([]opts.LineData, len(d.RefSpeed))
	for i, v := range d.RefSpeed {
		reference[i] = lineValue(v)
	}

	line.SetXAxis(distanceLabels(d.DistanceM)).
		AddSeries(fmt.Sprintf("lap %d", d.Current.Number), current).
		AddSeries(fmt.Sprintf("lap %d (reference)", d.Reference.Number), reference)
	return line
}

func paceChart(d *Data) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1200px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Pace Delta",
			Subtitle: "positive means time lost to the reference",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)

	delta := make([]opts.LineData, len(d.PaceS))
	for i, v := range d.PaceS {
		delta[i] = lineValue(v)
	}
	line.SetXAxis(distanceLabels(d.DistanceM)).
		AddSeries("pace delta", delta)
	return line
}

// lineValue maps a gap to the echarts empty-value marker.
func lineValue(v *float64) opts.LineData {
	if v == nil {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: *v}
}

func distanceLabels(distances []float64) []string {
	out := make([]string, len(distances))
	for i, m := range distances {
		out[i] = strconv.FormatFloat(m, 'f', 0, 64)
	}
	return out
}

var headerTpl = template.Must(template.New("header").Funcs(template.FuncMap{
	"laptime": FormatLapTime,
	"delta":   FormatDelta,
	"speed":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
}).Parse(`<div style="font-family:sans-serif;max-width:1200px;margin:1em auto;color:#ddd;background:#100c2a;padding:1em">
<h1>{{.SessionName}} at {{.TrackName}}</h1>
<table style="border-collapse:collapse;width:100%" border="1" cellpadding="4">
<tr><th>Lap</th><th>Time</th><th>Delta</th><th>S1</th><th>S2</th><th>S3</th><th>Max ({{.Units}})</th></tr>
{{range .Rows}}<tr{{if .Fastest}} style="font-weight:bold"{{end}}>
<td>{{.Number}}</td><td>{{laptime .TimeMs}}</td><td>{{if .Fastest}}&mdash;{{else}}{{delta .DeltaMs}}{{end}}</td>
{{if .Sectors}}<td>{{laptime .Sectors.S1Ms}}</td><td>{{laptime .Sectors.S2Ms}}</td><td>{{laptime .Sectors.S3Ms}}</td>{{else}}<td>&mdash;</td><td>&mdash;</td><td>&mdash;</td>{{end}}
<td>{{speed .MaxSpeed}}</td></tr>
{{end}}{{if .Optimal}}<tr style="font-style:italic">
<td>optimal</td><td>{{laptime .Optimal.TimeMs}}</td><td>{{delta .Optimal.DeltaToFastestMs}}</td>
<td>{{laptime .Optimal.Sectors.S1Ms}}</td><td>{{laptime .Optimal.Sectors.S2Ms}}</td><td>{{laptime .Optimal.Sectors.S3Ms}}</td>
<td>&mdash;</td></tr>{{end}}
</table>
<p>Lap {{.Current.Number}}: mean {{speed .CurrentStats.Mean}}, median {{speed .CurrentStats.Median}}, max {{speed .CurrentStats.Max}} {{.Units}}.
Reference lap {{.Reference.Number}}: mean {{speed .ReferenceStats.Mean}}, median {{speed .ReferenceStats.Median}}, max {{speed .ReferenceStats.Max}} {{.Units}}.</p>
</div>`))

func renderHeader(d *Data) (string, error) {
	var buf bytes.Buffer
	if err := headerTpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to render report header: %v", err)
	}
	return buf.String(), nil
}
