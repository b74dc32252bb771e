package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

func fmtCode(code int) string { return fmt.Sprintf("exit %d", code) }

// Metric is one labelled line of a summary.
type Metric struct {
	Label string
	Value string
}

// Summary renders a titled panel of metrics.
func Summary(title string, metrics []Metric) string {
	width := 0
	for _, m := range metrics {
		width = max(width, len(m.Label))
	}

	var b strings.Builder
	b.WriteString(Title.Render(title))
	for _, m := range metrics {
		b.WriteString("\n")
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-*s", width, m.Label)))
		b.WriteString("  ")
		b.WriteString(MetricValue.Render(m.Value))
	}
	return Panel.Render(b.String())
}

// PlotSeries draws series as an ASCII chart, downsampled to width points.
func PlotSeries(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return Subtle.Render("no samples")
	}
	return asciigraph.Plot(downsample(series, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

func downsample(series []float64, n int) []float64 {
	if n <= 0 || len(series) <= n {
		return series
	}
	out := make([]float64, n)
	step := float64(len(series)-1) / float64(n-1)
	for i := range out {
		out[i] = series[int(float64(i)*step+0.5)]
	}
	return out
}
