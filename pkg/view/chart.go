package view

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/aretw0/tooldeck/pkg/domain"
)

const (
	chartPadTop    = 10
	chartPadBottom = 28
	chartPadLeft   = 8
	chartBarColor  = "#2563eb"
	chartNegColor  = "#dc2626"
)

// BarChartSVG renders a chart record as an inline SVG bar chart.
// Negative values draw below a zero baseline. Returns empty HTML for no data.
func BarChartSVG(chart domain.ChartData, width, height int) template.HTML {
	if len(chart.Data) == 0 || width <= 0 || height <= 0 {
		return template.HTML("")
	}

	minVal, maxVal := chartRange(chart.Data)
	plotH := float64(height - chartPadTop - chartPadBottom)
	plotW := float64(width - 2*chartPadLeft)
	slot := plotW / float64(len(chart.Data))
	barW := slot * 0.7

	scale := func(v float64) float64 {
		return float64(chartPadTop) + plotH*(maxVal-v)/(maxVal-minVal)
	}
	zero := scale(0)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg class="chart" width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" role="img">`,
		width, height, width, height)
	if chart.YLabel != "" {
		fmt.Fprintf(&b, `<title>%s</title>`, template.HTMLEscapeString(chart.YLabel))
	}
	fmt.Fprintf(&b, `<line x1="%d" y1="%.2f" x2="%d" y2="%.2f" stroke="#9ca3af" stroke-width="1"/>`,
		chartPadLeft, zero, width-chartPadLeft, zero)

	for i, p := range chart.Data {
		x := float64(chartPadLeft) + slot*float64(i) + (slot-barW)/2
		y := scale(math.Max(p.Value, 0))
		h := math.Abs(scale(p.Value) - zero)
		color := chartBarColor
		if p.Value < 0 {
			y = zero
			color = chartNegColor
		}
		label := template.HTMLEscapeString(p.Label)
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s: %s</title></rect>`,
			x, y, barW, h, color, label, Format(p.Value, ""))
		fmt.Fprintf(&b, `<text x="%.2f" y="%d" font-size="10" text-anchor="middle">%s</text>`,
			x+barW/2, height-chartPadBottom+14, label)
	}
	if chart.XLabel != "" {
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="11" text-anchor="middle">%s</text>`,
			width/2, height-2, template.HTMLEscapeString(chart.XLabel))
	}
	b.WriteString(`</svg>`)

	return template.HTML(b.String())
}

// chartRange returns the value range to scale against, always including zero.
func chartRange(points []domain.ChartPoint) (float64, float64) {
	minVal, maxVal := 0.0, 0.0
	for _, p := range points {
		minVal = math.Min(minVal, p.Value)
		maxVal = math.Max(maxVal, p.Value)
	}
	if minVal == maxVal {
		maxVal = minVal + 1
	}
	return minVal, maxVal
}
