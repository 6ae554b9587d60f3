package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/leetboard/internal/facet"
)

// Bar is one labelled value. Series selects the bar color.
type Bar struct {
	Label  string
	Value  float64
	Series int
}

// BarChart is a horizontal bar chart.
type BarChart struct {
	Title string
	// Label names the value axis.
	Label string
	Bars  []Bar
}

type ansiColor struct {
	name string
	code string
}

const (
	minBarWidth         = 10
	axisSeparator       = " │ "
	negativeBlock       = '░'
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
	percentScale        = 100
)

// Eighth blocks, index n covers n/8 of a cell.
var partialBlocks = []rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉', '█'}

var colorPalette = []ansiColor{
	{name: "cyan", code: "\x1b[36m"},
	{name: "magenta", code: "\x1b[35m"},
	{name: "yellow", code: "\x1b[33m"},
	{name: "green", code: "\x1b[32m"},
	{name: "blue", code: "\x1b[34m"},
}

// RenderBarChart writes chart scaled to fit width columns. A width of zero
// or less uses the terminal width. Bars are scaled by the largest absolute
// value; negative values are drawn with a lighter block.
func RenderBarChart(w io.Writer, chart BarChart, width int, forceColor bool) error {
	if len(chart.Bars) == 0 {
		return nil
	}
	if width <= 0 {
		width = terminalWidth()
	}
	useColor := shouldUseColor(w, forceColor)

	labelWidth := 0
	valueWidth := 0
	values := make([]string, len(chart.Bars))
	maxAbs := 0.0
	for i, b := range chart.Bars {
		if lw := displayWidth(b.Label); lw > labelWidth {
			labelWidth = lw
		}
		values[i] = formatValue(b.Value)
		if vw := len(values[i]); vw > valueWidth {
			valueWidth = vw
		}
		if a := math.Abs(b.Value); a > maxAbs {
			maxAbs = a
		}
	}
	barWidth := BarWidthFor(width, labelWidth, valueWidth)

	if chart.Title != "" {
		if _, err := fmt.Fprintln(w, chart.Title); err != nil {
			return err
		}
	}
	if chart.Label != "" {
		if _, err := fmt.Fprintf(w, "(%s)\n", chart.Label); err != nil {
			return err
		}
	}
	for i, b := range chart.Bars {
		bar, cells := renderBar(b.Value, maxAbs, barWidth)
		if useColor && cells > 0 {
			bar = colorPalette[seriesIndex(b.Series)].code + bar + colorReset
		}
		line := padCell(b.Label, labelWidth, false) + axisSeparator + bar +
			strings.Repeat(" ", barWidth-cells) + " " + padCell(values[i], valueWidth, true)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// BarWidthFor returns the bar area left in totalWidth after the label,
// separator and value columns. It never drops below a readable minimum.
func BarWidthFor(totalWidth, labelWidth, valueWidth int) int {
	barWidth := totalWidth - labelWidth - displayWidth(axisSeparator) - 1 - valueWidth
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	return barWidth
}

// renderBar returns the bar and the number of terminal cells it occupies.
func renderBar(value, maxAbs float64, width int) (string, int) {
	if maxAbs == 0 || width <= 0 {
		return "", 0
	}
	frac := math.Abs(value) / maxAbs
	if value < 0 {
		n := int(math.Round(frac * float64(width)))
		return strings.Repeat(string(negativeBlock), n), n
	}
	eighths := int(math.Round(frac * float64(width) * 8))
	full := eighths / 8
	rem := eighths % 8
	bar := strings.Repeat(string(partialBlocks[8]), full)
	if rem > 0 {
		return bar + string(partialBlocks[rem]), full + 1
	}
	return bar, full
}

func seriesIndex(series int) int {
	if series < 0 {
		series = -series
	}
	return series % len(colorPalette)
}

// RenderComparison writes the facet's radar metrics as grouped bars, one
// group per metric and one bar per player. Fraction columns are shown as
// percentages.
func RenderComparison(w io.Writer, view facet.View, width int, forceColor bool) error {
	if len(view.Rows) == 0 || len(view.Facet.Radar) == 0 {
		return nil
	}
	f := view.Facet
	metricWidth := 0
	labels := make([]string, len(f.Radar))
	for i, name := range f.Radar {
		labels[i] = columnLabel(f, name)
		if lw := displayWidth(labels[i]); lw > metricWidth {
			metricWidth = lw
		}
	}

	chart := BarChart{Title: f.Title + " comparison"}
	for mi, name := range f.Radar {
		values := view.Column(name)
		for pi, r := range view.Rows {
			metric := ""
			if pi == 0 {
				metric = labels[mi]
			}
			v := values[pi]
			if f.IsPercent(name) {
				v *= percentScale
			}
			chart.Bars = append(chart.Bars, Bar{
				Label:  padCell(metric, metricWidth, false) + "  " + r.DisplayName,
				Value:  v,
				Series: pi,
			})
		}
	}
	if err := RenderBarChart(w, chart, width, forceColor); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, renderLegend(view.Names(), shouldUseColor(w, forceColor)))
	return err
}

// RenderFacet writes the table, the radar comparison and one bar chart per
// column.
func RenderFacet(w io.Writer, view facet.View, width int, forceColor bool) error {
	if err := RenderTable(w, view); err != nil {
		return err
	}
	if len(view.Rows) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if err := RenderComparison(w, view, width, forceColor); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	for _, col := range view.Facet.Columns {
		values := view.Column(col.Name)
		chart := BarChart{Title: col.Label, Label: col.Name}
		for i, r := range view.Rows {
			chart.Bars = append(chart.Bars, Bar{Label: r.DisplayName, Value: values[i], Series: i})
		}
		if err := RenderBarChart(w, chart, width, forceColor); err != nil {
			return err
		}
	}
	return nil
}

func columnLabel(f facet.Facet, name string) string {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return name
	}
	label := f.Columns[idx].Label
	if f.IsPercent(name) {
		label += " (%)"
	}
	return label
}

func renderLegend(names []string, useColor bool) string {
	parts := make([]string, 0, len(names))
	for i, name := range names {
		label := fmt.Sprintf("%c %s", partialBlocks[8], name)
		if useColor {
			label = colorPalette[seriesIndex(i)].code + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
