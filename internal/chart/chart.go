// Package chart renders price series as braille line charts.
package chart

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Style is the stroke pattern of a layer.
type Style int

// Stroke patterns.
const (
	Solid Style = iota
	Dashed
	Dotted
)

func (s Style) String() string {
	switch s {
	case Dashed:
		return "dashed"
	case Dotted:
		return "dotted"
	default:
		return "solid"
	}
}

func (s Style) shouldPlot(x int) bool {
	if x < 0 {
		x = -x
	}
	switch s {
	case Dashed:
		return x%6 < 3
	case Dotted:
		return x%4 < 1
	default:
		return true
	}
}

// Point is a price at a horizontal slot.
type Point struct {
	Slot  float64
	Price float64
}

// Layer is one stroked polyline.
type Layer struct {
	Name   string
	Points []Point
	Style  Style
	Color  lipgloss.Color
}

// Line returns a layer built from consecutive prices starting at slot offset.
func Line(name string, offset int, prices []float64, style Style, color lipgloss.Color) Layer {
	pts := make([]Point, len(prices))
	for i, p := range prices {
		pts[i] = Point{Slot: float64(offset + i), Price: p}
	}
	return Layer{Name: name, Points: pts, Style: style, Color: color}
}

// Level returns a horizontal layer spanning slots [from, to].
func Level(name string, price, from, to float64, style Style, color lipgloss.Color) Layer {
	return Layer{
		Name:   name,
		Points: []Point{{Slot: from, Price: price}, {Slot: to, Price: price}},
		Style:  style,
		Color:  color,
	}
}

// Range is the price interval mapped onto the chart height.
type Range struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Cover returns the smallest range containing r and every price.
func (r Range) Cover(prices ...float64) Range {
	for _, p := range prices {
		r.Min = math.Min(r.Min, p)
		r.Max = math.Max(r.Max, p)
	}
	return r
}

// Spec describes one chart.
type Spec struct {
	// Width and Height of the plot area in terminal cells.
	Width  int
	Height int
	// Slots is the number of horizontal positions. Slot 0 is the left edge.
	Slots  int
	Range  Range
	Layers []Layer
	Color  bool
}

const (
	defaultHeight       = 12
	minPlotWidth        = 10
	axisSeparator       = " │ "
	terminalWidthBackup = 80
	labelFormat         = "%.2f"
)

// Render returns the chart rows, each prefixed with a price axis.
func Render(s Spec) []string {
	if s.Height <= 0 {
		s.Height = defaultHeight
	}
	if s.Width < minPlotWidth {
		s.Width = minPlotWidth
	}
	if s.Slots < 2 {
		s.Slots = 2
	}
	if s.Range.Span() <= 1e-9 {
		s.Range = Range{Min: s.Range.Min - 1, Max: s.Range.Max + 1}
	}

	dotsX := s.Width * 2
	dotsY := s.Height * 4
	layers := make([]grid, len(s.Layers))
	for i, layer := range s.Layers {
		g := newGrid(s.Height, s.Width)
		prevX, prevY := -1, -1
		for _, p := range layer.Points {
			px := slotToDot(p.Slot, s.Slots, dotsX)
			py := priceToDot(p.Price, s.Range, dotsY)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(x, y int) {
					if layer.Style.shouldPlot(x) {
						g.set(x, y)
					}
				})
			} else {
				g.set(px, py)
			}
			prevX, prevY = px, py
		}
		layers[i] = g
	}

	labels := axisLabels(s.Range, s.Height)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, runewidth.StringWidth(l))
	}

	lines := make([]string, s.Height)
	for y := 0; y < s.Height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(labels[y], labelWidth))
		row.WriteString(axisSeparator)
		var run strings.Builder
		runColor := -1
		flush := func() {
			if run.Len() == 0 {
				return
			}
			text := run.String()
			if s.Color && runColor >= 0 && s.Layers[runColor].Color != "" {
				text = lipgloss.NewStyle().Foreground(s.Layers[runColor].Color).Render(text)
			}
			row.WriteString(text)
			run.Reset()
		}
		for x := 0; x < s.Width; x++ {
			mask, colorIdx := composeCell(layers, x, y)
			if colorIdx != runColor {
				flush()
				runColor = colorIdx
			}
			run.WriteRune(brailleFromMask(mask))
		}
		flush()
		lines[y] = row.String()
	}
	return lines
}

// AxisWidth is the number of columns left of the plot area.
func AxisWidth(r Range, height int) int {
	w := 0
	for _, l := range axisLabels(r, height) {
		w = max(w, runewidth.StringWidth(l))
	}
	return w + runewidth.StringWidth(axisSeparator)
}

// Legend describes the layers.
func Legend(layers []Layer, color bool) string {
	parts := make([]string, 0, len(layers))
	marker := brailleFromMask(0x01)
	for _, l := range layers {
		if l.Name == "" {
			continue
		}
		label := fmt.Sprintf("%c %s (%s)", marker, l.Name, l.Style)
		if color && l.Color != "" {
			label = lipgloss.NewStyle().Foreground(l.Color).Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

// Band returns the vertical geometry of the price band for a chart whose first plot row is
// at screen row top. The band runs from the centre of the topmost dot row to the centre of
// the bottommost, expressed in the coordinates of integer row clicks.
func Band(top, rows int) (bandTop, bandHeight float64) {
	return float64(top) - 0.375, float64(rows) - 0.25
}

// PriceAtRow returns the price at the centre of plot row.
func PriceAtRow(r Range, rows, row int) float64 {
	top, height := Band(0, rows)
	if height <= 0 {
		return r.Max
	}
	return r.Max - (float64(row)-top)/height*r.Span()
}

// RowForPrice returns the plot row that displays price.
func RowForPrice(r Range, rows int, price float64) int {
	return priceToDot(price, r, rows*4) / 4
}

// PlotWidthFor computes a plot width that fits within totalWidth next to the axis.
func PlotWidthFor(totalWidth, axisWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisWidth, minPlotWidth)
}

// TerminalWidth returns the width of stdout, or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// ColorEnabled reports whether stdout should receive ANSI colors.
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func slotToDot(slot float64, slots, dots int) int {
	x := int(math.Round(slot / float64(slots-1) * float64(dots-1)))
	return min(max(x, 0), dots-1)
}

func priceToDot(price float64, r Range, dots int) int {
	if dots <= 1 || r.Span() <= 0 {
		return 0
	}
	pos := (price - r.Min) / r.Span()
	y := int(math.Round((1 - pos) * float64(dots-1)))
	return min(max(y, 0), dots-1)
}

func axisLabels(r Range, height int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = fmt.Sprintf(labelFormat, PriceAtRow(r, height, 0))
	if height > 2 {
		labels[height/2] = fmt.Sprintf(labelFormat, PriceAtRow(r, height, height/2))
	}
	if height > 1 {
		labels[height-1] = fmt.Sprintf(labelFormat, PriceAtRow(r, height, height-1))
	}
	return labels
}

func composeCell(layers []grid, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for i, cells := range layers {
		if y >= len(cells) || x >= len(cells[y]) {
			continue
		}
		cellMask := cells[y][x]
		if cellMask == 0 {
			continue
		}
		if colorIdx == -1 {
			colorIdx = i
		}
		mask |= cellMask
	}
	return mask, colorIdx
}
