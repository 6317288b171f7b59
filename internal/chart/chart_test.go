package chart

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestRenderShape(t *testing.T) {
	r := Range{Min: 90, Max: 110}
	lines := Render(Spec{
		Width:  20,
		Height: 6,
		Slots:  5,
		Range:  r,
		Layers: []Layer{Line("price", 0, []float64{100, 105, 95, 110}, Solid, "")},
	})
	if len(lines) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(lines))
	}
	axis := AxisWidth(r, 6)
	for i, line := range lines {
		if got := runewidth.StringWidth(line); got != axis+20 {
			t.Fatalf("row %d has width %d, want %d", i, got, axis+20)
		}
	}
	if !strings.HasPrefix(lines[0], "108.70") {
		t.Fatalf("expected top label near the max, got %q", lines[0])
	}
}

func TestRenderLeavesFutureSlotsEmpty(t *testing.T) {
	lines := Render(Spec{
		Width:  10,
		Height: 4,
		Slots:  10,
		Range:  Range{Min: 0, Max: 10},
		Layers: []Layer{Line("price", 0, []float64{1, 2, 3, 4, 5}, Solid, "")},
	})
	for _, line := range lines {
		plot := []rune(line)[len([]rune(line))-3:]
		for _, ch := range plot {
			if ch != brailleFromMask(0) {
				t.Fatalf("expected blank right edge, got %q", string(plot))
			}
		}
	}
}

func TestLevelLayerIsDashed(t *testing.T) {
	r := Range{Min: 0, Max: 100}
	lines := Render(Spec{
		Width:  12,
		Height: 4,
		Slots:  2,
		Range:  r,
		Layers: []Layer{Level("guess", 100, 0, 1, Dashed, "")},
	})
	top := []rune(lines[0])
	plot := top[len(top)-12:]
	blank := 0
	for _, ch := range plot {
		if ch == brailleFromMask(0) {
			blank++
		}
	}
	if blank == 0 || blank == len(plot) {
		t.Fatalf("expected a dashed line on the top row, got %q", string(plot))
	}
}

func TestBandMatchesRowCentres(t *testing.T) {
	r := Range{Min: 50, Max: 150}
	const rows = 10
	for row := 0; row < rows; row++ {
		price := PriceAtRow(r, rows, row)
		if got := RowForPrice(r, rows, price); got != row {
			t.Fatalf("row %d maps to price %.3f which renders on row %d", row, price, got)
		}
	}
	top, height := Band(5, rows)
	if top != 4.625 || height != 9.75 {
		t.Fatalf("unexpected band %v %v", top, height)
	}
	if p := PriceAtRow(r, rows, 0); p >= r.Max || p < 145 {
		t.Fatalf("top row price %v should sit just below the max", p)
	}
}

func TestRangeCover(t *testing.T) {
	r := Range{Min: 10, Max: 20}.Cover(5, 15, 30)
	if r.Min != 5 || r.Max != 30 {
		t.Fatalf("unexpected range %+v", r)
	}
}

func TestRenderFlatRange(t *testing.T) {
	lines := Render(Spec{Width: 10, Height: 3, Range: Range{Min: 7, Max: 7}, Layers: []Layer{Line("flat", 0, []float64{7, 7}, Solid, "")}})
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "7.00") {
		t.Fatalf("expected middle label at the flat price, got %q", lines[1])
	}
}

func TestLegendSkipsUnnamedLayers(t *testing.T) {
	got := Legend([]Layer{{Name: "price"}, {}, {Name: "guess", Style: Dashed}}, false)
	if !strings.Contains(got, "price (solid)") || !strings.Contains(got, "guess (dashed)") {
		t.Fatalf("unexpected legend %q", got)
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80, 12); got != 68 {
		t.Fatalf("PlotWidthFor(80, 12) = %d", got)
	}
	if got := PlotWidthFor(5, 12); got != minPlotWidth {
		t.Fatalf("expected minimum width, got %d", got)
	}
	if got := PlotWidthFor(0, 12); got != minPlotWidth {
		t.Fatalf("expected minimum width for unknown terminal, got %d", got)
	}
}

func TestPriceToDotClamps(t *testing.T) {
	r := Range{Min: 0, Max: 10}
	if got := priceToDot(-5, r, 40); got != 39 {
		t.Fatalf("below range should clamp to bottom, got %d", got)
	}
	if got := priceToDot(1e9, r, 40); got != 0 {
		t.Fatalf("above range should clamp to top, got %d", got)
	}
}
