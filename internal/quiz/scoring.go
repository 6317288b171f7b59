// Package quiz implements the prediction round: truncation, click mapping, scoring and reveal.
package quiz

import (
	"math"
	"time"

	"github.com/verte-zerg/marketquiz/internal/model"
)

const (
	// VisibleFraction is the share of the pre-event series shown before the reveal.
	VisibleFraction = 0.8
	// PaddingFraction widens the visible price range on both sides.
	PaddingFraction = 0.1
	// NeutralBandPct is the move, in percent, below which a prediction counts as neutral.
	NeutralBandPct = 1.0

	outcomeOffset = 24 * time.Hour
)

// SplitIndex returns how many leading points of an n-point series stay visible.
func SplitIndex(n int) int {
	return int(math.Floor(float64(n) * VisibleFraction))
}

// PartialSeries returns the visible prefix of the pre-event series.
func PartialSeries(series []model.PricePoint) []model.PricePoint {
	return append([]model.PricePoint(nil), series[:SplitIndex(len(series))]...)
}

// OutcomePrice is the true post-event price.
func OutcomePrice(lastPrice, percentChange float64) float64 {
	return lastPrice * (1 + percentChange/100)
}

// OutcomePoint synthesizes the post-event point, one day after the last pre-event point.
func OutcomePoint(series []model.PricePoint, percentChange float64) (model.PricePoint, bool) {
	if len(series) == 0 {
		return model.PricePoint{}, false
	}
	last := series[len(series)-1]
	return model.PricePoint{
		Date:      last.Date.Add(outcomeOffset),
		Price:     OutcomePrice(last.Price, percentChange),
		Volume:    last.Volume,
		IsOutcome: true,
	}, true
}

// FullSeries returns the pre-event series followed by the outcome point.
func FullSeries(ev model.HistoricalEvent) []model.PricePoint {
	full := append([]model.PricePoint(nil), ev.PreEvent...)
	if p, ok := OutcomePoint(ev.PreEvent, ev.Outcome.PercentChange); ok {
		full = append(full, p)
	}
	return full
}

// PriceRange is a closed price interval.
type PriceRange struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r PriceRange) Span() float64 {
	return r.Max - r.Min
}

// PaddedRange returns the min/max of the series widened by PaddingFraction of the range.
func PaddedRange(series []model.PricePoint) (PriceRange, bool) {
	if len(series) == 0 {
		return PriceRange{}, false
	}
	minP, maxP := math.Inf(1), math.Inf(-1)
	for _, p := range series {
		minP = math.Min(minP, p.Price)
		maxP = math.Max(maxP, p.Price)
	}
	pad := (maxP - minP) * PaddingFraction
	return PriceRange{Min: minP - pad, Max: maxP + pad}, true
}

// Geometry describes the plottable band of the chart in screen units.
// Top is the offset of the highest price, Height the distance down to the lowest.
type Geometry struct {
	Top    float64
	Height float64
}

// WebGeometry reproduces the browser chart margins: 30px at the top, 60px in total.
func WebGeometry(containerHeight float64) Geometry {
	return Geometry{Top: 30, Height: containerHeight - 60}
}

// ImpliedPrice maps a vertical click offset onto the padded price range of the visible
// series. Screen y grows downward, so the top of the band is the highest price.
// The result is clamped at zero.
func ImpliedPrice(partial []model.PricePoint, y float64, g Geometry) (float64, bool) {
	r, ok := PaddedRange(partial)
	if !ok || g.Height <= 0 {
		return 0, false
	}
	relative := (y - g.Top) / g.Height
	price := r.Max - relative*r.Span()
	return math.Max(0, price), true
}

// PercentageError is the absolute error of a prediction relative to the actual price.
func PercentageError(predicted, actual float64) float64 {
	if actual == 0 {
		if predicted == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(predicted-actual) / math.Abs(actual) * 100
}

// Points awards score by percentage error.
func Points(percentageError float64) int {
	switch {
	case percentageError <= 5:
		return 10
	case percentageError <= 10:
		return 5
	case percentageError <= 20:
		return 2
	default:
		return 0
	}
}

// Accuracy is 100 minus the percentage error, floored at zero.
func Accuracy(percentageError float64) float64 {
	return math.Max(0, 100-percentageError)
}

// DirectionOf classifies a predicted price against the last known price.
func DirectionOf(predicted, lastPrice float64) model.Direction {
	if lastPrice == 0 {
		return model.DirectionNeutral
	}
	change := (predicted - lastPrice) / lastPrice * 100
	switch {
	case change >= NeutralBandPct:
		return model.DirectionUp
	case change <= -NeutralBandPct:
		return model.DirectionDown
	default:
		return model.DirectionNeutral
	}
}
