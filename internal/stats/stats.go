// Package stats contains quiz statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/marketquiz/internal/chart"
	"github.com/verte-zerg/marketquiz/internal/model"
)

const sparkChars = " .:-=+*#%@"

// DifficultyStats aggregates rounds of one difficulty.
type DifficultyStats struct {
	Difficulty  model.Difficulty
	Rounds      int
	Points      int
	AvgAccuracy float64
}

// Summary aggregates the rounds of a session.
type Summary struct {
	Rounds        int
	Points        int
	MaxPoints     int
	AvgAccuracy   float64
	BestAccuracy  float64
	AvgError      float64
	DirectionHits int
	ByDifficulty  []DifficultyStats
}

// maxRoundPoints is the best possible score for one round.
const maxRoundPoints = 10

// Summarize aggregates revealed rounds.
func Summarize(results []model.RoundResult) Summary {
	s := Summary{Rounds: len(results), MaxPoints: len(results) * maxRoundPoints}
	if len(results) == 0 {
		return s
	}
	byDiff := map[model.Difficulty]*DifficultyStats{}
	var totalAcc, totalErr float64
	finiteErrs := 0
	for _, r := range results {
		s.Points += r.Points
		totalAcc += r.Accuracy
		s.BestAccuracy = math.Max(s.BestAccuracy, r.Accuracy)
		if !math.IsInf(r.PercentageError, 0) {
			totalErr += r.PercentageError
			finiteErrs++
		}
		if r.DirectionCorrect {
			s.DirectionHits++
		}
		d, ok := byDiff[r.Difficulty]
		if !ok {
			d = &DifficultyStats{Difficulty: r.Difficulty}
			byDiff[r.Difficulty] = d
		}
		d.Rounds++
		d.Points += r.Points
		d.AvgAccuracy += r.Accuracy
	}
	s.AvgAccuracy = totalAcc / float64(len(results))
	if finiteErrs > 0 {
		s.AvgError = totalErr / float64(finiteErrs)
	}
	for _, diff := range model.Difficulties {
		d, ok := byDiff[diff]
		if !ok {
			continue
		}
		d.AvgAccuracy /= float64(d.Rounds)
		s.ByDifficulty = append(s.ByDifficulty, *d)
	}
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the session totals and a per-difficulty table.
func RenderSummary(w io.Writer, s Summary) error {
	if s.Rounds == 0 {
		_, err := fmt.Fprintln(w, "No rounds played.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Rounds: %d", s.Rounds),
		fmt.Sprintf("Points: %d / %d", s.Points, s.MaxPoints),
		fmt.Sprintf("Avg Accuracy: %.2f%%", s.AvgAccuracy),
		fmt.Sprintf("Best Accuracy: %.2f%%", s.BestAccuracy),
		fmt.Sprintf("Avg Error: %.2f%%", s.AvgError),
		fmt.Sprintf("Direction: %d / %d", s.DirectionHits, s.Rounds),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(s.ByDifficulty))
	for _, d := range s.ByDifficulty {
		rows = append(rows, []string{
			string(d.Difficulty),
			fmt.Sprintf("%d", d.Rounds),
			fmt.Sprintf("%d", d.Points),
			fmt.Sprintf("%.2f%%", d.AvgAccuracy),
		})
	}
	if err := WriteTable(w, []string{"Difficulty", "Rounds", "Points", "Avg Accuracy"}, rows, map[int]bool{1: true, 2: true, 3: true}); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRounds prints one line per revealed round.
func RenderRounds(w io.Writer, results []model.RoundResult) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		dir := "miss"
		if r.DirectionCorrect {
			dir = "hit"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.Symbol,
			fmt.Sprintf("%.2f", r.PredictedPrice),
			fmt.Sprintf("%.2f", r.ActualPrice),
			FormatError(r.PercentageError),
			fmt.Sprintf("%d", r.Points),
			dir,
		})
	}
	headers := []string{"#", "Symbol", "Predicted", "Actual", "Error", "Points", "Direction"}
	if err := WriteTable(w, headers, rows, map[int]bool{0: true, 2: true, 3: true, 4: true, 5: true}); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderAccuracyCurve plots the moving average of round accuracy.
func RenderAccuracyCurve(w io.Writer, results []model.RoundResult, window, totalWidth, height int, useColor bool) error {
	if len(results) < 2 {
		return nil
	}
	acc := make([]float64, len(results))
	for i, r := range results {
		acc[i] = r.Accuracy
	}
	acc = MovingAverage(acc, window)

	r := chart.Range{Min: 0, Max: 100}
	lines := chart.Render(chart.Spec{
		Width:  chart.PlotWidthFor(totalWidth, chart.AxisWidth(r, height)),
		Height: height,
		Slots:  len(acc),
		Range:  r,
		Layers: []chart.Layer{chart.Line("Accuracy", 0, acc, chart.Solid, "6")},
		Color:  useColor,
	})
	if _, err := fmt.Fprintln(w, "Accuracy Curve"); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderEvents prints the event catalog.
func RenderEvents(w io.Writer, events []model.HistoricalEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No events found.")
		return err
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		prices := make([]float64, len(ev.PreEvent))
		for i, p := range ev.PreEvent {
			prices[i] = p.Price
		}
		rows = append(rows, []string{
			ev.ID,
			ev.Symbol,
			ev.Date.Format("2006-01-02"),
			string(ev.Difficulty),
			string(ev.Type),
			Sparkline(prices),
			ev.Title,
		})
	}
	return WriteTable(w, []string{"ID", "Symbol", "Date", "Difficulty", "Type", "Trend", "Title"}, rows, nil)
}

// FormatError renders a percentage error, or n/a when it is unbounded.
func FormatError(pct float64) string {
	if math.IsInf(pct, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", pct)
}
