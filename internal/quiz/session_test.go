package quiz

import (
	"math"
	"testing"

	"github.com/verte-zerg/marketquiz/internal/catalog"
	"github.com/verte-zerg/marketquiz/internal/model"
)

type fixedSource struct {
	events []model.HistoricalEvent
	next   int
}

func (f *fixedSource) PickRandom() model.HistoricalEvent {
	ev := f.events[f.next%len(f.events)]
	f.next++
	return ev
}

func loadEvent(t *testing.T, id string) model.HistoricalEvent {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	ev, ok := c.FindByID(id)
	if !ok {
		t.Fatalf("missing event %s", id)
	}
	return ev
}

// yForPrice inverts ImpliedPrice so tests can click on an exact price.
func yForPrice(t *testing.T, partial []model.PricePoint, price float64, g Geometry) float64 {
	t.Helper()
	r, ok := PaddedRange(partial)
	if !ok {
		t.Fatalf("empty partial series")
	}
	return g.Top + (r.Max-price)/r.Span()*g.Height
}

func TestTeslaScenario(t *testing.T) {
	ev := loadEvent(t, "tsla_earnings_miss_2022")
	s := NewSession(&fixedSource{events: []model.HistoricalEvent{ev}})
	r := s.Next()

	if len(r.Partial) != 8 {
		t.Fatalf("expected 8 visible points, got %d", len(r.Partial))
	}
	if r.Partial[7].Price != 287.30 {
		t.Fatalf("expected last visible price 287.30, got %v", r.Partial[7].Price)
	}
	if r.Full[8].Price != 285.87 || r.Full[8].IsOutcome {
		t.Fatalf("expected hidden point 285.87 at index 8, got %+v", r.Full[8])
	}
	if r.Reference != 287.30 {
		t.Fatalf("expected reference 287.30, got %v", r.Reference)
	}

	g := WebGeometry(384)
	p, ok := s.Predict(120, yForPrice(t, r.Partial, 242.00, g), g)
	if !ok {
		t.Fatalf("expected prediction to be recorded")
	}
	if math.Abs(p.ImpliedPrice-242.00) > 1e-6 {
		t.Fatalf("implied price %v, want 242.00", p.ImpliedPrice)
	}

	res, ok := s.Reveal()
	if !ok {
		t.Fatalf("expected reveal")
	}
	wantActual := 264.86 * (1 - 0.086)
	if math.Abs(res.ActualPrice-wantActual) > 1e-9 {
		t.Fatalf("actual price %v, want %v", res.ActualPrice, wantActual)
	}
	if res.Points != 10 {
		t.Fatalf("expected 10 points, got %d", res.Points)
	}
	// 264.86 * 0.914 = 242.082, so a 242.00 guess is off by about 0.034%.
	if math.Abs(res.Accuracy-(100-PercentageError(242, wantActual))) > 1e-9 || res.Accuracy < 99.96 || res.Accuracy > 99.97 {
		t.Fatalf("unexpected accuracy %v", res.Accuracy)
	}
	if res.ActualDirection != model.DirectionDown || res.PredictedDirection != model.DirectionDown || !res.DirectionCorrect {
		t.Fatalf("unexpected directions: %+v", res)
	}
	if res.PredictedOption != ev.Options.Down {
		t.Fatalf("unexpected option text %q", res.PredictedOption)
	}
	if s.Score != 10 || s.QuestionsAnswered != 1 {
		t.Fatalf("unexpected counters: score=%d answered=%d", s.Score, s.QuestionsAnswered)
	}
}

func TestDirectionUsesLastVisiblePrice(t *testing.T) {
	ev := loadEvent(t, "tsla_earnings_miss_2022")
	s := NewSession(&fixedSource{events: []model.HistoricalEvent{ev}})
	r := s.Next()
	g := WebGeometry(384)

	// 280 lies below the last visible price and above the hidden last pre-event price.
	if !(280 < r.Reference && 280 > ev.LastPrice()) {
		t.Fatalf("fixture no longer brackets 280: visible %v hidden %v", r.Reference, ev.LastPrice())
	}
	if _, ok := s.Predict(0, yForPrice(t, r.Partial, 280, g), g); !ok {
		t.Fatalf("expected prediction")
	}
	res, ok := s.Reveal()
	if !ok {
		t.Fatalf("expected reveal")
	}
	if res.PredictedDirection != model.DirectionDown {
		t.Fatalf("expected down against %v, got %s", r.Reference, res.PredictedDirection)
	}
	if got := DirectionOf(res.PredictedPrice, r.Reference); got != res.PredictedDirection {
		t.Fatalf("panel direction %s disagrees with reveal %s", got, res.PredictedDirection)
	}
	if res.PredictedOption != ev.Options.Down || !res.DirectionCorrect {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRevealRequiresPrediction(t *testing.T) {
	ev := loadEvent(t, "aapl_iphone_14_launch")
	s := NewSession(&fixedSource{events: []model.HistoricalEvent{ev}})

	if _, ok := s.Reveal(); ok {
		t.Fatalf("reveal without round should be a no-op")
	}
	s.Next()
	if _, ok := s.Reveal(); ok {
		t.Fatalf("reveal without prediction should be a no-op")
	}
	if s.QuestionsAnswered != 0 {
		t.Fatalf("no-op reveal changed counters")
	}
}

func TestPredictIgnoredAfterReveal(t *testing.T) {
	ev := loadEvent(t, "msft_ai_investment_2023")
	s := NewSession(&fixedSource{events: []model.HistoricalEvent{ev}})
	g := Geometry{Top: 0, Height: 10}

	if _, ok := s.Predict(0, 5, g); ok {
		t.Fatalf("predict without round should be a no-op")
	}
	s.Next()
	first, ok := s.Predict(0, 5, g)
	if !ok {
		t.Fatalf("expected prediction")
	}
	if _, ok := s.Reveal(); !ok {
		t.Fatalf("expected reveal")
	}
	if _, ok := s.Predict(0, 0, g); ok {
		t.Fatalf("predict after reveal should be a no-op")
	}
	if s.Round().Prediction.ImpliedPrice != first.ImpliedPrice {
		t.Fatalf("prediction changed after reveal")
	}
	if _, ok := s.Reveal(); ok {
		t.Fatalf("second reveal should be a no-op")
	}
	if s.QuestionsAnswered != 1 {
		t.Fatalf("expected 1 answered, got %d", s.QuestionsAnswered)
	}
}

func TestPredictReplacesEarlierClick(t *testing.T) {
	ev := loadEvent(t, "nflx_password_sharing_crackdown")
	s := NewSession(&fixedSource{events: []model.HistoricalEvent{ev}})
	g := Geometry{Top: 0, Height: 100}
	s.Next()
	high, _ := s.Predict(0, 10, g)
	low, _ := s.Predict(0, 90, g)
	if !(high.ImpliedPrice > low.ImpliedPrice) {
		t.Fatalf("expected higher click to imply higher price: %v vs %v", high.ImpliedPrice, low.ImpliedPrice)
	}
	if s.Round().Prediction.ImpliedPrice != low.ImpliedPrice {
		t.Fatalf("expected latest click to win")
	}
}

func TestCountersCarryAcrossRounds(t *testing.T) {
	tsla := loadEvent(t, "tsla_earnings_miss_2022")
	spy := loadEvent(t, "fed_rate_hike_march_2023")
	s := NewSession(&fixedSource{events: []model.HistoricalEvent{tsla, spy}})
	g := WebGeometry(400)

	r := s.Next()
	s.Predict(0, yForPrice(t, r.Partial, 242.09, g), g)
	first, _ := s.Reveal()

	r = s.Next()
	if r.Event.ID != spy.ID {
		t.Fatalf("expected second event %s, got %s", spy.ID, r.Event.ID)
	}
	if r.Prediction != nil || r.Revealed() {
		t.Fatalf("new round should start clean")
	}
	// 403.28 * 0.976 = 393.60; 30% off scores nothing.
	s.Predict(0, yForPrice(t, r.Partial, 393.60*1.3, g), g)
	second, _ := s.Reveal()

	if second.Points != 0 {
		t.Fatalf("expected 0 points, got %d", second.Points)
	}
	if s.Score != first.Points+second.Points {
		t.Fatalf("score %d, want %d", s.Score, first.Points+second.Points)
	}
	if s.QuestionsAnswered != 2 {
		t.Fatalf("expected 2 answered, got %d", s.QuestionsAnswered)
	}
	if len(s.Results()) != 2 {
		t.Fatalf("expected 2 results, got %d", len(s.Results()))
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	src := &fixedSource{events: []model.HistoricalEvent{loadEvent(t, "aapl_iphone_14_launch")}}
	a := NewSession(src)
	b := NewSession(src)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct session ids, got %q and %q", a.ID, b.ID)
	}
}
