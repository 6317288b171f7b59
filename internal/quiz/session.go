package quiz

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/marketquiz/internal/model"
)

// Source supplies events for new rounds.
type Source interface {
	PickRandom() model.HistoricalEvent
}

// Phase is the state of the current round.
type Phase int

// Round phases.
const (
	PhasePredicting Phase = iota
	PhaseRevealed
)

func (p Phase) String() string {
	if p == PhaseRevealed {
		return "revealed"
	}
	return "predicting"
}

// Round is the ephemeral state of one question.
type Round struct {
	Event      model.HistoricalEvent
	Partial    []model.PricePoint
	Full       []model.PricePoint
	Prediction *model.PredictionPoint
	Result     *model.RoundResult
	Phase      Phase
	// Reference is the last visible price; predicted directions are measured against it.
	Reference float64
}

// Revealed reports whether the outcome has been shown.
func (r *Round) Revealed() bool {
	return r.Phase == PhaseRevealed
}

// Session owns the cumulative counters of one play session.
type Session struct {
	ID                string
	Score             int
	QuestionsAnswered int

	source  Source
	logger  *zap.Logger
	round   *Round
	results []model.RoundResult
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session drawing events from src.
func NewSession(src Source, opts ...SessionOption) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		source: src,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.ID))
	return s
}

// Round returns the active round, or nil before the first one.
func (s *Session) Round() *Round {
	return s.round
}

// Results returns the revealed rounds of this session in order.
func (s *Session) Results() []model.RoundResult {
	return append([]model.RoundResult(nil), s.results...)
}

// Next enters a new predicting round with a randomly selected event.
func (s *Session) Next() *Round {
	return s.Start(s.source.PickRandom())
}

// Start enters a new predicting round for ev. Any prior prediction is discarded.
func (s *Session) Start(ev model.HistoricalEvent) *Round {
	partial := PartialSeries(ev.PreEvent)
	ref := ev.LastPrice()
	if n := len(partial); n > 0 {
		ref = partial[n-1].Price
	}
	s.round = &Round{
		Event:     ev,
		Partial:   partial,
		Full:      FullSeries(ev),
		Phase:     PhasePredicting,
		Reference: ref,
	}
	s.logger.Debug("round started",
		zap.String("event", ev.ID),
		zap.Int("visible", len(s.round.Partial)),
		zap.Int("total", len(s.round.Full)))
	return s.round
}

// Predict records the price implied by a click at (x, y) inside the chart geometry.
// It is a no-op once the round is revealed or when no round is active.
func (s *Session) Predict(x, y float64, g Geometry) (model.PredictionPoint, bool) {
	if s.round == nil || s.round.Revealed() {
		return model.PredictionPoint{}, false
	}
	price, ok := ImpliedPrice(s.round.Partial, y, g)
	if !ok {
		return model.PredictionPoint{}, false
	}
	p := model.PredictionPoint{ImpliedPrice: price, RawX: x, RawY: y}
	s.round.Prediction = &p
	return p, true
}

// Reveal scores the current prediction and shows the outcome.
// It requires an active, unrevealed round with a recorded prediction.
func (s *Session) Reveal() (model.RoundResult, bool) {
	r := s.round
	if r == nil || r.Prediction == nil || r.Revealed() {
		return model.RoundResult{}, false
	}
	ev := r.Event
	actual := OutcomePrice(ev.LastPrice(), ev.Outcome.PercentChange)
	predicted := r.Prediction.ImpliedPrice
	pctErr := PercentageError(predicted, actual)
	dir := DirectionOf(predicted, r.Reference)

	result := model.RoundResult{
		EventID:            ev.ID,
		Symbol:             ev.Symbol,
		Difficulty:         ev.Difficulty,
		PredictedPrice:     predicted,
		ActualPrice:        actual,
		PercentageError:    pctErr,
		Accuracy:           Accuracy(pctErr),
		Points:             Points(pctErr),
		Explanation:        ev.Outcome.Explanation,
		LearningPoint:      ev.Outcome.LearningPoint,
		PredictedDirection: dir,
		ActualDirection:    ev.Outcome.Direction,
		DirectionCorrect:   dir == ev.Outcome.Direction,
		PredictedOption:    ev.Options.For(dir),
	}

	r.Phase = PhaseRevealed
	r.Result = &result
	s.Score += result.Points
	s.QuestionsAnswered++
	s.results = append(s.results, result)

	s.logger.Info("round revealed",
		zap.String("event", ev.ID),
		zap.Float64("predicted", predicted),
		zap.Float64("actual", actual),
		zap.Float64("error_pct", pctErr),
		zap.Int("points", result.Points),
		zap.Int("score", s.Score))
	return result, true
}
