// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Difficulty grades how hard an event is to call.
type Difficulty string

// Difficulty levels.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the levels in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty validates a difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// Direction is the way the price moved after an event.
type Direction string

// Directions.
const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// EventType classifies a historical event.
type EventType string

// Event types.
const (
	EventEarnings     EventType = "earnings"
	EventAnnouncement EventType = "announcement"
	EventMarketNews   EventType = "market_news"
	EventRegulation   EventType = "regulation"
	EventEconomic     EventType = "economic"
)

// PricePoint is one entry of a daily price series.
type PricePoint struct {
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
	IsOutcome bool      `json:"is_outcome,omitempty"`
}

// Outcome records what actually happened after an event.
type Outcome struct {
	Direction     Direction
	PercentChange float64
	Explanation   string
	LearningPoint string
}

// Options holds the hint text shown for each possible direction.
type Options struct {
	Up      string
	Down    string
	Neutral string
}

// For returns the option text for a direction.
func (o Options) For(d Direction) string {
	switch d {
	case DirectionUp:
		return o.Up
	case DirectionDown:
		return o.Down
	default:
		return o.Neutral
	}
}

// HistoricalEvent is a quiz scenario: a pre-event series and its known outcome.
type HistoricalEvent struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Symbol      string
	CompanyName string
	Type        EventType
	Difficulty  Difficulty
	PreEvent    []PricePoint
	Outcome     Outcome
	Options     Options
}

// LastPrice returns the final pre-event price, or 0 for an empty series.
func (e HistoricalEvent) LastPrice() float64 {
	if len(e.PreEvent) == 0 {
		return 0
	}
	return e.PreEvent[len(e.PreEvent)-1].Price
}

// PredictionPoint is a single user prediction captured from a chart click.
type PredictionPoint struct {
	ImpliedPrice float64
	RawX         float64
	RawY         float64
}

// RoundResult is the bundle shown when a round is revealed.
type RoundResult struct {
	EventID            string
	Symbol             string
	Difficulty         Difficulty
	PredictedPrice     float64
	ActualPrice        float64
	PercentageError    float64
	Accuracy           float64
	Points             int
	Explanation        string
	LearningPoint      string
	PredictedDirection Direction
	ActualDirection    Direction
	DirectionCorrect   bool
	PredictedOption    string
}

// Quote is the normalized latest quote for a symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
}

// Overview holds company facts. Values are kept as reported strings.
type Overview struct {
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Sector           string `json:"sector"`
	Industry         string `json:"industry"`
	MarketCap        string `json:"market_cap"`
	PERatio          string `json:"pe_ratio"`
	DividendYield    string `json:"dividend_yield"`
	EPS              string `json:"eps"`
	Beta             string `json:"beta"`
	FiftyTwoWeekHigh string `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  string `json:"fifty_two_week_low"`
}

// SearchResult is one symbol search match.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Region      string `json:"region"`
	MarketOpen  string `json:"market_open"`
	MarketClose string `json:"market_close"`
	Timezone    string `json:"timezone"`
	Currency    string `json:"currency"`
	MatchScore  string `json:"match_score"`
}

// QuizConfig defines quiz settings.
type QuizConfig struct {
	Difficulty  string
	EventID     string
	LoadDelay   time.Duration
	ChartHeight int
	CatalogPath string
}

// MarketConfig defines market data gateway settings.
type MarketConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Offline  bool
	Cache    bool
	CacheTTL time.Duration
}
