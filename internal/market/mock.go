package market

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/marketquiz/internal/model"
)

// MockPoints is the length of a synthetic chart series.
const MockPoints = 30

const (
	defaultBasePrice  = 180
	maxSearchDefaults = 5
)

var basePrices = map[string]float64{
	"AAPL":  185,
	"MSFT":  420,
	"GOOGL": 155,
}

var companyNames = map[string]string{
	"AAPL":  "Apple Inc.",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc.",
}

// DefaultStocks is the fallback search universe.
var DefaultStocks = []model.SearchResult{
	{Symbol: "AAPL", Name: "Apple Inc."},
	{Symbol: "MSFT", Name: "Microsoft Corporation"},
	{Symbol: "GOOGL", Name: "Alphabet Inc."},
	{Symbol: "TSLA", Name: "Tesla, Inc."},
	{Symbol: "AMZN", Name: "Amazon.com Inc."},
	{Symbol: "NVDA", Name: "NVIDIA Corporation"},
	{Symbol: "META", Name: "Meta Platforms, Inc."},
	{Symbol: "NFLX", Name: "Netflix, Inc."},
}

// BasePrice is the anchor of synthetic prices for symbol.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[strings.ToUpper(symbol)]; ok {
		return p
	}
	return defaultBasePrice
}

// MockData generates plausible synthetic market data.
type MockData struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// MockOption configures MockData.
type MockOption func(*MockData)

// WithMockRand sets the random source.
func WithMockRand(rnd *rand.Rand) MockOption {
	return func(m *MockData) {
		m.rnd = rnd
	}
}

// WithMockClock sets the clock used to date synthetic series.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockData) {
		m.now = now
	}
}

// NewMockData creates a generator seeded from the current time.
func NewMockData(opts ...MockOption) *MockData {
	m := &MockData{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// uniform returns a value in [lo, hi).
func (m *MockData) uniform(lo, hi float64) float64 {
	return lo + m.rnd.Float64()*(hi-lo)
}

// Quote returns a quote within ±5 of the base price.
func (m *MockData) Quote(symbol string) model.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := BasePrice(symbol)
	change := m.uniform(-5, 5)
	return model.Quote{
		Symbol:        symbol,
		Price:         base + change,
		Change:        change,
		ChangePercent: change / base * 100,
		Volume:        int64(m.uniform(10_000_000, 60_000_000)),
	}
}

// Chart returns MockPoints daily points ending today, oldest first.
func (m *MockData) Chart(symbol string) []model.PricePoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := BasePrice(symbol)
	now := m.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, MockPoints)
	for i := range points {
		points[i] = model.PricePoint{
			Date:   today.AddDate(0, 0, i-(MockPoints-1)),
			Price:  base + m.uniform(-10, 10),
			Volume: int64(m.uniform(5_000_000, 35_000_000)),
		}
	}
	return points
}

// Overview returns canned company facts.
func (m *MockData) Overview(symbol string) model.Overview {
	base := BasePrice(symbol)
	name, ok := companyNames[strings.ToUpper(symbol)]
	if !ok {
		name = symbol + " Corp"
	}
	return model.Overview{
		Symbol:           symbol,
		Name:             name,
		Description:      symbol + " is a leading technology company.",
		Sector:           "Technology",
		Industry:         "Technology",
		MarketCap:        "2800000000000",
		PERatio:          "28.5",
		DividendYield:    "0.5",
		EPS:              "6.43",
		Beta:             "1.2",
		FiftyTwoWeekHigh: strconv.FormatFloat(base+30, 'f', -1, 64),
		FiftyTwoWeekLow:  strconv.FormatFloat(base-30, 'f', -1, 64),
	}
}

// Search filters DefaultStocks by case-insensitive substring on symbol or name.
func (m *MockData) Search(keywords string) []model.SearchResult {
	kw := strings.ToLower(keywords)
	out := make([]model.SearchResult, 0, maxSearchDefaults)
	for _, s := range DefaultStocks {
		if !strings.Contains(strings.ToLower(s.Symbol), kw) && !strings.Contains(strings.ToLower(s.Name), kw) {
			continue
		}
		out = append(out, withSearchDefaults(s))
		if len(out) == maxSearchDefaults {
			break
		}
	}
	return out
}

func withSearchDefaults(s model.SearchResult) model.SearchResult {
	if s.Type == "" {
		s.Type = "Equity"
	}
	if s.Region == "" {
		s.Region = "United States"
	}
	if s.MarketOpen == "" {
		s.MarketOpen = "09:30"
	}
	if s.MarketClose == "" {
		s.MarketClose = "16:00"
	}
	if s.Timezone == "" {
		s.Timezone = "UTC-04"
	}
	if s.Currency == "" {
		s.Currency = "USD"
	}
	if s.MatchScore == "" {
		s.MatchScore = "1.0000"
	}
	return s
}
