package marketui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/marketquiz/internal/market"
	"github.com/verte-zerg/marketquiz/internal/model"
)

type fakeGateway struct {
	searches  []string
	snapshots []string
	charts    []market.Interval
}

func (f *fakeGateway) Search(_ context.Context, keywords string) market.Result[[]model.SearchResult] {
	f.searches = append(f.searches, keywords)
	return market.Result[[]model.SearchResult]{
		Source: market.SourceLive,
		Data: []model.SearchResult{
			{Symbol: "AAPL", Name: "Apple Inc", Type: "Equity", Region: "United States", Currency: "USD", MatchScore: "1.0000"},
			{Symbol: "APLE", Name: "Apple Hospitality REIT", Type: "Equity", Region: "United States", Currency: "USD", MatchScore: "0.8000"},
		},
	}
}

func (f *fakeGateway) Snapshot(_ context.Context, symbol string) market.Snapshot {
	f.snapshots = append(f.snapshots, symbol)
	return market.Snapshot{
		Symbol: symbol,
		Quote: market.Result[model.Quote]{
			Source: market.SourceSynthetic,
			Reason: market.ReasonRateLimited,
			Data:   model.Quote{Symbol: symbol, Price: 187.5, Change: -1.25, ChangePercent: -0.66, Volume: 42000000},
		},
		Overview: market.Result[model.Overview]{
			Source: market.SourceCached,
			Data:   model.Overview{Symbol: symbol, Name: "Apple Inc", Sector: "Technology", Industry: "Consumer Electronics", MarketCap: "2900000000000"},
		},
		Chart: market.Result[[]model.PricePoint]{Source: market.SourceLive, Data: series(30)},
	}
}

func (f *fakeGateway) Chart(_ context.Context, _ string, interval market.Interval) market.Result[[]model.PricePoint] {
	f.charts = append(f.charts, interval)
	return market.Result[[]model.PricePoint]{Source: market.SourceLive, Data: series(12)}
}

func series(n int) []model.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, n)
	for i := range out {
		out[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Price: 180 + float64(i%7)}
	}
	return out
}

func newTestModel(t *testing.T, opts ...Option) (*Model, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{}
	m := NewModel(gw, opts...)
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, gw
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestSearchFillsResultsTable(t *testing.T) {
	// Arrange
	m, gw := newTestModel(t)
	require.True(t, m.inputMode)
	typeText(m, "apple")

	// Act
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, m.searching)
	m.Update(cmd())

	// Assert
	require.Equal(t, []string{"apple"}, gw.searches)
	require.False(t, m.searching)
	require.Len(t, m.results.Rows(), 2)
	require.Contains(t, m.View(), "APLE")
}

func TestStaleSearchResultIsDropped(t *testing.T) {
	m, _ := newTestModel(t)
	m.query = "micro"

	m.Update(searchMsg{query: "apple", result: market.Result[[]model.SearchResult]{Data: []model.SearchResult{{Symbol: "AAPL"}}}})

	require.Nil(t, m.matches)
	require.Empty(t, m.results.Rows())
}

func TestSelectingResultLoadsSnapshot(t *testing.T) {
	// Arrange
	m, gw := newTestModel(t)
	typeText(m, "apple")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())

	// Act
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, m.loading)
	m.Update(cmd())

	// Assert
	require.Equal(t, []string{"AAPL"}, gw.snapshots)
	require.Equal(t, tabQuote, m.activeTab)
	view := m.View()
	require.Contains(t, view, "synthetic (rate_limited)")
	require.Contains(t, view, "cached")
	require.Contains(t, view, "$187.50")
	require.Contains(t, view, "-1.25")
}

func TestStaleSnapshotIsDropped(t *testing.T) {
	m, _ := newTestModel(t, WithSymbol("msft"))
	require.Equal(t, "MSFT", m.symbol)

	m.Update(snapshotMsg{symbol: "AAPL", snapshot: market.Snapshot{Symbol: "AAPL"}})

	require.True(t, m.loading)
	require.Nil(t, m.snapshot)
}

func TestOverviewTabShowsFacts(t *testing.T) {
	m, gw := newTestModel(t)
	cmd := m.load("AAPL")
	m.Update(cmd())
	m.activeTab = tabOverview

	view := m.View()

	require.Equal(t, []string{"AAPL"}, gw.snapshots)
	require.Contains(t, view, "Consumer Electronics")
	require.Contains(t, view, "2900000000000")
}

func TestChartIntervalCycles(t *testing.T) {
	// Arrange
	m, gw := newTestModel(t, WithSymbol("AAPL"))
	m.Update(m.load("AAPL")())
	m.activeTab = tabChart
	require.Contains(t, m.View(), "30 points")

	// Act
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "Loading weekly chart")
	m.Update(cmd())

	// Assert
	require.Equal(t, []market.Interval{market.IntervalWeekly}, gw.charts)
	require.Equal(t, market.IntervalWeekly, m.interval)
	require.Contains(t, m.View(), "12 points")
}

func TestStaleChartIsDropped(t *testing.T) {
	m, _ := newTestModel(t, WithSymbol("AAPL"))
	m.Update(m.load("AAPL")())
	m.fetchChart(market.IntervalMonthly)

	m.Update(chartMsg{symbol: "AAPL", interval: market.IntervalWeekly, result: market.Result[[]model.PricePoint]{Data: series(3)}})

	require.True(t, m.chartLoading)
	require.Len(t, m.snapshot.Chart.Data, 30)
}

func TestNextInterval(t *testing.T) {
	require.Equal(t, market.IntervalWeekly, nextInterval(market.IntervalDaily))
	require.Equal(t, market.IntervalMonthly, nextInterval(market.IntervalWeekly))
	require.Equal(t, market.IntervalDaily, nextInterval(market.IntervalMonthly))
}

func TestRenderChartEmpty(t *testing.T) {
	require.Equal(t, "No price data.", renderChart(nil, market.IntervalDaily, 80))
}

func TestSignedAndMoney(t *testing.T) {
	require.Equal(t, "+1.50", signed(1.5))
	require.Equal(t, "-0.66", signed(-0.661))
	require.Equal(t, "0.00", signed(0))
	require.Equal(t, "$187.50", money(187.5))
}

func TestQuitOutsideInput(t *testing.T) {
	m, _ := newTestModel(t, WithSymbol("AAPL"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
	require.True(t, strings.Contains(m.renderHelp(), "Quit"))
}
