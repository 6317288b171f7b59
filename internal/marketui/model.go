// Package marketui provides the Bubble Tea market data browser.
package marketui

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/verte-zerg/marketquiz/internal/chart"
	"github.com/verte-zerg/marketquiz/internal/market"
	"github.com/verte-zerg/marketquiz/internal/model"
	"github.com/verte-zerg/marketquiz/internal/stats"
)

const (
	tabSearch = iota
	tabQuote
	tabOverview
	tabChart
)

const (
	chartHeight    = 12
	requestTimeout = 30 * time.Second
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))

	liveBadgeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	cachedBadgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	syntheticBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)

	lineColor = lipgloss.Color("#C89A3A")
)

// Gateway is the market data source browsed by the UI.
type Gateway interface {
	Search(ctx context.Context, keywords string) market.Result[[]model.SearchResult]
	Snapshot(ctx context.Context, symbol string) market.Snapshot
	Chart(ctx context.Context, symbol string, interval market.Interval) market.Result[[]model.PricePoint]
}

type searchMsg struct {
	query  string
	result market.Result[[]model.SearchResult]
}

type snapshotMsg struct {
	symbol   string
	snapshot market.Snapshot
}

type chartMsg struct {
	symbol   string
	interval market.Interval
	result   market.Result[[]model.PricePoint]
}

// Model implements the Bubble Tea market browser.
type Model struct {
	gateway Gateway
	ctx     context.Context
	logger  *zap.Logger

	tabs      []string
	activeTab int
	viewports []viewport.Model
	results   table.Model
	input     textinput.Model
	inputMode bool

	width  int
	height int

	query     string
	searching bool
	matches   *market.Result[[]model.SearchResult]

	symbol       string
	loading      bool
	snapshot     *market.Snapshot
	interval     market.Interval
	chartLoading bool

	errMsg string
}

// Option configures a Model.
type Option func(*Model)

// WithContext sets the parent context of gateway calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithLogger sets the logger used for UI events.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithSymbol loads symbol on start instead of opening the search input.
func WithSymbol(symbol string) Option {
	return func(m *Model) {
		m.symbol = strings.ToUpper(strings.TrimSpace(symbol))
	}
}

// NewModel constructs a market browser backed by gw.
func NewModel(gw Gateway, opts ...Option) *Model {
	m := &Model{
		gateway:  gw,
		ctx:      context.Background(),
		logger:   zap.NewNop(),
		tabs:     []string{"Search", "Quote", "Overview", "Chart"},
		interval: market.IntervalDaily,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.input = newInput("Search: ")
	m.input.Placeholder = "symbol or company name"
	m.results = buildResultsTable(nil, 0, 1)
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.symbol != "" {
		m.activeTab = tabQuote
		return m.load(m.symbol)
	}
	m.inputMode = true
	return m.input.Focus()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case searchMsg:
		if msg.query != m.query {
			m.logger.Debug("dropped stale search result", zap.String("query", msg.query))
			return m, nil
		}
		m.searching = false
		res := msg.result
		m.matches = &res
		m.results.SetRows(resultRows(res.Data))
		m.results.GotoTop()
		if len(res.Data) == 0 {
			m.errMsg = fmt.Sprintf("No matches for %q.", msg.query)
		}
		return m, nil
	case snapshotMsg:
		if msg.symbol != m.symbol {
			m.logger.Debug("dropped stale snapshot", zap.String("symbol", msg.symbol))
			return m, nil
		}
		m.loading = false
		snap := msg.snapshot
		m.snapshot = &snap
		m.renderTabContents()
		return m, nil
	case chartMsg:
		if m.snapshot == nil || msg.symbol != m.symbol || msg.interval != m.interval {
			m.logger.Debug("dropped stale chart",
				zap.String("symbol", msg.symbol),
				zap.String("interval", string(msg.interval)))
			return m, nil
		}
		m.chartLoading = false
		m.snapshot.Chart = msg.result
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.inputMode {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputMode = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			return m, nil
		}
		m.inputMode = false
		m.input.Blur()
		m.activeTab = tabSearch
		m.results.Focus()
		return m, m.search(query)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.inputMode = true
		m.errMsg = ""
		return m, m.input.Focus()
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "r":
		if m.symbol != "" {
			return m, m.load(m.symbol)
		}
		return m, nil
	case "i":
		if m.activeTab == tabChart && m.snapshot != nil {
			return m, m.fetchChart(nextInterval(m.interval))
		}
		return m, nil
	case "enter":
		if m.activeTab == tabSearch {
			return m, m.selectResult()
		}
		return m, nil
	case "g", "home":
		if m.activeTab == tabSearch {
			m.results.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if m.activeTab == tabSearch {
			m.results.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
		return m, nil
	}
	var cmd tea.Cmd
	if m.activeTab == tabSearch {
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	return m, cmd
}

func (m *Model) search(query string) tea.Cmd {
	m.query = query
	m.searching = true
	m.errMsg = ""
	gw, parent := m.gateway, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		return searchMsg{query: query, result: gw.Search(ctx, query)}
	}
}

func (m *Model) load(symbol string) tea.Cmd {
	m.symbol = symbol
	m.loading = true
	m.snapshot = nil
	m.interval = market.IntervalDaily
	m.chartLoading = false
	m.renderTabContents()
	gw, parent := m.gateway, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		return snapshotMsg{symbol: symbol, snapshot: gw.Snapshot(ctx, symbol)}
	}
}

func (m *Model) fetchChart(interval market.Interval) tea.Cmd {
	m.interval = interval
	m.chartLoading = true
	m.renderTabContents()
	gw, parent, symbol := m.gateway, m.ctx, m.symbol
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		return chartMsg{symbol: symbol, interval: interval, result: gw.Chart(ctx, symbol, interval)}
	}
}

func (m *Model) selectResult() tea.Cmd {
	row := m.results.SelectedRow()
	if len(row) == 0 {
		return nil
	}
	m.activeTab = tabQuote
	m.results.Blur()
	return m.load(row[0])
}

func nextInterval(current market.Interval) market.Interval {
	for i, iv := range market.Intervals {
		if iv == current {
			return market.Intervals[(i+1)%len(market.Intervals)]
		}
	}
	return market.IntervalDaily
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 64
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabSearch {
		m.results.Focus()
	} else {
		m.results.Blur()
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 2
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.results.SetWidth(m.width)
	m.results.SetHeight(max(bodyHeight-1, 1))
	m.input.Width = max(10, m.width-lipgloss.Width(m.input.Prompt)-2)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return strings.Join([]string{m.renderTabs(), m.input.View(), m.renderStatus()}, "\n")
}

func (m *Model) renderStatus() string {
	if m.symbol == "" {
		return headerStyle.Render("No symbol selected")
	}
	if m.loading {
		return headerStyle.Render(fmt.Sprintf("Loading %s…", m.symbol))
	}
	parts := []string{cardValueStyle.Render(m.symbol)}
	if m.snapshot != nil {
		parts = append(parts,
			headerStyle.Render("quote ")+badge(m.snapshot.Quote.Source, m.snapshot.Quote.Describe()),
			headerStyle.Render("overview ")+badge(m.snapshot.Overview.Source, m.snapshot.Overview.Describe()),
			headerStyle.Render("chart ")+badge(m.snapshot.Chart.Source, m.snapshot.Chart.Describe()),
		)
	}
	return strings.Join(parts, "  ")
}

func badge(src market.Source, label string) string {
	switch src {
	case market.SourceSynthetic:
		return syntheticBadgeStyle.Render(label)
	case market.SourceCached:
		return cachedBadgeStyle.Render(label)
	default:
		return liveBadgeStyle.Render(label)
	}
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Search: /  Reload: r  Quit: q"
	switch {
	case m.inputMode:
		help = "enter: search  esc: cancel  ctrl+c: quit"
	case m.activeTab == tabSearch:
		help = "Select: up/down + enter  Nav: left/right  Search: /  Quit: q"
	case m.activeTab == tabChart:
		help = "Interval: i  Nav: left/right  Search: /  Reload: r  Quit: q"
	}
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFooter() string {
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderBody() string {
	if m.activeTab == tabSearch {
		switch {
		case m.searching:
			return fmt.Sprintf("Searching for %q…", m.query)
		case m.matches == nil:
			return "Press / and type a symbol or company name."
		case len(m.matches.Data) == 0:
			return "No matches."
		default:
			source := headerStyle.Render("results ") + badge(m.matches.Source, m.matches.Describe())
			return source + "\n" + tableMutedStyle.Render(m.results.View())
		}
	}
	switch {
	case m.symbol == "":
		return "Select a symbol from the search results."
	case m.loading:
		return fmt.Sprintf("Loading %s…", m.symbol)
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	if m.snapshot == nil {
		for i := range m.viewports {
			m.viewports[i].SetContent("")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabQuote].SetContent(renderQuote(m.snapshot.Quote.Data, width))
	m.viewports[tabOverview].SetContent(renderOverview(m.snapshot.Overview.Data, width))
	if m.chartLoading {
		m.viewports[tabChart].SetContent(fmt.Sprintf("Loading %s chart…", m.interval))
		return
	}
	m.viewports[tabChart].SetContent(renderChart(m.snapshot.Chart.Data, m.interval, width))
}

func renderQuote(q model.Quote, width int) string {
	cards := []string{
		metricCard("Price", money(q.Price)),
		metricCard("Change", signed(q.Change)),
		metricCard("Change %", signed(q.ChangePercent)+"%"),
		metricCard("Volume", fmt.Sprintf("%d", q.Volume)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderOverview(o model.Overview, width int) string {
	lines := []string{
		cardValueStyle.Render(o.Name),
		headerStyle.Render(fmt.Sprintf("%s · %s", o.Sector, o.Industry)),
		"",
		lipgloss.NewStyle().Width(max(width-2, 20)).Render(o.Description),
		"",
	}
	facts := [][]string{
		{"Market Cap", o.MarketCap},
		{"P/E Ratio", o.PERatio},
		{"Dividend Yield", o.DividendYield},
		{"EPS", o.EPS},
		{"Beta", o.Beta},
		{"52 Week High", o.FiftyTwoWeekHigh},
		{"52 Week Low", o.FiftyTwoWeekLow},
	}
	var buf bytes.Buffer
	if err := stats.WriteTable(&buf, []string{"Fact", "Value"}, facts, map[int]bool{1: true}); err != nil {
		return fmt.Sprintf("Failed to render overview: %v", err)
	}
	return strings.Join(lines, "\n") + strings.TrimRight(buf.String(), "\n")
}

func renderChart(points []model.PricePoint, interval market.Interval, width int) string {
	if len(points) == 0 {
		return "No price data."
	}
	prices := make([]float64, len(points))
	r := chart.Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for i, p := range points {
		prices[i] = p.Price
		r = r.Cover(p.Price)
	}
	pad := r.Span() * 0.05
	r = chart.Range{Min: r.Min - pad, Max: r.Max + pad}
	first, last := points[0], points[len(points)-1]
	lines := []string{headerStyle.Render(fmt.Sprintf("%s · %s → %s · %d points",
		interval, first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), len(points)))}
	lines = append(lines, chart.Render(chart.Spec{
		Width:  chart.PlotWidthFor(width-1, chart.AxisWidth(r, chartHeight)),
		Height: chartHeight,
		Slots:  len(prices),
		Range:  r,
		Layers: []chart.Layer{chart.Line("close", 0, prices, chart.Solid, lineColor)},
		Color:  true,
	})...)
	change := 0.0
	if first.Price != 0 {
		change = (last.Price - first.Price) / first.Price * 100
	}
	lines = append(lines, fmt.Sprintf("Last close %s  (%s%% over the period)", money(last.Price), signed(change)))
	return strings.Join(lines, "\n")
}

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func signed(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

func buildResultsTable(rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Symbol", Width: 10},
			{Title: "Name", Width: 32},
			{Title: "Type", Width: 10},
			{Title: "Region", Width: 16},
			{Title: "Currency", Width: 8},
			{Title: "Match", Width: 6},
		}),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(resultsTableStyles())
	return t
}

func resultRows(matches []model.SearchResult) []table.Row {
	rows := make([]table.Row, 0, len(matches))
	for _, s := range matches {
		rows = append(rows, table.Row{s.Symbol, s.Name, s.Type, s.Region, s.Currency, s.MatchScore})
	}
	return rows
}

func resultsTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// truncateLine cuts s to width display cells.
func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
