// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/marketquiz/internal/chart"
	"github.com/verte-zerg/marketquiz/internal/model"
	"github.com/verte-zerg/marketquiz/internal/quiz"
	"github.com/verte-zerg/marketquiz/internal/stats"
)

const (
	padX               = 2
	padTop             = 1
	defaultWidth       = 80
	defaultHeight      = 24
	defaultChartHeight = 12
	minChartRows       = 4
	// rows reserved under the chart: legend, gap, panel and footer
	belowChart = 11
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	hitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))

	priceColor      = lipgloss.Color("#F0F0F0")
	hiddenColor     = lipgloss.Color("#8C8C8C")
	predictionColor = lipgloss.Color("#C89A3A")
	upColor         = lipgloss.Color("#52C41A")
	downColor       = lipgloss.Color("#FF4D4F")
)

type roundReadyMsg struct {
	seq int
}

// Model implements the Bubble Tea quiz UI.
type Model struct {
	session *quiz.Session
	config  model.QuizConfig
	logger  *zap.Logger
	first   *model.HistoricalEvent

	width  int
	height int

	loading   bool
	seq       int
	spinner   spinner.Model
	cursorRow int
	notice    string
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for UI events.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithEvent makes ev the first round instead of a random pick.
func WithEvent(ev model.HistoricalEvent) Option {
	return func(m *Model) {
		m.first = &ev
	}
}

// NewModel constructs a quiz TUI model driving session.
func NewModel(session *quiz.Session, cfg model.QuizConfig, opts ...Option) *Model {
	m := &Model{
		session:   session,
		config:    cfg,
		logger:    zap.NewNop(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		cursorRow: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.startLoading()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case roundReadyMsg:
		if !m.loading || msg.seq != m.seq {
			return m, nil
		}
		m.beginRound()
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.handleClick(msg.X, msg.Y)
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		m.logger.Info("quiz closed",
			zap.Int("score", m.session.Score),
			zap.Int("questions", m.session.QuestionsAnswered))
		return tea.Quit
	}
	if m.loading {
		return nil
	}
	round := m.session.Round()
	if round == nil {
		return nil
	}
	switch msg.String() {
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "enter", " ":
		if round.Revealed() {
			return m.startLoading()
		}
		m.reveal()
	case "n":
		if round.Revealed() {
			return m.startLoading()
		}
	}
	return nil
}

func (m *Model) startLoading() tea.Cmd {
	m.loading = true
	m.seq++
	seq := m.seq
	if m.config.LoadDelay <= 0 {
		return func() tea.Msg { return roundReadyMsg{seq: seq} }
	}
	return tea.Batch(m.spinner.Tick, tea.Tick(m.config.LoadDelay, func(time.Time) tea.Msg {
		return roundReadyMsg{seq: seq}
	}))
}

func (m *Model) beginRound() {
	m.loading = false
	m.cursorRow = -1
	m.notice = ""
	if m.first != nil {
		m.session.Start(*m.first)
		m.first = nil
		return
	}
	m.session.Next()
}

func (m *Model) handleClick(x, y int) {
	round := m.session.Round()
	if m.loading || round == nil || round.Revealed() {
		return
	}
	f := m.frame()
	if x < f.plotLeft || x >= f.plotLeft+f.plotWidth || y < f.chartTop || y >= f.chartTop+f.rows {
		return
	}
	m.predictAt(x, y, f)
}

func (m *Model) moveCursor(delta int) {
	round := m.session.Round()
	if round.Revealed() || len(round.Partial) == 0 {
		return
	}
	f := m.frame()
	row := m.cursorRow
	if row < 0 {
		row = chart.RowForPrice(f.rng, f.rows, round.Partial[len(round.Partial)-1].Price)
	}
	row = min(max(row+delta, 0), f.rows-1)
	m.predictAt(f.plotLeft+f.plotWidth-1, f.chartTop+row, f)
}

func (m *Model) predictAt(x, y int, f frame) {
	top, height := chart.Band(f.chartTop, f.rows)
	p, ok := m.session.Predict(float64(x), float64(y), quiz.Geometry{Top: top, Height: height})
	if !ok {
		return
	}
	m.cursorRow = y - f.chartTop
	m.notice = ""
	m.logger.Debug("prediction placed",
		zap.Int("x", x),
		zap.Int("y", y),
		zap.Float64("price", p.ImpliedPrice))
}

func (m *Model) reveal() {
	if m.session.Round().Prediction == nil {
		m.notice = "Place a prediction on the chart first."
		return
	}
	m.session.Reveal()
}

// frame is the screen layout of the active round. View and click mapping share it.
type frame struct {
	header    []string
	chartTop  int
	rows      int
	plotLeft  int
	plotWidth int
	rng       chart.Range
	slots     int
	layers    []chart.Layer
}

func (m *Model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (m *Model) contentWidth() int {
	w, _ := m.size()
	return max(w-2*padX, 20)
}

func (m *Model) frame() frame {
	round := m.session.Round()
	_, height := m.size()
	cw := m.contentWidth()

	var f frame
	f.header = m.renderHeader(round.Event, cw)
	f.chartTop = padTop + len(f.header)

	f.rows = m.config.ChartHeight
	if f.rows <= 0 {
		f.rows = defaultChartHeight
	}
	if avail := height - f.chartTop - belowChart; avail < f.rows {
		f.rows = max(avail, minChartRows)
	}

	f.rng = m.chartRange(round)
	axis := chart.AxisWidth(f.rng, f.rows)
	f.plotLeft = padX + axis
	f.plotWidth = chart.PlotWidthFor(cw, axis)
	f.slots = len(round.Full)
	f.layers = chartLayers(round)
	return f
}

func (m *Model) chartRange(round *quiz.Round) chart.Range {
	series := round.Partial
	if round.Revealed() {
		series = round.Full
	}
	pr, ok := quiz.PaddedRange(series)
	if !ok {
		return chart.Range{}
	}
	r := chart.Range{Min: pr.Min, Max: pr.Max}
	if round.Revealed() && round.Prediction != nil {
		r = r.Cover(round.Prediction.ImpliedPrice)
	}
	return r
}

func chartLayers(round *quiz.Round) []chart.Layer {
	partial := prices(round.Partial)
	full := prices(round.Full)
	k := max(len(partial)-1, 0)
	last := max(len(full)-1, 0)

	var layers []chart.Layer
	if round.Prediction != nil {
		layers = append(layers, chart.Level("prediction", round.Prediction.ImpliedPrice, float64(k), float64(last), chart.Dashed, predictionColor))
	}
	if round.Revealed() && len(full) >= 2 {
		color := upColor
		if full[last] < full[last-1] {
			color = downColor
		}
		layers = append(layers,
			chart.Line("outcome", last-1, full[last-1:], chart.Solid, color),
			chart.Line("hidden", k, full[k:last], chart.Dotted, hiddenColor),
		)
	}
	return append(layers, chart.Line("price", 0, partial, chart.Solid, priceColor))
}

func prices(series []model.PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Price
	}
	return out
}

func (m *Model) renderHeader(ev model.HistoricalEvent, width int) []string {
	meta := strings.Join([]string{
		ev.Symbol,
		ev.CompanyName,
		ev.Date.Format("2006-01-02"),
		string(ev.Difficulty),
		string(ev.Type),
	}, " · ")
	lines := []string{
		titleStyle.Render(truncateLine(ev.Title, width)),
		metaStyle.Render(truncateLine(meta, width)),
	}
	for _, l := range wrapWords(ev.Description, width) {
		lines = append(lines, textStyle.Render(l))
	}
	return append(lines, "")
}

// View implements tea.Model.
func (m *Model) View() string {
	width, height := m.size()
	round := m.session.Round()
	if m.loading || round == nil {
		body := lipgloss.Place(width, height-1, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading market data…")
		return body + "\n" + m.renderFooter()
	}

	f := m.frame()
	lines := make([]string, 0, height)
	for i := 0; i < padTop; i++ {
		lines = append(lines, "")
	}
	lines = append(lines, indent(f.header, padX)...)
	lines = append(lines, indent(chart.Render(chart.Spec{
		Width:  f.plotWidth,
		Height: f.rows,
		Slots:  f.slots,
		Range:  f.rng,
		Layers: f.layers,
		Color:  true,
	}), padX)...)
	lines = append(lines, indent([]string{chart.Legend(f.layers, true), ""}, padX)...)
	lines = append(lines, indent(m.renderPanel(round, m.contentWidth()), padX)...)

	bodyHeight := height - 1
	if len(lines) > bodyHeight {
		lines = lines[:bodyHeight]
	}
	for len(lines) < bodyHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n") + "\n" + m.renderFooter()
}

func (m *Model) renderPanel(round *quiz.Round, width int) []string {
	if round.Revealed() && round.Result != nil {
		return renderResult(*round.Result, width)
	}
	ev := round.Event
	lines := wrapWords(fmt.Sprintf("Where will %s trade after the event? Click the chart or use ↑/↓, then press enter.", ev.Symbol), width)
	lines = append(lines, labeled("▲ Up", ev.Options.Up, width)...)
	lines = append(lines, labeled("▼ Down", ev.Options.Down, width)...)
	lines = append(lines, labeled("■ Neutral", ev.Options.Neutral, width)...)
	switch {
	case round.Prediction != nil:
		last := round.Reference
		p := round.Prediction.ImpliedPrice
		lines = append(lines, labelStyle.Render(fmt.Sprintf("Your prediction: $%.2f (%s from $%.2f)", p, quiz.DirectionOf(p, last), last)))
	case m.notice != "":
		lines = append(lines, missStyle.Render(m.notice))
	}
	return lines
}

func renderResult(res model.RoundResult, width int) []string {
	summary := fmt.Sprintf("Predicted $%.2f   Actual $%.2f   Error %s   Accuracy %.2f%%   +%d points",
		res.PredictedPrice, res.ActualPrice, stats.FormatError(res.PercentageError), res.Accuracy, res.Points)
	mark := hitStyle.Render("✓")
	if !res.DirectionCorrect {
		mark = missStyle.Render("✗")
	}
	lines := wrapWords(summary, width)
	lines = append(lines, fmt.Sprintf("Direction: you said %s, the price went %s %s", res.PredictedDirection, res.ActualDirection, mark))
	lines = append(lines, labeled("Your call", res.PredictedOption, width)...)
	lines = append(lines, labeled("What happened", res.Explanation, width)...)
	lines = append(lines, labeled("Learning point", res.LearningPoint, width)...)
	return append(lines, metaStyle.Render("Press n for the next event."))
}

// labeled wraps "label: text" and highlights the label on the first line.
func labeled(label, text string, width int) []string {
	if text == "" {
		return nil
	}
	prefix := label + ":"
	lines := wrapWords(prefix+" "+text, width)
	if len(lines) > 0 && strings.HasPrefix(lines[0], prefix) {
		lines[0] = labelStyle.Render(prefix) + lines[0][len(prefix):]
	}
	return lines
}

func (m *Model) renderFooter() string {
	footer := fmt.Sprintf("Points: %d · Questions: %d", m.session.Score, m.session.QuestionsAnswered)
	return strings.Repeat(" ", padX) + footerStyle.Render(footer+"   q quit")
}
