package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/marketquiz/internal/chart"
	"github.com/verte-zerg/marketquiz/internal/config"
	"github.com/verte-zerg/marketquiz/internal/market"
	"github.com/verte-zerg/marketquiz/internal/marketui"
	"github.com/verte-zerg/marketquiz/internal/model"
	"github.com/verte-zerg/marketquiz/internal/stats"
	"github.com/verte-zerg/marketquiz/internal/store"
)

var (
	outputJSON    bool
	chartInterval string
	chartRows     int
)

// gateway is a market client plus the resources it holds.
type gateway struct {
	client *market.Client
	logger *zap.Logger
	store  *store.Store
}

func (g *gateway) Close() {
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			logErrf("failed to close cache: %v\n", err)
		}
	}
	_ = g.logger.Sync()
}

// openGateway builds the market client from settings. A cache that cannot be opened is skipped.
func openGateway(cmd *cobra.Command, console bool) (*gateway, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(s, console)
	if err != nil {
		return nil, err
	}
	g := &gateway{logger: logger}
	opts := []market.Option{
		market.WithLogger(logger),
		market.WithHTTPClient(&http.Client{Timeout: s.market.Timeout}),
		market.WithOffline(s.market.Offline),
	}
	if s.market.BaseURL != "" {
		opts = append(opts, market.WithBaseURL(s.market.BaseURL))
	}
	if s.market.Cache && !s.market.Offline {
		st, err := store.Open(config.DefaultCacheDBPath())
		if err != nil {
			logger.Warn("response cache disabled", zap.Error(err))
		} else {
			g.store = st
			opts = append(opts, market.WithCache(st, s.market.CacheTTL))
		}
	}
	g.client = market.NewClient(s.market.APIKey, opts...)
	return g, nil
}

func withGateway(console bool, run func(cmd *cobra.Command, args []string, g *gateway) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		g, err := openGateway(cmd, console)
		if err != nil {
			return err
		}
		defer g.Close()
		return run(cmd, args, g)
	}
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Show the latest quote",
		Args:  cobra.ExactArgs(1),
		RunE: withGateway(true, func(cmd *cobra.Command, args []string, g *gateway) error {
			res := g.client.Quote(cmd.Context(), normalizeSymbol(args[0]))
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), res.Source, res.Data)
			}
			return writeQuote(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	return cmd
}

func newOverviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview SYMBOL",
		Short: "Show company facts",
		Args:  cobra.ExactArgs(1),
		RunE: withGateway(true, func(cmd *cobra.Command, args []string, g *gateway) error {
			res := g.client.Overview(cmd.Context(), normalizeSymbol(args[0]))
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), res.Source, res.Data)
			}
			return writeOverview(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	return cmd
}

func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart SYMBOL",
		Short: "Plot the price history",
		Args:  cobra.ExactArgs(1),
		RunE: withGateway(true, func(cmd *cobra.Command, args []string, g *gateway) error {
			interval, err := market.ParseInterval(chartInterval)
			if err != nil {
				return fmt.Errorf("--interval: %w", err)
			}
			if chartRows < 4 {
				return fmt.Errorf("--height must be >= 4")
			}
			res := g.client.Chart(cmd.Context(), normalizeSymbol(args[0]), interval)
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), res.Source, res.Data)
			}
			return writeChart(cmd.OutOrStdout(), res, interval, chart.TerminalWidth(), chartRows, chart.ColorEnabled())
		}),
	}
	cmd.Flags().StringVar(&chartInterval, "interval", string(market.IntervalDaily), "daily, weekly or monthly")
	cmd.Flags().IntVar(&chartRows, "height", defaultChartHeight, "chart height in rows")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search KEYWORDS...",
		Short: "Find symbols by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: withGateway(true, func(cmd *cobra.Command, args []string, g *gateway) error {
			res := g.client.Search(cmd.Context(), strings.Join(args, " "))
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), res.Source, res.Data)
			}
			return writeSearch(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	return cmd
}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup SYMBOL",
		Short: "Show quote, overview and chart together",
		Args:  cobra.ExactArgs(1),
		RunE: withGateway(true, func(cmd *cobra.Command, args []string, g *gateway) error {
			snap := g.client.Snapshot(cmd.Context(), normalizeSymbol(args[0]))
			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, "", snapshotJSON{
					Symbol:   snap.Symbol,
					Quote:    sourced[model.Quote]{Source: snap.Quote.Source, Data: snap.Quote.Data},
					Overview: sourced[model.Overview]{Source: snap.Overview.Source, Data: snap.Overview.Data},
					Chart:    sourced[[]model.PricePoint]{Source: snap.Chart.Source, Data: snap.Chart.Data},
				})
			}
			if err := writeQuote(out, snap.Quote); err != nil {
				return err
			}
			if err := writeOverview(out, snap.Overview); err != nil {
				return err
			}
			return writeChart(out, snap.Chart, market.IntervalDaily, chart.TerminalWidth(), defaultChartHeight, chart.ColorEnabled())
		}),
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	return cmd
}

func newMarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "market [SYMBOL]",
		Short: "Browse market data",
		Args:  cobra.MaximumNArgs(1),
		RunE: withGateway(false, func(cmd *cobra.Command, args []string, g *gateway) error {
			opts := []marketui.Option{
				marketui.WithContext(cmd.Context()),
				marketui.WithLogger(g.logger),
			}
			if len(args) == 1 {
				opts = append(opts, marketui.WithSymbol(args[0]))
			}
			program := tea.NewProgram(marketui.NewModel(g.client, opts...), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("failed to run market TUI: %w", err)
			}
			return nil
		}),
	}
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached responses",
		Args:  cobra.NoArgs,
		RunE: withCacheStore(func(cmd *cobra.Command, st *store.Store, _ settings) error {
			entries, err := st.Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list cache: %w", err)
			}
			return writeCacheEntries(cmd.OutOrStdout(), entries)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Drop responses older than the cache TTL",
		Args:  cobra.NoArgs,
		RunE: withCacheStore(func(cmd *cobra.Command, st *store.Store, s settings) error {
			n, err := st.Prune(cmd.Context(), s.market.CacheTTL)
			if err != nil {
				return fmt.Errorf("failed to prune cache: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired responses.\n", n)
			return err
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop all cached responses",
		Args:  cobra.NoArgs,
		RunE: withCacheStore(func(cmd *cobra.Command, st *store.Store, _ settings) error {
			n, err := st.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached responses.\n", n)
			return err
		}),
	})
	return cmd
}

func withCacheStore(run func(cmd *cobra.Command, st *store.Store, s settings) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		st, err := store.Open(config.DefaultCacheDBPath())
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close cache: %v\n", cerr)
			}
		}()
		return run(cmd, st, s)
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type sourced[T any] struct {
	Source market.Source `json:"source"`
	Data   T             `json:"data"`
}

type snapshotJSON struct {
	Symbol   string                      `json:"symbol"`
	Quote    sourced[model.Quote]        `json:"quote"`
	Overview sourced[model.Overview]     `json:"overview"`
	Chart    sourced[[]model.PricePoint] `json:"chart"`
}

func writeJSON(w io.Writer, source market.Source, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if source != "" {
		v = sourced[any]{Source: source, Data: v}
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeSource[T any](w io.Writer, res market.Result[T]) error {
	_, err := fmt.Fprintf(w, "Source: %s\n\n", res.Describe())
	return err
}

func writeQuote(w io.Writer, res market.Result[model.Quote]) error {
	q := res.Data
	rows := [][]string{
		{"Symbol", q.Symbol},
		{"Price", formatPrice(q.Price)},
		{"Change", formatSigned(q.Change)},
		{"Change %", formatSigned(q.ChangePercent) + "%"},
		{"Volume", fmt.Sprintf("%d", q.Volume)},
	}
	if err := stats.WriteTable(w, []string{"Quote", ""}, rows, map[int]bool{1: true}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writeSource(w, res)
}

func writeOverview(w io.Writer, res market.Result[model.Overview]) error {
	o := res.Data
	if _, err := fmt.Fprintf(w, "%s (%s)\n%s · %s\n\n%s\n\n", o.Name, o.Symbol, o.Sector, o.Industry, o.Description); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	rows := [][]string{
		{"Market Cap", o.MarketCap},
		{"P/E Ratio", o.PERatio},
		{"Dividend Yield", o.DividendYield},
		{"EPS", o.EPS},
		{"Beta", o.Beta},
		{"52 Week High", o.FiftyTwoWeekHigh},
		{"52 Week Low", o.FiftyTwoWeekLow},
	}
	if err := stats.WriteTable(w, []string{"Fact", "Value"}, rows, map[int]bool{1: true}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writeSource(w, res)
}

func writeChart(w io.Writer, res market.Result[[]model.PricePoint], interval market.Interval, width, height int, color bool) error {
	points := res.Data
	if len(points) == 0 {
		if _, err := fmt.Fprintln(w, "No price data."); err != nil {
			return err
		}
		return writeSource(w, res)
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
	lines := []string{fmt.Sprintf("%s closes · %s → %s · %d points",
		interval, first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), len(points))}
	lines = append(lines, chart.Render(chart.Spec{
		Width:  chart.PlotWidthFor(width, chart.AxisWidth(r, height)),
		Height: height,
		Slots:  len(prices),
		Range:  r,
		Layers: []chart.Layer{chart.Line("close", 0, prices, chart.Solid, "3")},
		Color:  color,
	})...)
	lines = append(lines, fmt.Sprintf("Last close %s", formatPrice(last.Price)), "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return writeSource(w, res)
}

func writeSearch(w io.Writer, res market.Result[[]model.SearchResult]) error {
	if len(res.Data) == 0 {
		if _, err := fmt.Fprintln(w, "No matches."); err != nil {
			return err
		}
		return writeSource(w, res)
	}
	rows := make([][]string, 0, len(res.Data))
	for _, s := range res.Data {
		rows = append(rows, []string{s.Symbol, s.Name, s.Type, s.Region, s.Currency, s.MatchScore})
	}
	if err := stats.WriteTable(w, []string{"Symbol", "Name", "Type", "Region", "Currency", "Match"}, rows, map[int]bool{5: true}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeSource(w, res)
}

func writeCacheEntries(w io.Writer, entries []store.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Cache is empty.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key, fmt.Sprintf("%d", e.Size), e.FetchedAt.Local().Format("2006-01-02 15:04:05")})
	}
	return stats.WriteTable(w, []string{"Key", "Bytes", "Fetched"}, rows, map[int]bool{1: true})
}

func formatPrice(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func formatSigned(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
