package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/marketquiz/internal/model"
)

// Interval is the granularity of a chart series.
type Interval string

// Chart intervals.
const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Intervals lists the supported chart intervals.
var Intervals = []Interval{IntervalDaily, IntervalWeekly, IntervalMonthly}

// ParseInterval validates an interval name. Empty selects daily.
func ParseInterval(s string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case "", IntervalDaily:
		return IntervalDaily, nil
	case IntervalWeekly:
		return IntervalWeekly, nil
	case IntervalMonthly:
		return IntervalMonthly, nil
	default:
		return "", fmt.Errorf("unknown interval %q", s)
	}
}

func (i Interval) function() string {
	switch i {
	case IntervalWeekly:
		return "TIME_SERIES_WEEKLY"
	case IntervalMonthly:
		return "TIME_SERIES_MONTHLY"
	default:
		return "TIME_SERIES_DAILY"
	}
}

func (i Interval) seriesKey() string {
	switch i {
	case IntervalWeekly:
		return "Weekly Time Series"
	case IntervalMonthly:
		return "Monthly Time Series"
	default:
		return "Time Series (Daily)"
	}
}

const (
	// MaxChartPoints caps a live chart series to its newest dates.
	MaxChartPoints = 100
	// MaxSearchResults caps live search matches.
	MaxSearchResults = 10

	seriesDateLayout = "2006-01-02"
)

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// Quote fetches the latest quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) Result[model.Quote] {
	const fn = "GLOBAL_QUOTE"
	key := cacheKey(fn, symbol)

	var hit model.Quote
	if c.cached(ctx, key, &hit) {
		return cachedResult(hit)
	}

	p, reason, err := c.query(ctx, url.Values{"function": {fn}, "symbol": {symbol}})
	if err == nil {
		quote, ok := p.quote(symbol)
		if ok {
			c.store(ctx, key, quote)
			return live(quote)
		}
		reason, err = ReasonEmptyPayload, errEmptyPayload
	}
	c.logFallback("quote", symbol, reason, err)
	return synthetic(c.mock.Quote(symbol), reason, err)
}

func (p payload) quote(symbol string) (model.Quote, bool) {
	f, ok := decodeFields(p["Global Quote"])
	if !ok {
		return model.Quote{}, false
	}
	return model.Quote{
		Symbol:        f.str("01. symbol", symbol),
		Price:         f.float("05. price"),
		Change:        f.float("09. change"),
		ChangePercent: f.float("10. change percent"),
		Volume:        f.int("06. volume"),
	}, true
}

// Chart fetches a price series for symbol, oldest first.
func (c *Client) Chart(ctx context.Context, symbol string, interval Interval) Result[[]model.PricePoint] {
	if interval == "" {
		interval = IntervalDaily
	}
	fn := interval.function()
	key := cacheKey(fn, symbol, string(interval))

	var hit []model.PricePoint
	if c.cached(ctx, key, &hit) {
		return cachedResult(hit)
	}
	if err := wait(ctx, c.delays.Chart); err != nil {
		c.logFallback("chart", symbol, ReasonRequestFailed, err)
		return synthetic(c.mock.Chart(symbol), ReasonRequestFailed, err)
	}

	p, reason, err := c.query(ctx, url.Values{"function": {fn}, "symbol": {symbol}})
	if err == nil {
		points, ok := p.series(interval.seriesKey())
		if ok {
			c.store(ctx, key, points)
			return live(points)
		}
		reason, err = ReasonEmptyPayload, errEmptyPayload
	}
	c.logFallback("chart", symbol, reason, err)
	return synthetic(c.mock.Chart(symbol), reason, err)
}

func (p payload) series(key string) ([]model.PricePoint, bool) {
	raw, ok := p[key]
	if !ok {
		return nil, false
	}
	var byDate map[string]fields
	if err := json.Unmarshal(raw, &byDate); err != nil || len(byDate) == 0 {
		return nil, false
	}

	points := make([]model.PricePoint, 0, len(byDate))
	for date, f := range byDate {
		d, err := time.Parse(seriesDateLayout, date)
		if err != nil {
			continue
		}
		points = append(points, model.PricePoint{
			Date:   d,
			Price:  f.float("4. close"),
			Volume: f.int("5. volume"),
		})
	}
	if len(points) == 0 {
		return nil, false
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	if len(points) > MaxChartPoints {
		points = points[len(points)-MaxChartPoints:]
	}
	return points, true
}

// Overview fetches company facts for symbol.
func (c *Client) Overview(ctx context.Context, symbol string) Result[model.Overview] {
	const fn = "OVERVIEW"
	key := cacheKey(fn, symbol)

	var hit model.Overview
	if c.cached(ctx, key, &hit) {
		return cachedResult(hit)
	}
	if err := wait(ctx, c.delays.Overview); err != nil {
		c.logFallback("overview", symbol, ReasonRequestFailed, err)
		return synthetic(c.mock.Overview(symbol), ReasonRequestFailed, err)
	}

	p, reason, err := c.query(ctx, url.Values{"function": {fn}, "symbol": {symbol}})
	if err == nil {
		ov, ok := p.overview(symbol)
		if ok {
			c.store(ctx, key, ov)
			return live(ov)
		}
		reason, err = ReasonEmptyPayload, errEmptyPayload
	}
	c.logFallback("overview", symbol, reason, err)
	return synthetic(c.mock.Overview(symbol), reason, err)
}

func (p payload) overview(symbol string) (model.Overview, bool) {
	sym, ok := p.text("Symbol")
	if !ok {
		return model.Overview{}, false
	}
	get := func(key, def string) string {
		if v, ok := p.text(key); ok {
			return v
		}
		return def
	}
	return model.Overview{
		Symbol:           sym,
		Name:             get("Name", symbol+" Corp"),
		Description:      get("Description", symbol+" is a publicly traded company."),
		Sector:           get("Sector", NotAvailable),
		Industry:         get("Industry", NotAvailable),
		MarketCap:        get("MarketCapitalization", NotAvailable),
		PERatio:          get("PERatio", NotAvailable),
		DividendYield:    get("DividendYield", NotAvailable),
		EPS:              get("EPS", NotAvailable),
		Beta:             get("Beta", NotAvailable),
		FiftyTwoWeekHigh: get("52WeekHigh", NotAvailable),
		FiftyTwoWeekLow:  get("52WeekLow", NotAvailable),
	}, true
}

// Search looks up symbols matching keywords.
func (c *Client) Search(ctx context.Context, keywords string) Result[[]model.SearchResult] {
	const fn = "SYMBOL_SEARCH"
	key := cacheKey(fn, strings.ToLower(keywords))

	var hit []model.SearchResult
	if c.cached(ctx, key, &hit) {
		return cachedResult(hit)
	}
	if err := wait(ctx, c.delays.Search); err != nil {
		c.logFallback("search", keywords, ReasonRequestFailed, err)
		return synthetic(c.mock.Search(keywords), ReasonRequestFailed, err)
	}

	p, reason, err := c.query(ctx, url.Values{"function": {fn}, "keywords": {keywords}})
	if err == nil {
		matches, ok := p.matches()
		if ok {
			c.store(ctx, key, matches)
			return live(matches)
		}
		reason, err = ReasonEmptyPayload, errEmptyPayload
	}
	c.logFallback("search", keywords, reason, err)
	return synthetic(c.mock.Search(keywords), reason, err)
}

func (p payload) matches() ([]model.SearchResult, bool) {
	raw, ok := p["bestMatches"]
	if !ok {
		return nil, false
	}
	var list []fields
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return nil, false
	}
	if len(list) > MaxSearchResults {
		list = list[:MaxSearchResults]
	}
	out := make([]model.SearchResult, 0, len(list))
	for _, f := range list {
		out = append(out, withSearchDefaults(model.SearchResult{
			Symbol:      f.str("1. symbol", ""),
			Name:        f.str("2. name", ""),
			Type:        f.str("3. type", ""),
			Region:      f.str("4. region", ""),
			MarketOpen:  f.str("5. marketOpen", ""),
			MarketClose: f.str("6. marketClose", ""),
			Timezone:    f.str("7. timezone", ""),
			Currency:    f.str("8. currency", ""),
			MatchScore:  f.str("9. matchScore", ""),
		}))
	}
	return out, true
}
