package market

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/marketquiz/internal/model"
)

// Snapshot bundles everything known about one symbol.
type Snapshot struct {
	Symbol   string
	Quote    Result[model.Quote]
	Overview Result[model.Overview]
	Chart    Result[[]model.PricePoint]
}

// Synthetic reports whether any part of the snapshot is synthetic.
func (s Snapshot) Synthetic() bool {
	return s.Quote.Synthetic() || s.Overview.Synthetic() || s.Chart.Synthetic()
}

// Snapshot fetches quote, overview and daily chart for symbol concurrently.
// The calls never fail, so the group is a plain fan-out bound to ctx.
func (c *Client) Snapshot(ctx context.Context, symbol string) Snapshot {
	snap := Snapshot{Symbol: symbol}
	var g errgroup.Group
	g.Go(func() error {
		snap.Quote = c.Quote(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		snap.Overview = c.Overview(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		snap.Chart = c.Chart(ctx, symbol, IntervalDaily)
		return nil
	})
	_ = g.Wait()
	return snap
}
