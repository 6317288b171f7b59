// Package catalog provides the static set of historical events used by the quiz.
package catalog

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/verte-zerg/marketquiz/internal/model"
)

//go:embed events.yaml
var embeddedEvents []byte

// Catalog is an immutable, non-empty list of events with a random picker.
// It is not safe for concurrent use.
type Catalog struct {
	events []model.HistoricalEvent
	rnd    *rand.Rand
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRand sets the random source used by PickRandom.
func WithRand(rnd *rand.Rand) Option {
	return func(c *Catalog) {
		c.rnd = rnd
	}
}

// New builds a catalog over the given events. An empty list is an error.
func New(events []model.HistoricalEvent, opts ...Option) (*Catalog, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("catalog has no events")
	}
	c := &Catalog{
		events: append([]model.HistoricalEvent(nil), events...),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default(opts ...Option) (*Catalog, error) {
	events, err := Parse(embeddedEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded catalog: %w", err)
	}
	return New(events, opts...)
}

// Load reads a catalog from a YAML file. An empty path selects the embedded catalog.
func Load(path string, opts ...Option) (*Catalog, error) {
	if path == "" {
		return Default(opts...)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	events, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(events, opts...)
}

// Len returns the number of events.
func (c *Catalog) Len() int {
	return len(c.events)
}

// All returns the events in catalog order.
func (c *Catalog) All() []model.HistoricalEvent {
	return append([]model.HistoricalEvent(nil), c.events...)
}

// PickRandom selects an event uniformly at random.
func (c *Catalog) PickRandom() model.HistoricalEvent {
	return c.events[c.rnd.Intn(len(c.events))]
}

// FindByID looks up an event by its identifier.
func (c *Catalog) FindByID(id string) (model.HistoricalEvent, bool) {
	for _, ev := range c.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.HistoricalEvent{}, false
}

// FilterByDifficulty returns the events of one difficulty, preserving catalog order.
func (c *Catalog) FilterByDifficulty(level model.Difficulty) []model.HistoricalEvent {
	var out []model.HistoricalEvent
	for _, ev := range c.events {
		if ev.Difficulty == level {
			out = append(out, ev)
		}
	}
	return out
}

// WithDifficulty returns a sub-catalog restricted to one difficulty.
// It shares the random source of c.
func (c *Catalog) WithDifficulty(level model.Difficulty) (*Catalog, error) {
	events := c.FilterByDifficulty(level)
	if len(events) == 0 {
		return nil, fmt.Errorf("no %s events in catalog", level)
	}
	return New(events, WithRand(c.rnd))
}
