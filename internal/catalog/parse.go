package catalog

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/marketquiz/internal/model"
)

const dateLayout = "2006-01-02"

type fileEvent struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Date        string      `yaml:"date"`
	Symbol      string      `yaml:"symbol"`
	Company     string      `yaml:"company"`
	Type        string      `yaml:"type"`
	Difficulty  string      `yaml:"difficulty"`
	PreEvent    []filePoint `yaml:"pre_event"`
	Outcome     fileOutcome `yaml:"outcome"`
	Options     fileOptions `yaml:"options"`
}

type filePoint struct {
	Date   string  `yaml:"date"`
	Price  float64 `yaml:"price"`
	Volume int64   `yaml:"volume"`
}

type fileOutcome struct {
	Direction     string  `yaml:"direction"`
	PercentChange float64 `yaml:"percent_change"`
	Explanation   string  `yaml:"explanation"`
	LearningPoint string  `yaml:"learning_point"`
}

type fileOptions struct {
	Up      string `yaml:"up"`
	Down    string `yaml:"down"`
	Neutral string `yaml:"neutral"`
}

// Parse decodes and validates a YAML list of events.
func Parse(data []byte) ([]model.HistoricalEvent, error) {
	var raw []fileEvent
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no events defined")
	}
	seen := make(map[string]struct{}, len(raw))
	events := make([]model.HistoricalEvent, 0, len(raw))
	for i, fe := range raw {
		ev, err := fe.toModel()
		if err != nil {
			name := fe.ID
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("event %s: %w", name, err)
		}
		if _, dup := seen[ev.ID]; dup {
			return nil, fmt.Errorf("event %s: duplicate id", ev.ID)
		}
		seen[ev.ID] = struct{}{}
		events = append(events, ev)
	}
	return events, nil
}

func (fe fileEvent) toModel() (model.HistoricalEvent, error) {
	id := strings.TrimSpace(fe.ID)
	if id == "" {
		return model.HistoricalEvent{}, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(fe.Symbol) == "" {
		return model.HistoricalEvent{}, fmt.Errorf("missing symbol")
	}
	date, err := time.Parse(dateLayout, fe.Date)
	if err != nil {
		return model.HistoricalEvent{}, fmt.Errorf("invalid date %q: %w", fe.Date, err)
	}
	difficulty, err := model.ParseDifficulty(fe.Difficulty)
	if err != nil {
		return model.HistoricalEvent{}, err
	}
	eventType, err := parseEventType(fe.Type)
	if err != nil {
		return model.HistoricalEvent{}, err
	}
	direction, err := parseDirection(fe.Outcome.Direction)
	if err != nil {
		return model.HistoricalEvent{}, err
	}
	if len(fe.PreEvent) < 2 {
		return model.HistoricalEvent{}, fmt.Errorf("need at least 2 pre-event points, got %d", len(fe.PreEvent))
	}

	points := make([]model.PricePoint, 0, len(fe.PreEvent))
	for i, fp := range fe.PreEvent {
		d, err := time.Parse(dateLayout, fp.Date)
		if err != nil {
			return model.HistoricalEvent{}, fmt.Errorf("point %d: invalid date %q: %w", i, fp.Date, err)
		}
		if fp.Price <= 0 {
			return model.HistoricalEvent{}, fmt.Errorf("point %d: price must be > 0", i)
		}
		if i > 0 && !d.After(points[i-1].Date) {
			return model.HistoricalEvent{}, fmt.Errorf("point %d: dates must be ascending", i)
		}
		points = append(points, model.PricePoint{Date: d, Price: fp.Price, Volume: fp.Volume})
	}

	return model.HistoricalEvent{
		ID:          id,
		Title:       strings.TrimSpace(fe.Title),
		Description: strings.TrimSpace(fe.Description),
		Date:        date,
		Symbol:      strings.ToUpper(strings.TrimSpace(fe.Symbol)),
		CompanyName: strings.TrimSpace(fe.Company),
		Type:        eventType,
		Difficulty:  difficulty,
		PreEvent:    points,
		Outcome: model.Outcome{
			Direction:     direction,
			PercentChange: fe.Outcome.PercentChange,
			Explanation:   strings.TrimSpace(fe.Outcome.Explanation),
			LearningPoint: strings.TrimSpace(fe.Outcome.LearningPoint),
		},
		Options: model.Options{
			Up:      fe.Options.Up,
			Down:    fe.Options.Down,
			Neutral: fe.Options.Neutral,
		},
	}, nil
}

func parseEventType(s string) (model.EventType, error) {
	switch t := model.EventType(s); t {
	case model.EventEarnings, model.EventAnnouncement, model.EventMarketNews, model.EventRegulation, model.EventEconomic:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

func parseDirection(s string) (model.Direction, error) {
	switch d := model.Direction(s); d {
	case model.DirectionUp, model.DirectionDown, model.DirectionNeutral:
		return d, nil
	default:
		return "", fmt.Errorf("unknown outcome direction %q", s)
	}
}
