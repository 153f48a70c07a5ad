// Package notifier delivers regime change events to external sinks.
package notifier

import (
	"context"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Event reports that a symbol's consensus regime changed between two
// analyses.
type Event struct {
	Symbol     string      `json:"symbol"`
	Previous   core.Regime `json:"previous"`
	Current    core.Regime `json:"current"`
	Confidence float64     `json:"confidence"`
	Agreement  float64     `json:"agreement"`
	Next       core.Regime `json:"most_likely_next,omitempty"`
	DetectedAt time.Time   `json:"detected_at"`
}

// ChangeEvent compares two reports of the same symbol. ok is false when
// either report has no opinion or the regime did not change.
func ChangeEvent(prev, cur *pipeline.Report) (Event, bool) {
	if prev == nil || cur == nil || prev.Result.IsUnknown() || cur.Result.IsUnknown() {
		return Event{}, false
	}
	if prev.Result.Regime == cur.Result.Regime {
		return Event{}, false
	}
	e := Event{
		Symbol:     cur.Symbol,
		Previous:   prev.Result.Regime,
		Current:    cur.Result.Regime,
		Confidence: cur.Result.Confidence,
		DetectedAt: cur.GeneratedAt,
	}
	if cur.Consensus != nil {
		e.Agreement = cur.Consensus.AgreementRatio
	}
	if cur.Transitions != nil {
		e.Next = cur.Transitions.Next
	}
	return e, true
}

// Notifier is a delivery channel for regime change events.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	Send(ctx context.Context, e Event) error
	SendBatch(ctx context.Context, events []Event) error
}
