// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/goccy/go-json"
)

// PlayerRecord is one raw profile snapshot for a tracked player.
type PlayerRecord struct {
	Identity    int64           `json:"identity"`
	DisplayName string          `json:"display_name"`
	Rating      Metrics         `json:"rating"`
	Stats       Metrics         `json:"stats"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// Metrics maps metric names to numeric values.
type Metrics map[string]float64

// UnmarshalJSON keeps numeric members and drops everything else.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(Metrics, len(raw))
	for name, value := range raw {
		if v, ok := value.(float64); ok {
			out[name] = v
		}
	}
	*m = out
	return nil
}

// Lookup returns the named metric and whether it is present.
func (m Metrics) Lookup(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// RefreshAttempt records one fetch attempt for a tracked identity.
type RefreshAttempt struct {
	Identity    int64
	DisplayName string
	AttemptedAt time.Time
	OK          bool
	Error       string
}

// TrackedPlayer is an identity registered for refreshes.
type TrackedPlayer struct {
	Identity int64
	Label    string
	AddedAt  time.Time
}

// ShowConfig defines filters and options for report output.
type ShowConfig struct {
	Facets  []string
	Players []string
	Width   int
	Color   bool
}
