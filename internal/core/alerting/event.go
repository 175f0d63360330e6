package alerting

import "time"

// Event is a discrete operational event produced by external collaborators
// (job runners, scrapers, module runtimes). Events are immutable; the engine
// only reads them.
type Event struct {
	Source    string           `json:"source"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Fields    map[string]Value `json:"fields"`
}
