package events

import "time"

// RaceResult is published on "race_results" once a session has a final classification.
type RaceResult struct {
	EventID        string    `json:"event_id"`
	WinnerDriverID int       `json:"winner_driver_id"`
	EventName      string    `json:"event_name,omitempty"`
	Source         string    `json:"source"` // "sessions-simulator", "openf1"
	FinishedAt     time.Time `json:"finished_at"`
}

// Valid reports whether the result carries enough to settle an event.
func (r RaceResult) Valid() bool {
	return r.EventID != "" && r.WinnerDriverID > 0
}
