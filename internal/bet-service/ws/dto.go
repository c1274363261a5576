package ws

import "github.com/radieske/race-bet-platform/pkg/contracts/events"

// ClientMsg is what clients send. Type: subscribe | unsubscribe | ping.
// EventID is required for subscribe/unsubscribe; "*" means every event.
type ClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

// SettlementUpdate is pushed to subscribers of an event.
type SettlementUpdate struct {
	Type    string              `json:"type"` // "event_settled"
	EventID string              `json:"eventId"`
	Payload events.EventSettled `json:"payload"`
}
