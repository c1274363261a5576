package events

import "time"

// EventSettled is emitted after a settlement commits. It goes to Kafka
// ("event_settled") and to the Redis channel feeding the WebSocket hub.
type EventSettled struct {
	EventID        string    `json:"event_id"`
	WinnerDriverID int       `json:"winner_driver_id"`
	BetsSettled    int       `json:"bets_settled"`
	TotalPayout    string    `json:"total_payout"`
	SettledAt      time.Time `json:"settled_at"`
}
