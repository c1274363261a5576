package events

// BetPlaced is emitted by bet-service after an accepted bet is committed.
type BetPlaced struct {
	BetID    string `json:"bet_id"`
	UserID   string `json:"user_id"`
	EventID  string `json:"event_id"`
	DriverID int    `json:"driver_id"`
	Stake    string `json:"stake"` // decimal, two places
	Odds     int    `json:"odds"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
