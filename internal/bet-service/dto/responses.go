package dto

import "time"

type PlaceBetResponse struct {
	BetID   string `json:"betId,omitempty"`
	Status  string `json:"status"` // PENDING | FAILED
	Odds    int    `json:"odds"`
	Message string `json:"message,omitempty"`
}

type BetResponse struct {
	BetID     string     `json:"betId"`
	UserID    string     `json:"userId"`
	EventID   string     `json:"eventId"`
	DriverID  int        `json:"driverId"`
	Stake     string     `json:"stake"`
	Odds      int        `json:"odds"`
	Status    string     `json:"status"`
	PlacedAt  time.Time  `json:"placedAt"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
}

type OutcomeResponse struct {
	EventID        string `json:"eventId"`
	WinnerDriverID int    `json:"winnerDriverId"`
	BetsSettled    int    `json:"betsSettled"`
	TotalPayout    string `json:"totalPayout"`
	Message        string `json:"message"`
}
