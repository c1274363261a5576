package dto

import "github.com/shopspring/decimal"

type PlaceBetRequest struct {
	UserID   string          `json:"userId"`
	EventID  string          `json:"eventId"`
	DriverID int             `json:"driverId"`
	Stake    decimal.Decimal `json:"stake"` // accepts 10, 10.5 or "10.50"
}

type OutcomeRequest struct {
	WinnerDriverID int `json:"winnerDriverId"`
}
