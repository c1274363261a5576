package dto

import "time"

type Driver struct {
	DriverID int    `json:"driverId"`
	FullName string `json:"fullName"`
	Odds     int    `json:"odds"`
}

// EventListing is one entry of GET /v1/events.
type EventListing struct {
	EventID         string     `json:"eventId"`
	Name            string     `json:"name"`
	Country         string     `json:"country,omitempty"`
	Year            *int       `json:"year,omitempty"`
	SessionType     string     `json:"sessionType,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	OutcomeDriverID *int       `json:"outcomeDriverId,omitempty"`
	Drivers         []Driver   `json:"drivers"`
}
