package dto

// Session mirrors the subset of the OpenF1 /v1/sessions payload the catalog reads.
type Session struct {
	SessionKey       int    `json:"session_key"`
	SessionName      string `json:"session_name"`
	SessionType      string `json:"session_type"`
	CountryName      string `json:"country_name"`
	CircuitShortName string `json:"circuit_short_name"`
	Year             int    `json:"year"`
	DateStart        string `json:"date_start"` // RFC3339
}

// Driver mirrors OpenF1 /v1/drivers.
type Driver struct {
	SessionKey   int    `json:"session_key"`
	DriverNumber int    `json:"driver_number"`
	FullName     string `json:"full_name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TeamName     string `json:"team_name,omitempty"`
}
