package simulator

import (
	"strconv"
	"strings"

	"github.com/radieske/race-bet-platform/internal/sessions-simulator/dto"
)

var sessions = []dto.Session{
	{SessionKey: 9158, SessionName: "Race", SessionType: "Race", CountryName: "Bahrain", CircuitShortName: "Sakhir", Year: 2023, DateStart: "2023-03-05T15:00:00Z"},
	{SessionKey: 9157, SessionName: "Qualifying", SessionType: "Qualifying", CountryName: "Bahrain", CircuitShortName: "Sakhir", Year: 2023, DateStart: "2023-03-04T15:00:00Z"},
	{SessionKey: 9165, SessionName: "Race", SessionType: "Race", CountryName: "Saudi Arabia", CircuitShortName: "Jeddah", Year: 2023, DateStart: "2023-03-19T17:00:00Z"},
	{SessionKey: 9472, SessionName: "Race", SessionType: "Race", CountryName: "Bahrain", CircuitShortName: "Sakhir", Year: 2024, DateStart: "2024-03-02T15:00:00Z"},
	{SessionKey: 9480, SessionName: "Sprint", SessionType: "Race", CountryName: "China", CircuitShortName: "Shanghai", Year: 2024, DateStart: "2024-04-20T03:00:00Z"},
	{SessionKey: 9523, SessionName: "Practice 1", SessionType: "Practice", CountryName: "Belgium", CircuitShortName: "Spa-Francorchamps", Year: 2024, DateStart: "2024-07-26T11:30:00Z"},
}

var grid = []dto.Driver{
	{DriverNumber: 1, FirstName: "Max", LastName: "Verstappen", TeamName: "Red Bull Racing"},
	{DriverNumber: 11, FirstName: "Sergio", LastName: "Perez", TeamName: "Red Bull Racing"},
	{DriverNumber: 16, FirstName: "Charles", LastName: "Leclerc", TeamName: "Ferrari"},
	{DriverNumber: 44, FirstName: "Lewis", LastName: "Hamilton", TeamName: "Mercedes"},
	{DriverNumber: 63, FirstName: "George", LastName: "Russell", TeamName: "Mercedes"},
	{DriverNumber: 4, FirstName: "Lando", LastName: "Norris", TeamName: "McLaren"},
}

// SessionQuery holds the OpenF1 query parameters the simulator honours.
// Blank fields match everything.
type SessionQuery struct {
	Year        string
	Country     string
	SessionName string
}

func FilterSessions(q SessionQuery) []dto.Session {
	out := make([]dto.Session, 0, len(sessions))
	for _, s := range sessions {
		if q.Year != "" && strconv.Itoa(s.Year) != q.Year {
			continue
		}
		if q.Country != "" && !strings.EqualFold(s.CountryName, q.Country) {
			continue
		}
		if q.SessionName != "" && !strings.EqualFold(s.SessionName, q.SessionName) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// DriversFor returns the grid for a known session key, or nil.
func DriversFor(sessionKey string) []dto.Driver {
	key, err := strconv.Atoi(sessionKey)
	if err != nil || !knownSession(key) {
		return nil
	}
	out := make([]dto.Driver, len(grid))
	for i, d := range grid {
		d.SessionKey = key
		d.FullName = d.FirstName + " " + d.LastName
		out[i] = d
	}
	return out
}

func knownSession(key int) bool {
	for _, s := range sessions {
		if s.SessionKey == key {
			return true
		}
	}
	return false
}
