package topics

const (
	// Results
	RaceResults = "race_results"

	// Bets
	BetPlaced    = "bet_placed"
	EventSettled = "event_settled"

	// DLQs
	RaceResultsDLQ = "race_results_dlq"
)
