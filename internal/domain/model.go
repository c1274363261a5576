package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus is the lifecycle state of a bet.
type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
	// BetFailed is reserved for persisted rejections; placement never writes it.
	BetFailed BetStatus = "FAILED"
)

// Ledger operations journaled in wallet_ledger.
const (
	OpGift   = "GIFT"
	OpDebit  = "DEBIT"
	OpCredit = "CREDIT"
)

// ReasonInsufficientBalance is the rejection reason returned to callers.
const ReasonInsufficientBalance = "insufficient_balance"

type Account struct {
	ID        string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Event is a race session users can bet on. OutcomeDriverID goes from nil to
// set exactly once.
type Event struct {
	ID              string
	Name            string
	Country         string
	Year            *int
	SessionType     string
	StartTime       *time.Time
	OutcomeDriverID *int
}

func (e Event) Settled() bool { return e.OutcomeDriverID != nil }

// EventDriver is a competitor bound to an event with immutable odds.
type EventDriver struct {
	EventID  string
	DriverID int
	FullName string
	Odds     int
}

type Bet struct {
	ID        string
	UserID    string
	EventID   string
	DriverID  int
	Stake     decimal.Decimal
	Odds      int
	Status    BetStatus
	PlacedAt  time.Time
	SettledAt *time.Time
}

// Payout is stake times the odds snapshot taken at placement.
func (b Bet) Payout() decimal.Decimal {
	return b.Stake.Mul(decimal.NewFromInt(int64(b.Odds)))
}

// EventFilter narrows event listings; zero values are ignored.
type EventFilter struct {
	Year        *int
	Country     string
	SessionType string
}
