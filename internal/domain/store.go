package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger holds account balances. Every mutation is a single conditional
// statement so concurrent callers never overdraw.
type Ledger interface {
	EnsureAccount(ctx context.Context, accountID string) (Account, error)
	// DebitIfSufficient returns false, without error, when the balance is short.
	DebitIfSufficient(ctx context.Context, accountID string, amount decimal.Decimal, ref string) (bool, error)
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, ref string) error
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

type CatalogStore interface {
	// GetEvent locks the row for share when running inside a transaction.
	GetEvent(ctx context.Context, eventID string) (Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]Event, error)
	InsertEventIfAbsent(ctx context.Context, e Event) (bool, error)
	GetEventDriver(ctx context.Context, eventID string, driverID int) (EventDriver, error)
	ListEventDrivers(ctx context.Context, eventIDs ...string) ([]EventDriver, error)
	// BindEventDrivers inserts the batch keeping existing rows and returns the
	// canonical rows for the event.
	BindEventDrivers(ctx context.Context, eventID string, drivers []EventDriver) ([]EventDriver, error)
	// CommitOutcome sets the outcome only if unset; false means nothing changed.
	CommitOutcome(ctx context.Context, eventID string, winnerDriverID int) (bool, error)
}

type BetStore interface {
	Insert(ctx context.Context, b Bet) error
	Get(ctx context.Context, betID string) (Bet, error)
	// ListByEventAndStatus orders by user then id.
	ListByEventAndStatus(ctx context.Context, eventID string, status BetStatus) ([]Bet, error)
	// Resolve moves a PENDING bet to a terminal status; any other current
	// status is an integrity fault.
	Resolve(ctx context.Context, b Bet) error
}

// Stores are bound to one unit of work.
type Stores struct {
	Ledger  Ledger
	Catalog CatalogStore
	Bets    BetStore
}

// UnitOfWork runs fn atomically: committed when fn returns nil, rolled back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
