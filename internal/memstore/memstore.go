// Package memstore is an in-process implementation of the domain stores.
// Units of work are serialized by one mutex and rolled back by restoring a
// snapshot, so it gives the same observable guarantees as the Postgres
// backend for a single process.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/race-bet-platform/internal/domain"
)

// LedgerEntry mirrors a wallet_ledger row.
type LedgerEntry struct {
	AccountID    string
	Op           string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    string
}

type driverKey struct {
	eventID  string
	driverID int
}

type state struct {
	accounts map[string]domain.Account
	events   map[string]domain.Event
	drivers  map[driverKey]domain.EventDriver
	bets     map[string]domain.Bet
	journal  []LedgerEntry
}

func (s state) clone() state {
	return state{
		accounts: maps.Clone(s.accounts),
		events:   maps.Clone(s.events),
		drivers:  maps.Clone(s.drivers),
		bets:     maps.Clone(s.bets),
		journal:  slices.Clone(s.journal),
	}
}

// Store implements domain.UnitOfWork.
type Store struct {
	mu   sync.Mutex
	st   state
	gift decimal.Decimal
	now  func() time.Time
}

func New(gift decimal.Decimal) *Store {
	return &Store{
		st: state{
			accounts: map[string]domain.Account{},
			events:   map[string]domain.Event{},
			drivers:  map[driverKey]domain.EventDriver{},
			bets:     map[string]domain.Bet{},
		},
		gift: gift,
		now:  time.Now,
	}
}

// Do runs fn exclusively; on error every change made by fn is discarded.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.st.clone()
	tx := &txn{s: s}
	if err := fn(ctx, domain.Stores{Ledger: ledger{tx}, Catalog: catalog{tx}, Bets: bets{tx}}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// SeedEvent registers an event with its drivers, keeping existing rows.
func (s *Store) SeedEvent(e domain.Event, drivers ...domain.EventDriver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.events[e.ID]; !ok {
		s.st.events[e.ID] = e
	}
	for _, d := range drivers {
		d.EventID = e.ID
		k := driverKey{e.ID, d.DriverID}
		if _, ok := s.st.drivers[k]; !ok {
			s.st.drivers[k] = d
		}
	}
}

// SeedAccount sets an account balance directly.
func (s *Store) SeedAccount(id string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.accounts[id] = domain.Account{ID: id, Balance: balance, CreatedAt: s.now()}
}

// Accounts returns a copy of all accounts.
func (s *Store) Accounts() map[string]domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.st.accounts)
}

// Bets returns all bets ordered by placement time then id.
func (s *Store) Bets() []domain.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.st.bets))
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Journal() []LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.journal)
}

func (s *Store) Event(id string) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.events[id]
	return e, ok
}

// txn gives the stores access to the state while Do holds the lock.
type txn struct{ s *Store }

func (t *txn) state() *state { return &t.s.st }

type ledger struct{ tx *txn }

func (l ledger) EnsureAccount(_ context.Context, accountID string) (domain.Account, error) {
	if accountID == "" {
		return domain.Account{}, domain.Invalidf("account id is required")
	}
	st := l.tx.state()
	if a, ok := st.accounts[accountID]; ok {
		return a, nil
	}
	a := domain.Account{ID: accountID, Balance: l.tx.s.gift, CreatedAt: l.tx.s.now()}
	st.accounts[accountID] = a
	if l.tx.s.gift.IsPositive() {
		st.journal = append(st.journal, LedgerEntry{accountID, domain.OpGift, l.tx.s.gift, l.tx.s.gift, ""})
	}
	return a, nil
}

func (l ledger) DebitIfSufficient(_ context.Context, accountID string, amount decimal.Decimal, ref string) (bool, error) {
	if !amount.IsPositive() {
		return false, domain.Invalidf("debit amount must be > 0")
	}
	st := l.tx.state()
	a, ok := st.accounts[accountID]
	if !ok || a.Balance.LessThan(amount) {
		return false, nil
	}
	a.Balance = a.Balance.Sub(amount)
	st.accounts[accountID] = a
	st.journal = append(st.journal, LedgerEntry{accountID, domain.OpDebit, amount, a.Balance, ref})
	return true, nil
}

func (l ledger) Credit(_ context.Context, accountID string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return domain.Invalidf("credit amount must be > 0")
	}
	st := l.tx.state()
	a, ok := st.accounts[accountID]
	if !ok {
		return domain.NotFoundf("account %s", accountID)
	}
	a.Balance = a.Balance.Add(amount)
	st.accounts[accountID] = a
	st.journal = append(st.journal, LedgerEntry{accountID, domain.OpCredit, amount, a.Balance, ref})
	return nil
}

func (l ledger) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	a, ok := l.tx.state().accounts[accountID]
	if !ok {
		return decimal.Zero, domain.NotFoundf("account %s", accountID)
	}
	return a.Balance, nil
}

type catalog struct{ tx *txn }

func (c catalog) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	e, ok := c.tx.state().events[eventID]
	if !ok {
		return domain.Event{}, domain.NotFoundf("event %s", eventID)
	}
	return e, nil
}

func (c catalog) ListEvents(_ context.Context, f domain.EventFilter) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range c.tx.state().events {
		if f.Year != nil && (e.Year == nil || *e.Year != *f.Year) {
			continue
		}
		if f.Country != "" && !strings.EqualFold(e.Country, f.Country) {
			continue
		}
		if f.SessionType != "" && !strings.EqualFold(e.SessionType, f.SessionType) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c catalog) InsertEventIfAbsent(_ context.Context, e domain.Event) (bool, error) {
	st := c.tx.state()
	if _, ok := st.events[e.ID]; ok {
		return false, nil
	}
	st.events[e.ID] = e
	return true, nil
}

func (c catalog) GetEventDriver(_ context.Context, eventID string, driverID int) (domain.EventDriver, error) {
	d, ok := c.tx.state().drivers[driverKey{eventID, driverID}]
	if !ok {
		return domain.EventDriver{}, domain.NotFoundf("driver %d for event %s", driverID, eventID)
	}
	return d, nil
}

func (c catalog) ListEventDrivers(_ context.Context, eventIDs ...string) ([]domain.EventDriver, error) {
	var out []domain.EventDriver
	for k, d := range c.tx.state().drivers {
		if slices.Contains(eventIDs, k.eventID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out, nil
}

func (c catalog) BindEventDrivers(ctx context.Context, eventID string, drivers []domain.EventDriver) ([]domain.EventDriver, error) {
	st := c.tx.state()
	if _, ok := st.events[eventID]; !ok {
		return nil, domain.NotFoundf("event %s", eventID)
	}
	for _, d := range drivers {
		d.EventID = eventID
		k := driverKey{eventID, d.DriverID}
		if _, ok := st.drivers[k]; !ok {
			st.drivers[k] = d
		}
	}
	return c.ListEventDrivers(ctx, eventID)
}

func (c catalog) CommitOutcome(_ context.Context, eventID string, winnerDriverID int) (bool, error) {
	st := c.tx.state()
	e, ok := st.events[eventID]
	if !ok || e.OutcomeDriverID != nil {
		return false, nil
	}
	w := winnerDriverID
	e.OutcomeDriverID = &w
	st.events[eventID] = e
	return true, nil
}

type bets struct{ tx *txn }

func (b bets) Insert(_ context.Context, bet domain.Bet) error {
	st := b.tx.state()
	if _, ok := st.bets[bet.ID]; ok {
		return domain.Conflictf("bet %s already exists", bet.ID)
	}
	if _, ok := st.accounts[bet.UserID]; !ok {
		return domain.Integrityf("bet %s references unknown account %s", bet.ID, bet.UserID)
	}
	if _, ok := st.events[bet.EventID]; !ok {
		return domain.Integrityf("bet %s references unknown event %s", bet.ID, bet.EventID)
	}
	st.bets[bet.ID] = bet
	return nil
}

func (b bets) Get(_ context.Context, betID string) (domain.Bet, error) {
	bet, ok := b.tx.state().bets[betID]
	if !ok {
		return domain.Bet{}, domain.NotFoundf("bet %s", betID)
	}
	return bet, nil
}

func (b bets) ListByEventAndStatus(_ context.Context, eventID string, status domain.BetStatus) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, bet := range b.tx.state().bets {
		if bet.EventID == eventID && bet.Status == status {
			out = append(out, bet)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (b bets) Resolve(_ context.Context, bet domain.Bet) error {
	st := b.tx.state()
	cur, ok := st.bets[bet.ID]
	if !ok || cur.Status != domain.BetPending {
		return domain.Integrityf("bet %s is not pending", bet.ID)
	}
	cur.Status = bet.Status
	cur.SettledAt = bet.SettledAt
	st.bets[bet.ID] = cur
	return nil
}
